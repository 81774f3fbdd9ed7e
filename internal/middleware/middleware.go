package middleware

const (
	// Progress permissions
	ReadProgressPermission    = "read:progress"
	ReadAllProgressPermission = "read:progress:all"
	WriteProgressPermission   = "write:progress"
	AdminProgressPermission   = "admin:progress"

	// Submission permissions
	ReadSubmissionPermission  = "read:submission"
	WriteSubmissionPermission = "write:submission"
	AdminSubmissionPermission = "admin:submission"

	// Admin permissions (for backward compatibility)
	AdminPermission   = "admin"
	ManagerPermission = "manager"
)
