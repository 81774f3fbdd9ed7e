package event

const (
	// Lesson progress events
	EventTypeLessonStarted   = "lesson.started"
	EventTypeProgressUpdated = "progress.updated"
	EventTypeLessonCompleted = "lesson.completed"
	EventTypeLessonDemoted   = "lesson.demoted"

	// Questionnaire events
	EventTypeQuizSubmitted = "quiz.submitted"
	EventTypeQuizPassed    = "quiz.passed"
	EventTypeQuizFailed    = "quiz.failed"
)

// Routing keys consumed from the course service.
const (
	RoutingKeyLessonContentAdded   = "lesson.content.added"
	RoutingKeyLessonContentRemoved = "lesson.content.removed"
)

// ProgressEvent represents lesson progress changes
type ProgressEvent struct {
	EventType       string  `json:"eventType"`
	UserID          string  `json:"userId"`
	LessonID        string  `json:"lessonId"`
	InstitutionID   string  `json:"institutionId"`
	ContentID       string  `json:"contentId,omitempty"`
	Status          string  `json:"status"`
	OverallProgress float64 `json:"overallProgress"`
	Timestamp       int64   `json:"timestamp"`
}

// SubmissionEvent represents questionnaire submission results
type SubmissionEvent struct {
	EventType       string `json:"eventType"`
	SubmissionID    string `json:"submissionId"`
	QuestionnaireID string `json:"questionnaireId"`
	UserID          string `json:"userId"`
	InstitutionID   string `json:"institutionId"`
	CourseID        string `json:"courseId,omitempty"`
	Score           int    `json:"score"`
	Passed          bool   `json:"passed"`
	Attempt         int    `json:"attempt"`
	Timestamp       int64  `json:"timestamp"`
}

// LessonContentEvent is consumed from the course service when a lesson's
// content list changes.
type LessonContentEvent struct {
	EventType string `json:"eventType"`
	LessonID  string `json:"lessonId"`
	ContentID string `json:"contentId"`
	Timestamp int64  `json:"timestamp"`
}
