package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// PermissionRequired checks the gateway-injected X-User-Permissions header for
// a permission. Admin and manager roles pass any check.
func PermissionRequired(requiredPermission string) fiber.Handler {
	return func(c fiber.Ctx) error {
		log.Println("Permission required function called from", c.IP(), "Calling", c.Method(), "Request", c.OriginalURL())
		userPermissions := c.Get("X-User-Permissions")
		hasPermission := false
		if userPermissions != "" {
			permissions := strings.Split(userPermissions, ",")

			for _, perm := range permissions {
				if perm == requiredPermission || strings.HasPrefix(perm, "admin") || strings.HasPrefix(perm, "manager") {
					hasPermission = true
					break
				}
			}
		}

		if !hasPermission {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		return c.Next()
	}
}

// OwnerPermissionRequired only lets the learner named by the userId route
// parameter (or the given fixed ID) through.
func OwnerPermissionRequired(userID string) fiber.Handler {
	return func(c fiber.Ctx) error {
		log.Println("Owner required function called from", c.IP(), "Calling", c.Method(), "Request", c.OriginalURL())

		if userID == "" {
			userID = c.Params("userId")
			if userID == "" {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Unauthorized",
				})
			}
		}

		currentUserID := c.Get("X-User-ID")
		hasPermission := false
		if currentUserID != "" {
			if currentUserID == userID {
				hasPermission = true
			}
		}

		if !hasPermission {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		return c.Next()
	}
}

// RequireAnyPermission passes when the caller holds at least one of the given
// permissions.
func RequireAnyPermission(requiredPermissions ...string) fiber.Handler {
	return func(c fiber.Ctx) error {
		userPermissions := c.Get("X-User-Permissions")
		if userPermissions != "" {
			permissions := strings.Split(userPermissions, ",")
			for _, perm := range permissions {
				for _, required := range requiredPermissions {
					if perm == required {
						return c.Next()
					}
				}
			}
		}

		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}
}
