package middleware

import (
	"strings"

	"docqa/app/api"

	"github.com/gofiber/fiber/v2"
)

// UserKey is the locals key holding the authenticated user namespace.
const UserKey = "userID"

// RequireUser rejects requests without an X-User-ID header. Every
// downstream operation is scoped to this namespace.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get("X-User-ID"))
		if userID == "" {
			return api.ErrUnAuthorized("missing X-User-ID header")
		}
		c.Locals(UserKey, userID)
		return c.Next()
	}
}

// UserID reads the namespace set by RequireUser.
func UserID(c *fiber.Ctx) string {
	userID, _ := c.Locals(UserKey).(string)
	return userID
}
