package middleware

import (
	"errors"
	"strings"

	"github.com/denizyilmazer/mingle-backend/internal/dto"
	"github.com/denizyilmazer/mingle-backend/internal/models"
	"github.com/denizyilmazer/mingle-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

const (
	localsUserKey    = "current_user"
	localsSessionKey = "current_session"
)

// SessionProtected validates the opaque bearer token against the session
// store. The store is authoritative: a deleted or expired row means the
// credential is gone, no denylist involved.
func SessionProtected(sessions *services.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearerToken(c)
		if raw == "" {
			return unauthorized(c, "Missing session token")
		}

		user, session, err := sessions.Validate(raw)
		if err != nil {
			if errors.Is(err, services.ErrSessionExpired) {
				return unauthorized(c, "Session expired")
			}
			return unauthorized(c, "Invalid session token")
		}

		c.Locals(localsUserKey, user)
		c.Locals(localsSessionKey, session)
		return c.Next()
	}
}

// CurrentUser returns the user attached by SessionProtected.
func CurrentUser(c *fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals(localsUserKey).(*models.User)
	return user, ok
}

// CurrentSession returns the session attached by SessionProtected.
func CurrentSession(c *fiber.Ctx) (*models.Session, bool) {
	session, ok := c.Locals(localsSessionKey).(*models.Session)
	return session, ok
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: message,
	})
}
