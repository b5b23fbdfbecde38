package middleware

import (
	"github.com/denizyilmazer/mingle-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// AdminRequired gates a route on the authenticated user's admin flag.
// It must run after SessionProtected.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return unauthorized(c, "Unauthorized")
		}
		if !user.Admin {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Admin access required",
			})
		}
		return c.Next()
	}
}
