package handlers

import (
	"log/slog"

	"github.com/denizyilmazer/mingle-backend/internal/dto"
	"github.com/denizyilmazer/mingle-backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdminHandler exposes the moderation switch that feeds the blocked
// flag: a blocked account never receives a session via any login path.
type AdminHandler struct {
	db *gorm.DB
}

func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{db: db}
}

func (h *AdminHandler) BlockUser(c *fiber.Ctx) error {
	return h.setBlocked(c, true)
}

func (h *AdminHandler) UnblockUser(c *fiber.Ctx) error {
	return h.setBlocked(c, false)
}

func (h *AdminHandler) setBlocked(c *fiber.Ctx, blocked bool) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	result := h.db.Model(&models.User{}).Where("id = ?", userID).Update("blocked", blocked)
	if result.Error != nil {
		return internalError(c)
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "User not found",
		})
	}

	if blocked {
		// Blocking also ends every live session immediately.
		if err := h.db.Delete(&models.Session{}, "user_id = ?", userID).Error; err != nil {
			slog.Error("failed to revoke sessions for blocked user", "error", err, "user_id", userID.String())
		}
	}

	return c.JSON(fiber.Map{"message": "User updated", "blocked": blocked})
}
