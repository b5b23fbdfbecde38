package notifications

import (
	"fmt"

	"github.com/denizyilmazer/mingle-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notifier persists notifications for later delivery. This subsystem
// only enqueues; rendering and push delivery live elsewhere.
type Notifier struct {
	db *gorm.DB
}

func NewNotifier(db *gorm.DB) *Notifier {
	return &Notifier{db: db}
}

func (n *Notifier) Enqueue(userID uuid.UUID, notifType, content string, relatedUserID *uuid.UUID) error {
	notification := models.Notification{
		ID:            uuid.New(),
		UserID:        userID,
		Type:          notifType,
		Content:       content,
		RelatedUserID: relatedUserID,
	}
	if err := n.db.Create(&notification).Error; err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}
