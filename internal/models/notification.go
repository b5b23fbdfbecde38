package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an enqueued in-app notification. Delivery and
// rendering happen elsewhere; this subsystem only inserts rows.
type Notification struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Type          string     `gorm:"size:32;not null" json:"type"`
	Content       string     `gorm:"type:text" json:"content"`
	RelatedUserID *uuid.UUID `gorm:"type:uuid" json:"related_user_id,omitempty"`
	Read          bool       `gorm:"default:false" json:"read"`
	CreatedAt     time.Time  `json:"created_at"`
}
