package models

import (
	"time"

	"github.com/google/uuid"
)

// LoginAttempt is an append-only record of a password login outcome,
// keyed by the normalized email. Rows older than 24h are pruned on write.
type LoginAttempt struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Identifier string    `gorm:"size:255;not null;index" json:"identifier"`
	Origin     string    `gorm:"size:64" json:"origin"`
	Success    bool      `gorm:"not null" json:"success"`
	CreatedAt  time.Time `gorm:"not null;index" json:"created_at"`
}
