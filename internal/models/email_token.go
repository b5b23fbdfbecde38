package models

import (
	"time"

	"github.com/google/uuid"
)

// Token purposes.
const (
	TokenPurposeVerify = "verify"
	TokenPurposeReset  = "reset"
)

// EmailToken is a single-use credential mailed to a user, for email
// verification or password reset. The row is deleted on consumption,
// whether the outcome was success or a detected expiry.
type EmailToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	TokenHash string    `gorm:"uniqueIndex;not null;size:64" json:"-"`
	Purpose   string    `gorm:"size:16;not null;index" json:"purpose"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
}
