package models

import (
	"time"

	"github.com/google/uuid"
)

// Referral records a converted referral code redemption.
type Referral struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ReferrerID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_referrals_pair" json:"referrer_id"`
	ReferredID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_referrals_pair" json:"referred_id"`
	CodeUsed   string    `gorm:"size:16;not null" json:"code_used"`
	CreatedAt  time.Time `json:"created_at"`
	Referrer   User      `gorm:"foreignKey:ReferrerID" json:"-"`
	Referred   User      `gorm:"foreignKey:ReferredID" json:"-"`
}
