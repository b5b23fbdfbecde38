package models

import (
	"time"

	"github.com/google/uuid"
)

// Friendship is a directed edge; a mutual friendship is two rows, one
// per direction. Referral conversion creates both.
type Friendship struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_friendships_pair" json:"user_id"`
	FriendID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_friendships_pair" json:"friend_id"`
	CreatedAt time.Time `json:"created_at"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Friend    User      `gorm:"foreignKey:FriendID" json:"-"`
}

func (Friendship) TableName() string {
	return "friendships"
}
