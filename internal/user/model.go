package user

import (
	"time"
)

// Role gates administrative endpoints.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is the persisted profile, table "users".
type User struct {
	// ID is a UUID v7 assigned on first sign-in.
	ID string `gorm:"primarykey;type:varchar(36)" json:"id"`

	// Username is unique and chosen by the user.
	Username string `gorm:"type:varchar(32);not null;uniqueIndex" json:"username"`

	AvatarURL string `json:"avatarUrl,omitempty"`
	Role      Role   `gorm:"type:varchar(16);not null" json:"role"`
	Bio       string `json:"bio,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string { return "users" }

// ProfileUpdate carries the editable profile fields. Nil leaves a field unchanged.
type ProfileUpdate struct {
	AvatarURL *string `json:"avatarUrl" binding:"omitempty,max=512"`
	Bio       *string `json:"bio" binding:"omitempty,max=1000"`
}
