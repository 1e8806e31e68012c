package users

import "time"

const RoleAdmin = "admin"

// Administrator is the only account type. Password is nil for accounts that
// only ever signed in with Google.
type Administrator struct {
	ID           uint    `gorm:"primaryKey"`
	Email        string  `gorm:"type:varchar(255);not null;uniqueIndex:idx_administrators_email"`
	Password     *string `gorm:"type:varchar(255)"`
	AuthProvider string  `gorm:"type:varchar(20);not null;default:'local'"`
	GoogleSub    *string `gorm:"uniqueIndex:idx_administrators_google_sub"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
