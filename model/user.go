package model

import (
	"time"

	"gorm.io/gorm"
)

// User represents a registered student. Authentication flows live in the
// outer platform; the engine only needs the identity row for ownership
// scoping and foreign keys.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Name      string         `gorm:"not null" json:"name"`
	Role      string         `gorm:"type:varchar(20);default:'student'" json:"role"` // student, admin

	// Relationships
	Sessions  []StudySession  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Reminders []StudyReminder `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
