package model

import (
	"time"

	"gorm.io/gorm"
)

// Combo represents a bundled set of courses forming a learning path.
// The scheduling engine only holds weak references to it.
type Combo struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`

	// Relationships
	Courses []Course `gorm:"foreignKey:ComboID" json:"courses,omitempty"`
}

// Course represents a single course a session can be scheduled against
type Course struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	ComboID     *uint          `gorm:"index" json:"combo_id,omitempty"`
	Name        string         `gorm:"not null" json:"name"`
	Code        string         `gorm:"uniqueIndex;not null" json:"code"`
	SkillFocus  string         `gorm:"type:varchar(100)" json:"skill_focus"` // e.g., "listening", "grammar"
	Description string         `gorm:"type:text" json:"description"`

	// Relationships
	Combo   *Combo   `gorm:"foreignKey:ComboID" json:"-"`
	Lessons []Lesson `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"lessons,omitempty"`
}

// Lesson represents an individual lesson within a course
type Lesson struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	CourseID  uint           `gorm:"not null;index" json:"course_id"`
	Name      string         `gorm:"not null" json:"name"`
	Position  int            `gorm:"default:0" json:"position"`

	// Relationships
	Course Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}
