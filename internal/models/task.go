package models

import (
	"time"

	"github.com/gofrs/uuid"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// ValidPriority reports whether p is one of the accepted priority values.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Task is owned by exactly one user. UserID holds the verified token subject
// and is never serialized into responses.
type Task struct {
	ID          uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	UserID      string     `json:"-" gorm:"index;not null"`
	Title       string     `json:"title" gorm:"not null"`
	Description string     `json:"description,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty" gorm:"type:timestamp"`
	Priority    string     `json:"priority" gorm:"not null;default:'medium'"`
	Category    string     `json:"category,omitempty"`
	Completed   bool       `json:"completed" gorm:"not null;default:false"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
