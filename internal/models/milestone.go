package models

import "time"

// Milestone is a dated checkpoint within a goal.
type Milestone struct {
	BaseModel
	Sharing `gorm:"embedded"`

	GoalID string `gorm:"column:goal_id;type:uuid;not null;index" json:"goal_id"`

	Name        string     `gorm:"not null" json:"name"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	CompletedAt *time.Time `json:"completed_at"`
}
