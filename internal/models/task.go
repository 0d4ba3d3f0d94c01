package models

import "time"

// Task is a unit of work under a goal, optionally attached to a milestone.
// GoalID is always set, so goal-level queries reach milestone tasks too.
type Task struct {
	BaseModel
	Sharing `gorm:"embedded"`

	GoalID      string  `gorm:"column:goal_id;type:uuid;not null;index" json:"goal_id"`
	MilestoneID *string `gorm:"column:milestone_id;type:uuid;index" json:"milestone_id,omitempty"`

	Title       string     `gorm:"not null" json:"title"`
	Notes       string     `json:"notes"`
	DueDate     *time.Time `json:"due_date"`
	CompletedAt *time.Time `json:"completed_at"`
	Priority    int        `gorm:"default:0" json:"priority"`
}
