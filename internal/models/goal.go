package models

import "time"

// Goal belongs to an Area and contains milestones, tasks, and routines.
type Goal struct {
	BaseModel
	Sharing `gorm:"embedded"`

	AreaID string `gorm:"column:area_id;type:uuid;not null;index" json:"area_id"`

	Name        string     `gorm:"not null" json:"name"`
	Description string     `json:"description"`
	TargetDate  *time.Time `json:"target_date"`
	Archived    bool       `gorm:"default:false" json:"archived"`

	Milestones []Milestone `gorm:"foreignKey:GoalID" json:"milestones,omitempty"`
	Tasks      []Task      `gorm:"foreignKey:GoalID" json:"tasks,omitempty"`
	Routines   []Routine   `gorm:"foreignKey:GoalID" json:"routines,omitempty"`
}
