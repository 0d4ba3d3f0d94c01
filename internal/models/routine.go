package models

// Routine is a recurring practice attached to a goal, e.g. "run 3x per week".
type Routine struct {
	BaseModel
	Sharing `gorm:"embedded"`

	GoalID string `gorm:"column:goal_id;type:uuid;not null;index" json:"goal_id"`

	Name      string `gorm:"not null" json:"name"`
	Cadence   string `gorm:"default:'weekly'" json:"cadence"`
	TimesPer  int    `gorm:"default:1" json:"times_per"`
	Active    bool   `gorm:"default:true" json:"active"`
	StreakLen int    `gorm:"default:0" json:"streak_len"`
}
