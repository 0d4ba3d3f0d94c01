package models

// Area is the top of the containment tree, grouping related goals under a
// common theme (e.g. "Health", "Career").
type Area struct {
	BaseModel
	Sharing `gorm:"embedded"`

	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`

	Goals []Goal `gorm:"foreignKey:AreaID" json:"goals,omitempty"`
}
