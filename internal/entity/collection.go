package entity

import "time"

type Collection struct {
	Id        string `gorm:"primaryKey;size:128"`
	Name      string
	ImageUrl  string
	UpdatedAt time.Time
}

// DisplayName 没有名称时使用 id
func (c Collection) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Id
}
