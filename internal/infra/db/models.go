package db

import "time"

type CountryModel struct {
	ID          string     `gorm:"column:id;type:uuid;primaryKey"`
	Code        string     `gorm:"column:code;size:30;not null"`
	Name        string     `gorm:"column:name;size:100;not null"`
	Description string     `gorm:"column:description;size:500"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null"`
	CreatedBy   string     `gorm:"column:created_by;size:100;not null"`
	UpdatedAt   *time.Time `gorm:"column:updated_at"`
	UpdatedBy   string     `gorm:"column:updated_by;size:100"`
}

func (CountryModel) TableName() string {
	return "country"
}
