package model

import "time"

type User struct {
	ID        uint64 `gorm:"primaryKey"`
	Name      string `gorm:"size:250;not null"`
	Email     string `gorm:"uniqueIndex;size:254;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
