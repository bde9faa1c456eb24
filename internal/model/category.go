package model

import "time"

type Category struct {
	ID        uint64 `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex;size:50;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
