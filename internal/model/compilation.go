package model

import "time"

// Compilation 活动合集
type Compilation struct {
	ID        uint64  `gorm:"primaryKey"`
	Title     string  `gorm:"size:50;not null"`
	Pinned    bool    `gorm:"not null;index"`
	Events    []Event `gorm:"many2many:compilation_events;"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
