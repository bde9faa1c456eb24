package model

import "time"

// Hit 一次页面访问记录，只追加
type Hit struct {
	ID        uint64    `gorm:"primaryKey"`
	App       string    `gorm:"size:64;not null;index:idx_hit_app_uri,priority:1"`
	URI       string    `gorm:"size:512;not null;index:idx_hit_app_uri,priority:2;index:idx_hit_uri_time,priority:1"`
	IP        string    `gorm:"size:64;not null"`
	Timestamp time.Time `gorm:"not null;index:idx_hit_uri_time,priority:2"`
}

// ViewStats 按 (app, uri) 分组后的访问量
type ViewStats struct {
	App  string `json:"app"`
	URI  string `json:"uri"`
	Hits int64  `json:"hits"`
}
