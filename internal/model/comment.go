package model

import "time"

// Comment 审核备注：驳回、降级或取消时打开，重新提交或发布时关闭
type Comment struct {
	ID      uint64    `gorm:"primaryKey"`
	EventID uint64    `gorm:"not null;index:idx_comment_event_open,priority:1"`
	Text    string    `gorm:"size:2000;not null"`
	Created time.Time `gorm:"not null"`
	Closed  bool      `gorm:"not null;index:idx_comment_event_open,priority:2"`
}
