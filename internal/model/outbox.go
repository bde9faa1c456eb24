package model

import "time"

const (
	OutboxPending int8 = 0
	OutboxSent    int8 = 1
	OutboxFailed  int8 = 2
)

// RequestOutbox 申请状态变更事件表，与状态变更同事务写入
type RequestOutbox struct {
	ID          uint64 `gorm:"primaryKey"`
	EventType   string `gorm:"size:32;not null"` // request_created / request_confirmed / request_rejected / request_canceled
	RequestID   uint64 `gorm:"not null"`
	EventID     uint64 `gorm:"not null"`
	RequesterID uint64 `gorm:"not null"`
	Payload     string `gorm:"type:text;not null"`
	Status      int8   `gorm:"not null;default:0;index;comment:'0=pending,1=sent,2=failed'"`
	Retry       int    `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (RequestOutbox) TableName() string { return "request_outbox" }
