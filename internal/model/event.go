package model

import (
	"fmt"
	"time"
)

type EventState string

const (
	EventPending      EventState = "PENDING"
	EventReModeration EventState = "RE_MODERATION"
	EventPublished    EventState = "PUBLISHED"
	EventRejected     EventState = "REJECTED"
	EventCanceled     EventState = "CANCELED"
)

// Editable 只有未发布或已取消的活动允许修改内容，发布后的信息冻结
func (s EventState) Editable() bool {
	return s == EventPending || s == EventReModeration || s == EventCanceled
}

// NeedsComment 这些状态下必须挂一条未关闭的审核备注
func (s EventState) NeedsComment() bool {
	return s == EventReModeration || s == EventRejected
}

func ParseEventState(s string) (EventState, bool) {
	switch st := EventState(s); st {
	case EventPending, EventReModeration, EventPublished, EventRejected, EventCanceled:
		return st, true
	}
	return "", false
}

type Event struct {
	ID                uint64     `gorm:"primaryKey"`
	Title             string     `gorm:"size:120;not null"`
	Annotation        string     `gorm:"size:2000;not null"`
	Description       string     `gorm:"type:text"`
	CategoryID        uint64     `gorm:"not null;index"`
	InitiatorID       uint64     `gorm:"not null;index"`
	Lat               float64    `gorm:"not null"`
	Lon               float64    `gorm:"not null"`
	EventDate         time.Time  `gorm:"not null;index"`
	CreatedOn         time.Time  `gorm:"not null"`
	PublishedOn       *time.Time
	Paid              bool       `gorm:"not null"`
	ParticipantLimit  int64      `gorm:"not null"` // 0=不限人数
	RequestModeration bool       `gorm:"not null"`
	State             EventState `gorm:"size:16;not null;index"`
	// ConfirmedRequests 由 requests 表派生，只允许在改动请求状态的同一事务里重算
	ConfirmedRequests int64 `gorm:"not null;default:0"`
	// Views 读时从统计服务拉取，不落库
	Views int64 `gorm:"-"`
}

// URI 活动在统计服务中的规范路径
func (e *Event) URI() string {
	return EventURI(e.ID)
}

func EventURI(id uint64) string {
	return fmt.Sprintf("/events/%d", id)
}

// AutoConfirm 不需要审核或不限人数时，申请直接确认
func (e *Event) AutoConfirm() bool {
	return !e.RequestModeration || e.ParticipantLimit == 0
}

// IsFull 人数已满（不限人数的活动永远不会满）
func (e *Event) IsFull() bool {
	return e.ParticipantLimit > 0 && e.ConfirmedRequests >= e.ParticipantLimit
}
