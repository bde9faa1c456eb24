package model

import "time"

type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestConfirmed RequestStatus = "CONFIRMED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestCanceled  RequestStatus = "CANCELED"
)

// Request 参与申请，只改状态不物理删除
type Request struct {
	ID          uint64        `gorm:"primaryKey"`
	EventID     uint64        `gorm:"not null;index:idx_request_event_status,priority:1;index:idx_request_event_requester,priority:1"`
	RequesterID uint64        `gorm:"not null;index;index:idx_request_event_requester,priority:2"`
	Status      RequestStatus `gorm:"size:16;not null;index:idx_request_event_status,priority:2"`
	Created     time.Time     `gorm:"not null"`
	UpdatedAt   time.Time
}

// Active 未取消的申请都算有效，同一用户同一活动最多一条
func (r *Request) Active() bool {
	return r.Status != RequestCanceled
}
