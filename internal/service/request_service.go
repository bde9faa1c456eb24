package service

import (
	"context"
	"fmt"
	"time"

	"Ewm_Platform/internal/model"
	"Ewm_Platform/internal/pkg"
	"Ewm_Platform/internal/repository/mysql"

	"gorm.io/gorm"
)

// Locker 按活动串行化容量校验，Redis 实现见 repository/redis.EventLock
type Locker interface {
	WithLock(ctx context.Context, eventID uint64, fn func(ctx context.Context) error) error
}

// NopLocker 单进程部署时只依赖数据库行锁
type NopLocker struct{}

func (NopLocker) WithLock(ctx context.Context, _ uint64, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type RequestView struct {
	ID        uint64              `json:"id"`
	Created   pkg.DateTime        `json:"created"`
	Event     uint64              `json:"event"`
	Requester uint64              `json:"requester"`
	Status    model.RequestStatus `json:"status"`
}

type StatusUpdateView struct {
	ConfirmedRequests []RequestView `json:"confirmedRequests"`
	RejectedRequests  []RequestView `json:"rejectedRequests"`
}

func toRequestView(r *model.Request) RequestView {
	return RequestView{
		ID:        r.ID,
		Created:   pkg.NewDateTime(r.Created),
		Event:     r.EventID,
		Requester: r.RequesterID,
		Status:    r.Status,
	}
}

func toRequestViews(list []model.Request) []RequestView {
	out := make([]RequestView, 0, len(list))
	for i := range list {
		out = append(out, toRequestView(&list[i]))
	}
	return out
}

// RequestService 参与申请台账；所有改动确认人数的操作都先拿活动锁
type RequestService struct {
	requests *mysql.RequestRepository
	events   *mysql.EventRepository
	users    *mysql.UserRepository
	lock     Locker
	now      func() time.Time
}

func NewRequestService(db *gorm.DB, lock Locker) *RequestService {
	if lock == nil {
		lock = NopLocker{}
	}
	return &RequestService{
		requests: &mysql.RequestRepository{DB: db},
		events:   &mysql.EventRepository{DB: db},
		users:    &mysql.UserRepository{DB: db},
		lock:     lock,
		now:      time.Now,
	}
}

func (s *RequestService) Create(ctx context.Context, requesterID, eventID uint64) (RequestView, error) {
	if _, err := s.users.FindByID(ctx, requesterID); err != nil {
		return RequestView{}, err
	}
	var req *model.Request
	err := s.lock.WithLock(ctx, eventID, func(ctx context.Context) error {
		var err error
		req, err = s.requests.Create(ctx, eventID, requesterID, s.now())
		return err
	})
	if err != nil {
		return RequestView{}, err
	}
	pkg.RequestTransitions.WithLabelValues(string(req.Status)).Inc()
	return toRequestView(req), nil
}

func (s *RequestService) Confirm(ctx context.Context, initiatorID, eventID, requestID uint64) (RequestView, error) {
	res, err := s.UpdateStatuses(ctx, initiatorID, eventID, []uint64{requestID}, model.RequestConfirmed)
	if err != nil {
		return RequestView{}, err
	}
	return pick(res, requestID), nil
}

func (s *RequestService) Reject(ctx context.Context, initiatorID, eventID, requestID uint64) (RequestView, error) {
	res, err := s.UpdateStatuses(ctx, initiatorID, eventID, []uint64{requestID}, model.RequestRejected)
	if err != nil {
		return RequestView{}, err
	}
	return pick(res, requestID), nil
}

// UpdateStatuses 批量审核；结果里的驳回列表包含满员后被连带驳回的申请
func (s *RequestService) UpdateStatuses(ctx context.Context, initiatorID, eventID uint64, ids []uint64, target model.RequestStatus) (StatusUpdateView, error) {
	if _, err := s.users.FindByID(ctx, initiatorID); err != nil {
		return StatusUpdateView{}, err
	}
	var res *mysql.StatusUpdate
	err := s.lock.WithLock(ctx, eventID, func(ctx context.Context) error {
		var err error
		res, err = s.requests.UpdateStatuses(ctx, eventID, initiatorID, ids, target, s.now())
		return err
	})
	if err != nil {
		return StatusUpdateView{}, err
	}
	pkg.RequestTransitions.WithLabelValues(string(model.RequestConfirmed)).Add(float64(len(res.Confirmed)))
	pkg.RequestTransitions.WithLabelValues(string(model.RequestRejected)).Add(float64(len(res.Rejected)))
	return StatusUpdateView{
		ConfirmedRequests: toRequestViews(res.Confirmed),
		RejectedRequests:  toRequestViews(res.Rejected),
	}, nil
}

func (s *RequestService) Cancel(ctx context.Context, requesterID, requestID uint64) (RequestView, error) {
	if _, err := s.users.FindByID(ctx, requesterID); err != nil {
		return RequestView{}, err
	}
	existing, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return RequestView{}, err
	}
	var req *model.Request
	err = s.lock.WithLock(ctx, existing.EventID, func(ctx context.Context) error {
		var err error
		req, err = s.requests.Cancel(ctx, requesterID, requestID, s.now())
		return err
	})
	if err != nil {
		return RequestView{}, err
	}
	pkg.RequestTransitions.WithLabelValues(string(req.Status)).Inc()
	return toRequestView(req), nil
}

// ListForEvent 只有活动发起人能看到报名列表
func (s *RequestService) ListForEvent(ctx context.Context, initiatorID, eventID uint64) ([]RequestView, error) {
	ev, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.InitiatorID != initiatorID {
		return nil, fmt.Errorf("%w: user id=%d is not the initiator of event id=%d", pkg.ErrNoAccessRights, initiatorID, eventID)
	}
	list, err := s.requests.ListForEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return toRequestViews(list), nil
}

func (s *RequestService) ListForRequester(ctx context.Context, requesterID uint64) ([]RequestView, error) {
	if _, err := s.users.FindByID(ctx, requesterID); err != nil {
		return nil, err
	}
	list, err := s.requests.ListForRequester(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	return toRequestViews(list), nil
}

func pick(res StatusUpdateView, id uint64) RequestView {
	for _, v := range res.ConfirmedRequests {
		if v.ID == id {
			return v
		}
	}
	for _, v := range res.RejectedRequests {
		if v.ID == id {
			return v
		}
	}
	return RequestView{ID: id}
}
