package mysql

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"Ewm_Platform/internal/model"
	"Ewm_Platform/internal/pkg"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RequestRepository struct {
	DB *gorm.DB
}

// StatusUpdate 一次批量审核的结果，Rejected 包含因满员被连带驳回的申请
type StatusUpdate struct {
	Confirmed []model.Request
	Rejected  []model.Request
}

// Create 申请参加活动；自动确认路径下的容量校验与写入在同一个事务里
func (r *RequestRepository) Create(ctx context.Context, eventID, requesterID uint64, now time.Time) (*model.Request, error) {
	var req *model.Request
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev, err := lockEvent(tx, eventID)
		if err != nil {
			return err
		}
		if _, err = (&UserRepository{DB: tx}).Lock(ctx, requesterID, LockShare); err != nil {
			return err
		}
		if ev.InitiatorID == requesterID {
			return fmt.Errorf("%w: user id=%d is the initiator of event id=%d", pkg.ErrInvalidRequest, requesterID, eventID)
		}
		if ev.State != model.EventPublished {
			return fmt.Errorf("%w: event id=%d is %s, not PUBLISHED", pkg.ErrInvalidRequest, eventID, ev.State)
		}

		var active int64
		if err = tx.Model(&model.Request{}).
			Where("event_id = ? AND requester_id = ? AND status <> ?", eventID, requesterID, model.RequestCanceled).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("%w: user id=%d already has an active request for event id=%d", pkg.ErrDuplicateRequest, requesterID, eventID)
		}

		status := model.RequestPending
		if ev.AutoConfirm() {
			// 需要审核的申请允许在满员时继续排队，只有自动确认路径才在这里拦截
			if ev.ParticipantLimit > 0 {
				confirmed, err := countConfirmed(tx, eventID)
				if err != nil {
					return err
				}
				if confirmed >= ev.ParticipantLimit {
					return fmt.Errorf("%w: event id=%d has %d/%d participants", pkg.ErrCapacityExceeded, eventID, confirmed, ev.ParticipantLimit)
				}
			}
			status = model.RequestConfirmed
		}

		req = &model.Request{
			EventID:     eventID,
			RequesterID: requesterID,
			Status:      status,
			Created:     now,
		}
		if err = tx.Create(req).Error; err != nil {
			return err
		}
		if status == model.RequestConfirmed {
			if _, err = touchConfirmedCount(tx, eventID); err != nil {
				return err
			}
		}
		return insertOutbox(tx, req, now)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// UpdateStatuses 活动发起人批量确认或驳回待审申请，要么全部生效要么全部不生效。
// 确认后若刚好满员，其余待审申请全部驳回。
func (r *RequestRepository) UpdateStatuses(ctx context.Context, eventID, initiatorID uint64, ids []uint64, target model.RequestStatus, now time.Time) (*StatusUpdate, error) {
	if target != model.RequestConfirmed && target != model.RequestRejected {
		return nil, fmt.Errorf("%w: status must be CONFIRMED or REJECTED, got %q", pkg.ErrInvalidRequest, target)
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no request ids", pkg.ErrInvalidRequest)
	}

	out := &StatusUpdate{}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev, err := lockEvent(tx, eventID)
		if err != nil {
			return err
		}
		if ev.InitiatorID != initiatorID {
			return fmt.Errorf("%w: user id=%d is not the initiator of event id=%d", pkg.ErrNoAccessRights, initiatorID, eventID)
		}

		var reqs []model.Request
		if err = tx.Clauses(clause.Locking{Strength: LockUpdate}).
			Where("id IN ? AND event_id = ?", ids, eventID).
			Order("id ASC").
			Find(&reqs).Error; err != nil {
			return err
		}
		if len(reqs) != len(ids) {
			return fmt.Errorf("%w: requests %v of event id=%d", pkg.ErrNotFound, missingIDs(ids, reqs), eventID)
		}
		for _, rq := range reqs {
			if rq.Status == model.RequestConfirmed && target == model.RequestRejected {
				return fmt.Errorf("%w: request id=%d is already CONFIRMED, cancel it instead", pkg.ErrConditionNotMet, rq.ID)
			}
			if rq.Status != model.RequestPending {
				return fmt.Errorf("%w: request id=%d is %s, not PENDING", pkg.ErrConditionNotMet, rq.ID, rq.Status)
			}
		}

		if target == model.RequestRejected {
			if err = setStatus(tx, reqs, model.RequestRejected, now); err != nil {
				return err
			}
			out.Rejected = reqs
			return nil
		}

		if ev.State != model.EventPublished {
			return fmt.Errorf("%w: event id=%d is %s, not PUBLISHED", pkg.ErrConditionNotMet, eventID, ev.State)
		}
		confirmed, err := countConfirmed(tx, eventID)
		if err != nil {
			return err
		}
		if ev.ParticipantLimit > 0 && confirmed+int64(len(reqs)) > ev.ParticipantLimit {
			return fmt.Errorf("%w: event id=%d has %d/%d participants, cannot confirm %d more",
				pkg.ErrCapacityExceeded, eventID, confirmed, ev.ParticipantLimit, len(reqs))
		}
		if err = setStatus(tx, reqs, model.RequestConfirmed, now); err != nil {
			return err
		}
		out.Confirmed = reqs

		n, err := touchConfirmedCount(tx, eventID)
		if err != nil {
			return err
		}
		if ev.ParticipantLimit == 0 || n < ev.ParticipantLimit {
			return nil
		}
		// 名额刚好用完，剩余待审申请连带驳回
		var rest []model.Request
		if err = tx.Clauses(clause.Locking{Strength: LockUpdate}).
			Where("event_id = ? AND status = ?", eventID, model.RequestPending).
			Order("id ASC").
			Find(&rest).Error; err != nil {
			return err
		}
		if err = setStatus(tx, rest, model.RequestRejected, now); err != nil {
			return err
		}
		out.Rejected = rest
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Cancel 申请人撤回申请；已确认的名额释放后不会自动递补
func (r *RequestRepository) Cancel(ctx context.Context, requesterID, requestID uint64, now time.Time) (*model.Request, error) {
	var out *model.Request
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rq model.Request
		if err := tx.First(&rq, requestID).Error; err != nil {
			return notFound(err, "request id=%d", requestID)
		}
		if rq.RequesterID != requesterID {
			return fmt.Errorf("%w: request id=%d does not belong to user id=%d", pkg.ErrNoAccessRights, requestID, requesterID)
		}
		// 先锁活动再重读申请，和确认路径保持同样的加锁顺序
		if _, err := lockEvent(tx, rq.EventID); err != nil {
			return err
		}
		if err := tx.Clauses(clause.Locking{Strength: LockUpdate}).First(&rq, requestID).Error; err != nil {
			return notFound(err, "request id=%d", requestID)
		}
		if rq.Status == model.RequestCanceled {
			return fmt.Errorf("%w: request id=%d is already CANCELED", pkg.ErrConditionNotMet, requestID)
		}
		wasConfirmed := rq.Status == model.RequestConfirmed

		reqs := []model.Request{rq}
		if err := setStatus(tx, reqs, model.RequestCanceled, now); err != nil {
			return err
		}
		if wasConfirmed {
			if _, err := touchConfirmedCount(tx, rq.EventID); err != nil {
				return err
			}
		}
		out = &reqs[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RequestRepository) FindByID(ctx context.Context, id uint64) (*model.Request, error) {
	var rq model.Request
	if err := r.DB.WithContext(ctx).First(&rq, id).Error; err != nil {
		return nil, notFound(err, "request id=%d", id)
	}
	return &rq, nil
}

func (r *RequestRepository) ListForEvent(ctx context.Context, eventID uint64) ([]model.Request, error) {
	var list []model.Request
	err := r.DB.WithContext(ctx).Where("event_id = ?", eventID).Order("id ASC").Find(&list).Error
	return list, err
}

func (r *RequestRepository) ListForRequester(ctx context.Context, requesterID uint64) ([]model.Request, error) {
	var list []model.Request
	err := r.DB.WithContext(ctx).Where("requester_id = ?", requesterID).Order("id ASC").Find(&list).Error
	return list, err
}

// setStatus 批量改状态并为每条申请写 outbox
func setStatus(tx *gorm.DB, reqs []model.Request, status model.RequestStatus, now time.Time) error {
	if len(reqs) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(reqs))
	for i := range reqs {
		ids = append(ids, reqs[i].ID)
	}
	if err := tx.Model(&model.Request{}).
		Where("id IN ?", ids).
		Update("status", status).Error; err != nil {
		return err
	}
	for i := range reqs {
		reqs[i].Status = status
		if err := insertOutbox(tx, &reqs[i], now); err != nil {
			return err
		}
	}
	return nil
}

// insertOutbox 插入 outbox 事件表
func insertOutbox(tx *gorm.DB, rq *model.Request, now time.Time) error {
	payload, _ := json.Marshal(map[string]any{
		"event_time":   now.UTC().Format(time.RFC3339Nano),
		"request_id":   rq.ID,
		"event_id":     rq.EventID,
		"requester_id": rq.RequesterID,
		"status":       rq.Status,
	})
	ob := &model.RequestOutbox{
		EventType:   "request_" + strings.ToLower(string(rq.Status)),
		RequestID:   rq.ID,
		EventID:     rq.EventID,
		RequesterID: rq.RequesterID,
		Payload:     string(payload),
		Status:      model.OutboxPending,
	}
	return tx.Create(ob).Error
}

func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func missingIDs(want []uint64, got []model.Request) []uint64 {
	have := make(map[uint64]struct{}, len(got))
	for _, rq := range got {
		have[rq.ID] = struct{}{}
	}
	var out []uint64
	for _, id := range want {
		if _, ok := have[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
