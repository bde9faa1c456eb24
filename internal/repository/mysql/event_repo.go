package mysql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"Ewm_Platform/internal/model"
	"Ewm_Platform/internal/pkg"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EventRepository struct {
	DB *gorm.DB
}

// AdminFilter 管理端检索条件，空切片表示不过滤
type AdminFilter struct {
	Users      []uint64
	States     []model.EventState
	Categories []uint64
	RangeStart *time.Time
	RangeEnd   *time.Time
	Offset     int
	Limit      int
}

// PublicFilter 公开检索只返回已发布活动；Limit<=0 表示不分页（按浏览量排序时由上层分页）
type PublicFilter struct {
	Text          string
	Categories    []uint64
	Paid          *bool
	RangeStart    *time.Time
	RangeEnd      *time.Time
	OnlyAvailable bool
	Now           time.Time
	Offset        int
	Limit         int
}

// ConfirmedPair 对账用
type ConfirmedPair struct {
	ID                uint64
	ConfirmedRequests int64
}

func (r *EventRepository) Create(ctx context.Context, ev *model.Event) error {
	return r.DB.WithContext(ctx).Create(ev).Error
}

func (r *EventRepository) FindByID(ctx context.Context, id uint64) (*model.Event, error) {
	var ev model.Event
	if err := r.DB.WithContext(ctx).First(&ev, id).Error; err != nil {
		return nil, notFound(err, "event id=%d", id)
	}
	return &ev, nil
}

func (r *EventRepository) FindByIDs(ctx context.Context, ids []uint64) ([]model.Event, error) {
	var list []model.Event
	if len(ids) == 0 {
		return list, nil
	}
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&list).Error
	return list, err
}

func (r *EventRepository) ListByInitiator(ctx context.Context, initiatorID uint64, offset, limit int) ([]model.Event, error) {
	var list []model.Event
	err := r.DB.WithContext(ctx).
		Where("initiator_id = ?", initiatorID).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *EventRepository) SearchAdmin(ctx context.Context, f AdminFilter) ([]model.Event, error) {
	q := r.DB.WithContext(ctx).Model(&model.Event{})
	if len(f.Users) > 0 {
		q = q.Where("initiator_id IN ?", f.Users)
	}
	if len(f.States) > 0 {
		q = q.Where("state IN ?", f.States)
	}
	if len(f.Categories) > 0 {
		q = q.Where("category_id IN ?", f.Categories)
	}
	if f.RangeStart != nil {
		q = q.Where("event_date >= ?", *f.RangeStart)
	}
	if f.RangeEnd != nil {
		q = q.Where("event_date <= ?", *f.RangeEnd)
	}
	var list []model.Event
	err := q.Order("id ASC").Offset(f.Offset).Limit(f.Limit).Find(&list).Error
	return list, err
}

func (r *EventRepository) SearchPublic(ctx context.Context, f PublicFilter) ([]model.Event, error) {
	q := r.DB.WithContext(ctx).Model(&model.Event{}).Where("state = ?", model.EventPublished)
	if text := strings.TrimSpace(f.Text); text != "" {
		like := "%" + strings.ToLower(text) + "%"
		q = q.Where("(LOWER(annotation) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}
	if len(f.Categories) > 0 {
		q = q.Where("category_id IN ?", f.Categories)
	}
	if f.Paid != nil {
		q = q.Where("paid = ?", *f.Paid)
	}
	// 未给时间范围时只看未来的活动
	if f.RangeStart == nil && f.RangeEnd == nil {
		q = q.Where("event_date > ?", f.Now)
	}
	if f.RangeStart != nil {
		q = q.Where("event_date >= ?", *f.RangeStart)
	}
	if f.RangeEnd != nil {
		q = q.Where("event_date <= ?", *f.RangeEnd)
	}
	if f.OnlyAvailable {
		q = q.Where("(participant_limit = 0 OR confirmed_requests < participant_limit)")
	}
	q = q.Order("event_date ASC, id ASC")
	if f.Limit > 0 {
		q = q.Offset(f.Offset).Limit(f.Limit)
	}
	var list []model.Event
	err := q.Find(&list).Error
	return list, err
}

// Update 只在调用方已经完成状态校验后使用
func (r *EventRepository) Update(ctx context.Context, ev *model.Event) error {
	return r.DB.WithContext(ctx).Save(ev).Error
}

// Transition 锁住活动行后执行状态变更，fn 内的备注读写与活动保存同属一个事务
func (r *EventRepository) Transition(ctx context.Context, eventID uint64, fn func(tx *gorm.DB, ev *model.Event) error) (*model.Event, error) {
	var out *model.Event
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev, err := lockEvent(tx, eventID)
		if err != nil {
			return err
		}
		if err = fn(tx, ev); err != nil {
			return err
		}
		if err = tx.Save(ev).Error; err != nil {
			return err
		}
		out = ev
		return nil
	})
	return out, err
}

// AssertCanDeleteCategory 分类被任何活动引用时不能删除
func (r *EventRepository) AssertCanDeleteCategory(ctx context.Context, categoryID uint64) error {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&model.Event{}).
		Where("category_id = ?", categoryID).
		Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: category id=%d is used by %d event(s)", pkg.ErrConditionNotMet, categoryID, n)
	}
	return nil
}

// AssertCanDeleteUser 用户发起过活动或提交过申请时不能删除
func (r *EventRepository) AssertCanDeleteUser(ctx context.Context, userID uint64) error {
	db := r.DB.WithContext(ctx)
	var events, requests int64
	if err := db.Model(&model.Event{}).Where("initiator_id = ?", userID).Count(&events).Error; err != nil {
		return err
	}
	if err := db.Model(&model.Request{}).Where("requester_id = ?", userID).Count(&requests).Error; err != nil {
		return err
	}
	if events > 0 || requests > 0 {
		return fmt.Errorf("%w: user id=%d has %d event(s) and %d request(s)", pkg.ErrConditionNotMet, userID, events, requests)
	}
	return nil
}

// TouchConfirmedCount 从请求表重算已确认人数
func (r *EventRepository) TouchConfirmedCount(ctx context.Context, eventID uint64) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockEvent(tx, eventID); err != nil {
			return err
		}
		var err error
		n, err = touchConfirmedCount(tx, eventID)
		return err
	})
	return n, err
}

// ReconcileList 对账批量查询
func (r *EventRepository) ReconcileList(ctx context.Context, batchSize int, lastID uint64) ([]ConfirmedPair, uint64, error) {
	var list []ConfirmedPair
	if err := r.DB.WithContext(ctx).Model(&model.Event{}).
		Select("id", "confirmed_requests").
		Where("id > ?", lastID).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, lastID, err
	}
	if len(list) == 0 {
		return nil, lastID, nil
	}
	return list, list[len(list)-1].ID, nil
}

// RealConfirmed 请求表里的真实确认人数
func (r *EventRepository) RealConfirmed(ctx context.Context, eventID uint64) (int64, error) {
	return countConfirmed(r.DB.WithContext(ctx), eventID)
}

// 行锁强度，传给 clause.Locking
const (
	LockUpdate = "UPDATE"
	LockShare  = "SHARE"
)

// lockEvent select for update 锁住活动行，容量校验和计数重算都在这把锁下
func lockEvent(tx *gorm.DB, eventID uint64) (*model.Event, error) {
	var ev model.Event
	if err := tx.Clauses(clause.Locking{Strength: LockUpdate}).First(&ev, eventID).Error; err != nil {
		return nil, notFound(err, "event id=%d", eventID)
	}
	return &ev, nil
}

func countConfirmed(tx *gorm.DB, eventID uint64) (int64, error) {
	var n int64
	err := tx.Model(&model.Request{}).
		Where("event_id = ? AND status = ?", eventID, model.RequestConfirmed).
		Count(&n).Error
	return n, err
}

func touchConfirmedCount(tx *gorm.DB, eventID uint64) (int64, error) {
	n, err := countConfirmed(tx, eventID)
	if err != nil {
		return 0, err
	}
	if err = tx.Model(&model.Event{}).
		Where("id = ?", eventID).
		UpdateColumn("confirmed_requests", n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
