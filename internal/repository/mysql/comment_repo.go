package mysql

import (
	"context"
	"errors"
	"time"

	"Ewm_Platform/internal/model"

	"gorm.io/gorm"
)

type CommentRepository struct {
	DB *gorm.DB
}

// WithTx 在外层事务内复用
func (r *CommentRepository) WithTx(tx *gorm.DB) *CommentRepository {
	return &CommentRepository{DB: tx}
}

// Open 打开一条新备注
func (r *CommentRepository) Open(eventID uint64, text string, now time.Time) (*model.Comment, error) {
	c := &model.Comment{EventID: eventID, Text: text, Created: now}
	if err := r.DB.Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// CloseOpen 关闭活动当前所有未关闭的备注（幂等）
func (r *CommentRepository) CloseOpen(eventID uint64) error {
	return r.DB.Model(&model.Comment{}).
		Where("event_id = ? AND closed = ?", eventID, false).
		Update("closed", true).Error
}

// Replace 关闭旧备注并打开新备注
func (r *CommentRepository) Replace(eventID uint64, text string, now time.Time) (*model.Comment, error) {
	if err := r.CloseOpen(eventID); err != nil {
		return nil, err
	}
	return r.Open(eventID, text, now)
}

// FindOpen 没有未关闭的备注时返回 nil
func (r *CommentRepository) FindOpen(ctx context.Context, eventID uint64) (*model.Comment, error) {
	var c model.Comment
	err := r.DB.WithContext(ctx).
		Where("event_id = ? AND closed = ?", eventID, false).
		Order("id DESC").
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindOpenByEvents 批量取未关闭备注，key 为活动 id
func (r *CommentRepository) FindOpenByEvents(ctx context.Context, eventIDs []uint64) (map[uint64]model.Comment, error) {
	out := make(map[uint64]model.Comment, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}
	var list []model.Comment
	if err := r.DB.WithContext(ctx).
		Where("event_id IN ? AND closed = ?", eventIDs, false).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	for _, c := range list {
		out[c.EventID] = c
	}
	return out, nil
}

func (r *CommentRepository) ListByEvent(ctx context.Context, eventID uint64) ([]model.Comment, error) {
	var list []model.Comment
	err := r.DB.WithContext(ctx).Where("event_id = ?", eventID).Order("id ASC").Find(&list).Error
	return list, err
}
