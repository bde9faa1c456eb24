package mysql

import (
	"context"

	"Ewm_Platform/internal/model"

	"gorm.io/gorm"
)

type CompilationRepository struct {
	DB *gorm.DB
}

func (r *CompilationRepository) Create(ctx context.Context, c *model.Compilation) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

// Update 事件列表为 nil 时保留原关联
func (r *CompilationRepository) Update(ctx context.Context, c *model.Compilation, events []model.Event) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Events").Save(c).Error; err != nil {
			return err
		}
		if events == nil {
			return nil
		}
		if err := tx.Model(c).Association("Events").Replace(events); err != nil {
			return err
		}
		c.Events = events
		return nil
	})
}

func (r *CompilationRepository) FindByID(ctx context.Context, id uint64) (*model.Compilation, error) {
	var c model.Compilation
	if err := r.DB.WithContext(ctx).Preload("Events").First(&c, id).Error; err != nil {
		return nil, notFound(err, "compilation id=%d", id)
	}
	return &c, nil
}

func (r *CompilationRepository) List(ctx context.Context, pinned *bool, offset, limit int) ([]model.Compilation, error) {
	q := r.DB.WithContext(ctx).Preload("Events")
	if pinned != nil {
		q = q.Where("pinned = ?", *pinned)
	}
	var list []model.Compilation
	err := q.Order("id ASC").Offset(offset).Limit(limit).Find(&list).Error
	return list, err
}

func (r *CompilationRepository) Delete(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c := &model.Compilation{ID: id}
		if err := tx.Model(c).Association("Events").Clear(); err != nil {
			return err
		}
		res := tx.Delete(&model.Compilation{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound(gorm.ErrRecordNotFound, "compilation id=%d", id)
		}
		return nil
	})
}
