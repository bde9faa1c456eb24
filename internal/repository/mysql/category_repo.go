package mysql

import (
	"context"

	"Ewm_Platform/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CategoryRepository struct {
	DB *gorm.DB
}

func (r *CategoryRepository) Create(ctx context.Context, c *model.Category) error {
	if err := r.DB.WithContext(ctx).Create(c).Error; err != nil {
		return duplicated(err, "category name=%q", c.Name)
	}
	return nil
}

func (r *CategoryRepository) UpdateName(ctx context.Context, id uint64, name string) (*model.Category, error) {
	c, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Name == name {
		return c, nil
	}
	c.Name = name
	if err = r.DB.WithContext(ctx).Save(c).Error; err != nil {
		return nil, duplicated(err, "category name=%q", name)
	}
	return c, nil
}

func (r *CategoryRepository) FindByID(ctx context.Context, id uint64) (*model.Category, error) {
	var c model.Category
	if err := r.DB.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFound(err, "category id=%d", id)
	}
	return &c, nil
}

// Lock 在事务内锁住分类行；删除用 UPDATE，引用方用 SHARE
func (r *CategoryRepository) Lock(ctx context.Context, id uint64, strength string) (*model.Category, error) {
	var c model.Category
	if err := r.DB.WithContext(ctx).Clauses(clause.Locking{Strength: strength}).First(&c, id).Error; err != nil {
		return nil, notFound(err, "category id=%d", id)
	}
	return &c, nil
}

func (r *CategoryRepository) FindByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Category, error) {
	out := make(map[uint64]model.Category, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var list []model.Category
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, c := range list {
		out[c.ID] = c
	}
	return out, nil
}

func (r *CategoryRepository) List(ctx context.Context, offset, limit int) ([]model.Category, error) {
	var list []model.Category
	err := r.DB.WithContext(ctx).Order("id ASC").Offset(offset).Limit(limit).Find(&list).Error
	return list, err
}

// Delete 调用方先做引用校验；不存在时报 NotFound
func (r *CategoryRepository) Delete(ctx context.Context, id uint64) error {
	tx := r.DB.WithContext(ctx).Delete(&model.Category{}, id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "category id=%d", id)
	}
	return nil
}
