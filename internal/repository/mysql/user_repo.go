package mysql

import (
	"context"

	"Ewm_Platform/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	DB *gorm.DB
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.DB.WithContext(ctx).Create(user).Error; err != nil {
		return duplicated(err, "user email=%q", user.Email)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, "user id=%d", id)
	}
	return &user, nil
}

// Lock 在事务内锁住用户行；删除用 UPDATE，引用方用 SHARE
func (r *UserRepository) Lock(ctx context.Context, id uint64, strength string) (*model.User, error) {
	var user model.User
	if err := r.DB.WithContext(ctx).Clauses(clause.Locking{Strength: strength}).First(&user, id).Error; err != nil {
		return nil, notFound(err, "user id=%d", id)
	}
	return &user, nil
}

func (r *UserRepository) FindByIDs(ctx context.Context, ids []uint64) (map[uint64]model.User, error) {
	out := make(map[uint64]model.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var list []model.User
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, u := range list {
		out[u.ID] = u
	}
	return out, nil
}

// List ids 为空时分页列出全部用户
func (r *UserRepository) List(ctx context.Context, ids []uint64, offset, limit int) ([]model.User, error) {
	q := r.DB.WithContext(ctx).Model(&model.User{})
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	var list []model.User
	err := q.Order("id ASC").Offset(offset).Limit(limit).Find(&list).Error
	return list, err
}

func (r *UserRepository) Delete(ctx context.Context, id uint64) error {
	tx := r.DB.WithContext(ctx).Delete(&model.User{}, id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "user id=%d", id)
	}
	return nil
}
