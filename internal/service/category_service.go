package service

import (
	"context"
	"fmt"
	"strings"

	"Ewm_Platform/internal/model"
	"Ewm_Platform/internal/pkg"
	"Ewm_Platform/internal/repository/mysql"

	"gorm.io/gorm"
)

type CategoryService struct {
	db   *gorm.DB
	repo *mysql.CategoryRepository
}

func NewCategoryService(db *gorm.DB) *CategoryService {
	return &CategoryService{
		db:   db,
		repo: &mysql.CategoryRepository{DB: db},
	}
}

func (s *CategoryService) Create(ctx context.Context, name string) (CategoryView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return CategoryView{}, fmt.Errorf("%w: category name is required", pkg.ErrInvalidRequest)
	}
	c := &model.Category{Name: name}
	if err := s.repo.Create(ctx, c); err != nil {
		return CategoryView{}, err
	}
	return CategoryView{ID: c.ID, Name: c.Name}, nil
}

func (s *CategoryService) Rename(ctx context.Context, id uint64, name string) (CategoryView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return CategoryView{}, fmt.Errorf("%w: category name is required", pkg.ErrInvalidRequest)
	}
	c, err := s.repo.UpdateName(ctx, id, name)
	if err != nil {
		return CategoryView{}, err
	}
	return CategoryView{ID: c.ID, Name: c.Name}, nil
}

func (s *CategoryService) Get(ctx context.Context, id uint64) (CategoryView, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return CategoryView{}, err
	}
	return CategoryView{ID: c.ID, Name: c.Name}, nil
}

func (s *CategoryService) List(ctx context.Context, from, size int) ([]CategoryView, error) {
	from, size = page(from, size)
	list, err := s.repo.List(ctx, from, size)
	if err != nil {
		return nil, err
	}
	out := make([]CategoryView, 0, len(list))
	for _, c := range list {
		out = append(out, CategoryView{ID: c.ID, Name: c.Name})
	}
	return out, nil
}

// Delete 还有活动引用该分类时不允许删除；锁住分类行后校验和删除在同一事务
func (s *CategoryService) Delete(ctx context.Context, id uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cats := &mysql.CategoryRepository{DB: tx}
		if _, err := cats.Lock(ctx, id, mysql.LockUpdate); err != nil {
			return err
		}
		if err := (&mysql.EventRepository{DB: tx}).AssertCanDeleteCategory(ctx, id); err != nil {
			return err
		}
		return cats.Delete(ctx, id)
	})
}
