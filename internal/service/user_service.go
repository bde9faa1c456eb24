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

type UserView struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserService 管理端用户维护
type UserService struct {
	db   *gorm.DB
	repo *mysql.UserRepository
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db, repo: &mysql.UserRepository{DB: db}}
}

func (s *UserService) Create(ctx context.Context, name, email string) (UserView, error) {
	name, email = strings.TrimSpace(name), strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return UserView{}, fmt.Errorf("%w: name and email are required", pkg.ErrInvalidRequest)
	}
	u := &model.User{Name: name, Email: email}
	if err := s.repo.Create(ctx, u); err != nil {
		return UserView{}, err
	}
	return toUserView(u), nil
}

func (s *UserService) List(ctx context.Context, ids []uint64, from, size int) ([]UserView, error) {
	from, size = page(from, size)
	list, err := s.repo.List(ctx, ids, from, size)
	if err != nil {
		return nil, err
	}
	out := make([]UserView, 0, len(list))
	for i := range list {
		out = append(out, toUserView(&list[i]))
	}
	return out, nil
}

// Delete 用户发起过活动或提交过申请时不允许删除
func (s *UserService) Delete(ctx context.Context, id uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := &mysql.UserRepository{DB: tx}
		if _, err := users.Lock(ctx, id, mysql.LockUpdate); err != nil {
			return err
		}
		if err := (&mysql.EventRepository{DB: tx}).AssertCanDeleteUser(ctx, id); err != nil {
			return err
		}
		return users.Delete(ctx, id)
	})
}

func toUserView(u *model.User) UserView {
	return UserView{ID: u.ID, Name: u.Name, Email: u.Email}
}
