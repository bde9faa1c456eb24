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

type CompilationView struct {
	ID     uint64       `json:"id"`
	Title  string       `json:"title"`
	Pinned bool         `json:"pinned"`
	Events []Projection `json:"events"`
}

type CompilationInput struct {
	Title  *string
	Pinned *bool
	Events []uint64 // nil 表示不修改
}

// CompilationService 活动合集，合集内的活动按短格式展示
type CompilationService struct {
	repo    *mysql.CompilationRepository
	events  *mysql.EventRepository
	builder *ProjectionBuilder
}

func NewCompilationService(db *gorm.DB, builder *ProjectionBuilder) *CompilationService {
	return &CompilationService{
		repo:    &mysql.CompilationRepository{DB: db},
		events:  &mysql.EventRepository{DB: db},
		builder: builder,
	}
}

func (s *CompilationService) Create(ctx context.Context, in CompilationInput) (CompilationView, error) {
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return CompilationView{}, fmt.Errorf("%w: compilation title is required", pkg.ErrInvalidRequest)
	}
	events, err := s.loadEvents(ctx, in.Events)
	if err != nil {
		return CompilationView{}, err
	}
	c := &model.Compilation{Title: strings.TrimSpace(*in.Title), Events: events}
	if in.Pinned != nil {
		c.Pinned = *in.Pinned
	}
	if err = s.repo.Create(ctx, c); err != nil {
		return CompilationView{}, err
	}
	return s.render(ctx, c)
}

func (s *CompilationService) Update(ctx context.Context, id uint64, in CompilationInput) (CompilationView, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return CompilationView{}, err
	}
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return CompilationView{}, fmt.Errorf("%w: compilation title must not be blank", pkg.ErrInvalidRequest)
		}
		c.Title = strings.TrimSpace(*in.Title)
	}
	if in.Pinned != nil {
		c.Pinned = *in.Pinned
	}
	var events []model.Event
	if in.Events != nil {
		if events, err = s.loadEvents(ctx, in.Events); err != nil {
			return CompilationView{}, err
		}
	}
	if err = s.repo.Update(ctx, c, events); err != nil {
		return CompilationView{}, err
	}
	return s.render(ctx, c)
}

func (s *CompilationService) Get(ctx context.Context, id uint64) (CompilationView, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return CompilationView{}, err
	}
	return s.render(ctx, c)
}

func (s *CompilationService) List(ctx context.Context, pinned *bool, from, size int) ([]CompilationView, error) {
	from, size = page(from, size)
	list, err := s.repo.List(ctx, pinned, from, size)
	if err != nil {
		return nil, err
	}
	out := make([]CompilationView, 0, len(list))
	for i := range list {
		v, err := s.render(ctx, &list[i])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *CompilationService) Delete(ctx context.Context, id uint64) error {
	return s.repo.Delete(ctx, id)
}

// loadEvents 所有 id 都必须存在
func (s *CompilationService) loadEvents(ctx context.Context, ids []uint64) ([]model.Event, error) {
	events := []model.Event{}
	if len(ids) == 0 {
		return events, nil
	}
	seen := make(map[uint64]struct{}, len(ids))
	uniq := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			uniq = append(uniq, id)
		}
	}
	events, err := s.events.FindByIDs(ctx, uniq)
	if err != nil {
		return nil, err
	}
	if len(events) != len(uniq) {
		return nil, fmt.Errorf("%w: some of events %v do not exist", pkg.ErrNotFound, uniq)
	}
	return events, nil
}

func (s *CompilationService) render(ctx context.Context, c *model.Compilation) (CompilationView, error) {
	events, err := s.builder.Build(ctx, c.Events, ShapeShort, ViewWindow{})
	if err != nil {
		return CompilationView{}, err
	}
	return CompilationView{ID: c.ID, Title: c.Title, Pinned: c.Pinned, Events: events}, nil
}
