package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"Ewm_Platform/internal/model"
	"Ewm_Platform/internal/pkg"
	"Ewm_Platform/internal/repository/mysql"

	"gorm.io/gorm"
)

// StatsService 访问记录的写入与聚合查询
type StatsService struct {
	repo *mysql.HitRepository
	now  func() time.Time
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{
		repo: &mysql.HitRepository{DB: db},
		now:  time.Now,
	}
}

// Record 追加一条访问记录，不做写入去重
func (s *StatsService) Record(ctx context.Context, in pkg.EndpointHit) (*model.Hit, error) {
	uri := strings.TrimSpace(in.URI)
	if uri == "" {
		return nil, fmt.Errorf("%w: hit uri is empty", pkg.ErrInvalidRequest)
	}
	app := strings.TrimSpace(in.App)
	if app == "" {
		return nil, fmt.Errorf("%w: hit app is empty", pkg.ErrInvalidRequest)
	}
	ts := in.Timestamp.Time()
	if ts.IsZero() {
		ts = s.now()
	}
	hit := &model.Hit{App: app, URI: uri, IP: in.IP, Timestamp: ts}
	if err := s.repo.Create(ctx, hit); err != nil {
		return nil, err
	}
	pkg.HitsRecorded.WithLabelValues(app).Inc()
	return hit, nil
}

// HandleHitMessage kafka 消费回调
func (s *StatsService) HandleHitMessage(ctx context.Context, value []byte) error {
	var in pkg.EndpointHit
	if err := json.Unmarshal(value, &in); err != nil {
		return fmt.Errorf("%w: decode hit: %v", pkg.ErrInvalidRequest, err)
	}
	_, err := s.Record(ctx, in)
	return err
}

func (s *StatsService) Stats(ctx context.Context, start, end *time.Time, uris []string, unique bool) ([]model.ViewStats, error) {
	w, err := window(start, end)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.Stats(ctx, w, uris, unique)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.ViewStats{}
	}
	return list, nil
}

// CountViews 单个 uri 的访问量；没有记录时为 0
func (s *StatsService) CountViews(ctx context.Context, uri string, start, end *time.Time, distinct bool) (int64, error) {
	m, err := s.CountViewsForMany(ctx, []string{uri}, start, end, distinct)
	if err != nil {
		return 0, err
	}
	return m[uri], nil
}

func (s *StatsService) CountViewsForMany(ctx context.Context, uris []string, start, end *time.Time, distinct bool) (map[string]int64, error) {
	w, err := window(start, end)
	if err != nil {
		return nil, err
	}
	return s.repo.CountByURI(ctx, w, uris, distinct)
}

func window(start, end *time.Time) (mysql.Window, error) {
	if start != nil && end != nil && start.After(*end) {
		return mysql.Window{}, fmt.Errorf("%w: start %s is after end %s", pkg.ErrInvalidRequest,
			start.Format(pkg.DateTimeLayout), end.Format(pkg.DateTimeLayout))
	}
	return mysql.Window{Start: start, End: end}, nil
}
