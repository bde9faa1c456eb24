package mysql

import (
	"context"
	"time"

	"Ewm_Platform/internal/model"

	"gorm.io/gorm"
)

type HitRepository struct {
	DB *gorm.DB
}

// Window 闭区间时间窗，nil 表示该侧不设边界
type Window struct {
	Start *time.Time
	End   *time.Time
}

func (w Window) apply(q *gorm.DB) *gorm.DB {
	if w.Start != nil {
		q = q.Where("timestamp >= ?", *w.Start)
	}
	if w.End != nil {
		q = q.Where("timestamp <= ?", *w.End)
	}
	return q
}

func (r *HitRepository) Create(ctx context.Context, hit *model.Hit) error {
	return r.DB.WithContext(ctx).Create(hit).Error
}

// Stats 按 (app, uri) 分组统计，unique 时按 ip 去重；uris 为空表示全部
func (r *HitRepository) Stats(ctx context.Context, w Window, uris []string, unique bool) ([]model.ViewStats, error) {
	q := w.apply(r.DB.WithContext(ctx).Model(&model.Hit{}))
	if len(uris) > 0 {
		q = q.Where("uri IN ?", uris)
	}
	var list []model.ViewStats
	err := q.Select("app, uri, " + countExpr(unique) + " AS hits").
		Group("app, uri").
		Order("hits DESC, app ASC, uri ASC").
		Scan(&list).Error
	return list, err
}

// CountByURI 跨 app 按 uri 分组，一次查询得到多个 uri 的访问量，没有记录的 uri 计 0
func (r *HitRepository) CountByURI(ctx context.Context, w Window, uris []string, unique bool) (map[string]int64, error) {
	out := make(map[string]int64, len(uris))
	if len(uris) == 0 {
		return out, nil
	}
	for _, u := range uris {
		out[u] = 0
	}
	var rows []struct {
		URI  string
		Hits int64
	}
	err := w.apply(r.DB.WithContext(ctx).Model(&model.Hit{})).
		Where("uri IN ?", uris).
		Select("uri, " + countExpr(unique) + " AS hits").
		Group("uri").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.URI] = row.Hits
	}
	return out, nil
}

func countExpr(unique bool) string {
	if unique {
		return "COUNT(DISTINCT ip)"
	}
	return "COUNT(*)"
}
