package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"Ewm_Platform/internal/model"
	"Ewm_Platform/internal/repository/mysql"

	"gorm.io/gorm"
)

var dbSeq atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:svc_%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))
	db, err := mysql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err = mysql.MigrateMain(db); err != nil {
		t.Fatalf("migrate main: %v", err)
	}
	if err = mysql.MigrateStats(db); err != nil {
		t.Fatalf("migrate stats: %v", err)
	}
	return db
}

var baseTime = time.Date(2030, 5, 1, 12, 0, 0, 0, time.Local)

// fakeViews 固定返回的浏览量，记录收到的查询
type fakeViews struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
	calls  int
}

func (f *fakeViews) CountViewsForMany(_ context.Context, uris []string, _, _ *time.Time, _ bool) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]int64, len(uris))
	for _, u := range uris {
		out[u] = f.counts[u]
	}
	return out, nil
}

type env struct {
	db       *gorm.DB
	events   *EventService
	requests *RequestService
	cats     *CategoryService
	users    *UserService
	views    *fakeViews
	category CategoryView
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := newTestDB(t)
	views := &fakeViews{counts: map[string]int64{}}
	e := &env{
		db:       db,
		events:   NewEventService(db, views, DefaultLeadTime),
		requests: NewRequestService(db, nil),
		cats:     NewCategoryService(db),
		users:    NewUserService(db),
		views:    views,
	}
	clock := func() time.Time { return baseTime }
	e.events.now = clock
	e.requests.now = clock
	cat, err := e.cats.Create(context.Background(), "concerts")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	e.category = cat
	return e
}

func (e *env) user(t *testing.T, name string) UserView {
	t.Helper()
	u, err := e.users.Create(context.Background(), name, name+"@example.com")
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func (e *env) input(limit int64, moderation bool) NewEventInput {
	return NewEventInput{
		Title:             "Open air",
		Annotation:        "An evening of music in the park with friends",
		Description:       "Bring a blanket and something to drink",
		CategoryID:        e.category.ID,
		EventDate:         baseTime.Add(72 * time.Hour),
		Location:          Location{Lat: 55.75, Lon: 37.61},
		ParticipantLimit:  limit,
		RequestModeration: moderation,
	}
}

// published 创建并发布一个活动
func (e *env) published(t *testing.T, owner uint64, limit int64, moderation bool) uint64 {
	t.Helper()
	ctx := context.Background()
	p, err := e.events.Create(ctx, owner, e.input(limit, moderation))
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if _, err = e.events.UpdateByAdmin(ctx, p.EventID(), UpdateEventInput{StateAction: ActionPublish}); err != nil {
		t.Fatalf("publish event: %v", err)
	}
	return p.EventID()
}

func (e *env) openComments(t *testing.T, eventID uint64) []model.Comment {
	t.Helper()
	var list []model.Comment
	if err := e.db.Where("event_id = ? AND closed = ?", eventID, false).Find(&list).Error; err != nil {
		t.Fatalf("load comments: %v", err)
	}
	return list
}

func ptr[T any](v T) *T { return &v }
