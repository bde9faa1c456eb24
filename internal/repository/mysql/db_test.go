package mysql

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"Ewm_Platform/internal/model"

	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// newTestDB 每个测试一个独立的内存库；单连接让 sqlite 的事务天然串行
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))
	db, err := Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err = MigrateMain(db); err != nil {
		t.Fatalf("migrate main: %v", err)
	}
	if err = MigrateStats(db); err != nil {
		t.Fatalf("migrate stats: %v", err)
	}
	return db
}

var baseTime = time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db       *gorm.DB
	events   *EventRepository
	requests *RequestRepository
	users    *UserRepository
	cats     *CategoryRepository
	category model.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		db:       db,
		events:   &EventRepository{DB: db},
		requests: &RequestRepository{DB: db},
		users:    &UserRepository{DB: db},
		cats:     &CategoryRepository{DB: db},
	}
	f.category = model.Category{Name: "concerts"}
	if err := f.cats.Create(context.Background(), &f.category); err != nil {
		t.Fatalf("create category: %v", err)
	}
	return f
}

func (f *fixture) user(t *testing.T, name string) model.User {
	t.Helper()
	u := model.User{Name: name, Email: name + "@example.com"}
	if err := f.users.Create(context.Background(), &u); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func (f *fixture) event(t *testing.T, initiator uint64, limit int64, moderation bool, state model.EventState) model.Event {
	t.Helper()
	ev := model.Event{
		Title:             "Open air",
		Annotation:        "An evening of music in the park with friends",
		Description:       "Bring a blanket and something to drink",
		CategoryID:        f.category.ID,
		InitiatorID:       initiator,
		EventDate:         baseTime.Add(72 * time.Hour),
		CreatedOn:         baseTime,
		ParticipantLimit:  limit,
		RequestModeration: moderation,
		State:             state,
	}
	if err := f.events.Create(context.Background(), &ev); err != nil {
		t.Fatalf("create event: %v", err)
	}
	return ev
}
