package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"Ewm_Platform/internal/model"
	"Ewm_Platform/internal/pkg"

	"gorm.io/gorm"
)

func TestAssertCanDeleteCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	empty := model.Category{Name: "empty"}
	if err := f.cats.Create(ctx, &empty); err != nil {
		t.Fatalf("create category: %v", err)
	}
	owner := f.user(t, "owner")
	f.event(t, owner.ID, 0, true, model.EventPending)

	if err := f.events.AssertCanDeleteCategory(ctx, empty.ID); err != nil {
		t.Errorf("unused category: %v", err)
	}
	if err := f.events.AssertCanDeleteCategory(ctx, f.category.ID); !errors.Is(err, pkg.ErrConditionNotMet) {
		t.Errorf("used category err = %v, want ErrConditionNotMet", err)
	}
}

func TestCategoryDuplicateName(t *testing.T) {
	f := newFixture(t)
	dup := model.Category{Name: f.category.Name}
	if err := f.cats.Create(context.Background(), &dup); !errors.Is(err, pkg.ErrDuplicateRequest) {
		t.Errorf("err = %v, want ErrDuplicateRequest", err)
	}
	if err := f.cats.Delete(context.Background(), 12345); !errors.Is(err, pkg.ErrNotFound) {
		t.Errorf("delete missing err = %v, want ErrNotFound", err)
	}
}

func TestTouchConfirmedCountRepairsDrift(t *testing.T) {
	f := newFixture(t)
	owner, guest := f.user(t, "owner"), f.user(t, "guest")
	ev := f.event(t, owner.ID, 0, false, model.EventPublished)
	ctx := context.Background()
	if _, err := f.requests.Create(ctx, ev.ID, guest.ID, baseTime); err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.db.Model(&model.Event{}).Where("id = ?", ev.ID).UpdateColumn("confirmed_requests", 42)

	n, err := f.events.TouchConfirmedCount(ctx, ev.ID)
	if err != nil {
		t.Fatalf("TouchConfirmedCount: %v", err)
	}
	if n != 1 {
		t.Errorf("n = %d, want 1", n)
	}
	got, _ := f.events.FindByID(ctx, ev.ID)
	if got.ConfirmedRequests != 1 {
		t.Errorf("stored = %d, want 1", got.ConfirmedRequests)
	}
}

func TestSearchPublic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, guest := f.user(t, "owner"), f.user(t, "guest")

	jazz := f.event(t, owner.ID, 1, false, model.EventPublished)
	f.db.Model(&model.Event{}).Where("id = ?", jazz.ID).Updates(map[string]any{"annotation": "Late night JAZZ session downtown", "paid": true})
	rock := f.event(t, owner.ID, 0, true, model.EventPublished)
	f.event(t, owner.ID, 0, true, model.EventPending)
	past := f.event(t, owner.ID, 0, true, model.EventPublished)
	f.db.Model(&model.Event{}).Where("id = ?", past.ID).Update("event_date", baseTime.Add(-time.Hour))

	if _, err := f.requests.Create(ctx, jazz.ID, guest.ID, baseTime); err != nil {
		t.Fatalf("fill jazz: %v", err)
	}

	paid := true
	cases := []struct {
		name   string
		filter PublicFilter
		want   []uint64
	}{
		{"future published only", PublicFilter{Now: baseTime}, []uint64{jazz.ID, rock.ID}},
		{"text is case insensitive", PublicFilter{Now: baseTime, Text: "jazz"}, []uint64{jazz.ID}},
		{"paid", PublicFilter{Now: baseTime, Paid: &paid}, []uint64{jazz.ID}},
		{"only available", PublicFilter{Now: baseTime, OnlyAvailable: true}, []uint64{rock.ID}},
		{"explicit range includes past", PublicFilter{Now: baseTime, RangeStart: ptr(baseTime.Add(-2 * time.Hour))}, []uint64{past.ID, jazz.ID, rock.ID}},
		{"paging", PublicFilter{Now: baseTime, Offset: 1, Limit: 1}, []uint64{rock.ID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.events.SearchPublic(ctx, tc.filter)
			if err != nil {
				t.Fatalf("SearchPublic: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %d events, want %d", len(got), len(tc.want))
			}
			for i := range got {
				if got[i].ID != tc.want[i] {
					t.Errorf("[%d] = %d, want %d", i, got[i].ID, tc.want[i])
				}
			}
		})
	}
}

func TestSearchAdminFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "a"), f.user(t, "b")
	e1 := f.event(t, a.ID, 0, true, model.EventPending)
	e2 := f.event(t, b.ID, 0, true, model.EventPublished)
	f.event(t, b.ID, 0, true, model.EventRejected)

	got, err := f.events.SearchAdmin(ctx, AdminFilter{States: []model.EventState{model.EventPending, model.EventPublished}, Limit: 10})
	if err != nil {
		t.Fatalf("SearchAdmin: %v", err)
	}
	if len(got) != 2 || got[0].ID != e1.ID || got[1].ID != e2.ID {
		t.Errorf("by state = %+v", got)
	}
	got, _ = f.events.SearchAdmin(ctx, AdminFilter{Users: []uint64{a.ID}, Limit: 10})
	if len(got) != 1 || got[0].ID != e1.ID {
		t.Errorf("by user = %+v", got)
	}
}

func TestTransitionRollsBackOnError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner")
	ev := f.event(t, owner.ID, 0, true, model.EventPending)
	comments := &CommentRepository{DB: f.db}

	boom := errors.New("boom")
	_, err := f.events.Transition(ctx, ev.ID, func(tx *gorm.DB, e *model.Event) error {
		e.State = model.EventRejected
		if _, err := comments.WithTx(tx).Open(e.ID, "needs a better description", baseTime); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	got, _ := f.events.FindByID(ctx, ev.ID)
	if got.State != model.EventPending {
		t.Errorf("state = %s, want PENDING after rollback", got.State)
	}
	open, _ := comments.FindOpen(ctx, ev.ID)
	if open != nil {
		t.Errorf("comment survived rollback: %+v", open)
	}
}
