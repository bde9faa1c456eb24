package service

import (
	"context"
	"errors"
	"testing"

	"Ewm_Platform/internal/model"
)

func TestOutboxRelayerRetriesFailures(t *testing.T) {
	e := newEnv(t)
	owner, guest := e.user(t, "owner"), e.user(t, "guest")
	ctx := context.Background()
	id := e.published(t, owner.ID, 0, false)
	if _, err := e.requests.Create(ctx, guest.ID, id); err != nil {
		t.Fatalf("Create: %v", err)
	}

	var seen []string
	fail := true
	r := NewOutboxRelayer(e.db, func(_ context.Context, ob *model.RequestOutbox) error {
		seen = append(seen, ob.EventType)
		if fail {
			return errors.New("broker down")
		}
		return nil
	}, 0)

	if n := r.DrainOnce(ctx); n != 0 {
		t.Fatalf("sent = %d while sender fails", n)
	}
	var ob model.RequestOutbox
	if err := e.db.First(&ob).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if ob.Status != model.OutboxFailed || ob.Retry != 1 {
		t.Fatalf("outbox after failure = status %d retry %d", ob.Status, ob.Retry)
	}

	fail = false
	if n := r.DrainOnce(ctx); n != 1 {
		t.Fatalf("sent = %d, want 1 on retry", n)
	}
	if n := r.DrainOnce(ctx); n != 0 {
		t.Errorf("sent = %d, delivered rows must not be resent", n)
	}
	if len(seen) != 2 || seen[0] != "request_confirmed" {
		t.Errorf("sender saw %v", seen)
	}
}

func TestOutboxRelayerGivesUpAfterMaxRetry(t *testing.T) {
	e := newEnv(t)
	e.db.Create(&model.RequestOutbox{EventType: "request_pending", Payload: "{}", Status: model.OutboxFailed, Retry: defaultOutboxMaxRetry})
	calls := 0
	r := NewOutboxRelayer(e.db, func(context.Context, *model.RequestOutbox) error { calls++; return nil }, 0)
	r.DrainOnce(context.Background())
	if calls != 0 {
		t.Errorf("exhausted row was sent %d times", calls)
	}
}

func TestMultiSenderStopsOnError(t *testing.T) {
	var order []string
	ok := func(name string) Sender {
		return func(context.Context, *model.RequestOutbox) error { order = append(order, name); return nil }
	}
	boom := func(context.Context, *model.RequestOutbox) error { order = append(order, "boom"); return errors.New("boom") }

	err := MultiSender(ok("log"), boom, ok("never"))(context.Background(), &model.RequestOutbox{})
	if err == nil || len(order) != 2 {
		t.Errorf("err = %v, order = %v", err, order)
	}
}

func TestMultiSenderSkipsDeliveredOnRetry(t *testing.T) {
	calls := map[string]int{}
	kafkaLike := func(context.Context, *model.RequestOutbox) error { calls["kafka"]++; return nil }
	failMail := true
	mail := func(context.Context, *model.RequestOutbox) error {
		calls["mail"]++
		if failMail {
			return errors.New("smtp down")
		}
		return nil
	}
	send := MultiSender(kafkaLike, mail)
	ob := &model.RequestOutbox{ID: 7}

	for i := 0; i < 3; i++ {
		if err := send(context.Background(), ob); err == nil {
			t.Fatalf("attempt %d: want mail error", i)
		}
	}
	failMail = false
	if err := send(context.Background(), ob); err != nil {
		t.Fatalf("final attempt: %v", err)
	}
	if calls["kafka"] != 1 || calls["mail"] != 4 {
		t.Errorf("calls = %v, want kafka=1 mail=4", calls)
	}

	// 另一条记录不受影响
	if err := send(context.Background(), &model.RequestOutbox{ID: 8}); err != nil {
		t.Fatalf("second row: %v", err)
	}
	if calls["kafka"] != 2 {
		t.Errorf("kafka calls = %d, want 2", calls["kafka"])
	}
}

func TestReconcilerRepairsDrift(t *testing.T) {
	e := newEnv(t)
	owner, guest := e.user(t, "owner"), e.user(t, "guest")
	ctx := context.Background()
	id := e.published(t, owner.ID, 0, false)
	clean := e.published(t, owner.ID, 0, false)
	if _, err := e.requests.Create(ctx, guest.ID, id); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := e.db.Model(&model.Event{}).Where("id = ?", id).UpdateColumn("confirmed_requests", 42).Error; err != nil {
		t.Fatalf("corrupt counter: %v", err)
	}

	rc := NewConfirmedCountReconciler(e.db, 0)
	rc.batchSize = 1
	if n := rc.ReconcileOnce(ctx); n != 1 {
		t.Errorf("fixed = %d, want 1", n)
	}
	for evID, want := range map[uint64]int64{id: 1, clean: 0} {
		var ev model.Event
		e.db.First(&ev, evID)
		if ev.ConfirmedRequests != want {
			t.Errorf("event %d confirmed_requests = %d, want %d", evID, ev.ConfirmedRequests, want)
		}
	}
}
