package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"Ewm_Platform/internal/pkg"
	"Ewm_Platform/internal/repository/mysql"
	"Ewm_Platform/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:router_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := mysql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err = mysql.MigrateMain(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err = mysql.MigrateStats(db); err != nil {
		t.Fatalf("migrate stats: %v", err)
	}
	return db
}

// memRecorder 收集上报的访问记录
type memRecorder struct {
	mu   sync.Mutex
	hits []pkg.EndpointHit
}

func (m *memRecorder) Record(_ context.Context, hit pkg.EndpointHit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits = append(m.hits, hit)
	return nil
}

func (m *memRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hits)
}

type api struct {
	t   *testing.T
	eng *gin.Engine
}

func (a api) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.eng.ServeHTTP(w, req)
	return w
}

func (a api) must(method, path string, body any, code int, out any) {
	a.t.Helper()
	w := a.do(method, path, body)
	if w.Code != code {
		a.t.Fatalf("%s %s = %d, want %d: %s", method, path, w.Code, code, w.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			a.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
}

func TestMainServiceFlow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	stats := service.NewStatsService(db)
	events := service.NewEventService(db, stats, time.Hour)
	rec := &memRecorder{}
	a := api{t: t, eng: InitRouter(MainDeps{
		Events:       events,
		Requests:     service.NewRequestService(db, nil),
		Categories:   service.NewCategoryService(db),
		Users:        service.NewUserService(db),
		Compilations: service.NewCompilationService(db, events.Builder()),
		Hits:         rec,
		AppName:      "ewm-main-service",
	})}

	var owner, guest, other struct{ ID uint64 }
	a.must(http.MethodPost, "/admin/users", gin.H{"name": "Owner", "email": "owner@example.com"}, http.StatusCreated, &owner)
	a.must(http.MethodPost, "/admin/users", gin.H{"name": "Guest", "email": "guest@example.com"}, http.StatusCreated, &guest)
	a.must(http.MethodPost, "/admin/users", gin.H{"name": "Other", "email": "other@example.com"}, http.StatusCreated, &other)
	if w := a.do(http.MethodPost, "/admin/users", gin.H{"name": "Dup", "email": "owner@example.com"}); w.Code != http.StatusConflict {
		t.Fatalf("duplicate email = %d, want 409", w.Code)
	}

	var cat struct{ ID uint64 }
	a.must(http.MethodPost, "/admin/categories", gin.H{"name": "concerts"}, http.StatusCreated, &cat)

	eventDate := pkg.NewDateTime(time.Now().Add(48 * time.Hour)).String()
	newEvent := gin.H{
		"title":            "Open air",
		"annotation":       "An evening of music in the park with friends",
		"description":      "Bring a blanket and something to drink",
		"category":         cat.ID,
		"eventDate":        eventDate,
		"location":         gin.H{"lat": 55.75, "lon": 37.61},
		"participantLimit": 1,
	}
	if w := a.do(http.MethodPost, fmt.Sprintf("/users/%d/events", owner.ID), gin.H{"title": "x"}); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid body = %d, want 400", w.Code)
	}
	blankDate := gin.H{}
	for k, v := range newEvent {
		blankDate[k] = v
	}
	blankDate["eventDate"] = ""
	if w := a.do(http.MethodPost, fmt.Sprintf("/users/%d/events", owner.ID), blankDate); w.Code != http.StatusBadRequest {
		t.Fatalf("blank eventDate = %d, want 400: %s", w.Code, w.Body.String())
	}
	var ev struct {
		ID                uint64 `json:"id"`
		State             string `json:"state"`
		EventDate         string `json:"eventDate"`
		RequestModeration bool   `json:"requestModeration"`
		ConfirmedRequests int64  `json:"confirmedRequests"`
		Views             int64  `json:"views"`
	}
	a.must(http.MethodPost, fmt.Sprintf("/users/%d/events", owner.ID), newEvent, http.StatusCreated, &ev)
	if ev.State != "PENDING" || !ev.RequestModeration || ev.EventDate != eventDate {
		t.Fatalf("created event = %+v", ev)
	}

	// 未发布的活动对外不可见，也不能报名
	if w := a.do(http.MethodGet, fmt.Sprintf("/events/%d", ev.ID), nil); w.Code != http.StatusNotFound {
		t.Fatalf("public get of pending = %d, want 404", w.Code)
	}
	if w := a.do(http.MethodPost, fmt.Sprintf("/users/%d/requests?eventId=%d", guest.ID, ev.ID), nil); w.Code != http.StatusBadRequest {
		t.Fatalf("request on pending = %d, want 400", w.Code)
	}
	if w := a.do(http.MethodDelete, fmt.Sprintf("/admin/categories/%d", cat.ID), nil); w.Code != http.StatusConflict {
		t.Fatalf("delete used category = %d, want 409", w.Code)
	}

	a.must(http.MethodPatch, fmt.Sprintf("/admin/events/%d", ev.ID), gin.H{"stateAction": "PUBLISH_EVENT"}, http.StatusOK, &ev)
	if ev.State != "PUBLISHED" {
		t.Fatalf("state after publish = %s", ev.State)
	}

	type request struct {
		ID     uint64 `json:"id"`
		Status string `json:"status"`
	}
	var r1, r2 request
	a.must(http.MethodPost, fmt.Sprintf("/users/%d/requests?eventId=%d", guest.ID, ev.ID), nil, http.StatusCreated, &r1)
	a.must(http.MethodPost, fmt.Sprintf("/users/%d/requests?eventId=%d", other.ID, ev.ID), nil, http.StatusCreated, &r2)
	if w := a.do(http.MethodPost, fmt.Sprintf("/users/%d/requests?eventId=%d", guest.ID, ev.ID), nil); w.Code != http.StatusConflict {
		t.Fatalf("duplicate request = %d, want 409", w.Code)
	}
	if w := a.do(http.MethodPost, fmt.Sprintf("/users/%d/events/%d/requests/%d/confirm", guest.ID, ev.ID, r1.ID), nil); w.Code != http.StatusForbidden {
		t.Fatalf("confirm by stranger = %d, want 403", w.Code)
	}

	var res struct {
		ConfirmedRequests []request `json:"confirmedRequests"`
		RejectedRequests  []request `json:"rejectedRequests"`
	}
	a.must(http.MethodPatch, fmt.Sprintf("/users/%d/events/%d/requests", owner.ID, ev.ID),
		gin.H{"requestIds": []uint64{r1.ID}, "status": "CONFIRMED"}, http.StatusOK, &res)
	if len(res.ConfirmedRequests) != 1 || len(res.RejectedRequests) != 1 || res.RejectedRequests[0].ID != r2.ID {
		t.Fatalf("status update = %+v", res)
	}

	a.must(http.MethodGet, fmt.Sprintf("/events/%d", ev.ID), nil, http.StatusOK, &ev)
	if ev.ConfirmedRequests != 1 {
		t.Errorf("public confirmedRequests = %d, want 1", ev.ConfirmedRequests)
	}
	if w := a.do(http.MethodGet, "/events?sort=POPULARITY", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad sort = %d, want 400", w.Code)
	}
	var list []map[string]any
	a.must(http.MethodGet, "/events?sort=VIEWS&onlyAvailable=false", nil, http.StatusOK, &list)
	if len(list) != 1 {
		t.Errorf("public list = %v", list)
	}
	// 访问记录异步上报：一次详情、一次列表
	deadline := time.Now().Add(time.Second)
	for rec.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := rec.count(); n != 2 {
		t.Errorf("recorded hits = %d, want 2", n)
	}

	a.must(http.MethodPatch, fmt.Sprintf("/users/%d/requests/%d/cancel", guest.ID, r1.ID), nil, http.StatusOK, &r1)
	if r1.Status != "CANCELED" {
		t.Errorf("canceled request status = %s", r1.Status)
	}
	if w := a.do(http.MethodPatch, fmt.Sprintf("/users/%d/events/%d", owner.ID, ev.ID), gin.H{"title": "New title"}); w.Code != http.StatusConflict {
		t.Errorf("edit published = %d, want 409", w.Code)
	}
	a.must(http.MethodPost, fmt.Sprintf("/users/%d/events/%d/cancel", owner.ID, ev.ID), gin.H{"reason": "venue flooded"}, http.StatusOK, nil)

	var comp struct {
		ID     uint64           `json:"id"`
		Events []map[string]any `json:"events"`
	}
	a.must(http.MethodPost, "/admin/compilations", gin.H{"title": "Weekend", "events": []uint64{ev.ID}}, http.StatusCreated, &comp)
	if len(comp.Events) != 1 {
		t.Errorf("compilation events = %v", comp.Events)
	}
	a.must(http.MethodGet, fmt.Sprintf("/compilations/%d", comp.ID), nil, http.StatusOK, nil)
}

func TestStatsServiceEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a := api{t: t, eng: InitStatsRouter(service.NewStatsService(newTestDB(t)))}

	for _, ip := range []string{"10.0.0.1", "10.0.0.1", "10.0.0.2"} {
		a.must(http.MethodPost, "/hit", gin.H{
			"app": "ewm-main-service", "uri": "/events/1", "ip": ip, "timestamp": "2030-05-01 12:00:00",
		}, http.StatusCreated, nil)
	}
	if w := a.do(http.MethodPost, "/hit", gin.H{"app": "ewm-main-service"}); w.Code != http.StatusBadRequest {
		t.Fatalf("hit without uri = %d, want 400", w.Code)
	}

	var stats []struct {
		App  string `json:"app"`
		URI  string `json:"uri"`
		Hits int64  `json:"hits"`
	}
	a.must(http.MethodGet, "/stats?start=2030-05-01%2000:00:00&end=2030-05-02%2000:00:00&uris=/events/1&unique=true", nil, http.StatusOK, &stats)
	if len(stats) != 1 || stats[0].Hits != 2 {
		t.Fatalf("unique stats = %+v", stats)
	}
	a.must(http.MethodGet, "/stats?uris=/events/1", nil, http.StatusOK, &stats)
	if len(stats) != 1 || stats[0].Hits != 3 {
		t.Fatalf("stats = %+v", stats)
	}
	if w := a.do(http.MethodGet, "/stats?start=yesterday", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad start = %d, want 400", w.Code)
	}
	w := a.do(http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ewm_hits_recorded_total") {
		t.Errorf("metrics missing hit counter")
	}
}
