package mysql

import (
	"context"
	"testing"
	"time"

	"Ewm_Platform/internal/model"
)

func seedHits(t *testing.T, repo *HitRepository, hits []model.Hit) {
	t.Helper()
	for i := range hits {
		if err := repo.Create(context.Background(), &hits[i]); err != nil {
			t.Fatalf("create hit: %v", err)
		}
	}
}

func TestHitRepositoryCountByURI(t *testing.T) {
	repo := &HitRepository{DB: newTestDB(t)}
	ts := func(h int) time.Time { return baseTime.Add(time.Duration(h) * time.Hour) }
	seedHits(t, repo, []model.Hit{
		{App: "ewm-main-service", URI: "/events/1", IP: "10.0.0.1", Timestamp: ts(0)},
		{App: "ewm-main-service", URI: "/events/1", IP: "10.0.0.1", Timestamp: ts(1)},
		{App: "ewm-main-service", URI: "/events/1", IP: "10.0.0.2", Timestamp: ts(2)},
		{App: "other-app", URI: "/events/1", IP: "10.0.0.3", Timestamp: ts(3)},
		{App: "ewm-main-service", URI: "/events/2", IP: "10.0.0.1", Timestamp: ts(4)},
	})
	uris := []string{"/events/1", "/events/2", "/events/3"}

	cases := []struct {
		name   string
		window Window
		unique bool
		want   map[string]int64
	}{
		{"all rows", Window{}, false, map[string]int64{"/events/1": 4, "/events/2": 1, "/events/3": 0}},
		{"distinct origins", Window{}, true, map[string]int64{"/events/1": 3, "/events/2": 1, "/events/3": 0}},
		{"inclusive bounds", Window{Start: ptr(ts(1)), End: ptr(ts(3))}, false, map[string]int64{"/events/1": 3, "/events/2": 0, "/events/3": 0}},
		{"start only", Window{Start: ptr(ts(2))}, true, map[string]int64{"/events/1": 2, "/events/2": 1, "/events/3": 0}},
		{"end only", Window{End: ptr(ts(0))}, false, map[string]int64{"/events/1": 1, "/events/2": 0, "/events/3": 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := repo.CountByURI(context.Background(), tc.window, uris, tc.unique)
			if err != nil {
				t.Fatalf("CountByURI: %v", err)
			}
			for uri, want := range tc.want {
				if got[uri] != want {
					t.Errorf("%s = %d, want %d", uri, got[uri], want)
				}
			}
		})
	}
}

func TestHitRepositoryStatsGroupsByAppAndURI(t *testing.T) {
	repo := &HitRepository{DB: newTestDB(t)}
	seedHits(t, repo, []model.Hit{
		{App: "main", URI: "/events", IP: "1.1.1.1", Timestamp: baseTime},
		{App: "main", URI: "/events/7", IP: "1.1.1.1", Timestamp: baseTime},
		{App: "main", URI: "/events/7", IP: "1.1.1.1", Timestamp: baseTime},
		{App: "main", URI: "/events/7", IP: "2.2.2.2", Timestamp: baseTime},
		{App: "admin", URI: "/events/7", IP: "3.3.3.3", Timestamp: baseTime},
	})

	got, err := repo.Stats(context.Background(), Window{}, nil, false)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := []model.ViewStats{
		{App: "main", URI: "/events/7", Hits: 3},
		{App: "admin", URI: "/events/7", Hits: 1},
		{App: "main", URI: "/events", Hits: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("Stats len = %d, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Stats[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	unique, err := repo.Stats(context.Background(), Window{}, []string{"/events/7"}, true)
	if err != nil {
		t.Fatalf("Stats unique: %v", err)
	}
	if len(unique) != 2 || unique[0].Hits != 2 || unique[1].Hits != 1 {
		t.Errorf("unique stats = %+v", unique)
	}
}

func ptr[T any](v T) *T { return &v }
