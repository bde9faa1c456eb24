package service

import (
	"context"
	"log"
	"time"

	"Ewm_Platform/internal/repository/mysql"

	"gorm.io/gorm"
)

// ConfirmedCountReconciler 定期用 requests 表修正 events.confirmed_requests
type ConfirmedCountReconciler struct {
	repo      *mysql.EventRepository
	batchSize int
	interval  time.Duration
}

func NewConfirmedCountReconciler(db *gorm.DB, interval time.Duration) *ConfirmedCountReconciler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &ConfirmedCountReconciler{
		repo:      &mysql.EventRepository{DB: db},
		batchSize: 500, // 设置一次对账的大小
		interval:  interval,
	}
}

// Run 对账定时任务启动器
func (r *ConfirmedCountReconciler) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.ReconcileOnce(ctx)
		}
	}
}

// ReconcileOnce 按 id 游标扫完全表，返回修正的活动数
func (r *ConfirmedCountReconciler) ReconcileOnce(ctx context.Context) int {
	var lastID uint64
	fixed := 0
	for {
		list, next, err := r.repo.ReconcileList(ctx, r.batchSize, lastID)
		if err != nil {
			log.Printf("reconcile list err: %v", err)
			return fixed
		}
		if len(list) == 0 {
			return fixed
		}
		for _, p := range list {
			n, err := r.repo.RealConfirmed(ctx, p.ID)
			if err != nil {
				log.Printf("reconcile count event id=%d err: %v", p.ID, err)
				continue
			}
			if n == p.ConfirmedRequests {
				continue
			}
			// 重算走行锁，和申请台账的写入互斥
			if _, err = r.repo.TouchConfirmedCount(ctx, p.ID); err != nil {
				log.Printf("reconcile touch event id=%d err: %v", p.ID, err)
				continue
			}
			fixed++
		}
		lastID = next
		if len(list) < r.batchSize {
			return fixed
		}
	}
}
