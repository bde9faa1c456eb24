package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Ewm_Platform/internal/config"
	"Ewm_Platform/internal/pkg"
	"Ewm_Platform/internal/repository/mysql"
	"Ewm_Platform/internal/router"
	"Ewm_Platform/internal/service"
)

func main() {
	cfg, err := config.LoadStats()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := mysql.Open(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	if err = mysql.MigrateStats(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	svc := service.NewStatsService(db)

	// 主服务开启 kafka 时访问记录走 hit topic
	if cfg.Kafka.Enabled() {
		consumer, err := pkg.NewKafkaConsumer(pkg.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.HitTopic,
			GroupID: cfg.Kafka.GroupID,
		})
		if err != nil {
			log.Fatalf("kafka consumer: %v", err)
		}
		defer consumer.Close()
		go func() {
			if err := consumer.Run(ctx, svc.HandleHitMessage); err != nil {
				log.Printf("hit consumer stopped: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.InitStatsRouter(svc),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("stats service listening on %s", cfg.HTTPAddr)
	if err = srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("http server: %v", err)
	}
}
