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
	"Ewm_Platform/internal/repository/redis"
	"Ewm_Platform/internal/router"
	"Ewm_Platform/internal/service"
	"Ewm_Platform/internal/statsclient"

	"github.com/rs/cors"
)

func main() {
	cfg, err := config.LoadMain()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := mysql.Open(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	// 自动建表（开发阶段 OK）
	if err = mysql.MigrateMain(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// 连接redis，未配置时只依赖数据库行锁
	var locker service.Locker = service.NopLocker{}
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("connect redis: %v", err)
		}
		defer rdb.Close()
		locker = redis.NewEventLock(rdb, cfg.LockTTL, cfg.LockWait)
	}

	stats := statsclient.New(cfg.StatsURL, 3*time.Second)
	var hits statsclient.Recorder = stats
	senders := []service.Sender{service.LogSender}
	if cfg.Kafka.Enabled() {
		hitProducer, err := pkg.NewKafkaProducer(pkg.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.HitTopic})
		if err != nil {
			log.Fatalf("kafka hit producer: %v", err)
		}
		defer hitProducer.Close()
		hits = statsclient.NewKafkaRecorder(hitProducer)

		reqProducer, err := pkg.NewKafkaProducer(pkg.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.RequestTopic})
		if err != nil {
			log.Fatalf("kafka request producer: %v", err)
		}
		defer reqProducer.Close()
		senders = append(senders, service.KafkaSender(reqProducer))
	}
	smtp := pkg.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}
	if smtp.Enabled() {
		senders = append(senders, service.MailSender(db, smtp))
	}

	events := service.NewEventService(db, stats, cfg.LeadTime)
	deps := router.MainDeps{
		Events:       events,
		Requests:     service.NewRequestService(db, locker),
		Categories:   service.NewCategoryService(db),
		Users:        service.NewUserService(db),
		Compilations: service.NewCompilationService(db, events.Builder()),
		Hits:         hits,
		AppName:      cfg.AppName,
	}

	// 后台任务：outbox 投递与确认人数对账
	go service.NewOutboxRelayer(db, service.MultiSender(senders...), cfg.OutboxInterval).Run(ctx)
	go service.NewConfirmedCountReconciler(db, cfg.ReconcileInterval).Run(ctx)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           c.Handler(router.InitRouter(deps)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("%s listening on %s", cfg.AppName, cfg.HTTPAddr)
	if err = srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("http server: %v", err)
	}
}
