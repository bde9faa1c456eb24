package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"Ewm_Platform/internal/model"
	"Ewm_Platform/internal/pkg"
	"Ewm_Platform/internal/repository/mysql"

	"gorm.io/gorm"
)

const defaultOutboxMaxRetry = 5

type Sender func(ctx context.Context, ob *model.RequestOutbox) error

// OutboxRelayer 把申请状态变更事件从 request_outbox 投递出去
type OutboxRelayer struct {
	repo      *mysql.OutboxRepository
	batchSize int
	maxRetry  int
	interval  time.Duration
	sender    Sender
}

func NewOutboxRelayer(db *gorm.DB, sender Sender, interval time.Duration) *OutboxRelayer {
	if interval <= 0 {
		interval = time.Second
	}
	if sender == nil {
		sender = LogSender
	}
	return &OutboxRelayer{
		repo:      &mysql.OutboxRepository{DB: db},
		batchSize: 200,
		maxRetry:  defaultOutboxMaxRetry,
		interval:  interval,
		sender:    sender,
	}
}

// Run outbox启动器
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.DrainOnce(ctx)
		}
	}
}

// DrainOnce 投递一批，返回成功条数
func (r *OutboxRelayer) DrainOnce(ctx context.Context) int {
	rows, err := r.repo.List(ctx, r.batchSize, r.maxRetry)
	if err != nil {
		log.Printf("outbox query err: %v", err)
		return 0
	}
	sent := 0
	for i := range rows {
		ob := rows[i]
		if err = r.sender(ctx, &ob); err != nil {
			log.Printf("outbox send id=%d type=%s err: %v", ob.ID, ob.EventType, err)
			pkg.OutboxDelivered.WithLabelValues("failed").Inc()
			if err = r.repo.RetryUpdate(ctx, ob.ID); err != nil {
				log.Printf("outbox retry update id=%d err: %v", ob.ID, err)
			}
			continue
		}
		pkg.OutboxDelivered.WithLabelValues("sent").Inc()
		if err = r.repo.SuccessUpdate(ctx, ob.ID); err != nil {
			log.Printf("outbox success update id=%d err: %v", ob.ID, err)
			continue
		}
		sent++
	}
	return sent
}

// LogSender 没有配置 Kafka 和邮件时只打印
func LogSender(_ context.Context, ob *model.RequestOutbox) error {
	log.Printf("OUTBOX SEND type=%s request=%d event=%d requester=%d payload=%s",
		ob.EventType, ob.RequestID, ob.EventID, ob.RequesterID, ob.Payload)
	return nil
}

// KafkaSender 按活动 id 分区，保证同一活动的事件有序
func KafkaSender(p *pkg.KafkaProducer) Sender {
	return func(ctx context.Context, ob *model.RequestOutbox) error {
		return p.Send(ctx, pkg.MakeKeyFromID(ob.EventID), []byte(ob.Payload))
	}
}

// MailSender 申请被确认或驳回时给申请人发邮件，其余事件忽略
func MailSender(db *gorm.DB, cfg pkg.SMTPConfig) Sender {
	users := &mysql.UserRepository{DB: db}
	events := &mysql.EventRepository{DB: db}
	return func(ctx context.Context, ob *model.RequestOutbox) error {
		var status string
		switch ob.EventType {
		case "request_confirmed":
			status = string(model.RequestConfirmed)
		case "request_rejected":
			status = string(model.RequestRejected)
		default:
			return nil
		}
		u, err := users.FindByID(ctx, ob.RequesterID)
		if err != nil {
			// 用户已被删除，没有人可通知
			if errors.Is(err, pkg.ErrNotFound) {
				return nil
			}
			return err
		}
		ev, err := events.FindByID(ctx, ob.EventID)
		if err != nil {
			return err
		}
		subject := fmt.Sprintf("Your request for %q is %s", ev.Title, status)
		return pkg.SendEmail(cfg, u.Email, subject, pkg.RequestStatusHTML(u.Name, ev.Title, status))
	}
}

// MultiSender 依次投递，任何一个失败整条记录重试；重试时跳过本进程内已经投递成功的 sender。
// 进程重启后已投递的记录仍可能重发，投递语义是至少一次，消费方按 request_id + 状态去重
func MultiSender(senders ...Sender) Sender {
	var mu sync.Mutex
	delivered := make(map[uint64]map[int]bool)
	return func(ctx context.Context, ob *model.RequestOutbox) error {
		mu.Lock()
		done := delivered[ob.ID]
		if done == nil {
			done = make(map[int]bool, len(senders))
			delivered[ob.ID] = done
		}
		mu.Unlock()
		for i, s := range senders {
			mu.Lock()
			skip := done[i]
			mu.Unlock()
			if skip {
				continue
			}
			if err := s(ctx, ob); err != nil {
				return err
			}
			mu.Lock()
			done[i] = true
			mu.Unlock()
		}
		mu.Lock()
		delete(delivered, ob.ID)
		mu.Unlock()
		return nil
	}
}
