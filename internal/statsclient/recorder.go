package statsclient

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"Ewm_Platform/internal/pkg"
)

// Recorder 访问记录的投递方式：HTTP 直连或 Kafka
type Recorder interface {
	Record(ctx context.Context, hit pkg.EndpointHit) error
}

// KafkaRecorder 把访问记录写到 hit topic，由统计服务消费入库
type KafkaRecorder struct {
	producer *pkg.KafkaProducer
}

func NewKafkaRecorder(p *pkg.KafkaProducer) *KafkaRecorder {
	return &KafkaRecorder{producer: p}
}

func (r *KafkaRecorder) Record(ctx context.Context, hit pkg.EndpointHit) error {
	b, err := json.Marshal(hit)
	if err != nil {
		return err
	}
	return r.producer.Send(ctx, hit.URI, b)
}

// RecordAsync 不阻塞请求处理，失败只记日志
func RecordAsync(rec Recorder, hit pkg.EndpointHit, timeout time.Duration) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := rec.Record(ctx, hit); err != nil {
			log.Printf("record hit uri=%s err: %v", hit.URI, err)
		}
	}()
}
