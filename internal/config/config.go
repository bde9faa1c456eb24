package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type DBConfig struct {
	Driver string `env:"DRIVER" envDefault:"mysql"` // mysql | sqlite
	DSN    string `env:"DSN" envDefault:"user:password@tcp(127.0.0.1:3306)/ewm?charset=utf8mb4&parseTime=True&loc=Local"`
}

type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"127.0.0.1:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type KafkaConfig struct {
	Brokers      []string `env:"BROKERS" envSeparator:","`
	HitTopic     string   `env:"HIT_TOPIC" envDefault:"ewm.hits"`
	RequestTopic string   `env:"REQUEST_TOPIC" envDefault:"ewm.requests"`
	GroupID      string   `env:"GROUP_ID" envDefault:"ewm-stats"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM" envDefault:"NoReply <no-reply@example.com>"`
}

// MainConfig 主服务配置
type MainConfig struct {
	HTTPAddr    string      `env:"EWM_HTTP_ADDR" envDefault:":8080"`
	AppName     string      `env:"EWM_APP_NAME" envDefault:"ewm-main-service"`
	StatsURL    string      `env:"EWM_STATS_URL" envDefault:"http://127.0.0.1:9090"`
	CORSOrigins []string    `env:"EWM_CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	DB          DBConfig    `envPrefix:"EWM_DB_"`
	Redis       RedisConfig `envPrefix:"EWM_REDIS_"`
	Kafka       KafkaConfig `envPrefix:"EWM_KAFKA_"`
	SMTP        SMTPConfig  `envPrefix:"EWM_SMTP_"`

	// LeadTime 活动时间距当前的最小间隔，创建、改期、发布时都要校验
	LeadTime          time.Duration `env:"EWM_EVENT_LEAD_TIME" envDefault:"2h"`
	LockTTL           time.Duration `env:"EWM_LOCK_TTL" envDefault:"2s"`
	LockWait          time.Duration `env:"EWM_LOCK_WAIT" envDefault:"500ms"`
	OutboxInterval    time.Duration `env:"EWM_OUTBOX_INTERVAL" envDefault:"1s"`
	ReconcileInterval time.Duration `env:"EWM_RECONCILE_INTERVAL" envDefault:"5m"`
}

// StatsConfig 统计服务配置
type StatsConfig struct {
	HTTPAddr string      `env:"STATS_HTTP_ADDR" envDefault:":9090"`
	DB       DBConfig    `envPrefix:"STATS_DB_"`
	Kafka    KafkaConfig `envPrefix:"STATS_KAFKA_"`
}

func LoadMain() (*MainConfig, error) {
	var cfg MainConfig
	if err := parseEnv(&cfg); err != nil {
		return nil, err
	}
	if cfg.LeadTime < 0 {
		return nil, fmt.Errorf("EWM_EVENT_LEAD_TIME must not be negative, got %s", cfg.LeadTime)
	}
	return &cfg, nil
}

func LoadStats() (*StatsConfig, error) {
	var cfg StatsConfig
	if err := parseEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
