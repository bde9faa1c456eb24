package config

import (
	"testing"
	"time"
)

func TestLoadMainDefaults(t *testing.T) {
	cfg, err := LoadMain()
	if err != nil {
		t.Fatalf("LoadMain: %v", err)
	}
	if cfg.LeadTime != 2*time.Hour {
		t.Errorf("LeadTime = %s, want 2h", cfg.LeadTime)
	}
	if cfg.DB.Driver != "mysql" {
		t.Errorf("DB.Driver = %q, want mysql", cfg.DB.Driver)
	}
	if cfg.Kafka.Enabled() {
		t.Error("kafka should be disabled without brokers")
	}
}

func TestLoadMainFromEnv(t *testing.T) {
	t.Setenv("EWM_EVENT_LEAD_TIME", "90m")
	t.Setenv("EWM_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("EWM_DB_DRIVER", "sqlite")
	t.Setenv("EWM_SMTP_HOST", "smtp.example.com")

	cfg, err := LoadMain()
	if err != nil {
		t.Fatalf("LoadMain: %v", err)
	}
	if cfg.LeadTime != 90*time.Minute {
		t.Errorf("LeadTime = %s, want 90m", cfg.LeadTime)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Kafka.Brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.DB.Driver != "sqlite" {
		t.Errorf("DB.Driver = %q, want sqlite", cfg.DB.Driver)
	}
	if cfg.SMTP.Host != "smtp.example.com" || cfg.SMTP.Port != 587 {
		t.Errorf("SMTP = %+v", cfg.SMTP)
	}
}

func TestLoadMainRejectsNegativeLeadTime(t *testing.T) {
	t.Setenv("EWM_EVENT_LEAD_TIME", "-1h")
	if _, err := LoadMain(); err == nil {
		t.Fatal("expected error for negative lead time")
	}
}

func TestLoadStatsDefaults(t *testing.T) {
	cfg, err := LoadStats()
	if err != nil {
		t.Fatalf("LoadStats: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.Kafka.HitTopic != "ewm.hits" {
		t.Errorf("HitTopic = %q", cfg.Kafka.HitTopic)
	}
}
