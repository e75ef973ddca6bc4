package config

import (
	"log/slog"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "db")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "kafka-2:9092" {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if got := cfg.Database.DSN(); got != "host=db port=5432 user=postgres password= dbname=soins_training sslmode=disable" {
		t.Errorf("DSN = %q", got)
	}
}

func TestDatabaseURLWins(t *testing.T) {
	d := DatabaseConfig{URL: "postgres://u:p@h/db", Host: "ignored"}
	if d.DSN() != "postgres://u:p@h/db" {
		t.Errorf("DSN = %q", d.DSN())
	}
}

func TestValidateProductionRequiresCasdoor(t *testing.T) {
	cfg := &Config{
		Port:        "8080",
		Environment: "production",
		Training:    TrainingConfig{CertificateBaseURL: "https://x"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected production validation error")
	}

	cfg.Casdoor = CasdoorConfig{Endpoint: "https://auth", ClientID: "id", Cert: "cert"}
	cfg.Database = DatabaseConfig{URL: "postgres://x"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
