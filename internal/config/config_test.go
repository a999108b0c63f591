package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.ServerPort != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.ServerPort)
	}
	if cfg.DetectionNetworkTimeout != 8*time.Second {
		t.Errorf("expected 8s network timeout, got %s", cfg.DetectionNetworkTimeout)
	}
	if cfg.DetectionWatchdogTimeout != 10*time.Second {
		t.Errorf("expected 10s watchdog, got %s", cfg.DetectionWatchdogTimeout)
	}
	if cfg.DBDriver != "pgx" {
		t.Errorf("expected pgx driver, got %s", cfg.DBDriver)
	}
	if cfg.HistoryCapacity != 50 {
		t.Errorf("expected history capacity 50, got %d", cfg.HistoryCapacity)
	}
	if cfg.JWTExpirationHours != 24*time.Hour {
		t.Errorf("expected 24h JWT expiry, got %s", cfg.JWTExpirationHours)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DETECTION_BACKEND", "Rekognition")
	t.Setenv("DETECTION_NETWORK_TIMEOUT", "5")
	t.Setenv("OVERLAY_CLEAR_AFTER", "1500ms")
	t.Setenv("ENCODE_MAX_WIDTH", "not-a-number")

	cfg := Load()
	if cfg.ServerPort != "9090" {
		t.Errorf("expected 9090, got %s", cfg.ServerPort)
	}
	if cfg.DBPort != 6543 {
		t.Errorf("expected 6543, got %d", cfg.DBPort)
	}
	if cfg.DBDriver != "postgres" {
		t.Errorf("expected postgres driver, got %s", cfg.DBDriver)
	}
	if cfg.DetectionBackend != BackendRekognition {
		t.Errorf("expected rekognition backend, got %s", cfg.DetectionBackend)
	}
	if cfg.DetectionNetworkTimeout != 5*time.Second {
		t.Errorf("plain seconds should parse, got %s", cfg.DetectionNetworkTimeout)
	}
	if cfg.OverlayClearAfter != 1500*time.Millisecond {
		t.Errorf("expected 1.5s, got %s", cfg.OverlayClearAfter)
	}
	if cfg.EncodeMaxWidth != 800 {
		t.Errorf("invalid int should fall back to 800, got %d", cfg.EncodeMaxWidth)
	}
}
