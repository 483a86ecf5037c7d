package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DefaultServerURL != "https://jalalkhan123-agent-backend.hf.space" {
		t.Errorf("DefaultServerURL = %q", cfg.DefaultServerURL)
	}
	if cfg.ServerPort != DefaultServerPort {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, DefaultServerPort)
	}
	if cfg.RequestTimeout != 90*time.Second {
		t.Errorf("RequestTimeout = %v, want 90s", cfg.RequestTimeout)
	}
	if cfg.SystemTheme != "light" {
		t.Errorf("SystemTheme = %q, want light", cfg.SystemTheme)
	}
	if cfg.PersistentStorage() {
		t.Error("PersistentStorage = true without DATABASE_URL")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing token", map[string]string{"BOT_TOKEN": ""}},
		{"relative server url", map[string]string{"DEFAULT_SERVER_URL": "assistant.local"}},
		{"port out of range", map[string]string{"SERVER_PORT": "70000"}},
		{"unknown theme", map[string]string{"SYSTEM_THEME": "blue"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BOT_TOKEN", "123:abc")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Load succeeded, want error")
			}
		})
	}
}
