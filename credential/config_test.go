package credential

import (
	"testing"
	"time"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{TokenURL: "https://auth.example.com/token", ClientID: "c"}
	cfg.ApplyDefaults()

	if cfg.AuthMethod != AuthMethodPost {
		t.Errorf("expected %s, got %s", AuthMethodPost, cfg.AuthMethod)
	}
	if cfg.RefreshAhead != 5*time.Minute {
		t.Errorf("expected 5m refresh ahead, got %v", cfg.RefreshAhead)
	}
	if cfg.DefaultTTL != 20*time.Minute {
		t.Errorf("expected 20m default TTL, got %v", cfg.DefaultTTL)
	}
	if cfg.Store.Type != StoreMemory {
		t.Errorf("expected memory store, got %s", cfg.Store.Type)
	}
	if cfg.Retry.MaxAttempts != 2 {
		t.Errorf("expected 2 attempts, got %d", cfg.Retry.MaxAttempts)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		c := Config{TokenURL: "https://auth.example.com/token", ClientID: "c"}
		c.ApplyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing token url", func(c *Config) { c.TokenURL = "" }, true},
		{"relative token url", func(c *Config) { c.TokenURL = "/oauth/token" }, true},
		{"missing client id", func(c *Config) { c.ClientID = "" }, true},
		{"bad auth method", func(c *Config) { c.AuthMethod = "private_key_jwt" }, true},
		{"file store without path", func(c *Config) { c.Store = StoreConfig{Type: StoreFile, Key: "k"} }, true},
		{"file store", func(c *Config) { c.Store = StoreConfig{Type: StoreFile, Path: "/tmp/t", Key: "k"} }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
