package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

type sampleConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Auth          struct {
		TokenURL string `mapstructure:"token_url"`
		ClientID string `mapstructure:"client_id"`
	} `mapstructure:"auth"`
	Streams struct {
		MaxConcurrent int `mapstructure:"max_concurrent"`
	} `mapstructure:"streams"`
	HTTP struct {
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"http"`
}

func TestServiceConfigApplyDefaults(t *testing.T) {
	cfg := ServiceConfig{}
	cfg.ApplyDefaults()
	if cfg.Name != "brokerkit" {
		t.Errorf("expected default name 'brokerkit', got %q", cfg.Name)
	}
	if cfg.Environment != "production" {
		t.Errorf("expected 'production', got %q", cfg.Environment)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected logging defaults applied, got level %q", cfg.Logging.Level)
	}
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr bool
		errMsg  string
	}{
		{"valid production", ServiceConfig{Name: "bk", Environment: "production"}, false, ""},
		{"valid sandbox", ServiceConfig{Name: "bk", Environment: "sandbox"}, false, ""},
		{"missing name", ServiceConfig{Environment: "production"}, true, "config.name is required"},
		{"invalid environment", ServiceConfig{Name: "bk", Environment: "moon"}, true, "config.environment must be one of"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !strings.Contains(err.Error(), tc.errMsg) {
					t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestServiceConfigIsSandbox(t *testing.T) {
	if !(&ServiceConfig{Environment: "sandbox"}).IsSandbox() {
		t.Error("expected sandbox")
	}
	if (&ServiceConfig{Environment: "production"}).IsSandbox() {
		t.Error("production is not sandbox")
	}
}

func TestLoadWithYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")

	yamlContent := `
name: desk-a
environment: sandbox
auth:
  token_url: https://signin.example.com/oauth/token
  client_id: abc
streams:
  max_concurrent: 4
http:
  timeout: 15s
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var cfg sampleConfig
	if err := Load("brokerkit", &cfg, WithConfigFile(configPath), WithFileSystem(&RealFileSystem{})); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Name != "desk-a" || cfg.Environment != "sandbox" {
		t.Errorf("unexpected base config %+v", cfg.ServiceConfig)
	}
	if cfg.Auth.ClientID != "abc" {
		t.Errorf("expected client_id 'abc', got %q", cfg.Auth.ClientID)
	}
	if cfg.Streams.MaxConcurrent != 4 {
		t.Errorf("expected max_concurrent 4, got %d", cfg.Streams.MaxConcurrent)
	}
	if cfg.HTTP.Timeout != 15*time.Second {
		t.Errorf("expected 15s timeout, got %s", cfg.HTTP.Timeout)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(configPath, []byte("auth:\n  client_id: from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BROKERKIT_AUTH_CLIENT_ID", "from-env")
	t.Setenv("BROKERKIT_STREAMS_MAX_CONCURRENT", "7")

	var cfg sampleConfig
	if err := Load("brokerkit", &cfg, WithConfigFile(configPath)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Auth.ClientID != "from-env" {
		t.Errorf("expected env override, got %q", cfg.Auth.ClientID)
	}
	if cfg.Streams.MaxConcurrent != 7 {
		t.Errorf("expected 7 from env, got %d", cfg.Streams.MaxConcurrent)
	}
}

func TestLoadMissingFile(t *testing.T) {
	var cfg sampleConfig
	err := Load("nonexistent", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if err != nil {
		t.Fatalf("expected Load to succeed with missing file, got %v", err)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(configPath, []byte("auth: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	var cfg sampleConfig
	if err := Load("brokerkit", &cfg, WithConfigFile(configPath)); err == nil {
		t.Fatal("expected parse error")
	}
}

type mockFS struct {
	files  map[string]bool
	loaded []string
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error {
	m.loaded = append(m.loaded, path)
	return nil
}

func TestResolverSearchOrder(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./config/brokerkit.yml": true,
		"./config.yml":           true,
		"./.env":                 true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("brokerkit", LoaderConfig{})
	if files.ConfigFile != "./config/brokerkit.yml" {
		t.Errorf("expected ./config/brokerkit.yml, got %q", files.ConfigFile)
	}
	if files.EnvFile != "./.env" {
		t.Errorf("expected ./.env, got %q", files.EnvFile)
	}
}

func TestLoadUsesEnvFile(t *testing.T) {
	fs := &mockFS{files: map[string]bool{"./.env.brokerkit": true}}
	var cfg sampleConfig
	if err := Load("brokerkit", &cfg, WithFileSystem(fs)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(fs.loaded) != 1 || fs.loaded[0] != "./.env.brokerkit" {
		t.Errorf("expected .env.brokerkit to be loaded, got %v", fs.loaded)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("AUTH_CLIENT_ID")
	for _, want := range []string{"auth_client_id", "auth.client.id", "auth.client_id"} {
		if !slices.Contains(got, want) {
			t.Errorf("expected variant %q in %v", want, got)
		}
	}
	if single := envKeyVariants("NAME"); len(single) != 1 || single[0] != "name" {
		t.Errorf("unexpected single-part variants %v", single)
	}
}

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig
	WithConfigFile("/path/to/config.yml")(&lc)
	WithEnvFile("/path/to/.env")(&lc)
	WithFileSystem(&mockFS{})(&lc)
	if lc.ConfigFile != "/path/to/config.yml" || lc.EnvFile != "/path/to/.env" || lc.FileSystem == nil {
		t.Errorf("unexpected loader config %+v", lc)
	}
}
