package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variables read by Load.
const EnvPrefix = "BROKERKIT_"

// FileSystem interface for file operations (useful for testing).
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Resolver finds config and env files.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns explicit paths if provided, otherwise searches for them.
func (r *Resolver) ResolveFiles(name string, opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = r.firstExisting(
			fmt.Sprintf("./%s.yml", name),
			fmt.Sprintf("./config/%s.yml", name),
			"./config/config.yml",
			"./config.yml",
		)
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = r.firstExisting(
			fmt.Sprintf("./.env.%s", name),
			"./.env",
			"../.env",
		)
	}
	return resolved
}

func (r *Resolver) firstExisting(paths ...string) string {
	for _, path := range paths {
		if r.FileSystem.Exists(path) {
			return path
		}
	}
	return ""
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// Load reads configuration for name into cfg. Missing files are not an
// error; a file that exists but cannot be parsed is.
func Load(name string, cfg interface{}, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(name, lc)

	v := viper.New()
	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read %s: %w", files.ConfigFile, err)
		}
	}

	// .env values never override variables already set in the process.
	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			return fmt.Errorf("config: load %s: %w", files.EnvFile, err)
		}
	}
	bindPrefixedEnv(v, os.Environ())

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("config: unmarshal %s: %w", name, err)
	}
	return nil
}

// bindPrefixedEnv sets every BROKERKIT_* variable on v under each nested key
// it could address.
func bindPrefixedEnv(v *viper.Viper, environ []string) {
	for _, env := range environ {
		key, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		for _, variant := range envKeyVariants(strings.TrimPrefix(key, EnvPrefix)) {
			v.Set(variant, value)
		}
	}
}

// envKeyVariants maps an env key onto the nested keys it may mean, since an
// underscore can either separate sections or belong to a field name:
//
//	AUTH_CLIENT_ID -> [auth_client_id, auth.client.id, auth.client_id, auth_client.id]
func envKeyVariants(envKey string) []string {
	lower := strings.ToLower(envKey)
	parts := strings.Split(lower, "_")
	if len(parts) <= 1 {
		return []string{lower}
	}

	variants := []string{lower, strings.Join(parts, ".")}
	for i := 1; i < len(parts); i++ {
		variants = append(variants, strings.Join(parts[:i], "_")+"."+strings.Join(parts[i:], "_"))
		variants = append(variants, strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"))
	}
	return dedupe(variants)
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}
	return result
}
