// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"medianotes/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per
// test. It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.UploadDir = filepath.Join(base, "uploads")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Whisper.ModelDir = filepath.Join(base, "models")
	for name, provider := range cfg.LLM.Providers {
		provider.APIKey = "test-key"
		cfg.LLM.Providers[name] = provider
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithDefaultModel overrides the default LLM model on the test config.
func WithDefaultModel(model string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.LLM.DefaultModel = model
	}
}

// WithAPIBind overrides the API listen address on the test config.
func WithAPIBind(bind string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Paths.APIBind = bind
	}
}
