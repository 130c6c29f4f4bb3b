package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")
	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved != path {
		t.Fatalf("resolved = %q, want %q", resolved, path)
	}
	if cfg.Paths.APIBind != defaultAPIBind {
		t.Fatalf("api_bind = %q", cfg.Paths.APIBind)
	}
	if cfg.Whisper.Model != defaultWhisperModel {
		t.Fatalf("whisper model = %q", cfg.Whisper.Model)
	}
	if cfg.LLM.DefaultModel != defaultLLMModel {
		t.Fatalf("llm default_model = %q", cfg.LLM.DefaultModel)
	}
}

func TestLoadAppliesOverridesAndNormalizes(t *testing.T) {
	path := writeConfig(t, `
[paths]
upload_dir = "~/media-uploads"
api_bind = " 0.0.0.0:9000 "

[whisper]
model = "ggml-large-v3.bin"
language = "EN"

[llm]
default_model = "kimi-k2"

[llm.providers.moonshot]
api_key = "sk-test"
`)
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if strings.HasPrefix(cfg.Paths.UploadDir, "~") {
		t.Fatalf("upload_dir not expanded: %q", cfg.Paths.UploadDir)
	}
	if cfg.Paths.APIBind != "0.0.0.0:9000" {
		t.Fatalf("api_bind = %q", cfg.Paths.APIBind)
	}
	if cfg.Whisper.Language != "en" {
		t.Fatalf("language = %q", cfg.Whisper.Language)
	}
	if cfg.Download.Binary != defaultDownloadBinary {
		t.Fatalf("download binary = %q", cfg.Download.Binary)
	}

	provider, err := cfg.ProviderForModel("kimi-k2")
	if err != nil {
		t.Fatalf("ProviderForModel: %v", err)
	}
	if provider.APIKey != "sk-test" {
		t.Fatalf("api key = %q", provider.APIKey)
	}
	if provider.BaseURL != "https://api.moonshot.cn/v1" {
		t.Fatalf("base url = %q", provider.BaseURL)
	}
}

func TestProviderForModelRouting(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	for provider := range cfg.LLM.Providers {
		entry := cfg.LLM.Providers[provider]
		entry.APIKey = "key-" + provider
		cfg.LLM.Providers[provider] = entry
	}

	cases := map[string]string{
		"deepseek-chat": "key-deepseek",
		"gpt-4o-mini":   "key-openai",
		"glm-4-plus":    "key-zhipu",
		"kimi-latest":   "key-moonshot",
	}
	for model, wantKey := range cases {
		provider, err := cfg.ProviderForModel(model)
		if err != nil {
			t.Fatalf("ProviderForModel(%q): %v", model, err)
		}
		if provider.APIKey != wantKey {
			t.Fatalf("ProviderForModel(%q) key = %q, want %q", model, provider.APIKey, wantKey)
		}
	}
}

func TestProviderForModelUnknownModel(t *testing.T) {
	cfg := Default()
	if _, err := cfg.ProviderForModel("mistral-small"); err == nil {
		t.Fatal("expected error for unrouted model")
	}
}

func TestProviderForModelMissingKey(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "")
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if _, err := cfg.ProviderForModel("deepseek-chat"); err == nil {
		t.Fatal("expected error for provider without api key")
	}
}

func TestProviderAPIKeyFromEnv(t *testing.T) {
	t.Setenv("ZHIPU_API_KEY", "env-key")
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	provider, err := cfg.ProviderForModel("glm-4")
	if err != nil {
		t.Fatalf("ProviderForModel: %v", err)
	}
	if provider.APIKey != "env-key" {
		t.Fatalf("api key = %q", provider.APIKey)
	}
}

func TestValidateRejectsUnroutableDefaultModel(t *testing.T) {
	path := writeConfig(t, `
[llm]
default_model = "llama-70b"
`)
	if _, _, _, err := Load(path); err == nil {
		t.Fatal("expected validation error for unroutable default model")
	}
}

func TestLoadRejectsInvalidTOML(t *testing.T) {
	path := writeConfig(t, "[paths\nupload_dir = 3")
	if _, _, _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := Load(path); err != nil || !exists {
		t.Fatalf("Load(sample): exists=%v err=%v", exists, err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Paths.UploadDir = filepath.Join(dir, "uploads")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, d := range []string{cfg.Paths.UploadDir, cfg.Paths.LogDir} {
		info, err := os.Stat(d)
		if err != nil || !info.IsDir() {
			t.Fatalf("missing directory %q: %v", d, err)
		}
	}
}
