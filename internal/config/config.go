package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	UploadDir string `toml:"upload_dir"`
	LogDir    string `toml:"log_dir"`
	APIBind   string `toml:"api_bind"`
}

// Download contains configuration for fetching remote media.
type Download struct {
	Binary         string `toml:"binary"`
	Format         string `toml:"format"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Whisper contains configuration for local speech-to-text transcription.
type Whisper struct {
	Binary         string `toml:"binary"`
	ModelDir       string `toml:"model_dir"`
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	Prompt         string `toml:"prompt"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// LLMProvider contains the connection settings for one chat-completions backend.
type LLMProvider struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// LLM contains summarization settings. Providers are keyed by vendor name;
// requests are routed to a provider by matching the model name.
type LLM struct {
	DefaultModel   string                 `toml:"default_model"`
	TimeoutSeconds int                    `toml:"timeout_seconds"`
	Providers      map[string]LLMProvider `toml:"providers"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the daemon and CLI.
//
// Configuration sections by subsystem:
//   - Paths: upload/log directories and API bind address
//   - Download: yt-dlp binary and format selection
//   - Whisper: whisper.cpp binary and model settings
//   - LLM: chat-completions providers for summarization
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Download Download `toml:"download"`
	Whisper  Whisper  `toml:"whisper"`
	LLM      LLM      `toml:"llm"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/medianotes/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("medianotes.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.UploadDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for audio extraction.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// WhisperModelPath returns the absolute path to the configured whisper model file.
func (c *Config) WhisperModelPath() string {
	return filepath.Join(c.Whisper.ModelDir, c.Whisper.Model)
}

// ProviderForModel routes a model name to a configured provider by substring
// match. Returns an error when no route matches or the matched provider has
// no API key.
func (c *Config) ProviderForModel(model string) (LLMProvider, error) {
	model = strings.ToLower(strings.TrimSpace(model))
	if model == "" {
		return LLMProvider{}, errors.New("llm model name is empty")
	}
	for _, route := range providerRoutes {
		if !strings.Contains(model, route.substring) {
			continue
		}
		provider, ok := c.LLM.Providers[route.provider]
		if !ok || strings.TrimSpace(provider.APIKey) == "" {
			return LLMProvider{}, fmt.Errorf("llm provider %q has no api key configured (set llm.providers.%s.api_key or %s)", route.provider, route.provider, route.envVar)
		}
		return provider, nil
	}
	return LLMProvider{}, fmt.Errorf("no llm provider configured for model %q", model)
}

type providerRoute struct {
	substring string
	provider  string
	envVar    string
}

var providerRoutes = []providerRoute{
	{substring: "deepseek", provider: "deepseek", envVar: "DEEPSEEK_API_KEY"},
	{substring: "gpt", provider: "openai", envVar: "OPENAI_API_KEY"},
	{substring: "glm", provider: "zhipu", envVar: "ZHIPU_API_KEY"},
	{substring: "kimi", provider: "moonshot", envVar: "MOONSHOT_API_KEY"},
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
