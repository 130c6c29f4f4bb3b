package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDownload()
	if err := c.normalizeWhisper(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.UploadDir) == "" {
		c.Paths.UploadDir = defaultUploadDir
	}
	if c.Paths.UploadDir, err = expandPath(c.Paths.UploadDir); err != nil {
		return fmt.Errorf("paths.upload_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeDownload() {
	c.Download.Binary = strings.TrimSpace(c.Download.Binary)
	if c.Download.Binary == "" {
		c.Download.Binary = defaultDownloadBinary
	}
	c.Download.Format = strings.TrimSpace(c.Download.Format)
	if c.Download.Format == "" {
		c.Download.Format = defaultDownloadFormat
	}
	if c.Download.TimeoutSeconds <= 0 {
		c.Download.TimeoutSeconds = defaultDownloadTimeoutSeconds
	}
}

func (c *Config) normalizeWhisper() error {
	var err error
	c.Whisper.Binary = strings.TrimSpace(c.Whisper.Binary)
	if c.Whisper.Binary == "" {
		c.Whisper.Binary = defaultWhisperBinary
	}
	if strings.TrimSpace(c.Whisper.ModelDir) == "" {
		c.Whisper.ModelDir = defaultWhisperModelDir
	}
	if c.Whisper.ModelDir, err = expandPath(c.Whisper.ModelDir); err != nil {
		return fmt.Errorf("whisper.model_dir: %w", err)
	}
	c.Whisper.Model = strings.TrimSpace(c.Whisper.Model)
	if c.Whisper.Model == "" {
		c.Whisper.Model = defaultWhisperModel
	}
	c.Whisper.Language = strings.ToLower(strings.TrimSpace(c.Whisper.Language))
	if c.Whisper.Language == "" {
		c.Whisper.Language = defaultWhisperLanguage
	}
	c.Whisper.Prompt = strings.TrimSpace(c.Whisper.Prompt)
	if c.Whisper.TimeoutSeconds <= 0 {
		c.Whisper.TimeoutSeconds = defaultWhisperTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.DefaultModel = strings.TrimSpace(c.LLM.DefaultModel)
	if c.LLM.DefaultModel == "" {
		c.LLM.DefaultModel = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.Providers == nil {
		c.LLM.Providers = map[string]LLMProvider{}
	}
	defaults := Default().LLM.Providers
	for _, route := range providerRoutes {
		provider := c.LLM.Providers[route.provider]
		provider.APIKey = strings.TrimSpace(provider.APIKey)
		provider.BaseURL = strings.TrimSpace(provider.BaseURL)
		if provider.APIKey == "" {
			if value, ok := os.LookupEnv(route.envVar); ok {
				provider.APIKey = strings.TrimSpace(value)
			}
		}
		if provider.BaseURL == "" {
			provider.BaseURL = defaults[route.provider].BaseURL
		}
		c.LLM.Providers[route.provider] = provider
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
