package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWhisper(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	return ensurePositiveMap(map[string]int{
		"download.timeout_seconds": c.Download.TimeoutSeconds,
		"whisper.timeout_seconds":  c.Whisper.TimeoutSeconds,
		"llm.timeout_seconds":      c.LLM.TimeoutSeconds,
	})
}

func (c *Config) validateWhisper() error {
	if c.Whisper.Model == "" {
		return errors.New("whisper.model must be set")
	}
	if c.Whisper.Binary == "" {
		return errors.New("whisper.binary must be set")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.DefaultModel == "" {
		return errors.New("llm.default_model must be set")
	}
	matched := false
	for _, route := range providerRoutes {
		if strings.Contains(strings.ToLower(c.LLM.DefaultModel), route.substring) {
			matched = true
			break
		}
	}
	if !matched {
		return fmt.Errorf("llm.default_model %q does not match any provider route", c.LLM.DefaultModel)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
