package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLLM() error {
	if strings.TrimSpace(c.LLM.BaseURL) == "" {
		return errors.New("llm.base_url must be set")
	}
	parsed, err := url.Parse(c.LLM.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("llm.base_url %q is not an absolute URL", c.LLM.BaseURL)
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model must be set")
	}
	if err := ensurePositiveMap(map[string]int{
		"llm.timeout_seconds":  c.LLM.TimeoutSeconds,
		"llm.breaker_failures": c.LLM.BreakerFailures,
	}); err != nil {
		return err
	}
	if c.LLM.MaxRetries < 0 {
		return errors.New("llm.max_retries must be zero or positive")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if !slices.Contains(AnalysisStyles, c.Analysis.DefaultStyle) {
		return fmt.Errorf("analysis.default_style must be one of %s", strings.Join(AnalysisStyles, ", "))
	}
	if c.Analysis.DefaultStyle == "custom" && c.Analysis.CustomPrompt == "" {
		return errors.New("analysis.custom_prompt must be set when analysis.default_style is custom")
	}
	return ensurePositiveMap(map[string]int{
		"analysis.batch_limit": c.Analysis.BatchLimit,
		"similarity.limit":     c.Similarity.Limit,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not recognised (debug, info, warn, error)", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
