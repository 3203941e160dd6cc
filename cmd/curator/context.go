package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"curator/internal/config"
	"curator/internal/library"
	"curator/internal/logging"
	"curator/internal/services/llm"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// loggerValue returns the process logger. Logger construction failures fall
// back to a no-op logger so commands still run.
func (c *commandContext) loggerValue() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) withStore(fn func(*config.Config, *library.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := library.Open(cfg)
	if err != nil {
		return fmt.Errorf("open library: %w", err)
	}
	defer store.Close()
	return fn(cfg, store)
}

// llmClient builds one client for both board suggestions and image analysis
// so they share a circuit breaker.
func (c *commandContext) llmClient(cfg *config.Config) *llm.Client {
	text := cfg.TextLLM()
	vision := cfg.VisionLLM()
	return llm.NewClient(llm.Config{
		APIKey:          text.APIKey,
		BaseURL:         text.BaseURL,
		Model:           text.Model,
		Referer:         text.Referer,
		Title:           text.Title,
		TimeoutSeconds:  text.TimeoutSeconds,
		MaxRetries:      text.MaxRetries,
		BreakerFailures: text.BreakerFailures,
	},
		llm.WithVisionModel(vision.Model),
		// max_retries = 0 in the config file means no retries.
		llm.WithRetryMaxAttempts(text.MaxRetries+1),
		llm.WithLogger(c.loggerValue()),
	)
}

// withBatchLock serialises batch runs that write to the library.
func withBatchLock(cfg *config.Config, fn func() error) error {
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another curator batch is already running")
	}
	defer func() {
		_ = lock.Unlock()
	}()
	return fn()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
