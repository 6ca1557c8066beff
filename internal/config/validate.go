package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var validQualities = map[string]struct{}{
	"low":        {},
	"medium":     {},
	"high":       {},
	"production": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateIntake(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRender() error {
	if err := ensurePositiveMap(map[string]int{
		"render.max_concurrent":           c.Render.MaxConcurrent,
		"render.tick_millis":              c.Render.TickMillis,
		"render.assumed_duration_seconds": c.Render.AssumedDurationSeconds,
	}); err != nil {
		return err
	}
	if _, ok := validQualities[c.Render.DefaultQuality]; !ok {
		return fmt.Errorf("render.default_quality must be one of low, medium, high, production (got %q)", c.Render.DefaultQuality)
	}
	if strings.ContainsAny(c.Render.OutputFormat, `/\`) {
		return fmt.Errorf("render.output_format %q must be a bare extension", c.Render.OutputFormat)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.HistoryRetentionDays < 0 {
		return errors.New("workflow.history_retention_days must not be negative")
	}
	return ensurePositiveMap(map[string]int{
		"workflow.retention_hours":        c.Workflow.RetentionHours,
		"workflow.sweep_interval_minutes": c.Workflow.SweepIntervalMinutes,
		"content.timeout_seconds":         c.Content.TimeoutSeconds,
		"notifications.request_timeout":   c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateIntake() error {
	if !c.Intake.Enabled {
		return nil
	}
	if c.Intake.RedisAddr == "" {
		return errors.New("intake.redis_addr must be set when intake.enabled is true")
	}
	if c.Intake.RedisDB < 0 {
		return errors.New("intake.redis_db must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error (got %q)", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
