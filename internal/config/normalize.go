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
	c.normalizeRender()
	c.normalizeContent()
	c.normalizeAPI()
	c.normalizeIntake()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key   string
		value *string
		def   string
	}{
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
		{"paths.output_dir", &c.Paths.OutputDir, defaultOutputDir},
		{"paths.temp_dir", &c.Paths.TempDir, defaultTempDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.def
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeRender() {
	c.Render.ManimBinary = strings.TrimSpace(c.Render.ManimBinary)
	if c.Render.ManimBinary == "" {
		c.Render.ManimBinary = defaultManimBinary
	}
	c.Render.DefaultQuality = strings.ToLower(strings.TrimSpace(c.Render.DefaultQuality))
	c.Render.DefaultQuality = strings.TrimSuffix(c.Render.DefaultQuality, "_quality")
	if c.Render.DefaultQuality == "" {
		c.Render.DefaultQuality = defaultRenderQuality
	}
	c.Render.OutputFormat = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(c.Render.OutputFormat)), ".")
	if c.Render.OutputFormat == "" {
		c.Render.OutputFormat = defaultOutputFormat
	}
	if c.Render.AssumedDurationSeconds <= 0 {
		c.Render.AssumedDurationSeconds = defaultAssumedRenderSeconds
	}
}

func (c *Config) normalizeContent() {
	if strings.TrimSpace(c.Content.APIKey) == "" {
		if value, ok := os.LookupEnv("CLIPTURBO_LLM_API_KEY"); ok {
			c.Content.APIKey = value
		}
	}
	c.Content.APIKey = strings.TrimSpace(c.Content.APIKey)
	c.Content.BaseURL = strings.TrimSpace(c.Content.BaseURL)
	if c.Content.BaseURL == "" {
		c.Content.BaseURL = defaultContentBaseURL
	}
	c.Content.Model = strings.TrimSpace(c.Content.Model)
	if c.Content.Model == "" {
		c.Content.Model = defaultContentModel
	}
	if strings.TrimSpace(c.Content.DefaultLanguage) == "" {
		c.Content.DefaultLanguage = defaultContentLanguage
	}
	if strings.TrimSpace(c.Content.DefaultStyle) == "" {
		c.Content.DefaultStyle = defaultContentStyle
	}
	if c.Content.DefaultDuration <= 0 {
		c.Content.DefaultDuration = defaultContentDuration
	}
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("CLIPTURBO_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeIntake() {
	c.Intake.RedisAddr = strings.TrimSpace(c.Intake.RedisAddr)
	c.Intake.List = strings.TrimSpace(c.Intake.List)
	if c.Intake.List == "" {
		c.Intake.List = defaultIntakeList
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
