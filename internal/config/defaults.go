package config

const (
	defaultStateDir               = "~/.local/share/clipturbo"
	defaultOutputDir              = "~/.local/share/clipturbo/output"
	defaultTempDir                = "~/.cache/clipturbo/render"
	defaultLogDir                 = "~/.local/share/clipturbo/logs"
	defaultManimBinary            = "manim"
	defaultMaxConcurrentRenders   = 2
	defaultRenderTickMillis       = 1000
	defaultAssumedRenderSeconds   = 30
	defaultRenderQuality          = "medium"
	defaultOutputFormat           = "mp4"
	defaultWorkflowRetentionHours = 24
	defaultSweepIntervalMinutes   = 60
	defaultHistoryRetentionDays   = 90
	defaultContentBaseURL         = "https://openrouter.ai/api/v1/chat/completions"
	defaultContentModel           = "google/gemini-3-flash-preview"
	defaultContentReferer         = "https://github.com/clipturbo/clipturbo"
	defaultContentTitle           = "ClipTurbo Script Writer"
	defaultContentTimeoutSeconds  = 60
	defaultContentLanguage        = "zh-CN"
	defaultContentStyle           = "default"
	defaultContentDuration        = 60
	defaultAPIBind                = "127.0.0.1:7488"
	defaultIntakeRedisAddr        = "127.0.0.1:6379"
	defaultIntakeList             = "clipturbo:submissions"
	defaultNotifyRequestTimeout   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:  defaultStateDir,
			OutputDir: defaultOutputDir,
			TempDir:   defaultTempDir,
			LogDir:    defaultLogDir,
		},
		Render: Render{
			ManimBinary:            defaultManimBinary,
			MaxConcurrent:          defaultMaxConcurrentRenders,
			TickMillis:             defaultRenderTickMillis,
			AssumedDurationSeconds: defaultAssumedRenderSeconds,
			DefaultQuality:         defaultRenderQuality,
			OutputFormat:           defaultOutputFormat,
		},
		Workflow: Workflow{
			RetentionHours:       defaultWorkflowRetentionHours,
			SweepIntervalMinutes: defaultSweepIntervalMinutes,
			HistoryRetentionDays: defaultHistoryRetentionDays,
		},
		Content: Content{
			BaseURL:         defaultContentBaseURL,
			Model:           defaultContentModel,
			Referer:         defaultContentReferer,
			Title:           defaultContentTitle,
			TimeoutSeconds:  defaultContentTimeoutSeconds,
			DefaultLanguage: defaultContentLanguage,
			DefaultStyle:    defaultContentStyle,
			DefaultDuration: defaultContentDuration,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Intake: Intake{
			RedisAddr: defaultIntakeRedisAddr,
			List:      defaultIntakeList,
		},
		Notifications: Notifications{
			RequestTimeout:    defaultNotifyRequestTimeout,
			WorkflowCompleted: true,
			WorkflowFailed:    true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
