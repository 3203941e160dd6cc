package config

const (
	defaultConfigPath        = "~/.config/curator/config.toml"
	defaultDataDir           = "~/.local/share/curator"
	defaultLibraryDir        = "~/.local/share/curator/library"
	defaultLogDir            = "~/.local/share/curator/logs"
	defaultLLMBaseURL        = "http://localhost:1234/v1/chat/completions"
	defaultLLMModel          = "local-model"
	defaultLLMTitle          = "Curator"
	defaultLLMTimeoutSeconds = 120
	defaultLLMMaxRetries     = 3
	defaultBreakerFailures   = 5
	defaultAnalysisStyle     = "classic"
	defaultBatchLimit        = 10
	defaultSimilarityLimit   = 6
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// AnalysisStyles lists the description styles accepted by analysis.default_style.
var AnalysisStyles = []string{"classic", "artistic", "spicy", "social", "tags", "custom"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
		},
		LLM: LLM{
			BaseURL:         defaultLLMBaseURL,
			Model:           defaultLLMModel,
			Title:           defaultLLMTitle,
			TimeoutSeconds:  defaultLLMTimeoutSeconds,
			MaxRetries:      defaultLLMMaxRetries,
			BreakerFailures: defaultBreakerFailures,
		},
		Analysis: Analysis{
			DefaultStyle: defaultAnalysisStyle,
			BatchLimit:   defaultBatchLimit,
		},
		Similarity: Similarity{
			Limit: defaultSimilarityLimit,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
