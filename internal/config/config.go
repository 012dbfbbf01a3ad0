package config

import (
	"crypto/subtle"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// CLIOptions holds command-line arguments. Request-shaped options are
// mapped onto a triage request by the caller; Workers and Provider
// override the corresponding environment settings.
type CLIOptions struct {
	LogPath string // -file: path to the log file (or sole positional argument)

	// Time window selectors, one group per request
	Since string // -since: window start, ISO 8601
	Until string // -until: window end, ISO 8601
	Date  string // -date: calendar day (YYYY-MM-DD)
	Hour  string // -hour: clock hour (YYYY-MM-DDTHH)
	Week  string // -week: ISO week (YYYY-Www)
	Month string // -month: calendar month (YYYY-MM)
	Year  string // -year: calendar year (YYYY)
	Days  int    // -days: lookback in days, -1 = unset
	Hours int    // -hours: lookback in hours, -1 = unset

	Levels     string // -levels: comma-separated severity names
	AllLevels  bool   // -all-levels: keep entries of every severity
	AIReview   bool   // -ai: review unclassified lines with the AI provider
	Contains   string // -contains: raw substring filter
	IncludeRaw bool   // -raw: include the raw line on each entry
	Limit      int    // -limit: cap on returned entries, 0 = unlimited
	Scan       bool   // -scan: byte-level fast scan instead of a full parse

	Workers     int    // -workers: parse worker override, -1 = unset
	Provider    string // -provider: AI provider override
	ShowHelp    bool   // -help: show usage
	ShowVersion bool   // -version: show version
}

// ParseCLI parses command-line arguments and returns CLIOptions
func ParseCLI() *CLIOptions {
	opts := &CLIOptions{}

	flag.StringVar(&opts.LogPath, "file", "", "Path to the log file, plain text or gzip")
	flag.StringVar(&opts.Since, "since", "", "Window start, ISO 8601 (e.g. 2025-12-30T08:00:00Z)")
	flag.StringVar(&opts.Until, "until", "", "Window end, ISO 8601")
	flag.StringVar(&opts.Date, "date", "", "Calendar day window (YYYY-MM-DD)")
	flag.StringVar(&opts.Hour, "hour", "", "Clock hour window (YYYY-MM-DDTHH)")
	flag.StringVar(&opts.Week, "week", "", "ISO week window (YYYY-Www)")
	flag.StringVar(&opts.Month, "month", "", "Calendar month window (YYYY-MM)")
	flag.StringVar(&opts.Year, "year", "", "Calendar year window (YYYY)")
	flag.IntVar(&opts.Days, "days", -1, "Lookback window in days from now")
	flag.IntVar(&opts.Hours, "hours", -1, "Lookback window in hours from now")
	flag.StringVar(&opts.Levels, "levels", "", "Comma-separated severity levels (default WARNING,ERROR)")
	flag.BoolVar(&opts.AllLevels, "all-levels", false, "Keep entries of every severity")
	flag.BoolVar(&opts.AIReview, "ai", false, "Send unclassified lines to the configured AI provider for review")
	flag.StringVar(&opts.Contains, "contains", "", "Keep only lines containing this substring")
	flag.BoolVar(&opts.IncludeRaw, "raw", false, "Include the raw line on each returned entry")
	flag.IntVar(&opts.Limit, "limit", 0, "Maximum entries to return, most recent kept (0 = unlimited)")
	flag.BoolVar(&opts.Scan, "scan", false, "Fast byte scan for elevated severities, no full parse")
	flag.IntVar(&opts.Workers, "workers", -1, "Parse worker count (overrides WORKER_COUNT)")
	flag.StringVar(&opts.Provider, "provider", "", "AI provider: anthropic, ollama, lmstudio (overrides AI_PROVIDER)")
	flag.BoolVar(&opts.ShowHelp, "help", false, "Show usage information")
	flag.BoolVar(&opts.ShowVersion, "version", false, "Show version information")

	// Custom usage message
	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Log Triage - severity triage for arbitrary log files\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options] [logfile]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nExamples:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  %s -date 2025-12-30 /var/log/app.log\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "  %s -levels ERROR,CRITICAL -contains timeout /var/log/app.log.gz\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "  %s -ai -days 1 /var/log/app.log\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "  %s -scan /var/log/app.log\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment variables can be set in .env file or exported directly.\n")
		_, _ = fmt.Fprintf(os.Stderr, "CLI arguments override environment variables.\n")
	}

	flag.Parse()

	// The log path may also be given as the sole positional argument
	if opts.LogPath == "" && flag.NArg() > 0 {
		opts.LogPath = flag.Arg(0)
	}

	return opts
}

// PrintUsage prints the command-line usage information
func PrintUsage() {
	flag.Usage()
}

// Config holds all application configuration. It is read once at startup
// and shared read-only afterwards.
type Config struct {
	Pipeline PipelineConfig
	Review   ReviewConfig
	Logging  LoggingConfig
}

// PipelineConfig sizes the parse pipeline and scopes file access
type PipelineConfig struct {
	WorkerCount       int    // parse workers, 0 = one per CPU
	MaxFileSizeMB     int    // reject larger files, 0 = no cap
	DetectSampleLines int    // lines sampled for dialect detection
	DetectCacheSize   int    // entries in the detection cache
	BaseDir           string // resolved log paths must stay under this dir, "" = unscoped
}

// ReviewConfig selects and tunes the AI review backend
type ReviewConfig struct {
	// Provider Selection
	Provider string // "anthropic" (default), "ollama" or "lmstudio"

	// Anthropic Settings (used when Provider = "anthropic")
	AnthropicAPIKey string
	AnthropicModel  string

	// Ollama Settings (used when Provider = "ollama")
	OllamaURL   string // e.g., "http://localhost:11434"
	OllamaModel string // e.g., "llama3.3:latest"

	// LM Studio Settings (used when Provider = "lmstudio")
	LMStudioURL   string // e.g., "http://localhost:1234"
	LMStudioModel string // e.g., "local-model" or specific model name

	// Call settings shared by all providers
	TimeoutSeconds int
	MaxTokens      int
	MaxRetries     int

	// Review service settings
	MaxConcurrent int     // parallel provider calls
	MinConfidence float64 // findings below this confidence are dropped
	RatePerMinute float64 // provider calls per minute, 0 = unthrottled
	ChunkMaxChars int     // character budget per review chunk

	// Proxy
	HTTPProxy  string
	HTTPSProxy string
}

// LoggingConfig configures the rotating application log
type LoggingConfig struct {
	Level      string
	Dir        string
	Console    bool
	MaxSizeMB  int
	MaxBackups int
}

// Load loads configuration from .env file and environment variables
// Priority: .env file > OS environment variables
// For CLI overrides, use LoadWithCLI instead
func Load() (*Config, error) {
	return LoadWithCLI(nil)
}

// LoadWithCLI loads configuration with CLI argument overrides
// Priority: CLI args > .env file > OS environment variables
func LoadWithCLI(cli *CLIOptions) (*Config, error) {
	// Set up viper first to read OS environment variables
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Load .env file to override OS environment variables
	// godotenv.Load() sets OS env vars from .env, which viper will then read
	_ = godotenv.Load()

	// Set defaults
	setDefaults()

	config := &Config{
		Pipeline: PipelineConfig{
			WorkerCount:       viper.GetInt("WORKER_COUNT"),
			MaxFileSizeMB:     viper.GetInt("MAX_FILE_SIZE_MB"),
			DetectSampleLines: viper.GetInt("DETECT_SAMPLE_LINES"),
			DetectCacheSize:   viper.GetInt("DETECT_CACHE_SIZE"),
			BaseDir:           viper.GetString("BASE_DIR"),
		},
		Review: ReviewConfig{
			Provider:        viper.GetString("AI_PROVIDER"),
			AnthropicAPIKey: viper.GetString("ANTHROPIC_API_KEY"),
			AnthropicModel:  viper.GetString("ANTHROPIC_MODEL"),
			OllamaURL:       viper.GetString("OLLAMA_URL"),
			OllamaModel:     viper.GetString("OLLAMA_MODEL"),
			LMStudioURL:     viper.GetString("LMSTUDIO_URL"),
			LMStudioModel:   viper.GetString("LMSTUDIO_MODEL"),
			TimeoutSeconds:  viper.GetInt("AI_TIMEOUT_SECONDS"),
			MaxTokens:       viper.GetInt("AI_MAX_TOKENS"),
			MaxRetries:      viper.GetInt("AI_MAX_RETRIES"),
			MaxConcurrent:   viper.GetInt("REVIEW_MAX_CONCURRENT"),
			MinConfidence:   viper.GetFloat64("REVIEW_MIN_CONFIDENCE"),
			RatePerMinute:   viper.GetFloat64("REVIEW_RATE_LIMIT"),
			ChunkMaxChars:   viper.GetInt("CHUNK_MAX_CHARS"),
			HTTPProxy:       viper.GetString("HTTP_PROXY"),
			HTTPSProxy:      viper.GetString("HTTPS_PROXY"),
		},
		Logging: LoggingConfig{
			Level:      viper.GetString("LOG_LEVEL"),
			Dir:        viper.GetString("LOG_DIR"),
			Console:    viper.GetBool("LOG_CONSOLE"),
			MaxSizeMB:  viper.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups: viper.GetInt("LOG_MAX_BACKUPS"),
		},
	}

	// Apply CLI overrides (highest priority)
	if cli != nil {
		if cli.Workers >= 0 {
			config.Pipeline.WorkerCount = cli.Workers
		}
		if cli.Provider != "" {
			config.Review.Provider = cli.Provider
		}
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Pipeline defaults
	viper.SetDefault("WORKER_COUNT", 0)
	viper.SetDefault("MAX_FILE_SIZE_MB", 512)
	viper.SetDefault("DETECT_SAMPLE_LINES", 120)
	viper.SetDefault("DETECT_CACHE_SIZE", 128)
	viper.SetDefault("BASE_DIR", "")

	// Review defaults
	viper.SetDefault("AI_PROVIDER", "anthropic")
	viper.SetDefault("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929")
	viper.SetDefault("OLLAMA_URL", "http://localhost:11434")
	viper.SetDefault("OLLAMA_MODEL", "llama3.3:latest")
	viper.SetDefault("LMSTUDIO_URL", "http://localhost:1234")
	viper.SetDefault("LMSTUDIO_MODEL", "local-model")
	viper.SetDefault("AI_TIMEOUT_SECONDS", 60)
	viper.SetDefault("AI_MAX_TOKENS", 8000)
	viper.SetDefault("AI_MAX_RETRIES", 3)
	viper.SetDefault("REVIEW_MAX_CONCURRENT", 3)
	viper.SetDefault("REVIEW_MIN_CONFIDENCE", 0.55)
	viper.SetDefault("REVIEW_RATE_LIMIT", 0)
	viper.SetDefault("CHUNK_MAX_CHARS", 4000)

	// Logging defaults. Console output shares stdout with the JSON
	// response, so it is opt-in.
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_DIR", "./logs")
	viper.SetDefault("LOG_CONSOLE", false)
	viper.SetDefault("LOG_MAX_SIZE_MB", 10)
	viper.SetDefault("LOG_MAX_BACKUPS", 5)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Pipeline.Validate(); err != nil {
		return err
	}
	if err := c.Review.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	return nil
}

// Validate validates pipeline configuration
func (c *PipelineConfig) Validate() error {
	if c.WorkerCount < 0 {
		return fmt.Errorf("WORKER_COUNT must be 0 (one per CPU) or positive")
	}
	if c.MaxFileSizeMB < 0 {
		return fmt.Errorf("MAX_FILE_SIZE_MB must be 0 (no cap) or positive")
	}
	if c.DetectSampleLines < 1 {
		return fmt.Errorf("DETECT_SAMPLE_LINES must be at least 1")
	}
	if c.DetectCacheSize < 1 {
		return fmt.Errorf("DETECT_CACHE_SIZE must be at least 1")
	}
	if c.BaseDir != "" && !filepath.IsAbs(c.BaseDir) {
		return fmt.Errorf("BASE_DIR must be an absolute path (got: %s)", c.BaseDir)
	}
	return nil
}

// Validate validates review configuration. Anthropic credentials are
// deliberately not checked here: a run without -ai must not require an
// API key. ValidateCredentials covers that before review starts.
func (c *ReviewConfig) Validate() error {
	validProviders := map[string]bool{
		"anthropic": true,
		"ollama":    true,
		"lmstudio":  true,
	}

	if !validProviders[c.Provider] {
		return fmt.Errorf("AI_PROVIDER must be 'anthropic', 'ollama', or 'lmstudio' (got: %s)", c.Provider)
	}

	switch c.Provider {
	case "anthropic":
		if c.AnthropicModel == "" {
			return fmt.Errorf("ANTHROPIC_MODEL is required when AI_PROVIDER=anthropic")
		}

	case "ollama":
		if c.OllamaModel == "" {
			return fmt.Errorf("OLLAMA_MODEL is required when AI_PROVIDER=ollama")
		}
		if c.OllamaURL == "" {
			return fmt.Errorf("OLLAMA_URL is required when AI_PROVIDER=ollama")
		}
		// Validate URL format (basic check)
		if !strings.HasPrefix(c.OllamaURL, "http://") && !strings.HasPrefix(c.OllamaURL, "https://") {
			return fmt.Errorf("OLLAMA_URL must start with 'http://' or 'https://'")
		}

	case "lmstudio":
		if c.LMStudioURL == "" {
			return fmt.Errorf("LMSTUDIO_URL is required when AI_PROVIDER=lmstudio")
		}
		// Validate URL format (basic check)
		if !strings.HasPrefix(c.LMStudioURL, "http://") && !strings.HasPrefix(c.LMStudioURL, "https://") {
			return fmt.Errorf("LMSTUDIO_URL must start with 'http://' or 'https://'")
		}
		// Model is optional for LM Studio (defaults to "local-model")
	}

	if c.TimeoutSeconds < 30 || c.TimeoutSeconds > 600 {
		return fmt.Errorf("AI_TIMEOUT_SECONDS must be between 30 and 600")
	}
	if c.MaxTokens < 1000 || c.MaxTokens > 16000 {
		return fmt.Errorf("AI_MAX_TOKENS must be between 1000 and 16000")
	}
	if c.MaxRetries < 1 || c.MaxRetries > 10 {
		return fmt.Errorf("AI_MAX_RETRIES must be between 1 and 10")
	}
	if c.MaxConcurrent < 1 || c.MaxConcurrent > 64 {
		return fmt.Errorf("REVIEW_MAX_CONCURRENT must be between 1 and 64")
	}
	if c.MinConfidence <= 0 || c.MinConfidence > 1 {
		return fmt.Errorf("REVIEW_MIN_CONFIDENCE must be greater than 0 and at most 1")
	}
	if c.RatePerMinute < 0 {
		return fmt.Errorf("REVIEW_RATE_LIMIT must be 0 (unthrottled) or positive")
	}
	if c.ChunkMaxChars < 100 {
		return fmt.Errorf("CHUNK_MAX_CHARS must be at least 100")
	}

	return nil
}

// ValidateCredentials checks the settings that only matter once a review
// call is actually going to be made
func (c *ReviewConfig) ValidateCredentials() error {
	if c.Provider != "anthropic" {
		return nil
	}
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required when AI_PROVIDER=anthropic")
	}
	// Use constant-time comparison to prevent timing attacks
	if !constantTimePrefixMatch(c.AnthropicAPIKey, "sk-ant-") {
		return fmt.Errorf("ANTHROPIC_API_KEY must start with 'sk-ant-'")
	}
	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Level)] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}
	if c.Dir == "" {
		return fmt.Errorf("LOG_DIR is required")
	}
	if c.MaxSizeMB < 1 || c.MaxSizeMB > 100 {
		return fmt.Errorf("LOG_MAX_SIZE_MB must be between 1 and 100")
	}
	if c.MaxBackups < 0 {
		return fmt.Errorf("LOG_MAX_BACKUPS must be 0 or positive")
	}
	return nil
}

// constantTimePrefixMatch checks if s starts with prefix using constant-time comparison.
// This prevents timing attacks that could leak information about the string content.
// Returns false if s is shorter than prefix.
func constantTimePrefixMatch(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	// Compare only the prefix portion using constant-time comparison
	return subtle.ConstantTimeCompare([]byte(s[:len(prefix)]), []byte(prefix)) == 1
}

// IsOllama returns true if the AI provider is Ollama
func (c *ReviewConfig) IsOllama() bool {
	return c.Provider == "ollama"
}

// IsAnthropic returns true if the AI provider is Anthropic
func (c *ReviewConfig) IsAnthropic() bool {
	return c.Provider == "anthropic"
}

// IsLMStudio returns true if the AI provider is LM Studio
func (c *ReviewConfig) IsLMStudio() bool {
	return c.Provider == "lmstudio"
}

// Model returns the model name for the current AI provider
func (c *ReviewConfig) Model() string {
	switch c.Provider {
	case "ollama":
		return c.OllamaModel
	case "lmstudio":
		return c.LMStudioModel
	default:
		return c.AnthropicModel
	}
}

// ProxyURL returns the proxy for outbound provider calls. The remote
// provider speaks HTTPS, so HTTPS_PROXY wins when both are set.
func (c *ReviewConfig) ProxyURL() string {
	if c.HTTPSProxy != "" {
		return c.HTTPSProxy
	}
	return c.HTTPProxy
}
