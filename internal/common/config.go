package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Logging     LoggingConfig    `toml:"logging"`
	Storage     StorageConfig    `toml:"storage"`
	Engine      EngineConfig     `toml:"engine"`
	Sources     SourcesConfig    `toml:"sources"`
	Gemini      GeminiConfig     `toml:"gemini"`
	Claude      ClaudeConfig     `toml:"claude"`
	LLM         LLMConfig        `toml:"llm"`
	Digest      DigestConfig     `toml:"digest"`
	Schedules   []ScheduleConfig `toml:"schedules"`
	WebSocket   WebSocketConfig  `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level         string   `toml:"level"`           // "debug", "info", "warn", "error"
	Format        string   `toml:"format"`          // "json" or "text"
	Output        []string `toml:"output"`          // "stdout", "file"
	TimeFormat    string   `toml:"time_format"`     // Time format for logs (default: "15:04:05")
	MinEventLevel string   `toml:"min_event_level"` // Minimum log level to relay on the live stream
}

type StorageConfig struct {
	Badger          BadgerConfig `toml:"badger"`
	EventAuditLimit int          `toml:"event_audit_limit"` // Max events retained per run (0 = unlimited)
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// EngineConfig tunes the supervisor. Algorithmic bounds (compensation
// rounds, review retries, per-worker parallelism) are fixed in the engine
// package; only operator-facing knobs live here.
type EngineConfig struct {
	StepTimeout  string `toml:"step_timeout"`  // Per worker step timeout as duration string (default: "2m")
	WorkerBuffer int    `toml:"worker_buffer"` // Extra leads requested per worker above its share (min 5)
}

// SourcesConfig contains the concrete source adapter settings. Each adapter
// owns its own throttling; RequestDelay seeds the per-adapter rate limiter.
type SourcesConfig struct {
	UserAgent          string        `toml:"user_agent"`
	RequestTimeout     time.Duration `toml:"request_timeout"`      // HTTP request timeout
	RequestDelay       time.Duration `toml:"request_delay"`        // Minimum delay between requests per adapter
	MaxBodySize        int           `toml:"max_body_size"`        // Maximum response body size in bytes
	EnableJavaScript   bool          `toml:"enable_javascript"`    // Render JS-heavy pages with chromedp
	JavaScriptWaitTime time.Duration `toml:"javascript_wait_time"` // Time to wait for JavaScript to render
	NewsBaseURL        string        `toml:"news_base_url"`        // Funding news list page base (page N appended)
	CommunityProvider  string        `toml:"community_provider"`   // "reddit" or "github"
	CommunityBaseURL   string        `toml:"community_base_url"`
	LinkedInBaseURL    string        `toml:"linkedin_base_url"`
	GitHub             GitHubConfig  `toml:"github"`
}

// GitHubConfig configures the GitHub discussions community source
type GitHubConfig struct {
	Token string   `toml:"token"` // Personal access token (VENATOR_GITHUB_TOKEN or GITHUB_TOKEN)
	Repos []string `toml:"repos"` // Optional repo filters, e.g. "owner/name"
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key
	Model       string  `toml:"model"`       // Model for classify/search operations (default: "gemini-2.0-flash")
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "2m")
	RateLimit   string  `toml:"rate_limit"`  // Rate limit duration string (default: "4s" for 15 RPM)
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.2)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key (ANTHROPIC_API_KEY or config)
	Model       string  `toml:"model"`       // Model for planner operations (default: "claude-haiku-3-5-20241022")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 4096)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "2m")
	RateLimit   string  `toml:"rate_limit"`  // Rate limit duration string (default: "1s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.7)
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
	// LLMProviderOffline disables LLM calls; planner and classify fall back deterministically
	LLMProviderOffline LLMProvider = "offline"
)

// LLMConfig selects the provider backing planner and classification calls
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "claude" (default), "gemini", or "offline"
}

// DigestConfig configures the optional completion digest email
type DigestConfig struct {
	Enabled   bool     `toml:"enabled"`
	SMTPHost  string   `toml:"smtp_host"`
	SMTPPort  int      `toml:"smtp_port"`
	Username  string   `toml:"username"`
	Password  string   `toml:"password"`
	From      string   `toml:"from"`
	To        []string `toml:"to"`
	AttachPDF bool     `toml:"attach_pdf"` // Attach the PDF report to the digest
}

// ScheduleConfig defines a recurring run of a product profile
type ScheduleConfig struct {
	Name    string `toml:"name"`
	Cron    string `toml:"cron"`    // Standard 5-field cron expression
	Profile string `toml:"profile"` // Path to a product profile YAML
	Target  int    `toml:"target"`  // Lead target for each scheduled run
	Enabled bool   `toml:"enabled"`
}

// WebSocketConfig contains configuration for WebSocket event streaming
type WebSocketConfig struct {
	MinLevel        string   `toml:"min_level"`        // Minimum log level to broadcast ("debug", "info", "warn", "error")
	ExcludePatterns []string `toml:"exclude_patterns"` // Log message patterns to exclude from broadcasting
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in venator.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:         "info",
			Format:        "text",
			Output:        []string{"stdout", "file"},
			TimeFormat:    "15:04:05",
			MinEventLevel: "info",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
			EventAuditLimit: 500,
		},
		Engine: EngineConfig{
			StepTimeout:  "2m",
			WorkerBuffer: 5,
		},
		Sources: SourcesConfig{
			UserAgent:          "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			RequestTimeout:     30 * time.Second,
			RequestDelay:       1 * time.Second,
			MaxBodySize:        10 * 1024 * 1024, // 10MB
			EnableJavaScript:   false,            // LinkedIn-style pages need it; off unless Chrome is available
			JavaScriptWaitTime: 3 * time.Second,
			NewsBaseURL:        "https://www.finsmes.com",
			CommunityProvider:  "reddit",
			CommunityBaseURL:   "https://www.reddit.com",
			LinkedInBaseURL:    "https://www.linkedin.com",
			GitHub: GitHubConfig{
				Repos: []string{},
			},
		},
		Gemini: GeminiConfig{
			APIKey:      "", // User must provide API key (no fallback)
			Model:       "gemini-2.0-flash",
			Timeout:     "2m",
			RateLimit:   "4s", // Default to 4s (15 RPM) for free tier
			Temperature: 0.2,
		},
		Claude: ClaudeConfig{
			APIKey:      "", // User must provide API key (ANTHROPIC_API_KEY or config)
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   4096,
			Timeout:     "2m",
			RateLimit:   "1s",
			Temperature: 0.7,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderClaude,
		},
		Digest: DigestConfig{
			Enabled:   false, // Opt-in; requires SMTP settings
			SMTPPort:  587,
			AttachPDF: true,
		},
		Schedules: []ScheduleConfig{},
		WebSocket: WebSocketConfig{
			MinLevel: "info",
			ExcludePatterns: []string{
				"WebSocket client connected",
				"WebSocket client disconnected",
				"HTTP request",
				"HTTP response",
			},
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files; later files override
// earlier files. Priority: CLI flags > environment variables > last config
// file > ... > first config file > defaults.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks cross-field constraints that TOML parsing cannot express
func (c *Config) Validate() error {
	if c.Engine.WorkerBuffer < 5 {
		c.Engine.WorkerBuffer = 5
	}
	if _, err := time.ParseDuration(c.Engine.StepTimeout); err != nil {
		return fmt.Errorf("invalid engine.step_timeout %q: %w", c.Engine.StepTimeout, err)
	}
	switch c.LLM.DefaultProvider {
	case LLMProviderGemini, LLMProviderClaude, LLMProviderOffline:
	default:
		return fmt.Errorf("invalid llm.default_provider %q: must be gemini, claude, or offline", c.LLM.DefaultProvider)
	}
	switch c.Sources.CommunityProvider {
	case "reddit", "github":
	default:
		return fmt.Errorf("invalid sources.community_provider %q: must be reddit or github", c.Sources.CommunityProvider)
	}
	for _, sched := range c.Schedules {
		if !sched.Enabled {
			continue
		}
		if err := ValidateSchedule(sched.Cron); err != nil {
			return fmt.Errorf("schedule %q: %w", sched.Name, err)
		}
		if sched.Profile == "" {
			return fmt.Errorf("schedule %q: profile path is required", sched.Name)
		}
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: VENATOR_ENV, fallback: GO_ENV)
	if env := os.Getenv("VENATOR_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("VENATOR_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("VENATOR_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Logging configuration
	if level := os.Getenv("VENATOR_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("VENATOR_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("VENATOR_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range splitString(output, ",") {
			trimmed := trimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
	if minEventLevel := os.Getenv("VENATOR_LOG_MIN_EVENT_LEVEL"); minEventLevel != "" {
		config.Logging.MinEventLevel = minEventLevel
	}

	// Storage configuration
	if badgerPath := os.Getenv("VENATOR_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Engine configuration
	if stepTimeout := os.Getenv("VENATOR_ENGINE_STEP_TIMEOUT"); stepTimeout != "" {
		if _, err := time.ParseDuration(stepTimeout); err == nil {
			config.Engine.StepTimeout = stepTimeout
		}
	}
	if buffer := os.Getenv("VENATOR_ENGINE_WORKER_BUFFER"); buffer != "" {
		if b, err := strconv.Atoi(buffer); err == nil {
			config.Engine.WorkerBuffer = b
		}
	}

	// Sources configuration
	if userAgent := os.Getenv("VENATOR_SOURCES_USER_AGENT"); userAgent != "" {
		config.Sources.UserAgent = userAgent
	}
	if requestTimeout := os.Getenv("VENATOR_SOURCES_REQUEST_TIMEOUT"); requestTimeout != "" {
		if rt, err := time.ParseDuration(requestTimeout); err == nil {
			config.Sources.RequestTimeout = rt
		}
	}
	if requestDelay := os.Getenv("VENATOR_SOURCES_REQUEST_DELAY"); requestDelay != "" {
		if rd, err := time.ParseDuration(requestDelay); err == nil {
			config.Sources.RequestDelay = rd
		}
	}
	if enableJS := os.Getenv("VENATOR_SOURCES_ENABLE_JAVASCRIPT"); enableJS != "" {
		if js, err := strconv.ParseBool(enableJS); err == nil {
			config.Sources.EnableJavaScript = js
		}
	}
	if newsBase := os.Getenv("VENATOR_SOURCES_NEWS_BASE_URL"); newsBase != "" {
		config.Sources.NewsBaseURL = newsBase
	}
	if provider := os.Getenv("VENATOR_SOURCES_COMMUNITY_PROVIDER"); provider != "" {
		config.Sources.CommunityProvider = provider
	}
	if communityBase := os.Getenv("VENATOR_SOURCES_COMMUNITY_BASE_URL"); communityBase != "" {
		config.Sources.CommunityBaseURL = communityBase
	}

	// GitHub configuration (VENATOR_ prefix takes priority over the standard var)
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		config.Sources.GitHub.Token = token
	}
	if token := os.Getenv("VENATOR_GITHUB_TOKEN"); token != "" {
		config.Sources.GitHub.Token = token
	}

	// Gemini configuration (VENATOR_ prefix takes priority over the standard var)
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if apiKey := os.Getenv("VENATOR_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("VENATOR_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if timeout := os.Getenv("VENATOR_GEMINI_TIMEOUT"); timeout != "" {
		config.Gemini.Timeout = timeout
	}
	if rateLimit := os.Getenv("VENATOR_GEMINI_RATE_LIMIT"); rateLimit != "" {
		config.Gemini.RateLimit = rateLimit
	}
	if temperature := os.Getenv("VENATOR_GEMINI_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Gemini.Temperature = float32(t)
		}
	}

	// Claude configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("VENATOR_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // VENATOR_ prefix takes priority
	}
	if model := os.Getenv("VENATOR_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if maxTokens := os.Getenv("VENATOR_CLAUDE_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.Claude.MaxTokens = mt
		}
	}
	if timeout := os.Getenv("VENATOR_CLAUDE_TIMEOUT"); timeout != "" {
		config.Claude.Timeout = timeout
	}
	if rateLimit := os.Getenv("VENATOR_CLAUDE_RATE_LIMIT"); rateLimit != "" {
		config.Claude.RateLimit = rateLimit
	}
	if temperature := os.Getenv("VENATOR_CLAUDE_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Claude.Temperature = float32(t)
		}
	}

	// LLM provider configuration
	if provider := os.Getenv("VENATOR_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}

	// Digest configuration
	if enabled := os.Getenv("VENATOR_DIGEST_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Digest.Enabled = e
		}
	}
	if smtpHost := os.Getenv("VENATOR_DIGEST_SMTP_HOST"); smtpHost != "" {
		config.Digest.SMTPHost = smtpHost
	}
	if smtpPort := os.Getenv("VENATOR_DIGEST_SMTP_PORT"); smtpPort != "" {
		if p, err := strconv.Atoi(smtpPort); err == nil {
			config.Digest.SMTPPort = p
		}
	}
	if username := os.Getenv("VENATOR_DIGEST_USERNAME"); username != "" {
		config.Digest.Username = username
	}
	if password := os.Getenv("VENATOR_DIGEST_PASSWORD"); password != "" {
		config.Digest.Password = password
	}

	// WebSocket configuration
	if minLevel := os.Getenv("VENATOR_WEBSOCKET_MIN_LEVEL"); minLevel != "" {
		config.WebSocket.MinLevel = minLevel
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// StepTimeoutDuration returns the parsed per-step timeout, falling back to
// two minutes on a malformed value.
func (c *Config) StepTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Engine.StepTimeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

// Helper functions for string manipulation
func splitString(s, sep string) []string {
	result := []string{}
	start := 0
	for i := 0; i < len(s); i++ {
		if i+len(sep) <= len(s) && s[i:i+len(sep)] == sep {
			result = append(result, s[start:i])
			start = i + len(sep)
			i = start - 1
		}
	}
	result = append(result, s[start:])
	return result
}

func trimSpace(s string) string {
	start := 0
	end := len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t' || s[start] == '\n' || s[start] == '\r') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n' || s[end-1] == '\r') {
		end--
	}
	return s[start:end]
}

// ValidateSchedule validates a cron schedule expression and ensures minimum 5-minute interval
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	// Check for minimum 5-minute interval on the minute field
	parts := strings.Fields(schedule)
	if len(parts) < 5 {
		return fmt.Errorf("invalid cron format: expected 5 fields")
	}

	minuteField := parts[0]

	if minuteField == "*" {
		return fmt.Errorf("schedule must have minimum 5-minute interval (every minute is not allowed)")
	}

	if strings.HasPrefix(minuteField, "*/") {
		intervalStr := strings.TrimPrefix(minuteField, "*/")
		interval, err := strconv.Atoi(intervalStr)
		if err == nil && interval < 5 {
			return fmt.Errorf("schedule interval must be at least 5 minutes, got %d", interval)
		}
	}

	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
