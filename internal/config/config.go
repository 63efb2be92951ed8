package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is used when neither --config nor CONFIG_PATH is set
	DefaultPath = "./config/config.yaml"

	// DefaultUserAgent mimics a regular desktop Chrome on Windows
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"
)

// Config represents the application configuration
type Config struct {
	LinkedIn LinkedInConfig `yaml:"linkedin"`
	Browser  BrowserConfig  `yaml:"browser"`
	Timing   TimingConfig   `yaml:"timing"`
	Run      RunConfig      `yaml:"run"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Server   ServerConfig   `yaml:"server"`
}

// LinkedInConfig contains LinkedIn credentials
type LinkedInConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// BrowserConfig controls how Chromium is launched
type BrowserConfig struct {
	Bin            string `yaml:"bin"`
	Headless       bool   `yaml:"headless"`
	NoSandbox      bool   `yaml:"no_sandbox"`
	UserAgent      string `yaml:"user_agent"`
	TypingDelayMs  int    `yaml:"typing_delay_ms"`
	ViewportWidth  int    `yaml:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height"`
}

// TimingConfig holds the bounded waits and the fixed delay between requests.
// Values are fixed for a run.
type TimingConfig struct {
	NavigationTimeoutSeconds   int `yaml:"navigation_timeout_seconds"`
	LoginFormTimeoutSeconds    int `yaml:"login_form_timeout_seconds"`
	LoginSuccessTimeoutSeconds int `yaml:"login_success_timeout_seconds"`
	ProfileReadyTimeoutSeconds int `yaml:"profile_ready_timeout_seconds"`
	ElementTimeoutSeconds      int `yaml:"element_timeout_seconds"`
	RequestDelaySeconds        int `yaml:"request_delay_seconds"`
}

// RunConfig contains batch defaults
type RunConfig struct {
	DefaultLimit int    `yaml:"default_limit"`
	ReportPath   string `yaml:"report_path"`
}

// DatabaseConfig contains the run journal settings. An empty path disables it.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level    string `yaml:"level"`
	ToFile   bool   `yaml:"to_file"`
	FilePath string `yaml:"file_path"`
}

// ServerConfig contains web UI settings
type ServerConfig struct {
	Addr                string `yaml:"addr"`
	Debug               bool   `yaml:"debug"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	MaxUploadBytes      int64  `yaml:"max_upload_bytes"`
}

// ErrMissingCredentials is returned when the LinkedIn secrets are not set
var ErrMissingCredentials = errors.New("LINKEDIN_USERNAME and LINKEDIN_PASSWORD are required")

// Default returns the configuration used when no file overrides it
func Default() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:       true,
			NoSandbox:      true,
			UserAgent:      DefaultUserAgent,
			ViewportWidth:  1920,
			ViewportHeight: 1080,
		},
		Timing: TimingConfig{
			NavigationTimeoutSeconds:   30,
			LoginFormTimeoutSeconds:    20,
			LoginSuccessTimeoutSeconds: 40,
			ProfileReadyTimeoutSeconds: 7,
			ElementTimeoutSeconds:      10,
			RequestDelaySeconds:        5,
		},
		Run: RunConfig{
			DefaultLimit: 20,
			ReportPath:   "linkedin_results.csv",
		},
		Logging: LoggingConfig{
			Level:    "info",
			FilePath: "./logs/connector.log",
		},
		Server: ServerConfig{
			Addr:                ":8080",
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 30,
			MaxUploadBytes:      5 << 20,
		},
	}
}

// Load loads configuration from an optional YAML file and environment variables
func Load(path string) (*Config, error) {
	// Load .env file if it exists (ignore errors if not present)
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.parse(data); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// defaults plus environment
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) parse(data []byte) error {
	expandedData := expandEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if c.LinkedIn.Username == "" {
		c.LinkedIn.Username = os.Getenv("LINKEDIN_USERNAME")
	}
	if c.LinkedIn.Password == "" {
		c.LinkedIn.Password = os.Getenv("LINKEDIN_PASSWORD")
	}
	if c.Browser.UserAgent == "" {
		c.Browser.UserAgent = DefaultUserAgent
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	t := c.Timing
	if t.NavigationTimeoutSeconds <= 0 || t.LoginFormTimeoutSeconds <= 0 ||
		t.LoginSuccessTimeoutSeconds <= 0 || t.ElementTimeoutSeconds <= 0 ||
		t.ProfileReadyTimeoutSeconds <= 0 {
		return fmt.Errorf("timing timeouts must be positive")
	}
	if t.RequestDelaySeconds < 0 {
		return fmt.Errorf("request_delay_seconds must be non-negative")
	}

	if c.Run.DefaultLimit <= 0 {
		return fmt.Errorf("default_limit must be positive")
	}

	if c.Browser.TypingDelayMs < 0 {
		return fmt.Errorf("typing_delay_ms must be non-negative")
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("viewport dimensions must be positive")
	}

	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// ValidateCredentials checks that both LinkedIn secrets are present
func (c *Config) ValidateCredentials() error {
	if c.LinkedIn.Username == "" || c.LinkedIn.Password == "" {
		return ErrMissingCredentials
	}
	return nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(s string) string {
	pattern := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return pattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := pattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		value := os.Getenv(varName)
		if value == "" {
			return defaultValue
		}
		return value
	})
}

// GetNavigationTimeout returns the page load budget
func (t TimingConfig) GetNavigationTimeout() time.Duration {
	return time.Duration(t.NavigationTimeoutSeconds) * time.Second
}

// GetLoginFormTimeout returns how long to wait for the username field
func (t TimingConfig) GetLoginFormTimeout() time.Duration {
	return time.Duration(t.LoginFormTimeoutSeconds) * time.Second
}

// GetLoginSuccessTimeout returns how long to wait for the feed marker after submitting
func (t TimingConfig) GetLoginSuccessTimeout() time.Duration {
	return time.Duration(t.LoginSuccessTimeoutSeconds) * time.Second
}

// GetProfileReadyTimeout returns how long to poll for a rendered profile
func (t TimingConfig) GetProfileReadyTimeout() time.Duration {
	return time.Duration(t.ProfileReadyTimeoutSeconds) * time.Second
}

// GetElementTimeout returns the bounded wait for each invite control
func (t TimingConfig) GetElementTimeout() time.Duration {
	return time.Duration(t.ElementTimeoutSeconds) * time.Second
}

// GetRequestDelay returns the fixed pause between two profiles
func (t TimingConfig) GetRequestDelay() time.Duration {
	return time.Duration(t.RequestDelaySeconds) * time.Second
}

// GetTypingDelay returns the per-keystroke delay, zero means paste at once
func (b BrowserConfig) GetTypingDelay() time.Duration {
	return time.Duration(b.TypingDelayMs) * time.Millisecond
}

// GetReadTimeout returns the HTTP read timeout
func (s ServerConfig) GetReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

// GetWriteTimeout returns the HTTP write timeout
func (s ServerConfig) GetWriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}
