package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/shipsight/internal/utils"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Connection profiles. Both run the same pipeline; they differ only in where
// warehouse credentials come from.
const (
	ProfileFixed       = "fixed"
	ProfileInteractive = "interactive"
)

// Warehouse holds the data warehouse connection parameters.
type Warehouse struct {
	Driver    string `mapstructure:"driver" yaml:"driver"`
	Account   string `mapstructure:"account" yaml:"account"`
	User      string `mapstructure:"user" yaml:"user"`
	Password  string `mapstructure:"password" yaml:"password"`
	Warehouse string `mapstructure:"warehouse" yaml:"warehouse"`
	Database  string `mapstructure:"database" yaml:"database"`
	Schema    string `mapstructure:"schema" yaml:"schema"`
	Role      string `mapstructure:"role" yaml:"role,omitempty"`
	// DSN overrides the individual fields for mysql/sqlite drivers.
	DSN string `mapstructure:"dsn" yaml:"dsn,omitempty"`
	// CSVPath is used by the csv driver (offline exports).
	CSVPath string `mapstructure:"csv_path" yaml:"csv_path,omitempty"`
}

// Global configuration structure.
type Global struct {
	Profile     string    `mapstructure:"profile" yaml:"profile"`
	Warehouse   Warehouse `mapstructure:"warehouse" yaml:"warehouse"`
	CacheTTLSec int       `mapstructure:"cache_ttl_sec" yaml:"cache_ttl_sec"`

	// Completion service
	AIProvider        string  `mapstructure:"ai_provider" yaml:"ai_provider"`
	AIModel           string  `mapstructure:"ai_model" yaml:"ai_model"`
	APIKey            string  `mapstructure:"api_key" yaml:"api_key"`
	GeminiAPIKey      string  `mapstructure:"gemini_api_key" yaml:"gemini_api_key"`
	OllamaHost        string  `mapstructure:"ollama_host" yaml:"ollama_host"`
	MaxTokens         int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature       float64 `mapstructure:"temperature" yaml:"temperature"`
	ContextTokenLimit int     `mapstructure:"context_token_limit" yaml:"context_token_limit"`
	CompletionTimeout int     `mapstructure:"completion_timeout_sec" yaml:"completion_timeout_sec"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Dashboard server
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
	LogLevel   string `mapstructure:"log_level" yaml:"log_level"`
	// SessionIdleSec drops browser sessions (and their connections) after
	// this long without a request. 0 keeps them until shutdown.
	SessionIdleSec int `mapstructure:"session_idle_sec" yaml:"session_idle_sec"`
}

// Interactive reports whether warehouse parameters are supplied at runtime
// instead of from stored credentials.
func (c *Global) Interactive() bool {
	return strings.EqualFold(c.Profile, ProfileInteractive)
}

// Validate checks settings that would otherwise fail late.
func (c *Global) Validate() error {
	switch strings.ToLower(c.Profile) {
	case ProfileFixed, ProfileInteractive:
	default:
		return fmt.Errorf("invalid profile: %q (use %s or %s)", c.Profile, ProfileFixed, ProfileInteractive)
	}
	if c.CacheTTLSec < 0 {
		return fmt.Errorf("cache_ttl_sec must be >= 0, got %d", c.CacheTTLSec)
	}
	if c.SessionIdleSec < 0 {
		return fmt.Errorf("session_idle_sec must be >= 0, got %d", c.SessionIdleSec)
	}
	return nil
}

// DefaultPath returns ~/.shipsight/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".shipsight", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.shipsight/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// defaults is every key Load knows about. Keys must be registered here for
// SHIPSIGHT_* environment overrides to reach Unmarshal.
var defaults = map[string]any{
	"profile":             ProfileFixed,
	"warehouse.driver":    "snowflake",
	"warehouse.account":   "",
	"warehouse.user":      "",
	"warehouse.password":  "",
	"warehouse.warehouse": "COMPUTE_WH",
	"warehouse.database":  "AVALANCHE_DB",
	"warehouse.schema":    "AVALANCHE_SCHEMA",
	"warehouse.role":      "",
	"warehouse.dsn":       "",
	"warehouse.csv_path":  "",
	"cache_ttl_sec":       600,

	"ai_provider":            "cortex",
	"ai_model":               "",
	"api_key":                "",
	"gemini_api_key":         "",
	"ollama_host":            "http://127.0.0.1:11434",
	"max_tokens":             1024,
	"temperature":            0.3,
	"context_token_limit":    6000,
	"completion_timeout_sec": 120,

	"http_timeout_sec":    60,
	"retry_max_attempts":  3,
	"retry_base_delay_ms": 500,
	"retry_max_delay_ms":  4000,

	"listen_addr":      "127.0.0.1:8501",
	"log_level":        "info",
	"session_idle_sec": 1800,
}

// Load reads the config file (cfgFile, or ~/.shipsight/config.yaml when
// empty) under SHIPSIGHT_* environment overrides and the defaults above.
// A missing file is not an error.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("SHIPSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(path))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Profile = strings.ToLower(strings.TrimSpace(c.Profile))
	c.Warehouse.Driver = strings.ToLower(strings.TrimSpace(c.Warehouse.Driver))
	c.AIProvider = strings.ToLower(strings.TrimSpace(c.AIProvider))
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
