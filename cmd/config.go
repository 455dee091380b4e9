package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/KaramelBytes/shipsight/internal/ai"
	cfgpkg "github.com/KaramelBytes/shipsight/internal/config"
	"github.com/KaramelBytes/shipsight/internal/logging"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set ShipSight configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "No config loaded: %v\n", err)
			return nil
		}
		showConfig(cmd.OutOrStdout(), c)
		return nil
	},
}

func showConfig(w io.Writer, c *cfgpkg.Global) {
	fmt.Fprintf(w, "profile: %s\n", c.Profile)
	fmt.Fprintf(w, "warehouse.driver: %s\n", c.Warehouse.Driver)
	if c.Warehouse.Account != "" {
		fmt.Fprintf(w, "warehouse.account: %s\n", c.Warehouse.Account)
	}
	if c.Warehouse.User != "" {
		fmt.Fprintf(w, "warehouse.user: %s\n", c.Warehouse.User)
	}
	fmt.Fprintf(w, "warehouse.password: %s\n", mask(c.Warehouse.Password))
	fmt.Fprintf(w, "warehouse.warehouse: %s\n", c.Warehouse.Warehouse)
	fmt.Fprintf(w, "warehouse.database: %s\n", c.Warehouse.Database)
	fmt.Fprintf(w, "warehouse.schema: %s\n", c.Warehouse.Schema)
	if c.Warehouse.Role != "" {
		fmt.Fprintf(w, "warehouse.role: %s\n", c.Warehouse.Role)
	}
	if c.Warehouse.DSN != "" {
		fmt.Fprintf(w, "warehouse.dsn: %s\n", mask(c.Warehouse.DSN))
	}
	if c.Warehouse.CSVPath != "" {
		fmt.Fprintf(w, "warehouse.csv_path: %s\n", c.Warehouse.CSVPath)
	}
	fmt.Fprintf(w, "cache_ttl_sec: %d\n", c.CacheTTLSec)
	fmt.Fprintf(w, "ai_provider: %s\n", c.AIProvider)
	model := c.AIModel
	if model == "" {
		model = ai.DefaultModel(c.AIProvider) + " (default)"
	}
	fmt.Fprintf(w, "ai_model: %s\n", model)
	fmt.Fprintf(w, "api_key: %s\n", mask(c.APIKey))
	fmt.Fprintf(w, "gemini_api_key: %s\n", mask(c.GeminiAPIKey))
	fmt.Fprintf(w, "ollama_host: %s\n", c.OllamaHost)
	fmt.Fprintf(w, "max_tokens: %d\n", c.MaxTokens)
	fmt.Fprintf(w, "temperature: %.3f\n", c.Temperature)
	fmt.Fprintf(w, "context_token_limit: %d\n", c.ContextTokenLimit)
	fmt.Fprintf(w, "completion_timeout_sec: %d\n", c.CompletionTimeout)
	fmt.Fprintf(w, "http_timeout_sec: %d\n", c.HTTPTimeoutSec)
	fmt.Fprintf(w, "retry_max_attempts: %d\n", c.RetryMaxAttempts)
	fmt.Fprintf(w, "retry_base_delay_ms: %d\n", c.RetryBaseDelayMs)
	fmt.Fprintf(w, "retry_max_delay_ms: %d\n", c.RetryMaxDelayMs)
	fmt.Fprintf(w, "listen_addr: %s\n", c.ListenAddr)
	fmt.Fprintf(w, "log_level: %s\n", c.LogLevel)
	fmt.Fprintf(w, "session_idle_sec: %d\n", c.SessionIdleSec)
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := setConfigValue(cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "profile":
		c.Profile = strings.ToLower(val)
	case "warehouse.driver":
		c.Warehouse.Driver = strings.ToLower(val)
	case "warehouse.account":
		c.Warehouse.Account = val
	case "warehouse.user":
		c.Warehouse.User = val
	case "warehouse.password":
		c.Warehouse.Password = val
	case "warehouse.warehouse":
		c.Warehouse.Warehouse = val
	case "warehouse.database":
		c.Warehouse.Database = val
	case "warehouse.schema":
		c.Warehouse.Schema = val
	case "warehouse.role":
		c.Warehouse.Role = val
	case "warehouse.dsn":
		c.Warehouse.DSN = val
	case "warehouse.csv_path":
		c.Warehouse.CSVPath = val
	case "cache_ttl_sec":
		c.CacheTTLSec, err = atoi()
	case "ai_provider":
		p := strings.ToLower(val)
		if !isKnownProvider(p) {
			return fmt.Errorf("invalid ai_provider: %s (use one of %s)", val, strings.Join(ai.Providers(), ", "))
		}
		c.AIProvider = p
	case "ai_model":
		c.AIModel = val
	case "api_key":
		c.APIKey = val
	case "gemini_api_key":
		c.GeminiAPIKey = val
	case "ollama_host":
		c.OllamaHost = val
	case "max_tokens":
		c.MaxTokens, err = atoi()
	case "temperature":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil {
			return fmt.Errorf("invalid float for temperature: %w", perr)
		}
		c.Temperature = f
	case "context_token_limit":
		c.ContextTokenLimit, err = atoi()
	case "completion_timeout_sec":
		c.CompletionTimeout, err = atoi()
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi()
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = atoi()
	case "retry_base_delay_ms":
		c.RetryBaseDelayMs, err = atoi()
	case "retry_max_delay_ms":
		c.RetryMaxDelayMs, err = atoi()
	case "listen_addr":
		c.ListenAddr = val
	case "log_level":
		if _, perr := logging.ParseLevel(val); perr != nil {
			return perr
		}
		c.LogLevel = strings.ToLower(val)
	case "session_idle_sec":
		c.SessionIdleSec, err = atoi()
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func isKnownProvider(name string) bool {
	for _, p := range ai.Providers() {
		if p == name {
			return true
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
