package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config describes the top-level application configuration loaded from YAML and ENV.
type Config struct {
	Version     string            `mapstructure:"version"`
	Provider    ProviderConfig    `mapstructure:"provider"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Repair      RepairConfig      `mapstructure:"repair"`
	Verifier    VerifierConfig    `mapstructure:"verifier"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// ProviderConfig points at one OpenAI-compatible completion endpoint.
type ProviderConfig struct {
	Type    string        `mapstructure:"type"`     // openai-compatible gateways: together, openai, vllm, custom
	Model   string        `mapstructure:"model"`    // physical model name
	BaseURL string        `mapstructure:"base_url"` // API base URL
	Timeout time.Duration `mapstructure:"timeout"`  // request timeout
}

// CredentialsConfig holds the interchangeable API keys dispensed round-robin.
// Keys may be listed individually or supplied comma-separated in a single
// entry (the TOGETHER_API_KEY convention).
type CredentialsConfig struct {
	APIKeys []string `mapstructure:"api_keys"`
}

// Keys returns the flattened, trimmed credential list.
func (c CredentialsConfig) Keys() []string {
	var out []string
	for _, raw := range c.APIKeys {
		for _, key := range strings.Split(raw, ",") {
			if key = strings.TrimSpace(key); key != "" {
				out = append(out, key)
			}
		}
	}
	return out
}

// RepairConfig describes repair loop runtime parameters.
type RepairConfig struct {
	Model              string        `mapstructure:"model"`
	MaxIterations      int           `mapstructure:"max_iterations"`
	ServiceRetries     int           `mapstructure:"service_retries"`
	RetryBackoff       time.Duration `mapstructure:"retry_backoff"`
	MaxTokens          int           `mapstructure:"max_tokens"`
	ExploreTemperature float64       `mapstructure:"explore_temperature"`
	SettleTemperature  float64       `mapstructure:"settle_temperature"`
	FocusTemperature   float64       `mapstructure:"focus_temperature"`
	ExplorationWindow  int           `mapstructure:"exploration_window"`
	StuckThreshold     int           `mapstructure:"stuck_threshold"`
}

// VerifierConfig bounds candidate execution.
type VerifierConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	MaxReported    int `mapstructure:"max_reported"`
}

// Timeout returns the execution ceiling as a duration.
func (v VerifierConfig) Timeout() time.Duration {
	return time.Duration(v.TimeoutSeconds) * time.Second
}

// LoggingConfig controls logger behaviour.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console or json
}

// MetricsConfig controls the optional Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load reads configuration from the provided path or defaults to configs/config.yaml.
// Environment variables override file values (prefix: AGENTFIX_, dots replaced with underscores).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("AGENTFIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("configs")
	} else {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && path == "" {
			v.SetConfigName("config.example")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults populates sensible defaults for optional fields.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("provider.type", "together")
	v.SetDefault("provider.base_url", "https://api.together.xyz")
	v.SetDefault("provider.model", "meta-llama/Llama-3.3-70B-Instruct-Turbo")
	v.SetDefault("provider.timeout", "60s")

	v.SetDefault("repair.max_iterations", 10)
	v.SetDefault("repair.service_retries", 3)
	v.SetDefault("repair.retry_backoff", "2s")
	v.SetDefault("repair.max_tokens", 4096)
	v.SetDefault("repair.explore_temperature", 0.7)
	v.SetDefault("repair.settle_temperature", 0.5)
	v.SetDefault("repair.focus_temperature", 0.3)
	v.SetDefault("repair.exploration_window", 3)
	v.SetDefault("repair.stuck_threshold", 3)

	v.SetDefault("verifier.timeout_seconds", 5)
	v.SetDefault("verifier.max_reported", 3)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9108")
}

// Validate performs basic sanity checks on configuration values. Anything
// that fails here is a configuration error: fatal, never retried.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Provider.BaseURL) == "" {
		return errors.New("provider.base_url must be set")
	}
	if strings.TrimSpace(c.Provider.Model) == "" && strings.TrimSpace(c.Repair.Model) == "" {
		return errors.New("a model must be set via provider.model or repair.model")
	}

	if len(c.Credentials.Keys()) == 0 {
		return errors.New("at least one credential must be configured (credentials.api_keys)")
	}

	if c.Repair.MaxIterations <= 0 {
		return errors.New("repair.max_iterations must be > 0")
	}
	if c.Repair.ServiceRetries <= 0 {
		return errors.New("repair.service_retries must be > 0")
	}
	if c.Repair.RetryBackoff <= 0 {
		return errors.New("repair.retry_backoff must be > 0")
	}
	for name, t := range map[string]float64{
		"repair.explore_temperature": c.Repair.ExploreTemperature,
		"repair.settle_temperature":  c.Repair.SettleTemperature,
		"repair.focus_temperature":   c.Repair.FocusTemperature,
	} {
		if t < 0 || t > 2 {
			return fmt.Errorf("%s must be within [0,2]", name)
		}
	}
	if c.Repair.ExplorationWindow < 0 {
		return errors.New("repair.exploration_window must be >= 0")
	}
	if c.Repair.StuckThreshold <= 0 {
		return errors.New("repair.stuck_threshold must be > 0")
	}

	if c.Verifier.TimeoutSeconds <= 0 {
		return errors.New("verifier.timeout_seconds must be > 0")
	}
	if c.Verifier.MaxReported <= 0 {
		return errors.New("verifier.max_reported must be > 0")
	}

	if c.Metrics.Enabled && strings.TrimSpace(c.Metrics.Addr) == "" {
		return errors.New("metrics.addr must be set when metrics are enabled")
	}

	return nil
}

// ModelName resolves the model used for repair requests.
func (c *Config) ModelName() string {
	if strings.TrimSpace(c.Repair.Model) != "" {
		return c.Repair.Model
	}
	return c.Provider.Model
}
