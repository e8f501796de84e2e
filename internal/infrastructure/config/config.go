// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is the config file looked up in the working directory.
	DefaultConfigFile = "pagewatch.yaml"
	// ConfigPathEnv names an alternative config file.
	ConfigPathEnv = "PAGEWATCH_CONFIG"
)

// Snapshot backends.
const (
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds static infrastructure configuration (read-only after init).
type Config struct {
	Scrape   ScrapeConfig   `yaml:"scrape"`
	Approval ApprovalConfig `yaml:"approval"`
	LLM      LLMConfig      `yaml:"llm"`
	Telegram TelegramConfig `yaml:"telegram"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ScrapeConfig controls how pages are fetched and fingerprinted.
type ScrapeConfig struct {
	MaxBytes        int           `yaml:"max_bytes" validate:"gt=0"`
	RequestTimeout  time.Duration `yaml:"request_timeout" validate:"gt=0"`
	UserAgent       string        `yaml:"user_agent" validate:"required"`
	RespectRobots   bool          `yaml:"respect_robots"`
	JitterMin       time.Duration `yaml:"jitter_min" validate:"gte=0"`
	JitterMax       time.Duration `yaml:"jitter_max" validate:"gtefield=JitterMin"`
	MinHostInterval time.Duration `yaml:"min_host_interval" validate:"gte=0"`
}

// ApprovalConfig controls the human approval wait.
type ApprovalConfig struct {
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// LLMConfig holds configuration for the draft generator.
type LLMConfig struct {
	Model   string `yaml:"model" validate:"required"`
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty" validate:"omitempty,url"`
}

// TelegramConfig holds configuration for the approval channel.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token,omitempty"`
	ChatID   string `yaml:"chat_id,omitempty"`
	APIURL   string `yaml:"api_url" validate:"required,url"`
}

// SnapshotConfig selects and configures the snapshot store.
type SnapshotConfig struct {
	Backend       string `yaml:"backend" validate:"oneof=sqlite redis postgres"`
	SQLitePath    string `yaml:"sqlite_path" validate:"required_if=Backend sqlite"`
	RedisAddr     string `yaml:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string `yaml:"redis_password,omitempty"`
	RedisDB       int    `yaml:"redis_db" validate:"gte=0"`
	PostgresURL   string `yaml:"postgres_url,omitempty" validate:"required_if=Backend postgres"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// MetricsConfig controls run metrics export.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url,omitempty" validate:"omitempty,url"`
	Job            string `yaml:"job" validate:"required"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Scrape: ScrapeConfig{
			MaxBytes:        1_500_000,
			RequestTimeout:  20 * time.Second,
			UserAgent:       "pagewatch/1.0 (+https://github.com/ersonp/pagewatch)",
			RespectRobots:   true,
			JitterMin:       400 * time.Millisecond,
			JitterMax:       1200 * time.Millisecond,
			MinHostInterval: time.Second,
		},
		Approval: ApprovalConfig{
			Timeout: 120 * time.Second,
		},
		LLM: LLMConfig{
			Model: "gpt-4o-mini",
		},
		Telegram: TelegramConfig{
			APIURL: "https://api.telegram.org",
		},
		Snapshot: SnapshotConfig{
			Backend:    BackendSQLite,
			SQLitePath: "./watchdog.db",
			RedisAddr:  "localhost:6379",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Job: "pagewatch",
		},
	}
}

// ResolvePath returns the config file to read and whether the caller named it.
// An explicit path wins over $PAGEWATCH_CONFIG, which wins over ./pagewatch.yaml.
func ResolvePath(path string) (string, bool) {
	if path != "" {
		return path, true
	}
	if env := os.Getenv(ConfigPathEnv); env != "" {
		return env, true
	}
	return DefaultConfigFile, false
}

// Load builds the configuration from defaults, an optional YAML file, a .env
// file and environment variables, in increasing order of precedence.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	// Start with defaults
	cfg := Default()

	file, explicit := ResolvePath(path)
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// Defaults only.
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("config file not found: %s (run 'pagewatch init' first)", file)
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Apply environment variable overrides
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	ints := []struct {
		env string
		set func(int)
	}{
		{"SCRAPE_MAX_BYTES", func(v int) { c.Scrape.MaxBytes = v }},
		{"APPROVAL_TIMEOUT_S", func(v int) { c.Approval.Timeout = time.Duration(v) * time.Second }},
		{"REQUEST_TIMEOUT_S", func(v int) { c.Scrape.RequestTimeout = time.Duration(v) * time.Second }},
	}
	for _, o := range ints {
		raw := os.Getenv(o.env)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("parsing %s: %w", o.env, err)
		}
		o.set(v)
	}

	strs := []struct {
		env string
		dst *string
	}{
		{"USER_AGENT", &c.Scrape.UserAgent},
		{"SQLITE_PATH", &c.Snapshot.SQLitePath},
		{"SNAPSHOT_BACKEND", &c.Snapshot.Backend},
		{"REDIS_ADDR", &c.Snapshot.RedisAddr},
		{"DATABASE_URL", &c.Snapshot.PostgresURL},
		{"OPENAI_API_KEY", &c.LLM.APIKey},
		{"OPENAI_BASE_URL", &c.LLM.BaseURL},
		{"LLM_MODEL", &c.LLM.Model},
		{"TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken},
		{"TELEGRAM_CHAT_ID", &c.Telegram.ChatID},
		{"LOG_LEVEL", &c.Log.Level},
		{"LOG_FORMAT", &c.Log.Format},
		{"PUSHGATEWAY_URL", &c.Metrics.PushgatewayURL},
	}
	for _, o := range strs {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
	return nil
}

// Validate checks the configuration for values the adapters cannot work with.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	err := v.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeField(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func describeField(fe validator.FieldError) string {
	// Namespace is "Config.scrape.max_bytes"; drop the root type.
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required", "required_if":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fmt.Sprint(fe.Value()))
	case "gt", "gte":
		return fmt.Sprintf("%s must be %s %s", field, map[string]string{"gt": ">", "gte": ">="}[fe.Tag()], fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s must not be less than %s", field, fe.Param())
	case "url":
		return field + " must be a valid URL"
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
