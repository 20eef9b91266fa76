// Package config loads parley's runtime configuration.
//
// Values come from, in increasing precedence: built-in defaults, a YAML file
// (with ${VAR} expansion), PARLEY_* environment variables and command-line
// flags applied by the caller.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/parley/pkg/history"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config is the complete parley configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	History HistoryConfig `mapstructure:"history"`
	State   StateConfig   `mapstructure:"state"`
	Flow    FlowConfig    `mapstructure:"flow"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxInputSize    int           `mapstructure:"max_input_size"`
}

// HistoryConfig holds the history database settings.
type HistoryConfig struct {
	Dialect         string        `mapstructure:"dialect"`
	DSN             string        `mapstructure:"dsn"`
	HealthInterval  time.Duration `mapstructure:"health_interval"`
	AcquireTimeout  time.Duration `mapstructure:"acquire_timeout"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	// Redact lists regular expressions masked out of answers before they
	// are written.
	Redact []string `mapstructure:"redact"`
}

// StateConfig selects where in-flight conversations live. An empty RedisURL
// keeps them in memory.
type StateConfig struct {
	RedisURL string        `mapstructure:"redis_url"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
	// EncryptionKey is a base64 AES-256 key. When set, conversations are
	// encrypted at rest. FallbackKeys are tried on load during rotation.
	EncryptionKey string   `mapstructure:"encryption_key"`
	FallbackKeys  []string `mapstructure:"fallback_keys"`
}

// FlowConfig selects the conversation graph. An empty Path uses the
// built-in demo flow.
type FlowConfig struct {
	Path         string `mapstructure:"path"`
	MaxFallbacks int    `mapstructure:"max_fallbacks"`
	GiveUp       string `mapstructure:"give_up"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig toggles the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DefaultSQLiteDSN is the history database used when none is configured.
const DefaultSQLiteDSN = "file:parley.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":3000",
			ShutdownTimeout: 10 * time.Second,
		},
		History: HistoryConfig{
			Dialect:         history.SQLite.Name,
			DSN:             DefaultSQLiteDSN,
			HealthInterval:  30 * time.Second,
			AcquireTimeout:  2 * time.Second,
			QueryTimeout:    5 * time.Second,
			MaxOpenConns:    8,
			MaxIdleConns:    4,
			ConnMaxLifetime: 30 * time.Minute,
		},
		State: StateConfig{
			Prefix:  "parley:",
			LockTTL: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load builds the configuration from defaults, the optional file at path and
// the environment. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := decode([]byte(expandEnvVars(string(data))), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// decode merges a YAML document over cfg. Keys absent from the document keep
// their current values; unknown keys are rejected.
func decode(data []byte, cfg *Config) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

var envVar = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the value of the variable, or an
// empty string when it is unset.
func expandEnvVars(s string) string {
	return envVar.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVar.FindStringSubmatch(match)[1])
	})
}

// applyEnv applies the PARLEY_* overrides.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"PARLEY_ADDR":            &cfg.Server.Addr,
		"PARLEY_HISTORY_DIALECT": &cfg.History.Dialect,
		"PARLEY_HISTORY_DSN":     &cfg.History.DSN,
		"PARLEY_REDIS_URL":       &cfg.State.RedisURL,
		"PARLEY_REDIS_PREFIX":    &cfg.State.Prefix,
		"PARLEY_FLOW":            &cfg.Flow.Path,
		"PARLEY_LOG_LEVEL":       &cfg.Logging.Level,
		"PARLEY_LOG_FORMAT":      &cfg.Logging.Format,
		"PARLEY_STATE_KEY":       &cfg.State.EncryptionKey,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"PARLEY_HEALTH_INTERVAL": &cfg.History.HealthInterval,
		"PARLEY_STATE_TTL":       &cfg.State.TTL,
	}
	for key, dst := range durations {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("parsing %s %q: %w", key, v, err)
			}
			*dst = d
		}
	}

	if v, ok := lookup("PARLEY_MAX_FALLBACKS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing PARLEY_MAX_FALLBACKS %q: %w", v, err)
		}
		cfg.Flow.MaxFallbacks = n
	}
	if v, ok := lookup("PARLEY_METRICS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing PARLEY_METRICS %q: %w", v, err)
		}
		cfg.Metrics.Enabled = b
	}
	return nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if _, err := history.DialectFor(c.History.Dialect); err != nil {
		return err
	}
	if c.History.DSN == "" {
		return fmt.Errorf("history.dsn is required")
	}
	if c.History.HealthInterval <= 0 {
		return fmt.Errorf("history.health_interval must be positive")
	}
	if c.History.AcquireTimeout <= 0 {
		return fmt.Errorf("history.acquire_timeout must be positive")
	}
	if c.History.QueryTimeout <= 0 {
		return fmt.Errorf("history.query_timeout must be positive")
	}
	for _, p := range c.History.Redact {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("history.redact: %w", err)
		}
	}
	if c.State.EncryptionKey != "" {
		if _, _, err := c.State.Keys(); err != nil {
			return err
		}
	}
	if c.Flow.MaxFallbacks < 0 {
		return fmt.Errorf("flow.max_fallbacks must not be negative")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// Keys decodes the state encryption keys.
func (s StateConfig) Keys() (active []byte, fallback [][]byte, err error) {
	active, err = decodeKey("state.encryption_key", s.EncryptionKey)
	if err != nil {
		return nil, nil, err
	}
	for i, k := range s.FallbackKeys {
		key, err := decodeKey(fmt.Sprintf("state.fallback_keys[%d]", i), k)
		if err != nil {
			return nil, nil, err
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(name, v string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid base64: %w", name, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s must decode to 32 bytes, got %d", name, len(key))
	}
	return key, nil
}
