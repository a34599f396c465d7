// Package config loads server configuration from an optional YAML file
// with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "3s" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// SMTP holds mail delivery settings. Leaving Host empty selects log-only
// mode.
type SMTP struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// Config is the full server configuration.
type Config struct {
	ListenAddr   string   `yaml:"listen_addr"`
	DatabasePath string   `yaml:"database_path"`
	RedisAddr    string   `yaml:"redis_addr"`
	JWTSecret    string   `yaml:"jwt_secret"`
	TokenTTL     Duration `yaml:"token_ttl"`
	TypingExpiry Duration `yaml:"typing_expiry"`
	MaxConns     int      `yaml:"max_conns"`
	IdleTimeout  Duration `yaml:"idle_timeout"`
	OpenAIKey    string   `yaml:"openai_key"`
	OpenAIModel  string   `yaml:"openai_model"`
	SMTP         SMTP     `yaml:"smtp"`
}

// defaults returns the baseline configuration.
func defaults() *Config {
	return &Config{
		ListenAddr:   ":8080",
		DatabasePath: "careertrack.db",
		JWTSecret:    "change-me-in-production",
		TokenTTL:     Duration(24 * time.Hour),
		TypingExpiry: Duration(3 * time.Second),
		SMTP:         SMTP{Port: 587},
	}
}

// Load reads configuration from path (if it exists) and then applies
// environment overrides. An empty path skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Defaults plus env is a valid configuration.
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overrides file values with environment variables.
func applyEnv(cfg *Config) {
	setString(&cfg.ListenAddr, "LISTEN_ADDR")
	setString(&cfg.DatabasePath, "DATABASE_PATH")
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	setString(&cfg.OpenAIKey, "OPENAI_API_KEY")
	setString(&cfg.OpenAIModel, "OPENAI_MODEL")
	setString(&cfg.SMTP.Host, "SMTP_HOST")
	setString(&cfg.SMTP.Username, "SMTP_USER")
	setString(&cfg.SMTP.Password, "SMTP_PASS")
	setString(&cfg.SMTP.From, "SMTP_FROM")

	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.SMTP.Port = port
		}
	}
	if v := os.Getenv("MAX_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConns = n
		}
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}
