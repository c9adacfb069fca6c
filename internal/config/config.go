// Package config loads and exposes application configuration (TOML).
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath  = "config.toml"
	DefaultHTTPAddr    = ":3000"
	DefaultPGHost      = "127.0.0.1"
	DefaultPGPort      = 5432
	DefaultPGUser      = "postgres"
	DefaultPGDatabase  = "appreciation"
	DefaultPGSSLMode   = "disable"
	DefaultPollTimeout = 30
	DefaultReplyRate   = 20
	DefaultDigestLimit = 10
)

// Resolution policy names accepted in [appreciation] policy.
const (
	PolicyStrict        = "strict"
	PolicyDriftFallback = "drift-fallback"
	PolicyCreateOnMiss  = "create-on-miss"
)

// DefaultStoplist holds capitalized greeting/gratitude words that must never
// be treated as plain-name mentions.
var DefaultStoplist = []string{
	"Thanks", "Thank", "Thx", "Hello", "Hi", "Hey", "Dear",
	"Good", "Morning", "Evening", "Night", "Cheers", "Kudos",
	"Please", "Congrats", "Congratulations", "Welcome", "Bye",
}

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log          LogConfig          `toml:"log"`
	Server       ServerConfig       `toml:"server"`
	Postgres     PostgresConfig     `toml:"postgres"`
	Telegram     TelegramConfig     `toml:"telegram"`
	Appreciation AppreciationConfig `toml:"appreciation"`
	Digest       DigestConfig       `toml:"digest"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP server listen address.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// TelegramConfig holds the bot token and transport mode. Mode is "polling"
// (default) or "webhook"; webhook mode requires WebhookURL and mounts the
// callback on the HTTP server.
type TelegramConfig struct {
	BotToken      string `toml:"bot_token"`
	Mode          string `toml:"mode"`
	WebhookURL    string `toml:"webhook_url"`
	PollTimeout   int    `toml:"poll_timeout"`
	RepliesPerMin int    `toml:"replies_per_minute"`
}

// AppreciationConfig selects the mention resolution policy and related knobs.
type AppreciationConfig struct {
	Policy   string   `toml:"policy"`
	Stoplist []string `toml:"stoplist"`
}

// DigestConfig holds the optional scheduled leaderboard digest. An empty
// schedule disables the digest.
type DigestConfig struct {
	Schedule string `toml:"schedule"`
	ChatID   int64  `toml:"chat_id"`
	Limit    int    `toml:"limit"`
}

// Load reads and parses the TOML config file at path and applies default
// values for missing fields. A missing file is not an error; defaults plus
// environment overrides still produce a usable config.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path == "" {
		path = DefaultConfigPath
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("stat config %s: %w", path, err)
	}
	applyDefaults(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultHTTPAddr
	}
	if cfg.Postgres.Host == "" {
		cfg.Postgres.Host = DefaultPGHost
	}
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = DefaultPGPort
	}
	if cfg.Postgres.User == "" {
		cfg.Postgres.User = DefaultPGUser
	}
	if cfg.Postgres.Database == "" {
		cfg.Postgres.Database = DefaultPGDatabase
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = DefaultPGSSLMode
	}
	if cfg.Telegram.Mode == "" {
		cfg.Telegram.Mode = "polling"
	}
	if cfg.Telegram.PollTimeout == 0 {
		cfg.Telegram.PollTimeout = DefaultPollTimeout
	}
	if cfg.Telegram.RepliesPerMin == 0 {
		cfg.Telegram.RepliesPerMin = DefaultReplyRate
	}
	if cfg.Appreciation.Policy == "" {
		cfg.Appreciation.Policy = PolicyStrict
	}
	if len(cfg.Appreciation.Stoplist) == 0 {
		cfg.Appreciation.Stoplist = append([]string(nil), DefaultStoplist...)
	}
	if cfg.Digest.Limit == 0 {
		cfg.Digest.Limit = DefaultDigestLimit
	}
}

func validate(cfg Config) error {
	switch cfg.Appreciation.Policy {
	case PolicyStrict, PolicyDriftFallback, PolicyCreateOnMiss:
	default:
		return fmt.Errorf("unknown appreciation policy: %q", cfg.Appreciation.Policy)
	}
	mode := strings.ToLower(cfg.Telegram.Mode)
	if mode != "polling" && mode != "webhook" {
		return fmt.Errorf("unknown telegram mode: %q", cfg.Telegram.Mode)
	}
	if mode == "webhook" && strings.TrimSpace(cfg.Telegram.WebhookURL) == "" {
		return fmt.Errorf("telegram webhook mode requires webhook_url")
	}
	return nil
}
