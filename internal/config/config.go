// Package config loads application configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/sentineldesk/responder/internal/directory"
)

const envPrefix = "RESPONDER_"

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Database      DatabaseConfig      `koanf:"database"`
	Log           LogConfig           `koanf:"log"`
	Playbooks     PlaybooksConfig     `koanf:"playbooks"`
	Incidents     IncidentsConfig     `koanf:"incidents"`
	Containment   ContainmentConfig   `koanf:"containment"`
	Escalation    EscalationConfig    `koanf:"escalation"`
	Audit         AuditConfig         `koanf:"audit"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Directory     DirectoryConfig     `koanf:"directory"`
	CORS          CORSConfig          `koanf:"cors"`
}

// ServerConfig configures the HTTP listeners.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	MetricsPort     int           `koanf:"metrics_port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig configures the incident store backend.
type DatabaseConfig struct {
	// Driver selects the store: "memory" or "postgres".
	Driver         string        `koanf:"driver"`
	Host           string        `koanf:"host"`
	Port           int           `koanf:"port"`
	User           string        `koanf:"user"`
	Password       string        `koanf:"password"`
	Name           string        `koanf:"name"`
	SSLMode        string        `koanf:"ssl_mode"`
	MaxConns       int32         `koanf:"max_conns"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	MigrationsPath string        `koanf:"migrations_path"`
}

// DSN returns the postgres connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// PlaybooksConfig configures playbook loading.
type PlaybooksConfig struct {
	// Dir is scanned recursively for *.yml/*.yaml playbook files.
	// Empty skips directory loading.
	Dir string `koanf:"dir"`
	// Builtins loads the compiled-in playbook set before Dir, so
	// files can override them by ID.
	Builtins bool `koanf:"builtins"`
}

// IncidentsConfig configures incident lifecycle behavior.
type IncidentsConfig struct {
	AutoContainment     bool          `koanf:"auto_containment"`
	AutoContainSeverity string        `koanf:"auto_contain_severity"`
	MaxAutoActions      int           `koanf:"max_auto_actions"`
	RetentionWindow     time.Duration `koanf:"retention_window"`
	RetentionInterval   time.Duration `koanf:"retention_interval"`
}

// ContainmentConfig configures action execution.
type ContainmentConfig struct {
	ActionTimeout time.Duration `koanf:"action_timeout"`
}

// EscalationConfig configures the escalation sweeper.
type EscalationConfig struct {
	SweepInterval time.Duration `koanf:"sweep_interval"`
	Cooldown      time.Duration `koanf:"cooldown"`
}

// AuditConfig configures the audit sink.
type AuditConfig struct {
	Redis RedisAuditConfig `koanf:"redis"`
}

// RedisAuditConfig configures the Redis audit stream.
type RedisAuditConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Key      string `koanf:"key"`
	MaxLen   int64  `koanf:"max_len"`
}

// NotificationsConfig configures the paging channel.
type NotificationsConfig struct {
	Enabled       bool          `koanf:"enabled"`
	RatePerMinute int           `koanf:"rate_per_minute"`
	QueueSize     int           `koanf:"queue_size"`
	WebhookURL    string        `koanf:"webhook_url"`
	WebhookToken  string        `koanf:"webhook_token"`
	SendTimeout   time.Duration `koanf:"send_timeout"`
}

// DirectoryConfig lists the assignable responders.
type DirectoryConfig struct {
	Responders []directory.Responder `koanf:"responders"`
}

// CORSConfig configures cross-origin access for the operator API.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			MetricsPort:     9090,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:         "memory",
			Host:           "localhost",
			Port:           5432,
			User:           "responder",
			Name:           "responder",
			SSLMode:        "disable",
			MaxConns:       10,
			ConnectTimeout: 10 * time.Second,
			MigrationsPath: "migrations",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Playbooks: PlaybooksConfig{
			Builtins: true,
		},
		Incidents: IncidentsConfig{
			AutoContainment:     true,
			AutoContainSeverity: "high",
			MaxAutoActions:      5,
			RetentionWindow:     365 * 24 * time.Hour,
			RetentionInterval:   24 * time.Hour,
		},
		Containment: ContainmentConfig{
			ActionTimeout: 2 * time.Minute,
		},
		Escalation: EscalationConfig{
			SweepInterval: 60 * time.Second,
			Cooldown:      30 * time.Minute,
		},
		Audit: AuditConfig{
			Redis: RedisAuditConfig{
				Addr: "localhost:6379",
				Key:  "responder:audit",
			},
		},
		Notifications: NotificationsConfig{
			Enabled:       true,
			RatePerMinute: 60,
			QueueSize:     256,
			SendTimeout:   10 * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
	}
}

// Load reads configuration from an optional YAML file, then applies
// RESPONDER_* environment overrides (RESPONDER_SERVER__PORT=8081
// overrides server.port).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := Default()

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("database.driver must be memory or postgres, got %q", c.Database.Driver)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}

	switch c.Incidents.AutoContainSeverity {
	case "critical", "high", "medium", "low":
	default:
		return fmt.Errorf("incidents.auto_contain_severity invalid: %q", c.Incidents.AutoContainSeverity)
	}

	if c.Incidents.MaxAutoActions < 0 {
		return fmt.Errorf("incidents.max_auto_actions must be >= 0")
	}
	if c.Server.Port == c.Server.MetricsPort {
		return fmt.Errorf("server.port and server.metrics_port must differ")
	}
	if c.Notifications.Enabled && c.Notifications.RatePerMinute < 0 {
		return fmt.Errorf("notifications.rate_per_minute must be >= 0")
	}
	return nil
}
