package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultHost           = "0.0.0.0"
	defaultPort           = "8080"
	defaultDBDriver       = "mysql"
	defaultFlagBackend    = "redis"
	defaultTenantScope    = "default"
	defaultJWTTTL         = 24 * time.Hour
	defaultPollInterval   = 100 * time.Millisecond
	defaultPollTimeout    = 300 * time.Second
	defaultMaxPollTimeout = 300 * time.Second
	defaultTimezone       = "Local"
	defaultLogLevel       = "info"
	defaultServiceName    = "service-queue"
	defaultCORSOrigins    = "*"
)

// AppConfig - Semua konfigurasi runtime server dan CLI
type AppConfig struct {
	Host           string
	Port           string
	CORSOrigins    string
	DBDriver       string
	DBDSN          string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	FlagBackend    string
	TenantScope    string
	JWTSecret      string
	JWTTTL         time.Duration
	PollInterval   time.Duration
	PollTimeout    time.Duration
	MaxPollTimeout time.Duration
	Timezone       string
	LogLevel       string
	ServiceName    string
	OTelEndpoint   string
	OTelInsecure   bool
}

func (c AppConfig) Address() string {
	return c.Host + ":" + c.Port
}

// Location resolves Timezone; "Local" and "" mean the server zone.
func (c AppConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	v := viper.New()
	ApplyDefaults(v)
	return v
}

// ApplyDefaults maps keys like db.dsn to env DB_DSN and sets defaults.
func ApplyDefaults(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.host", defaultHost)
	v.SetDefault("app.port", defaultPort)
	v.SetDefault("app.cors_origins", defaultCORSOrigins)
	v.SetDefault("db.driver", defaultDBDriver)
	v.SetDefault("db.dsn", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("flag.backend", defaultFlagBackend)
	v.SetDefault("tenant.scope", defaultTenantScope)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.ttl", defaultJWTTTL)
	v.SetDefault("queue.poll_interval", defaultPollInterval)
	v.SetDefault("queue.poll_timeout", defaultPollTimeout)
	v.SetDefault("queue.max_poll_timeout", defaultMaxPollTimeout)
	v.SetDefault("queue.timezone", defaultTimezone)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("otel.service_name", defaultServiceName)
	v.SetDefault("otel.exporter.otlp.endpoint", "")
	v.SetDefault("otel.exporter.otlp.insecure", false)
}

// Load reads the configuration from v and validates it.
func Load(v *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		Host:           v.GetString("app.host"),
		Port:           v.GetString("app.port"),
		CORSOrigins:    v.GetString("app.cors_origins"),
		DBDriver:       strings.ToLower(strings.TrimSpace(v.GetString("db.driver"))),
		DBDSN:          v.GetString("db.dsn"),
		RedisAddr:      v.GetString("redis.addr"),
		RedisPassword:  v.GetString("redis.password"),
		RedisDB:        v.GetInt("redis.db"),
		FlagBackend:    strings.ToLower(strings.TrimSpace(v.GetString("flag.backend"))),
		TenantScope:    strings.TrimSpace(v.GetString("tenant.scope")),
		JWTSecret:      v.GetString("jwt.secret"),
		JWTTTL:         v.GetDuration("jwt.ttl"),
		PollInterval:   v.GetDuration("queue.poll_interval"),
		PollTimeout:    v.GetDuration("queue.poll_timeout"),
		MaxPollTimeout: v.GetDuration("queue.max_poll_timeout"),
		Timezone:       v.GetString("queue.timezone"),
		LogLevel:       v.GetString("log.level"),
		ServiceName:    v.GetString("otel.service_name"),
		OTelEndpoint:   v.GetString("otel.exporter.otlp.endpoint"),
		OTelInsecure:   v.GetBool("otel.exporter.otlp.insecure"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func (c AppConfig) validate() error {
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("db.driver must be mysql, postgres or sqlite, got %q", c.DBDriver)
	}
	if strings.TrimSpace(c.DBDSN) == "" {
		return fmt.Errorf("db.dsn is required")
	}
	switch c.FlagBackend {
	case "redis":
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("redis.addr is required when flag.backend is redis")
		}
	case "memory":
	default:
		return fmt.Errorf("flag.backend must be redis or memory, got %q", c.FlagBackend)
	}
	if c.TenantScope == "" {
		return fmt.Errorf("tenant.scope is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("queue.poll_interval must be positive")
	}
	if c.PollTimeout <= 0 {
		return fmt.Errorf("queue.poll_timeout must be positive")
	}
	if c.MaxPollTimeout < c.PollTimeout {
		return fmt.Errorf("queue.max_poll_timeout must not be lower than queue.poll_timeout")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("queue.timezone: %w", err)
	}
	return nil
}

// ValidateServer adds the checks only the HTTP server needs.
func (c AppConfig) ValidateServer() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("jwt.ttl must be positive")
	}
	return nil
}
