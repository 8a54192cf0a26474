package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"habitbot/pkg/config"
)

// ClockTime is an "HH:MM" wall-clock time in the scheduler's timezone.
type ClockTime struct {
	Hour   int
	Minute int
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// UnmarshalText accepts "HH:MM".
func (c *ClockTime) UnmarshalText(text []byte) error {
	t, err := time.Parse("15:04", string(text))
	if err != nil {
		return fmt.Errorf("invalid time %q, want HH:MM: %w", string(text), err)
	}
	c.Hour, c.Minute = t.Hour(), t.Minute()
	return nil
}

func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

type SchedulerConfig struct {
	Timezone       string      `yaml:"timezone"`
	Digest         ClockTime   `yaml:"digest"`
	Reminders      []ClockTime `yaml:"reminders"`
	Cleanup        ClockTime   `yaml:"cleanup"`
	RetentionDays  int         `yaml:"retention_days"`
	JobTimeoutSecs int         `yaml:"job_timeout_seconds"`
	// SlotGuard enables the Redis once-per-slot guard.
	SlotGuard bool `yaml:"slot_guard"`
}

func (s SchedulerConfig) JobTimeout() time.Duration {
	return time.Duration(s.JobTimeoutSecs) * time.Second
}

func (s SchedulerConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

type SessionConfig struct {
	TTLMinutes int `yaml:"ttl_minutes"`
}

func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLMinutes) * time.Minute
}

// Delivery modes.
const (
	DeliveryDirect = "direct"
	DeliveryQueue  = "queue"
)

type DeliveryConfig struct {
	Mode       string `yaml:"mode"`
	MaxRetries int    `yaml:"max_retries"`
	Queue      string `yaml:"queue"`
}

type OtelConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Exporter string `yaml:"exporter"`
}

type APIConfig struct {
	Enabled           bool   `yaml:"enabled"`
	AdminPasswordHash string `yaml:"admin_password_hash"`
}

type Config struct {
	DB        config.DBConfig     `yaml:"db"`
	MQ        config.MQConfig     `yaml:"mq"`
	Redis     config.RedisConfig  `yaml:"redis"`
	JWT       config.JWTConfig    `yaml:"jwt"`
	Server    config.ServerConfig `yaml:"server"`
	Bot       config.BotConfig    `yaml:"bot"`
	Scheduler SchedulerConfig     `yaml:"scheduler"`
	Session   SessionConfig       `yaml:"session"`
	Delivery  DeliveryConfig      `yaml:"delivery"`
	Otel      OtelConfig          `yaml:"otel"`
	API       APIConfig           `yaml:"api"`
	LogLevel  string              `yaml:"log_level"`
}

// Default returns the values used when a key is absent from every config file.
func Default() Config {
	return Config{
		DB: config.DBConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			Name:    "habits_db",
			SSLMode: "disable",
		},
		Server: config.ServerConfig{Port: "8080"},
		JWT:    config.JWTConfig{TTLHours: 24},
		Bot:    config.BotConfig{PollTimeout: 60},
		Scheduler: SchedulerConfig{
			Timezone: "Asia/Almaty",
			Digest:   ClockTime{Hour: 7},
			Reminders: []ClockTime{
				{Hour: 15}, {Hour: 18}, {Hour: 21},
			},
			Cleanup:        ClockTime{Hour: 0, Minute: 5},
			RetentionDays:  3,
			JobTimeoutSecs: 60,
		},
		Session:  SessionConfig{TTLMinutes: 10},
		Delivery: DeliveryConfig{Mode: DeliveryDirect, MaxRetries: 5, Queue: "notification.requested.q"},
		Otel:     OtelConfig{Exporter: "otlp"},
		LogLevel: "info",
	}
}

// Load reads config files selected by CONFIG_ENV / CONFIG_DIR and applies env overrides.
func Load() *Config {
	cfg, err := LoadFrom(config.GetConfigEnv(), config.GetEnv("CONFIG_DIR", "config"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func LoadFrom(env, dir string) (*Config, error) {
	cfg := Default()
	if err := config.Unmarshal(env, dir, &cfg); err != nil {
		return nil, err
	}

	// 环境变量覆盖（优先级最高）
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideBotFromEnv(&cfg.Bot)
	if tz := os.Getenv("TIMEZONE"); tz != "" {
		cfg.Scheduler.Timezone = tz
	}
	if days := os.Getenv("RETENTION_DAYS"); days != "" {
		if d, err := strconv.Atoi(days); err == nil {
			cfg.Scheduler.RetentionDays = d
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := c.Scheduler.Location(); err != nil {
		return fmt.Errorf("scheduler.timezone: %w", err)
	}
	if c.Scheduler.RetentionDays < 0 {
		return fmt.Errorf("scheduler.retention_days must be >= 0, got %d", c.Scheduler.RetentionDays)
	}
	if c.Scheduler.JobTimeoutSecs <= 0 {
		return fmt.Errorf("scheduler.job_timeout_seconds must be > 0, got %d", c.Scheduler.JobTimeoutSecs)
	}
	switch c.Delivery.Mode {
	case DeliveryDirect:
	case DeliveryQueue:
		if c.MQ.URL == "" {
			return fmt.Errorf("delivery.mode=queue requires mq.url")
		}
		if c.Redis.Addr == "" {
			return fmt.Errorf("delivery.mode=queue requires redis.addr")
		}
	default:
		return fmt.Errorf("unknown delivery.mode %q", c.Delivery.Mode)
	}
	if c.API.Enabled && c.JWT.Secret == "" {
		return fmt.Errorf("api.enabled requires jwt.secret")
	}
	return nil
}
