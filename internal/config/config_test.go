package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromAppliesDefaultsAndFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte(`
db:
  host: pg
scheduler:
  digest: "06:30"
  reminders: ["12:00", "20:15"]
bot:
  chat_id: 777
`), 0o600))

	cfg, err := LoadFrom("local", dir)
	require.NoError(t, err)

	assert.Equal(t, "pg", cfg.DB.Host)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, ClockTime{Hour: 6, Minute: 30}, cfg.Scheduler.Digest)
	assert.Equal(t, []ClockTime{{Hour: 12}, {Hour: 20, Minute: 15}}, cfg.Scheduler.Reminders)
	assert.Equal(t, ClockTime{Hour: 0, Minute: 5}, cfg.Scheduler.Cleanup)
	assert.Equal(t, 3, cfg.Scheduler.RetentionDays)
	assert.Equal(t, "Asia/Almaty", cfg.Scheduler.Timezone)
	assert.Equal(t, int64(777), cfg.Bot.ChatID)
	assert.Equal(t, DeliveryDirect, cfg.Delivery.Mode)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte("db:\n  host: pg\n"), 0o600))
	t.Setenv("DB_HOST", "override")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("RETENTION_DAYS", "7")

	cfg, err := LoadFrom("local", dir)
	require.NoError(t, err)
	assert.Equal(t, "override", cfg.DB.Host)
	assert.Equal(t, "UTC", cfg.Scheduler.Timezone)
	assert.Equal(t, 7, cfg.Scheduler.RetentionDays)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "bad timezone", mutate: func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "negative retention", mutate: func(c *Config) { c.Scheduler.RetentionDays = -1 }, wantErr: true},
		{name: "zero job timeout", mutate: func(c *Config) { c.Scheduler.JobTimeoutSecs = 0 }, wantErr: true},
		{name: "queue without mq", mutate: func(c *Config) { c.Delivery.Mode = DeliveryQueue }, wantErr: true},
		{name: "queue without redis", mutate: func(c *Config) {
			c.Delivery.Mode = DeliveryQueue
			c.MQ.URL = "amqp://localhost"
		}, wantErr: true},
		{name: "queue with mq and redis", mutate: func(c *Config) {
			c.Delivery.Mode = DeliveryQueue
			c.MQ.URL = "amqp://localhost"
			c.Redis.Addr = "localhost:6379"
		}},
		{name: "unknown mode", mutate: func(c *Config) { c.Delivery.Mode = "carrier-pigeon" }, wantErr: true},
		{name: "api without secret", mutate: func(c *Config) { c.API.Enabled = true }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClockTimeUnmarshalText(t *testing.T) {
	var c ClockTime
	require.NoError(t, c.UnmarshalText([]byte("00:05")))
	assert.Equal(t, ClockTime{Hour: 0, Minute: 5}, c)
	assert.Equal(t, "00:05", c.String())

	assert.Error(t, c.UnmarshalText([]byte("25:00")))
	assert.Error(t, c.UnmarshalText([]byte("7am")))
}
