package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoadConfigMergesEnvironmentOverBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
db:
  host: localhost
  port: 5432
  name: habits
scheduler:
  timezone: Asia/Almaty
`)
	writeFile(t, dir, "production.yaml", `
db:
  host: db.internal
`)

	cfg, err := LoadConfig("production", dir)
	require.NoError(t, err)

	db := cfg["db"].(map[string]interface{})
	assert.Equal(t, "db.internal", db["host"])
	assert.Equal(t, 5432, db["port"])
	assert.Equal(t, "habits", db["name"])
	assert.Equal(t, "Asia/Almaty", cfg["scheduler"].(map[string]interface{})["timezone"])
}

func TestLoadConfigMissingEnvFileFallsBackToBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "server:\n  port: \"8080\"\n")

	cfg, err := LoadConfig("staging", dir)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg["server"].(map[string]interface{})["port"])
}

func TestLoadConfigRequiresBase(t *testing.T) {
	_, err := LoadConfig("local", t.TempDir())
	require.Error(t, err)
}

func TestLoadConfigSubstitutesSecrets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
bot:
  token: ${BOT_TOKEN}
jwt:
  secret: "prefix-${JWT_SECRET}"
`)
	writeFile(t, dir, "secrets.env", `
# comment
BOT_TOKEN="123:abc"
export JWT_SECRET='s3cret'
`)

	cfg, err := LoadConfig("", dir)
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg["bot"].(map[string]interface{})["token"])
	assert.Equal(t, "prefix-s3cret", cfg["jwt"].(map[string]interface{})["secret"])
}

func TestLoadConfigSubstitutesFromProcessEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "mq:\n  url: ${HABITBOT_TEST_MQ}\n")
	t.Setenv("HABITBOT_TEST_MQ", "amqp://guest:guest@mq:5672/")

	cfg, err := LoadConfig("local", dir)
	require.NoError(t, err)
	assert.Equal(t, "amqp://guest:guest@mq:5672/", cfg["mq"].(map[string]interface{})["url"])
}

func TestUnmarshalDecodesIntoStruct(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
db:
  host: localhost
  port: 5433
bot:
  chat_id: 42
`)

	var out struct {
		DB  DBConfig  `yaml:"db"`
		Bot BotConfig `yaml:"bot"`
	}
	require.NoError(t, Unmarshal("local", dir, &out))
	assert.Equal(t, "localhost", out.DB.Host)
	assert.Equal(t, 5433, out.DB.Port)
	assert.Equal(t, int64(42), out.Bot.ChatID)
}

func TestOverrideBotFromEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "tok")
	t.Setenv("CHAT_ID", "-100123")

	cfg := BotConfig{Token: "old", ChatID: 1}
	OverrideBotFromEnv(&cfg)
	assert.Equal(t, "tok", cfg.Token)
	assert.Equal(t, int64(-100123), cfg.ChatID)
}
