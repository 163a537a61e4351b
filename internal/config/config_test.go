package config

import (
	"os"
	"path/filepath"
	"testing"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
logging:
  level: debug
input:
  resources: data/resources.yaml
  sources:
    - name: cms
      scanner: html
      dir: drafts/html
      pattern: "*.html"
pipeline:
  maxWords: 60
linking:
  maxPerDestination: 1
  categorySynonyms:
    Productivity: ["getting things done"]
  staticDestinations:
    - phrase: free templates
      url: /resources/
scheduler:
  cronExpression: "*/30 * * * *"
  timezone: Europe/Berlin
metrics:
  enabled: true
  textfile: out/enricher.prom
notify:
  telegram:
    botToken: file-token
    chatId: "100"
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))
	t.Setenv(logLevelEnv, "")
	t.Setenv(storeDSNEnv, "")
	t.Setenv(outputDirEnv, "")
	t.Setenv(telegramToken, "env-token")
	t.Setenv(telegramChat, "")
	t.Setenv(webhookURLEnv, "")
	t.Setenv(webhookKeyEnv, "")

	cfg := LoadFile(path)

	assert.Equal(t, "debug", cfg.Logging.Level)
	require.Len(t, cfg.Input.Sources, 1)
	assert.Equal(t, "html", cfg.Input.Sources[0].Scanner)
	assert.Equal(t, "data/resources.yaml", cfg.Input.Resources)

	assert.Equal(t, 60, cfg.Pipeline.MaxWords)
	assert.Equal(t, 15, cfg.Pipeline.MinTrailingWords, "untouched values keep defaults")
	assert.Equal(t, 4, cfg.Pipeline.Workers)

	assert.Equal(t, 1, cfg.Linking.MaxPerDestination)
	assert.Equal(t, 15, cfg.Linking.MaxLinks)
	assert.Equal(t, []string{"getting things done"}, cfg.Linking.CategorySynonyms["Productivity"])
	require.Len(t, cfg.Linking.StaticDestinations, 1)

	assert.Equal(t, "*/30 * * * *", cfg.Scheduler.CronExpression)
	assert.Equal(t, "Europe/Berlin", cfg.Scheduler.Location().String())
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, StoreFilesystem, cfg.Output.Store)

	assert.Equal(t, "env-token", cfg.Notify.Telegram.BotToken)
	assert.Equal(t, "100", cfg.Notify.Telegram.ChatID)
	assert.True(t, cfg.Notify.Telegram.Enabled())
	assert.Empty(t, cfg.Notify.Webhook.URL)
}

func TestLoadFileEnvOverrides(t *testing.T) {
	t.Setenv(logLevelEnv, "warn")
	t.Setenv(storeDSNEnv, "file:test.db")
	t.Setenv(outputDirEnv, "/tmp/enriched")
	t.Setenv(telegramToken, "")
	t.Setenv(telegramChat, "")
	t.Setenv(webhookURLEnv, "https://hooks.example.com/rebuild")
	t.Setenv(webhookKeyEnv, "k")

	cfg := LoadFile("")

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, StoreSQLite, cfg.Output.Store)
	assert.Equal(t, "file:test.db", cfg.Output.DSN)
	assert.Equal(t, "/tmp/enriched", cfg.Output.Dir)
	assert.Equal(t, WebhookConfig{URL: "https://hooks.example.com/rebuild", APIKey: "k"}, cfg.Notify.Webhook)
	assert.False(t, cfg.Notify.Telegram.Enabled())
}

func TestLoadFileFallsBackOnBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging: [nope"), 0o600))
	t.Setenv(logLevelEnv, "")
	t.Setenv(storeDSNEnv, "")
	t.Setenv(outputDirEnv, "")
	t.Setenv(telegramToken, "")
	t.Setenv(telegramChat, "")
	t.Setenv(webhookURLEnv, "")
	t.Setenv(webhookKeyEnv, "")

	cfg := LoadFile(path)
	assert.Equal(t, defaultConfig().Logging, cfg.Logging)
	assert.Equal(t, defaultConfig().Input.Sources, cfg.Input.Sources)
	assert.Equal(t, "UTC", cfg.Scheduler.Location().String())
}
