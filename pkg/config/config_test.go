package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadParsesHumanFriendlyValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
server:
  address: "127.0.0.1"
  port: 9090
  db_path: "/var/lib/minuteman"
slack:
  bot_token: "xoxb-1"
  signing_secret: "sssh"
  timeout: 20s
  max_download: 10MB
  rate_limit:
    rps: 0.5
    burst: 3
dedup:
  retention: 6h
  degraded_cooldown: 60
directory:
  cache_ttl: 5m
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9090", cfg.Addr())
	require.Equal(t, 20*time.Second, cfg.Slack.Timeout.Duration())
	require.Equal(t, int64(10_000_000), cfg.Slack.MaxDownload.Int64())
	// bare numbers read as seconds
	require.Equal(t, 60*time.Second, cfg.Dedup.DegradedCooldown.Duration())
	require.Equal(t, 5*time.Minute, cfg.Directory.CacheTTL.Or(time.Hour))
	require.Equal(t, 0.5, cfg.Slack.RateLimit.RPS)
}

func TestDurationOrDefault(t *testing.T) {
	var d Duration
	require.Equal(t, 15*time.Second, d.Or(15*time.Second))
	d = Duration(time.Minute)
	require.Equal(t, time.Minute, d.Or(15*time.Second))
}

func TestInvalidDurationRejected(t *testing.T) {
	var cfg Config
	require.Error(t, yaml.Unmarshal([]byte("slack:\n  timeout: banana\n"), &cfg))
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MINUTEMAN_ADDR", "10.0.0.5:7070")
	t.Setenv("MINUTEMAN_DB_PATH", "/tmp/db")
	t.Setenv("MINUTEMAN_SLACK_BOT_TOKEN", "xoxb-env")
	t.Setenv("MINUTEMAN_SLACK_RATE_RPS", "2.5")

	cfg := &Config{}
	require.True(t, LoadEnvOverrides(cfg))
	require.Equal(t, "10.0.0.5", cfg.Server.Address)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "/tmp/db", cfg.Server.DBPath)
	require.Equal(t, "xoxb-env", cfg.Slack.BotToken)
	require.Equal(t, 2.5, cfg.Slack.RateLimit.RPS)
}

func TestLoadEffectiveMissingFileIsEnvOnly(t *testing.T) {
	t.Setenv("MINUTEMAN_SLACK_BOT_TOKEN", "xoxb-env")
	cfg, envUsed, err := LoadEffective(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.True(t, envUsed)
	require.Equal(t, "xoxb-env", cfg.Slack.BotToken)
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("MINUTEMAN_CONFIG", "/etc/minuteman/config.yaml")
	require.Equal(t, "/etc/minuteman/config.yaml", ResolveConfigPath("./config.yaml", false))
	require.Equal(t, "./explicit.yaml", ResolveConfigPath("./explicit.yaml", true))
}
