package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Slack     SlackConfig     `yaml:"slack"`
	DocStore  DocStoreConfig  `yaml:"docstore"`
	Directory DirectoryConfig `yaml:"directory"`
	Inference InferenceConfig `yaml:"inference"`
	Dedup     DedupConfig     `yaml:"dedup"`
	Tasks     TasksConfig     `yaml:"tasks"`
	Commit    CommitConfig    `yaml:"commit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds http and storage settings.
type ServerConfig struct {
	Address string    `yaml:"address"`
	Port    int       `yaml:"port"`
	DBPath  string    `yaml:"db_path"`
	TLS     TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate configuration.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// SlackConfig holds messaging-platform credentials and outbound tunables.
type SlackConfig struct {
	APIBase       string    `yaml:"api_base"`
	BotToken      string    `yaml:"bot_token"`
	SigningSecret string    `yaml:"signing_secret"`
	Timeout       Duration  `yaml:"timeout"`
	MaxDownload   SizeBytes `yaml:"max_download"`
	RateLimit     struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
}

// DocStoreConfig holds the document store endpoint.
type DocStoreConfig struct {
	BaseURL string   `yaml:"base_url"`
	Token   string   `yaml:"token"`
	Timeout Duration `yaml:"timeout"`
}

// DirectoryConfig holds the project directory endpoint.
type DirectoryConfig struct {
	BaseURL  string   `yaml:"base_url"`
	Token    string   `yaml:"token"`
	Timeout  Duration `yaml:"timeout"`
	CacheTTL Duration `yaml:"cache_ttl"`
}

// InferenceConfig holds the text completion endpoint.
type InferenceConfig struct {
	BaseURL        string   `yaml:"base_url"`
	Token          string   `yaml:"token"`
	Model          string   `yaml:"model"`
	MaxPromptRunes int      `yaml:"max_prompt_runes"`
	Timeout        Duration `yaml:"timeout"`
}

// DedupConfig tunes the event deduplication gate.
type DedupConfig struct {
	Retention         Duration `yaml:"retention"`
	DegradedCooldown  Duration `yaml:"degraded_cooldown"`
	DegradedRetention Duration `yaml:"degraded_retention"`
	SweepCron         string   `yaml:"sweep_cron"`
}

// TasksConfig tunes task identifier issuance.
type TasksConfig struct {
	Prefix string `yaml:"prefix"`
	SeqPad int    `yaml:"seq_pad"`
}

// CommitConfig holds document-store commit layout.
type CommitConfig struct {
	PathPrefix string `yaml:"path_prefix"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Addr returns host:port for the HTTP server.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	p := c.Server.Port
	if p == 0 {
		p = 8080
	}
	return fmt.Sprintf("%s:%d", addr, p)
}

// SizeBytes represents a number of bytes, unmarshaled from human-friendly
// strings like "10MB" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*s = 0
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*s = 0
		return nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		*s = SizeBytes(v)
		return nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*s = SizeBytes(i)
		return nil
	}
	return fmt.Errorf("invalid size value: %q", node.Value)
}

func (s SizeBytes) Int64() int64 { return int64(s) }

// Duration wraps time.Duration and supports YAML parsing from strings like
// "90s" or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", node.Value)
}

// Duration returns the wrapped time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

// Or returns the wrapped duration, or def when unset.
func (d Duration) Or(def time.Duration) time.Duration {
	if d == 0 {
		return def
	}
	return time.Duration(d)
}
