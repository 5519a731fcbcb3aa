package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML config at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseCommandFlags defines and parses command-line flags and returns their
// values along with a map indicating which flags were explicitly set.
func ParseCommandFlags() (addr string, dbPath string, cfgPath string, setFlags map[string]bool) {
	addrPtr := flag.String("addr", ":8080", "HTTP listen address")
	dbPtr := flag.String("db", "./.database", "Pebble DB path")
	cfgPtr := flag.String("config", "./config.yaml", "Path to config file")
	flag.Parse()
	setFlags = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return *addrPtr, *dbPtr, *cfgPtr, setFlags
}

// ResolveConfigPath decides the config file path using the flag-provided value
// and the MINUTEMAN_CONFIG environment variable when the flag was not set.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv("MINUTEMAN_CONFIG"); p != "" {
		return p
	}
	return flagPath
}

// LoadEnvOverrides applies environment overrides onto cfg and reports whether
// any env vars were used.
func LoadEnvOverrides(cfg *Config) bool {
	envUsed := false

	if v := os.Getenv("MINUTEMAN_ADDR"); v != "" {
		envUsed = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		} else {
			cfg.Server.Address = v
		}
	}
	if v := os.Getenv("MINUTEMAN_DB_PATH"); v != "" {
		envUsed = true
		cfg.Server.DBPath = v
	}

	strVars := []struct {
		env string
		dst *string
	}{
		{"MINUTEMAN_SLACK_API_BASE", &cfg.Slack.APIBase},
		{"MINUTEMAN_SLACK_BOT_TOKEN", &cfg.Slack.BotToken},
		{"MINUTEMAN_SLACK_SIGNING_SECRET", &cfg.Slack.SigningSecret},
		{"MINUTEMAN_DOCSTORE_URL", &cfg.DocStore.BaseURL},
		{"MINUTEMAN_DOCSTORE_TOKEN", &cfg.DocStore.Token},
		{"MINUTEMAN_DIRECTORY_URL", &cfg.Directory.BaseURL},
		{"MINUTEMAN_DIRECTORY_TOKEN", &cfg.Directory.Token},
		{"MINUTEMAN_INFERENCE_URL", &cfg.Inference.BaseURL},
		{"MINUTEMAN_INFERENCE_TOKEN", &cfg.Inference.Token},
		{"MINUTEMAN_INFERENCE_MODEL", &cfg.Inference.Model},
		{"MINUTEMAN_TASK_PREFIX", &cfg.Tasks.Prefix},
		{"MINUTEMAN_COMMIT_PREFIX", &cfg.Commit.PathPrefix},
		{"MINUTEMAN_LOG_LEVEL", &cfg.Logging.Level},
		{"MINUTEMAN_TLS_CERT", &cfg.Server.TLS.CertFile},
		{"MINUTEMAN_TLS_KEY", &cfg.Server.TLS.KeyFile},
	}
	for _, sv := range strVars {
		if v := os.Getenv(sv.env); v != "" {
			envUsed = true
			*sv.dst = v
		}
	}

	if v := os.Getenv("MINUTEMAN_SLACK_RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			envUsed = true
			cfg.Slack.RateLimit.RPS = f
		}
	}
	if v := os.Getenv("MINUTEMAN_SLACK_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Slack.RateLimit.Burst = n
		}
	}
	return envUsed
}

// LoadEffective loads config from the given path and applies environment
// overrides. A missing file yields a zero config so env-only deployments work.
func LoadEffective(path string) (*Config, bool, error) {
	cfg, err := Load(path)
	if err != nil {
		cfg = &Config{}
	}
	envUsed := LoadEnvOverrides(cfg)
	return cfg, envUsed, nil
}
