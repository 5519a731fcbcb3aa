package app

import (
	"minuteman/pkg/config"
	"minuteman/pkg/faults"
)

// validateConfig fails fast on missing required external endpoints and
// credentials. Nothing here is silently defaulted; a service that cannot
// reach its collaborators should not start.
func validateConfig(cfg *config.Config) error {
	required := []struct {
		field, value string
	}{
		{"slack.bot_token", cfg.Slack.BotToken},
		{"slack.signing_secret", cfg.Slack.SigningSecret},
		{"docstore.base_url", cfg.DocStore.BaseURL},
		{"directory.base_url", cfg.Directory.BaseURL},
		{"inference.base_url", cfg.Inference.BaseURL},
	}
	for _, r := range required {
		if r.value == "" {
			return &faults.ConfigError{Field: r.field, Reason: "required setting is empty"}
		}
	}
	if cfg.Server.DBPath == "" {
		return &faults.ConfigError{Field: "server.db_path", Reason: "required setting is empty"}
	}
	return nil
}
