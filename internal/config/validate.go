package config

import (
	"fmt"
	"strings"
)

// chunkAlignment is the upload API's required chunk granularity.
const chunkAlignment = 256 * 1024

var validLogLevels = []string{"debug", "info", "warn", "error"}

var validLogFormats = []string{"auto", "text", "json"}

var validPrivacy = []string{"public", "unlisted", "private"}

// Validate checks a Config for contradictions the decoder cannot catch.
func Validate(cfg *Config) error {
	if cfg.Manifest == "" {
		return fmt.Errorf("manifest must not be empty")
	}

	if cfg.MediaDir == "" {
		return fmt.Errorf("media_dir must not be empty")
	}

	chunk, err := cfg.ChunkSizeBytes()
	if err != nil {
		return fmt.Errorf("upload.chunk_size: %w", err)
	}

	if chunk > 0 && chunk%chunkAlignment != 0 {
		return fmt.Errorf("upload.chunk_size %q is not a multiple of 256KiB", cfg.Upload.ChunkSize)
	}

	if !oneOf(cfg.Upload.DefaultPrivacy, validPrivacy) {
		return fmt.Errorf("upload.default_privacy %q: must be one of %s",
			cfg.Upload.DefaultPrivacy, strings.Join(validPrivacy, ", "))
	}

	if cfg.Quota.DailyBudget < 0 {
		return fmt.Errorf("quota.daily_budget must not be negative")
	}

	if !oneOf(cfg.Logging.LogLevel, validLogLevels) {
		return fmt.Errorf("logging.log_level %q: must be one of %s",
			cfg.Logging.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if !oneOf(cfg.Logging.LogFormat, validLogFormats) {
		return fmt.Errorf("logging.log_format %q: must be one of %s",
			cfg.Logging.LogFormat, strings.Join(validLogFormats, ", "))
	}

	if cfg.History.Enabled && cfg.History.Database == "" {
		return fmt.Errorf("history.database must be set when history is enabled")
	}

	return nil
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}

	return false
}
