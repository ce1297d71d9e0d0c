// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for ytup. It supports a four-layer
// override chain (defaults -> config file -> environment -> CLI flags).
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Manifest string `toml:"manifest"`
	MediaDir string `toml:"media_dir"`

	Auth    AuthConfig    `toml:"auth"`
	Upload  UploadConfig  `toml:"upload"`
	Quota   QuotaConfig   `toml:"quota"`
	History HistoryConfig `toml:"history"`
	Logging LoggingConfig `toml:"logging"`
}

// AuthConfig locates the OAuth client secrets file and the directory where
// per-account tokens are stored.
type AuthConfig struct {
	ClientSecrets string `toml:"client_secrets"`
	TokensDir     string `toml:"tokens_dir"`
}

// UploadConfig controls the resumable transfer and metadata defaults.
// The chunk_size must be a multiple of 256 KiB per the upload API contract.
type UploadConfig struct {
	ChunkSize      string `toml:"chunk_size"`
	DefaultPrivacy string `toml:"default_privacy"`
}

// QuotaConfig sets the advisory daily unit budget used for run estimates.
// The platform's own verdict, not this number, is what halts a run.
type QuotaConfig struct {
	DailyBudget int `toml:"daily_budget"`
}

// HistoryConfig controls the local attempt ledger.
type HistoryConfig struct {
	Enabled  bool   `toml:"enabled"`
	Database string `toml:"database"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to zero value".
type CLIOverrides struct {
	ConfigPath string  // --config flag (empty = use default)
	Manifest   *string // --manifest flag
	MediaDir   *string // --media-dir flag
}
