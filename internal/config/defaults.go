package config

// Default values for configuration options, the "layer 0" of the override
// chain. They are chosen so the tool works with no config file at all:
// manifest and media in the current directory, state under the platform
// data directory.
const (
	defaultManifest       = "videos.csv"
	defaultMediaDir       = "."
	defaultChunkSize      = "8MiB"
	defaultPrivacy        = "private"
	defaultDailyBudget    = 10000
	defaultLogLevel       = "info"
	defaultLogFormat      = "auto"
	defaultHistoryEnabled = true
)

// DefaultConfig returns a Config populated with all default values. It is
// the starting point for TOML decoding, so unset fields retain defaults.
func DefaultConfig() *Config {
	return &Config{
		Manifest: defaultManifest,
		MediaDir: defaultMediaDir,
		Auth: AuthConfig{
			ClientSecrets: defaultClientSecretsPath(),
			TokensDir:     DefaultTokensDir(),
		},
		Upload: UploadConfig{
			ChunkSize:      defaultChunkSize,
			DefaultPrivacy: defaultPrivacy,
		},
		Quota: QuotaConfig{
			DailyBudget: defaultDailyBudget,
		},
		History: HistoryConfig{
			Enabled:  defaultHistoryEnabled,
			Database: DefaultHistoryPath(),
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
	}
}
