package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig   = "YTUP_CONFIG"
	EnvManifest = "YTUP_MANIFEST"
	EnvMediaDir = "YTUP_MEDIA_DIR"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // YTUP_CONFIG: override config file path
	Manifest   string // YTUP_MANIFEST: manifest path override
	MediaDir   string // YTUP_MEDIA_DIR: media directory override
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. This does not modify the Config; Resolve applies the fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		Manifest:   os.Getenv(EnvManifest),
		MediaDir:   os.Getenv(EnvMediaDir),
	}
}
