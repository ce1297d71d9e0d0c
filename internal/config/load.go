package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal: silently ignoring a typo in a
// config file leads to hard-to-debug behavior.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(path, &md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns a
// Config populated with all default values. This supports the zero-config
// first-run experience.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the four-layer override chain:
// defaults -> config file -> environment variables -> CLI flags.
// CLI flags always win, matching user expectations for one-off overrides
// without editing the config file.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Config, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	if env.Manifest != "" {
		cfg.Manifest = env.Manifest
	}

	if env.MediaDir != "" {
		cfg.MediaDir = env.MediaDir
	}

	if cli.Manifest != nil {
		cfg.Manifest = *cli.Manifest
	}

	if cli.MediaDir != nil {
		cfg.MediaDir = *cli.MediaDir
	}

	cfg.expandPaths()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// expandPaths applies tilde expansion to every path-valued option.
func (c *Config) expandPaths() {
	c.Manifest = ExpandTilde(c.Manifest)
	c.MediaDir = ExpandTilde(c.MediaDir)
	c.Auth.ClientSecrets = ExpandTilde(c.Auth.ClientSecrets)
	c.Auth.TokensDir = ExpandTilde(c.Auth.TokensDir)
	c.History.Database = ExpandTilde(c.History.Database)
}

// checkUnknownKeys rejects keys the decoder did not map to any field.
func checkUnknownKeys(path string, md *toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	keys := make([]string, 0, len(undecoded))
	for _, k := range undecoded {
		keys = append(keys, k.String())
	}

	sort.Strings(keys)

	return fmt.Errorf("unknown keys in config file %s: %s", path, strings.Join(keys, ", "))
}
