package config

import (
	"fmt"
	"strconv"
	"strings"
)

// sizeSuffixes maps unit suffixes to byte multipliers. Both IEC (KiB, MiB,
// GiB) and SI (KB, MB, GB) spellings are accepted. Order matters: longer
// suffixes must match before their shorter prefixes.
var sizeSuffixes = []struct {
	suffix     string
	multiplier int64
}{
	{"GIB", 1024 * 1024 * 1024},
	{"MIB", 1024 * 1024},
	{"KIB", 1024},
	{"GB", 1000 * 1000 * 1000},
	{"MB", 1000 * 1000},
	{"KB", 1000},
	{"B", 1},
}

// parseSize converts a human-readable size string to bytes. A bare number
// is treated as raw bytes.
func parseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	upper := strings.ToUpper(s)

	for _, sf := range sizeSuffixes {
		if !strings.HasSuffix(upper, sf.suffix) {
			continue
		}

		numStr := strings.TrimSpace(s[:len(s)-len(sf.suffix)])

		n, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid size %q: %w", s, err)
		}

		if n < 0 {
			return 0, fmt.Errorf("invalid size %q: must be non-negative", s)
		}

		return int64(n * float64(sf.multiplier)), nil
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}

	if n < 0 {
		return 0, fmt.Errorf("invalid size %q: must be non-negative", s)
	}

	return n, nil
}

// ChunkSizeBytes returns the configured upload chunk size in bytes.
func (c *Config) ChunkSizeBytes() (int64, error) {
	return parseSize(c.Upload.ChunkSize)
}
