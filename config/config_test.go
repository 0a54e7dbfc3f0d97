package config

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFillsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`debug: true`), "/etc/gopmf")
	require.NoError(t, err)
	require.True(t, cfg.Debug)
	require.Equal(t, int64(defaultMaxFileSize), cfg.MaxFileSizeBytes)
	require.Equal(t, runtime.GOMAXPROCS(0), cfg.Workers)
	require.Equal(t, "/etc/gopmf/fingerprints.db", cfg.CachePath)
}

func TestParseRelativeCachePath(t *testing.T) {
	cfg, err := Parse([]byte(`cachePath: cache/fp.db`), "/etc/gopmf")
	require.NoError(t, err)
	require.Equal(t, "/etc/gopmf/cache/fp.db", cfg.CachePath)
}

func TestParseAbsoluteCachePathUnchanged(t *testing.T) {
	cfg, err := Parse([]byte(`cachePath: /var/lib/gopmf/fp.db`), "/etc/gopmf")
	require.NoError(t, err)
	require.Equal(t, "/var/lib/gopmf/fp.db", cfg.CachePath)
}

func TestParseRejectsNegativeWorkers(t *testing.T) {
	_, err := Parse([]byte(`workers: -1`), "/etc/gopmf")
	require.Error(t, err)
}

func TestParseRejectsInvalidYAML(t *testing.T) {
	_, err := Parse([]byte(`: not yaml`), "/etc/gopmf")
	require.Error(t, err)
}
