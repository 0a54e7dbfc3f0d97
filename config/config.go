// Package config loads the YAML configuration that controls a batch GPMF
// extraction run: how strict parsing is, how many clips decode in
// parallel, and where the fingerprint cache lives. It also holds a file
// size limit that is validated but not enforced.
package config

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v2"
)

const (
	defaultMaxFileSize  = 64 << 30 // 64 GiB, comfortably above any GoPro card's single-file limit.
	defaultCacheDirName = "fingerprints.db"
)

// Config is the root configuration document (§1 ambient stack).
type Config struct {
	// Debug enables partial results and KindTruncated tolerance on
	// corrupt/incomplete GPMF streams instead of aborting the parse.
	Debug bool `yaml:"debug"`
	// MaxFileSizeBytes is a size limit for candidate MP4/LRV files. Parse
	// fills in the default and rejects negative values; nothing else in
	// this module reads it, so no file is skipped for its size.
	MaxFileSizeBytes int64 `yaml:"maxFileSizeBytes"`
	// Workers is the number of clips decoded concurrently by a batch
	// session build. Zero means GOMAXPROCS.
	Workers int `yaml:"workers"`
	// CachePath is the bbolt fingerprint cache location. Parse replaces an
	// empty value with fingerprints.db in the config file's directory, so
	// a parsed Config always names a cache.
	CachePath string `yaml:"cachePath"`
}

// Load reads and validates a configuration file at path, filling in
// defaults for every unset field.
func Load(path string) (*Config, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}
	return Parse(raw, filepath.Dir(path))
}

// Parse unmarshals raw YAML and fills in defaults, resolving any relative
// CachePath against configDir.
func Parse(raw []byte, configDir string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	if cfg.MaxFileSizeBytes == 0 {
		cfg.MaxFileSizeBytes = defaultMaxFileSize
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.CachePath == "" {
		cfg.CachePath = filepath.Join(configDir, defaultCacheDirName)
	} else if !filepath.IsAbs(cfg.CachePath) {
		cfg.CachePath = filepath.Join(configDir, cfg.CachePath)
	}

	if cfg.MaxFileSizeBytes < 0 {
		return nil, fmt.Errorf("maxFileSizeBytes must not be negative: %v", cfg.MaxFileSizeBytes)
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("workers must not be negative: %v", cfg.Workers)
	}

	return &cfg, nil
}
