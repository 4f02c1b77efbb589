// Package config loads drawsync settings from a TOML file.
//
// Every field is optional; command-line flags override file values. The
// file is looked up at an explicit path, or else at
// $XDG_CONFIG_HOME/drawsync/config.toml (~/.config/drawsync/config.toml).
//
//	workers = 8
//	format = "svg"
//	output = "images"
//	timeout = "2m"
//	drawio_bin = "/Applications/draw.io.app/Contents/MacOS/draw.io"
//	store = "redis://localhost:6379/0"
//	manifest_policy = "merge"
//	retry_failed = true
//
//	[serve]
//	addr = ":8080"
package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/drawsync/pkg/errors"
	"github.com/matzehuels/drawsync/pkg/pipeline"
)

// FileName is the config file name inside the config directory.
const FileName = "config.toml"

const appName = "drawsync"

// Config holds file-level defaults for the CLI.
type Config struct {
	Workers        int    `toml:"workers"`
	Format         string `toml:"format"`
	Output         string `toml:"output"`
	Timeout        string `toml:"timeout"`
	DrawioBin      string `toml:"drawio_bin"`
	Store          string `toml:"store"`
	ManifestPolicy string `toml:"manifest_policy"`
	RetryFailed    bool   `toml:"retry_failed"`

	Serve Serve `toml:"serve"`

	// Path is the file the config was read from; empty if none was found.
	Path string `toml:"-"`
}

// Serve holds settings for the HTTP trigger.
type Serve struct {
	Addr string `toml:"addr"`
}

// Dir returns the config directory using the XDG standard (~/.config/drawsync/).
func Dir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// Load reads the config file at path. With an empty path the default
// location is used, and a missing default file yields an empty Config.
// A missing explicit file is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		dir, err := Dir()
		if err != nil {
			return &Config{}, nil
		}
		path = filepath.Join(dir, FileName)
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return &Config{}, nil
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config %s", path)
	}

	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "config %s", path)
	}
	cfg.Path = path
	return &cfg, nil
}

// Validate checks the values that are set.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "workers must be positive, got %d", c.Workers)
	}
	if c.Format != "" {
		if err := errors.ValidateFormat(c.Format); err != nil {
			return err
		}
	}
	if c.ManifestPolicy != "" {
		if err := pipeline.ValidateManifestPolicy(c.ManifestPolicy); err != nil {
			return err
		}
	}
	if _, err := c.JobTimeout(); err != nil {
		return err
	}
	return nil
}

// JobTimeout parses Timeout. An empty value yields zero.
func (c *Config) JobTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid timeout %q", c.Timeout)
	}
	if d <= 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "timeout must be positive, got %s", c.Timeout)
	}
	return d, nil
}
