package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/joshuapare/heapkit/heap/alloc"
)

const envPrefix = "HEAPCTL"

// Config holds every tunable heapctl reads. Values are layered: defaults,
// then the YAML file, then HEAPCTL_* variables, then explicit flags.
type Config struct {
	FitMargin  int    `yaml:"fitMargin"  split_words:"true"`
	GrowFull   bool   `yaml:"growFull"   split_words:"true"`
	MinGrow    string `yaml:"minGrow"    split_words:"true"`
	Arena      string `yaml:"arena"      split_words:"true"`
	Limit      string `yaml:"limit"      split_words:"true"`
	CheckEvery int    `yaml:"checkEvery" split_words:"true"`
	VerifyData bool   `yaml:"verifyData" split_words:"true"`
	LogLevel   string `yaml:"logLevel"   split_words:"true"`
	LogFile    string `yaml:"logFile"    split_words:"true"`
}

const (
	arenaMem  = "mem"
	arenaFile = "file"
)

func defaultConfig() Config {
	return Config{
		FitMargin:  alloc.DefaultFitMargin,
		Arena:      arenaMem,
		VerifyData: true,
		LogLevel:   "info",
	}
}

// loadConfig layers the config file at path (if any) and the environment
// over the defaults. A missing file is an error only when path was given
// explicitly.
func loadConfig(path string) (Config, error) {
	c := defaultConfig()

	if path == "" {
		path = os.Getenv(envPrefix + "_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(envPrefix, &c); err != nil {
		return c, fmt.Errorf("parsing environment variables: %w", err)
	}
	return c, c.Validate()
}

// Validate checks values that flags and files cannot type-check.
func (c *Config) Validate() error {
	if c.Arena != arenaMem && c.Arena != arenaFile {
		return fmt.Errorf("arena must be %q or %q, got %q", arenaMem, arenaFile, c.Arena)
	}
	if c.CheckEvery < 0 {
		return errors.New("check-every must not be negative")
	}
	if _, err := c.LimitBytes(); err != nil {
		return err
	}
	if _, err := c.MinGrowBytes(); err != nil {
		return err
	}
	return nil
}

// LimitBytes parses Limit ("64MiB", "1 GB", "4096"). Empty means no limit.
func (c *Config) LimitBytes() (int, error) {
	return parseSize("limit", c.Limit)
}

// MinGrowBytes parses MinGrow like LimitBytes.
func (c *Config) MinGrowBytes() (int, error) {
	return parseSize("min-grow", c.MinGrow)
}

func parseSize(name, s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if n > uint64(maxInt) {
		return 0, fmt.Errorf("%s: %s is too large", name, s)
	}
	return int(n), nil
}

const maxInt = int(^uint(0) >> 1)

// AllocConfig converts the allocator settings.
func (c *Config) AllocConfig() (*alloc.Config, error) {
	minGrow, err := c.MinGrowBytes()
	if err != nil {
		return nil, err
	}
	return &alloc.Config{
		FitMargin: c.FitMargin,
		GrowFull:  c.GrowFull,
		MinGrow:   minGrow,
	}, nil
}

// overlayFlags copies the flags the user set explicitly onto c.
func overlayFlags(fs *pflag.FlagSet, c *Config) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "fit-margin":
			c.FitMargin, err = fs.GetInt(f.Name)
		case "grow-full":
			c.GrowFull, err = fs.GetBool(f.Name)
		case "min-grow":
			c.MinGrow = f.Value.String()
		case "arena":
			c.Arena = f.Value.String()
		case "limit":
			c.Limit = f.Value.String()
		case "check-every":
			c.CheckEvery, err = fs.GetInt(f.Name)
		case "verify-data":
			c.VerifyData, err = fs.GetBool(f.Name)
		case "log-level":
			c.LogLevel = f.Value.String()
		case "log-file":
			c.LogFile = f.Value.String()
		}
	})
	if err != nil {
		return err
	}
	return c.Validate()
}
