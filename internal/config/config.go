package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// Config represents the optional filetap configuration file. Values here
// act as defaults for endpoint options the URI leaves unset.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
}

// DefaultsConfig holds operator defaults. Nil means unset.
type DefaultsConfig struct {
	Delay          *string `toml:"delay" validate:"omitempty,min=1"`
	InitialDelay   *string `toml:"initial_delay" validate:"omitempty,min=1"`
	ReadLock       *string `toml:"read_lock" validate:"omitempty,oneof=none changed rename markerFile fileLock"`
	StableInterval *string `toml:"stable_interval" validate:"omitempty,min=1"`
	Watch          *bool   `toml:"watch"`
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "filetap", "config.toml")
}

// Load reads the config file from the XDG path. Returns a zero Config
// (no error) if the file does not exist. Config is always optional.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}

	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate %s: %w", path, err)
	}
	return cfg, nil
}

// EndpointDefaults translates the defaults section into the option map
// consumed by endpoint.ResolveWithDefaults.
func (c Config) EndpointDefaults() map[string]string {
	defaults := map[string]string{}
	if c.Defaults.Delay != nil {
		defaults["delay"] = *c.Defaults.Delay
	}
	if c.Defaults.InitialDelay != nil {
		defaults["initialDelay"] = *c.Defaults.InitialDelay
	}
	if c.Defaults.ReadLock != nil {
		defaults["readLock"] = *c.Defaults.ReadLock
	}
	return defaults
}
