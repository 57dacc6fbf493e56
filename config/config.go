package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Process ProcessConfig `toml:"process"`
	Cache   CacheConfig   `toml:"cache"`
	Jit     JitConfig     `toml:"jit"`
}

type ProcessConfig struct {
	Use64Bit bool `toml:"use_64bit"`
}

type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type JitConfig struct {
	Enabled    bool   `toml:"enabled"`
	RegionSize uint64 `toml:"region_size"`
}

func Default() *Config {
	return &Config{
		Process: ProcessConfig{Use64Bit: true},
		Cache:   CacheConfig{Enabled: true},
		Jit:     JitConfig{Enabled: true, RegionSize: 64 << 20},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
