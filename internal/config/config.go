package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for a config file.
const DefaultPath = ".doopie.yaml"

type Config struct {
	Ignore     []string `yaml:"ignore"`
	IgnoreFile string   `yaml:"ignore_file"`
	Regex      string   `yaml:"regex"`
	Algorithm  string   `yaml:"algorithm"`
	BufferSize int      `yaml:"buffer_size"`
	Workers    int      `yaml:"workers"`
	Strict     bool     `yaml:"strict"`
	Quick      bool     `yaml:"quick"`
	Format     string   `yaml:"format"`
	Output     string   `yaml:"output"`
}

func DefaultConfig() *Config {
	return &Config{
		Ignore: []string{
			".git/",
			".svn/",
			".hg/",
			"node_modules/",
			"__pycache__/",
			".DS_Store",
			"Thumbs.db",
			"*.swp",
		},
		Algorithm:  "sha256",
		BufferSize: 4096,
		Format:     "text",
	}
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	cfg.Ignore = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	// Initialize Ignore slice if nil (for empty configs)
	if cfg.Ignore == nil {
		cfg.Ignore = []string{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that cannot be caught by YAML decoding.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.BufferSize < 0 {
		return fmt.Errorf("buffer_size must not be negative, got %d", c.BufferSize)
	}
	switch c.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown format %q (want text or json)", c.Format)
	}
	return nil
}
