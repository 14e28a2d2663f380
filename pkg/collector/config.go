package collector

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultOutputDirectory = "data/raw"
	DefaultConcurrency     = 4
	DefaultMaxMatches      = 5
)

// Watch is a stop search whose matches get their arrivals collected
type Watch struct {
	Query      string   `yaml:"query" validate:"required"`
	Modes      []string `yaml:"modes"`
	MaxMatches int      `yaml:"max_matches" validate:"gte=0,lte=50"`
}

type Config struct {
	Watches         []Watch `yaml:"watches" validate:"required,min=1,dive"`
	OutputDirectory string  `yaml:"output_directory"`
	// DatabasePath enables the arrival history when set
	DatabasePath string `yaml:"database_path"`
	Concurrency  int    `yaml:"concurrency" validate:"gte=0,lte=32"`
}

func (c Config) withDefaults() Config {
	if c.OutputDirectory == "" {
		c.OutputDirectory = DefaultOutputDirectory
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}

	watches := []Watch{}
	for _, watch := range c.Watches {
		if watch.MaxMatches == 0 {
			watch.MaxMatches = DefaultMaxMatches
		}
		watches = append(watches, watch)
	}
	c.Watches = watches

	return c
}

func (c Config) Validate() error {
	return validator.New().Struct(c)
}

// LoadConfig reads and validates a YAML collection config
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return config, nil
}
