// Package config loads tinycol settings from YAML.
//
// A configuration file looks like:
//
//	log:
//	  level: info
//	  format: json
//	  output: stderr
//	text:
//	  intern: true
//	driver:
//	  max_readers: 8
//	  max_writers: 1
//	  busy_timeout: 250ms
//
// Missing keys keep their defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/SimonWaldherr/tinycol/internal/logging"
)

// Config is the complete set of engine, logging and driver settings.
type Config struct {
	Log    Log    `yaml:"log"`
	Text   Text   `yaml:"text"`
	Driver Driver `yaml:"driver"`
}

// Log configures the structured logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Text configures stored text.
type Text struct {
	// Intern deduplicates equal text payloads through the shared pool.
	Intern bool `yaml:"intern"`
}

// Driver configures database/sql connection throttling.
type Driver struct {
	MaxReaders  int      `yaml:"max_readers"`
	MaxWriters  int      `yaml:"max_writers"`
	BusyTimeout Duration `yaml:"busy_timeout"`
}

// Duration is a time.Duration written as "250ms" in YAML.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (any, error) { return time.Duration(d).String(), nil }

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", n.Line, s, err)
	}
	*d = Duration(v)
	return nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:  Log{Level: "warn", Format: "text", Output: "stderr"},
		Text: Text{Intern: true},
		Driver: Driver{
			MaxReaders:  4,
			MaxWriters:  1,
			BusyTimeout: Duration(250 * time.Millisecond),
		},
	}
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses a YAML file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format: must be text or json, got %q", c.Log.Format)
	}
	if c.Driver.MaxReaders < 0 {
		return fmt.Errorf("driver.max_readers: must be >= 0, got %d", c.Driver.MaxReaders)
	}
	if c.Driver.MaxWriters < 0 {
		return fmt.Errorf("driver.max_writers: must be >= 0, got %d", c.Driver.MaxWriters)
	}
	if c.Driver.BusyTimeout < 0 {
		return fmt.Errorf("driver.busy_timeout: must not be negative")
	}
	return nil
}

// LoggingConfig converts the log section for the logging package.
func (c Config) LoggingConfig() logging.Config {
	return logging.Config{Level: c.Log.Level, Format: c.Log.Format, Output: c.Log.Output}
}
