// Package config loads the YAML settings shared by the command line tools.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/chazu/csgtrack/pkg/logging"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned for settings outside their allowed range.
var ErrInvalid = errors.New("invalid configuration")

// Duration is a time.Duration written as "5s" or "250ms" in YAML.
type Duration time.Duration

// UnmarshalYAML reads a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML writes the duration string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Tracking configures ray tracking.
type Tracking struct {
	MaxHops int  `yaml:"max_hops"`
	Verbose bool `yaml:"verbose"`
	Workers int  `yaml:"workers"`
}

// Rule configures rule evaluation.
type Rule struct {
	MaxPairedSurfaces int `yaml:"max_paired_surfaces"`
}

// Engine configures model script evaluation.
type Engine struct {
	Timeout Duration `yaml:"timeout"`
	// Materials is an optional material YAML file preloaded into every
	// model.
	Materials string `yaml:"materials"`
}

// Log configures the logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the full settings document.
type Config struct {
	Tracking Tracking `yaml:"tracking"`
	Rule     Rule     `yaml:"rule"`
	Engine   Engine   `yaml:"engine"`
	Log      Log      `yaml:"log"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Tracking: Tracking{MaxHops: 100000, Workers: 4},
		Rule:     Rule{MaxPairedSurfaces: 10},
		Engine:   Engine{Timeout: Duration(5 * time.Second)},
		Log:      Log{Level: "info", Format: "text"},
	}
}

// Parse reads a YAML document. Unknown keys are rejected; absent or zero
// settings take their defaults.
func Parse(data []byte) (Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	c.fillDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Load reads the YAML file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.Tracking.MaxHops == 0 {
		c.Tracking.MaxHops = d.Tracking.MaxHops
	}
	if c.Tracking.Workers == 0 {
		c.Tracking.Workers = d.Tracking.Workers
	}
	if c.Rule.MaxPairedSurfaces == 0 {
		c.Rule.MaxPairedSurfaces = d.Rule.MaxPairedSurfaces
	}
	if c.Engine.Timeout == 0 {
		c.Engine.Timeout = d.Engine.Timeout
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// Validate rejects out-of-range settings.
func (c Config) Validate() error {
	switch {
	case c.Tracking.MaxHops < 0:
		return fmt.Errorf("config: tracking.max_hops %d: %w", c.Tracking.MaxHops, ErrInvalid)
	case c.Tracking.Workers < 0:
		return fmt.Errorf("config: tracking.workers %d: %w", c.Tracking.Workers, ErrInvalid)
	case c.Rule.MaxPairedSurfaces < 0 || c.Rule.MaxPairedSurfaces > 20:
		return fmt.Errorf("config: rule.max_paired_surfaces %d not in [0,20]: %w", c.Rule.MaxPairedSurfaces, ErrInvalid)
	case c.Engine.Timeout < 0:
		return fmt.Errorf("config: engine.timeout %s: %w", time.Duration(c.Engine.Timeout), ErrInvalid)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w: %w", err, ErrInvalid)
	}
	switch logging.Format(c.Log.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("config: log.format %q: %w", c.Log.Format, ErrInvalid)
	}
	return nil
}

// Logging converts the log section for logging.New. The config must be
// valid.
func (c Config) Logging(out io.Writer) logging.Config {
	lvl, _ := logging.ParseLevel(c.Log.Level)
	return logging.Config{Level: lvl, Format: logging.Format(c.Log.Format), Output: out}
}

// Marshal renders c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
