// Package config loads calculation and logging settings from YAML
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vogtb/go-spreadsheet/packages/formula/calc"
	"github.com/vogtb/go-spreadsheet/packages/formula/reference"
)

// Config is the file-level configuration of the engine and its tools
type Config struct {
	RecursionLimit int               `yaml:"recursion_limit"`
	CalcMode       string            `yaml:"calc_mode"`
	Format         string            `yaml:"format"`
	Aliases        map[string]string `yaml:"aliases,omitempty"`
	Log            Log               `yaml:"log"`
	Store          Store             `yaml:"store"`
}

// Log selects the slog handler
type Log struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Store locates the snapshot database
type Store struct {
	Path string `yaml:"path"`
}

// Default returns automatic calculation on the extended grid, info-level
// text logs and a database next to the working directory
func Default() *Config {
	return &Config{
		RecursionLimit: calc.DefaultRecursionLimit,
		CalcMode:       "automatic",
		Format:         "extended",
		Log:            Log{Level: "info", Format: "text"},
		Store:          Store{Path: "ptgcalc.db"},
	}
}

// Parse reads YAML over the defaults. unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Validate checks every field can be turned into settings
func (c *Config) Validate() error {
	if c.RecursionLimit < 0 {
		return fmt.Errorf("config: recursion_limit must not be negative, got %d", c.RecursionLimit)
	}
	if _, err := calc.ParseMode(c.CalcMode); err != nil {
		return fmt.Errorf("config: calc_mode: %w", err)
	}
	if _, err := reference.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("config: format: %w", err)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	for alias, name := range c.Aliases {
		if alias == "" || name == "" {
			return fmt.Errorf("config: aliases: empty function name in %q: %q", alias, name)
		}
	}
	return nil
}

// CalcSettings converts the configuration into engine settings. a zero
// recursion limit selects the default.
func (c *Config) CalcSettings() (calc.Settings, error) {
	mode, err := calc.ParseMode(c.CalcMode)
	if err != nil {
		return calc.Settings{}, fmt.Errorf("config: calc_mode: %w", err)
	}
	format, err := reference.ParseFormat(c.Format)
	if err != nil {
		return calc.Settings{}, fmt.Errorf("config: format: %w", err)
	}
	s := calc.DefaultSettings()
	s.Mode = mode
	s.Format = format
	if c.RecursionLimit > 0 {
		s.RecursionLimit = c.RecursionLimit
	}
	if len(c.Aliases) > 0 {
		s.Aliases = make(map[string]string, len(c.Aliases))
		for alias, name := range c.Aliases {
			s.Aliases[alias] = name
		}
	}
	return s, nil
}

// Logger builds the configured handler writing to w
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("config: log.level: %w", err)
	}
	return level, nil
}

// Marshal renders the configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
