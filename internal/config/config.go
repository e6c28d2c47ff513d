// Package config provides configuration management for conflictfix.
// It supports YAML or TOML configuration files, environment variables, and
// sensible defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/klauern/conflictfix/internal/repair"
	"github.com/klauern/conflictfix/internal/util"
)

// ErrNoSuffixes is returned when the configuration leaves no eligible suffix.
var ErrNoSuffixes = errors.New("at least one file suffix is required")

// Output formats for reports.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// Config represents the complete conflictfix configuration.
type Config struct {
	// Repair configures which files are processed
	Repair RepairConfig `yaml:"repair" toml:"repair" json:"repair"`

	// Output configures display preferences
	Output OutputConfig `yaml:"output" toml:"output" json:"output"`

	// Backup configures copies of files taken before they are rewritten
	Backup BackupConfig `yaml:"backup" toml:"backup" json:"backup"`
}

// RepairConfig holds tree repair settings.
type RepairConfig struct {
	// Root is the directory repaired when no argument is given
	Root string `yaml:"root" toml:"root" json:"root"`
	// Suffixes lists the eligible file name endings
	Suffixes []string `yaml:"suffixes" toml:"suffixes" json:"suffixes"`
}

// OutputConfig holds display preferences.
type OutputConfig struct {
	// Color controls color output (auto, always, never)
	Color string `yaml:"color" toml:"color" json:"color"`
	// Format is the default scan output format (text, json, yaml)
	Format string `yaml:"format" toml:"format" json:"format"`
	// Progress shows a spinner on stderr while walking
	Progress bool `yaml:"progress" toml:"progress" json:"progress"`
}

// BackupConfig holds backup settings.
type BackupConfig struct {
	// Enabled backs up every file before repair rewrites it
	Enabled bool `yaml:"enabled" toml:"enabled" json:"enabled"`
	// MaxBackups is the number of backups kept per file by cleanup (0 = unlimited)
	MaxBackups int `yaml:"max_backups" toml:"max_backups" json:"max_backups"`
	// MaxAgeDays is how long cleanup keeps backups (0 = forever)
	MaxAgeDays int `yaml:"max_age_days" toml:"max_age_days" json:"max_age_days"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Repair: RepairConfig{
			Root:     ".",
			Suffixes: slices.Clone(repair.DefaultSuffixes),
		},
		Output: OutputConfig{
			Color:    "auto",
			Format:   FormatText,
			Progress: true,
		},
		Backup: BackupConfig{
			Enabled:    false,
			MaxBackups: 10,
			MaxAgeDays: 30,
		},
	}
}

// configFileName is the name of the config file.
const configFileName = "config.yaml"

// FilePath returns the path to the config file.
func FilePath() string {
	return filepath.Join(util.ConfigPath(), configFileName)
}

// Load loads the configuration from the default file, merging with defaults.
// If the config file doesn't exist, returns default configuration.
func Load() (*Config, error) {
	cfg, err := LoadFromPath(FilePath())
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
		cfg.applyEnvironment()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return nil, err
}

// LoadFromPath loads configuration from a specific path. Files ending in
// .toml are parsed as TOML, everything else as YAML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	// #nosec G304 - path is provided by caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if isTOML(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.applyEnvironment()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveToPath(FilePath())
}

// SaveToPath writes the configuration to a specific path, in TOML when the
// path ends in .toml and YAML otherwise.
func (c *Config) SaveToPath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = c.Marshal(FormatTOML)
	} else {
		data, err = c.Marshal(FormatYAML)
	}
	if err != nil {
		return err
	}

	// #nosec G306 - config file should be readable by user
	return os.WriteFile(path, data, 0o644)
}

// Marshal encodes the configuration as YAML or TOML.
func (c *Config) Marshal(format string) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(c)
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
}

// Validate checks the configuration, expands a leading ~ in the root and
// normalizes suffixes.
func (c *Config) Validate() error {
	c.Repair.Root = util.ExpandPath(c.Repair.Root, "")
	if c.Repair.Root == "" {
		c.Repair.Root = "."
	}

	c.Repair.Suffixes = NormalizeSuffixes(c.Repair.Suffixes)
	if len(c.Repair.Suffixes) == 0 {
		return ErrNoSuffixes
	}

	switch c.Output.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("invalid output.color %q (want auto, always or never)", c.Output.Color)
	}

	switch c.Output.Format {
	case FormatText, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("invalid output.format %q (want text, json or yaml)", c.Output.Format)
	}

	if c.Backup.MaxBackups < 0 || c.Backup.MaxAgeDays < 0 {
		return errors.New("backup.max_backups and backup.max_age_days must not be negative")
	}
	return nil
}

// NormalizeSuffixes trims suffixes and drops empty and duplicate entries.
// Suffixes match the end of a file name literally, so ".ts" and "ts" differ.
func NormalizeSuffixes(suffixes []string) []string {
	result := make([]string, 0, len(suffixes))
	for _, s := range suffixes {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !slices.Contains(result, s) {
			result = append(result, s)
		}
	}
	return result
}

// applyEnvironment applies environment variable overrides.
// Environment variables follow the pattern CONFLICTFIX_<SECTION>_<KEY>.
func (c *Config) applyEnvironment() {
	if v := os.Getenv("CONFLICTFIX_ROOT"); v != "" {
		c.Repair.Root = v
	}
	if v := os.Getenv("CONFLICTFIX_SUFFIXES"); v != "" {
		c.Repair.Suffixes = splitList(v)
	}

	if v := os.Getenv("CONFLICTFIX_OUTPUT_COLOR"); v != "" {
		c.Output.Color = v
	}
	if v := os.Getenv("CONFLICTFIX_OUTPUT_FORMAT"); v != "" {
		c.Output.Format = v
	}
	if v := os.Getenv("CONFLICTFIX_PROGRESS"); v != "" {
		c.Output.Progress = parseBool(v)
	}

	if v := os.Getenv("CONFLICTFIX_BACKUP_ENABLED"); v != "" {
		c.Backup.Enabled = parseBool(v)
	}
}

// parseBool parses a boolean from common string representations.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// splitList splits a comma or colon separated list.
// Empty segments are filtered out.
func splitList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ':' })
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
