package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"rcore/interpreter-go/pkg/interpreter"
)

// ConfigFileName is the file FindConfig looks for.
const ConfigFileName = "rcore.yml"

// ErrConfigNotFound is returned by FindConfig when no rcore.yml exists in
// the start directory or any of its parents.
var ErrConfigNotFound = errors.New("rcore.yml not found")

// Config holds the settings read from rcore.yml.
type Config struct {
	Path     string   `yaml:"-"`
	Digits   int      `yaml:"digits"`
	Width    int      `yaml:"width"`
	Warn     int      `yaml:"warn"`
	LogLevel string   `yaml:"log_level"`
	Suites   []string `yaml:"suites"`
	CacheDir string   `yaml:"cache_dir"`
}

// DefaultConfig returns the settings used when no rcore.yml is present.
func DefaultConfig() *Config {
	opts := interpreter.DefaultOptions()
	return &Config{
		Digits:   opts.Digits,
		Width:    opts.Width,
		Warn:     opts.Warn,
		LogLevel: "info",
		Suites:   []string{"tests"},
		CacheDir: ".rcore",
	}
}

// ValidationError aggregates configuration problems.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "config: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("config validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// LoadConfig reads and validates the config file at path. Fields missing
// from the file keep their defaults; unknown fields are rejected.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", absPath, err)
	}
	defer file.Close()

	cfg, err := DecodeConfig(file)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", absPath, err)
	}
	cfg.Path = absPath
	return cfg, nil
}

// DecodeConfig parses YAML config from r on top of DefaultConfig.
func DecodeConfig(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs ValidationError
	if c.Digits < 1 || c.Digits > 22 {
		errs.Issues = append(errs.Issues, fmt.Sprintf("digits must be between 1 and 22, got %d", c.Digits))
	}
	if c.Width < 10 || c.Width > 10000 {
		errs.Issues = append(errs.Issues, fmt.Sprintf("width must be between 10 and 10000, got %d", c.Width))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs.Issues = append(errs.Issues, err.Error())
	}
	for k, dir := range c.Suites {
		if strings.TrimSpace(dir) == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("suites[%d] must be a non-empty path", k))
		}
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

// InterpreterOptions converts the print and warning settings into the
// interpreter's options() values.
func (c *Config) InterpreterOptions() interpreter.Options {
	return interpreter.Options{Digits: c.Digits, Width: c.Width, Warn: c.Warn}
}

// Resolve interprets a path from the config relative to the directory the
// config file lives in.
func (c *Config) Resolve(path string) string {
	if filepath.IsAbs(path) || c.Path == "" {
		return path
	}
	return filepath.Join(filepath.Dir(c.Path), path)
}

// FindConfig walks upward from start looking for rcore.yml.
func FindConfig(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve start directory %q: %w", start, err)
	}
	if info, statErr := os.Stat(dir); statErr == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	origin := dir
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found from %s upwards: %w", ConfigFileName, origin, ErrConfigNotFound)
		}
		dir = parent
	}
}

// LoadConfigFrom finds and loads the nearest rcore.yml, falling back to
// DefaultConfig when there is none.
func LoadConfigFrom(start string) (*Config, error) {
	path, err := FindConfig(start)
	if errors.Is(err, ErrConfigNotFound) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}
	return LoadConfig(path)
}
