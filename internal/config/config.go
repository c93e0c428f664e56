// Package config loads the YAML recipe that drives a bootstrap run: global
// settings plus the ordered steps and their actions.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/appstrap/internal/foundation/errors"
)

// DefaultPath is the recipe file used when none is given.
const DefaultPath = "appstrap.yaml"

// DefaultCommandTimeout bounds each external command unless overridden.
const DefaultCommandTimeout = 10 * time.Minute

// Config is a parsed recipe.
type Config struct {
	Settings Settings     `yaml:"settings"`
	Steps    []StepConfig `yaml:"steps"`

	// dir is the directory of the recipe file; relative paths resolve against it.
	dir string
}

// Settings holds run-wide options. Every field can be overridden from the
// environment with the APPSTRAP_ prefix (nested keys joined by "__").
type Settings struct {
	Root           string            `yaml:"root,omitempty" koanf:"root"`
	TemplateDir    string            `yaml:"template_dir,omitempty" koanf:"template_dir"`
	CommandTimeout time.Duration     `yaml:"command_timeout,omitempty" koanf:"command_timeout"`
	Shell          string            `yaml:"shell,omitempty" koanf:"shell"`
	Author         Author            `yaml:"author,omitempty" koanf:"author"`
	CommandEnv     map[string]string `yaml:"command_env,omitempty" koanf:"command_env"`
}

// Author is the identity recorded on commits. Empty fields fall back to the
// git configuration.
type Author struct {
	Name  string `yaml:"name,omitempty" koanf:"name"`
	Email string `yaml:"email,omitempty" koanf:"email"`
}

// StepConfig declares one step.
type StepConfig struct {
	Name       string         `yaml:"name"`
	Message    string         `yaml:"message,omitempty"`
	DependsOn  []string       `yaml:"depends_on,omitempty"`
	BestEffort bool           `yaml:"best_effort,omitempty"`
	Actions    []ActionConfig `yaml:"actions"`
}

// Load loads a recipe from path. A .env file in the working directory is
// loaded first, ${VAR} references in the file are expanded, defaults applied
// and APPSTRAP_* environment overrides merged into the settings.
func Load(path string) (*Config, error) {
	loadEnvFile()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError("configuration file not found").
				WithContext("path", path).
				Build()
		}
		return nil, errors.ConfigError("failed to read config file").
			WithCause(err).
			WithContext("path", path).
			Build()
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to parse config file").
			WithContext("path", path).
			Build()
	}
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, errors.ConfigError("failed to resolve config directory").WithCause(err).Build()
	}
	cfg.dir = abs

	if err := applyEnvOverrides(&cfg.Settings); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes recipe YAML after environment expansion and applies defaults.
// Relative paths resolve against the working directory.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(expandEnv(string(data))), &cfg); err != nil {
		return nil, errors.ConfigError("failed to unmarshal config").WithCause(err).Build()
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Settings.Root == "" {
		cfg.Settings.Root = "."
	}
	if cfg.Settings.CommandTimeout == 0 {
		cfg.Settings.CommandTimeout = DefaultCommandTimeout
	}
	if cfg.Settings.Shell == "" {
		cfg.Settings.Shell = "/bin/sh"
	}
}

// Resolve returns p made absolute against the recipe directory.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	if c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// RootDir returns the project tree root.
func (c *Config) RootDir() string {
	return c.Resolve(c.Settings.Root)
}

// TemplateDir returns the template resource directory, or "" when unset.
func (c *Config) TemplateDir() string {
	return c.Resolve(c.Settings.TemplateDir)
}

// StepNames lists the declared step names in order.
func (c *Config) StepNames() []string {
	names := make([]string, len(c.Steps))
	for i, s := range c.Steps {
		names[i] = s.Name
	}
	return names
}
