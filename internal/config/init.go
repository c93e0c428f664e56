package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/appstrap/internal/foundation/errors"
)

// Init writes a small example recipe to path.
func Init(path string, force bool) error {
	example := Config{
		Settings: Settings{
			Root:           ".",
			TemplateDir:    "template",
			CommandTimeout: DefaultCommandTimeout,
		},
		Steps: []StepConfig{
			{
				Name:    "setup",
				Message: "Initial commit",
				Actions: []ActionConfig{
					{Insert: &InsertAction{File: ".gitignore", Content: ".DS_Store\n"}},
				},
			},
			{
				Name:      "gems",
				Message:   "add gems",
				DependsOn: []string{"setup"},
				Actions: []ActionConfig{
					{Gem: &GemAction{Name: "devise"}},
					{GemGroup: &GemGroupAction{Groups: []string{"development"}, Gems: []GemAction{{Name: "letter_opener"}}}},
					{Run: &RunAction{Command: "bundle install"}},
				},
			},
			{
				Name:      "devise",
				Message:   "setup devise",
				DependsOn: []string{"gems"},
				Actions: []ActionConfig{
					{Generate: &GenerateAction{Generator: "devise:install"}},
					{Route: &RouteAction{Route: "root to: 'home#index'"}},
					{Environment: &EnvironmentAction{
						Content: "config.action_mailer.default_url_options = { host: 'localhost', port: 3000 }",
						Env:     "development",
					}},
				},
			},
		},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return errors.InternalError("failed to marshal example config").WithCause(err).Build()
	}
	return Write(path, data, force)
}

// Write writes recipe data to path, refusing to replace an existing file
// unless force is set.
func Write(path string, data []byte, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).
			Build()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to create config directory").
				WithContext("path", dir).
				Build()
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write config file").
			WithContext("path", path).
			Build()
	}
	return nil
}
