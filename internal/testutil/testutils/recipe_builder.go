package helpers

import (
	"os"
	"testing"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/appstrap/internal/config"
)

// RecipeBuilder provides a fluent interface for creating test recipes.
type RecipeBuilder struct {
	config *config.Config
	t      *testing.T
}

// NewRecipeBuilder creates a new recipe builder for tests.
func NewRecipeBuilder(t *testing.T) *RecipeBuilder {
	return &RecipeBuilder{
		config: &config.Config{
			Settings: config.Settings{
				Root:   ".",
				Author: config.Author{Name: "Test", Email: "test@example.com"},
			},
		},
		t: t,
	}
}

// WithRoot sets settings.root.
func (rb *RecipeBuilder) WithRoot(root string) *RecipeBuilder {
	rb.config.Settings.Root = root
	return rb
}

// WithTemplateDir sets settings.template_dir.
func (rb *RecipeBuilder) WithTemplateDir(dir string) *RecipeBuilder {
	rb.config.Settings.TemplateDir = dir
	return rb
}

// WithStep appends a step.
func (rb *RecipeBuilder) WithStep(name string, actions ...config.ActionConfig) *RecipeBuilder {
	rb.config.Steps = append(rb.config.Steps, config.StepConfig{Name: name, Actions: actions})
	return rb
}

// WithBestEffortStep appends a step whose command failures are tolerated.
func (rb *RecipeBuilder) WithBestEffortStep(name string, actions ...config.ActionConfig) *RecipeBuilder {
	rb.config.Steps = append(rb.config.Steps, config.StepConfig{Name: name, BestEffort: true, Actions: actions})
	return rb
}

// Build returns the built recipe.
func (rb *RecipeBuilder) Build() *config.Config {
	return rb.config
}

// BuildAndSave builds the recipe and saves it to a file.
func (rb *RecipeBuilder) BuildAndSave(filePath string) *config.Config {
	data, err := yaml.Marshal(rb.config)
	if err != nil {
		rb.t.Fatalf("Failed to marshal recipe: %v", err)
	}
	if err := os.WriteFile(filePath, data, 0o600); err != nil {
		rb.t.Fatalf("Failed to save recipe to %s: %v", filePath, err)
	}
	return rb.config
}

// Append is an append action.
func Append(file, content string) config.ActionConfig {
	return config.ActionConfig{Append: &config.FileAction{File: file, Content: content}}
}

// Shell is a run action executed through the shell.
func Shell(command string) config.ActionConfig {
	return config.ActionConfig{Run: &config.RunAction{Command: command}}
}

// Copy is a copy action taking the template resource of the same name.
func Copy(file string) config.ActionConfig {
	return config.ActionConfig{Copy: &config.CopyAction{File: file}}
}
