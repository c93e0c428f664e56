package config

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/appstrap/internal/foundation"
)

// Validate checks settings and the structural shape of the steps. Per-kind
// action fields are checked when the recipe is compiled.
func Validate(cfg *Config) error {
	return foundation.NewValidatorChain[*Config](
		validateSettings,
		validateSteps,
	).Validate(cfg).ToError()
}

func validateSettings(cfg *Config) foundation.ValidationResult {
	result := foundation.Valid()
	if cfg.Settings.CommandTimeout < 0 {
		result = result.Combine(foundation.Invalid(foundation.NewValidationError(
			"settings.command_timeout", "negative", "must not be negative")))
	}
	if strings.TrimSpace(cfg.Settings.Root) == "" {
		result = result.Combine(foundation.Invalid(foundation.NewValidationError(
			"settings.root", "required", "must not be empty")))
	}
	return result
}

func validateSteps(cfg *Config) foundation.ValidationResult {
	if len(cfg.Steps) == 0 {
		return foundation.Invalid(foundation.NewValidationError("steps", "required", "at least one step is required"))
	}
	result := foundation.Valid()
	seen := make(map[string]bool, len(cfg.Steps))
	for i, s := range cfg.Steps {
		field := fmt.Sprintf("steps[%d]", i)
		switch {
		case s.Name == "":
			result = result.Combine(foundation.Invalid(foundation.NewValidationError(field+".name", "required", "must not be empty")))
		case seen[s.Name]:
			result = result.Combine(foundation.Invalid(foundation.NewValidationError(field+".name", "duplicate", fmt.Sprintf("duplicate step name %q", s.Name))))
		}
		seen[s.Name] = true

		for j, a := range s.Actions {
			if kinds := a.Kinds(); len(kinds) != 1 {
				result = result.Combine(foundation.Invalid(foundation.NewValidationError(
					fmt.Sprintf("%s.actions[%d]", field, j),
					"kind",
					fmt.Sprintf("exactly one action kind required, got %d (%s)", len(kinds), strings.Join(kinds, ", ")),
				)))
			}
		}
	}
	return result
}
