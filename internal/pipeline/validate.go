package pipeline

import (
	"fmt"

	"git.home.luguber.info/inful/appstrap/internal/foundation/errors"
	"git.home.luguber.info/inful/appstrap/internal/step"
)

// Validate checks that step names are non-empty and unique and that every
// dependency names a step declared earlier.
func Validate(steps []step.Step) error {
	seen := make(map[string]int, len(steps))
	for i, s := range steps {
		if s.Name == "" {
			return errors.ValidationError("step name must not be empty").
				WithContext("index", i).
				Build()
		}
		if prev, dup := seen[s.Name]; dup {
			return errors.ValidationError(fmt.Sprintf("duplicate step name %q", s.Name)).
				WithContext("first_index", prev).
				WithContext("index", i).
				Build()
		}
		for _, dep := range s.DependsOn {
			if dep == s.Name {
				return errors.ValidationError(fmt.Sprintf("step %q depends on itself", s.Name)).Build()
			}
			if _, ok := seen[dep]; !ok {
				return errors.ValidationError(fmt.Sprintf("step %q depends on %q, which is not declared before it", s.Name, dep)).
					WithContext("step", s.Name).
					WithContext("dependency", dep).
					Build()
			}
		}
		seen[s.Name] = i
	}
	return nil
}
