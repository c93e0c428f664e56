package recipe

import (
	"fmt"
	"maps"
	"path"
	"strings"

	"git.home.luguber.info/inful/appstrap/internal/command"
	"git.home.luguber.info/inful/appstrap/internal/config"
	"git.home.luguber.info/inful/appstrap/internal/foundation/errors"
	"git.home.luguber.info/inful/appstrap/internal/mutate"
	"git.home.luguber.info/inful/appstrap/internal/step"
)

// Compile turns the steps of cfg into pipeline steps.
func Compile(cfg *config.Config) ([]step.Step, error) {
	c := compiler{settings: cfg.Settings}
	steps := make([]step.Step, 0, len(cfg.Steps))
	for _, sc := range cfg.Steps {
		s := step.Step{
			Name:       sc.Name,
			Message:    sc.Message,
			DependsOn:  sc.DependsOn,
			BestEffort: sc.BestEffort,
			Actions:    make([]step.Action, 0, len(sc.Actions)),
		}
		for i, ac := range sc.Actions {
			action, err := c.action(ac)
			if err != nil {
				return nil, errors.WrapError(err, errors.CategoryValidation, "invalid action").
					WithContext("step", sc.Name).
					WithContext("action_index", i).
					Build()
			}
			s.Actions = append(s.Actions, action)
		}
		steps = append(steps, s)
	}
	return steps, nil
}

type compiler struct {
	settings config.Settings
}

func (c compiler) action(a config.ActionConfig) (step.Action, error) {
	switch {
	case a.Insert != nil:
		return mutation(mutate.Request{Target: a.Insert.File, Op: mutate.OpInsertAfter, Marker: a.Insert.After, Payload: a.Insert.Content})
	case a.Append != nil:
		return mutation(mutate.Request{Target: a.Append.File, Op: mutate.OpAppend, Payload: a.Append.Content})
	case a.Create != nil:
		return mutation(mutate.Request{Target: a.Create.File, Op: mutate.OpOverwrite, Payload: a.Create.Content})
	case a.Remove != nil:
		return mutation(mutate.Request{Target: a.Remove.File, Op: mutate.OpDelete, IgnoreMissing: a.Remove.IgnoreMissing})
	case a.Copy != nil:
		return mutation(mutate.Request{Target: a.Copy.File, Op: mutate.OpCopy, Payload: a.Copy.Source, Force: a.Copy.Force})
	case a.Directory != nil:
		return mutation(mutate.Request{Target: a.Directory.File, Op: mutate.OpCopyDir, Payload: a.Directory.Source, Force: a.Directory.Force})
	case a.Uncomment != nil:
		return mutation(mutate.Request{Target: a.Uncomment.File, Op: mutate.OpUncomment, Payload: a.Uncomment.Pattern})
	case a.Run != nil:
		return c.run(a.Run)
	case a.Gem != nil:
		if a.Gem.Name == "" {
			return nil, errors.ValidationError("gem requires a name").Build()
		}
		return mutation(mutate.Request{Target: gemfile, Op: mutate.OpAppend, Payload: gemLine(a.Gem.Name, a.Gem.Version, a.Gem.Options) + "\n"})
	case a.GemGroup != nil:
		return gemGroup(a.GemGroup)
	case a.Generate != nil:
		if a.Generate.Generator == "" {
			return nil, errors.ValidationError("generate requires a generator").Build()
		}
		args := append([]string{"generate"}, strings.Fields(a.Generate.Generator)...)
		return c.command(railsBin, append(args, a.Generate.Args...), a.Generate.CommandOptions)
	case a.RailsCommand != nil:
		args := strings.Fields(a.RailsCommand.Command)
		if len(args) == 0 {
			return nil, errors.ValidationError("rails_command requires a command").Build()
		}
		return c.command(railsBin, args, a.RailsCommand.CommandOptions)
	case a.Route != nil:
		if strings.TrimSpace(a.Route.Route) == "" {
			return nil, errors.ValidationError("route must not be empty").Build()
		}
		return mutation(mutate.Request{Target: routesFile, Op: mutate.OpInsertAfter, Marker: routesMarker, Payload: indentCode(a.Route.Route, 2)})
	case a.Environment != nil:
		return environment(a.Environment)
	case a.Initializer != nil:
		return fileUnder(initializersDir, a.Initializer)
	case a.Lib != nil:
		return fileUnder(libDir, a.Lib)
	case a.Say != nil:
		return step.Say{Message: a.Say.Message}, nil
	default:
		return nil, errors.ValidationError("action has no kind").Build()
	}
}

func mutation(req mutate.Request) (step.Action, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return step.Mutation{Request: req}, nil
}

func (c compiler) run(r *config.RunAction) (step.Action, error) {
	switch {
	case r.Command != "" && len(r.Argv) > 0:
		return nil, errors.ValidationError("run takes either command or argv, not both").Build()
	case len(r.Argv) > 0:
		return c.command(r.Argv[0], r.Argv[1:], r.CommandOptions)
	case strings.TrimSpace(r.Command) != "":
		return c.command(c.settings.Shell, []string{"-c", r.Command}, r.CommandOptions)
	default:
		return nil, errors.ValidationError("run requires command or argv").Build()
	}
}

func (c compiler) command(executable string, args []string, opts config.CommandOptions) (step.Action, error) {
	if opts.Timeout < 0 {
		return nil, errors.ValidationError("timeout must not be negative").Build()
	}
	var env map[string]string
	if len(c.settings.CommandEnv) > 0 || len(opts.Env) > 0 {
		env = make(map[string]string, len(c.settings.CommandEnv)+len(opts.Env))
		maps.Copy(env, c.settings.CommandEnv)
		maps.Copy(env, opts.Env)
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = c.settings.CommandTimeout
	}
	return step.Command{Spec: command.Spec{
		Executable:        executable,
		Args:              args,
		Dir:               opts.Dir,
		ExpectedExitCodes: opts.ExpectExit,
		Timeout:           timeout,
		Env:               env,
	}}, nil
}

func gemGroup(g *config.GemGroupAction) (step.Action, error) {
	if len(g.Groups) == 0 || len(g.Gems) == 0 {
		return nil, errors.ValidationError("gem_group requires groups and gems").Build()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\ngroup %s do\n", groupSymbols(g.Groups))
	for _, gem := range g.Gems {
		if gem.Name == "" {
			return nil, errors.ValidationError("gem in gem_group requires a name").Build()
		}
		b.WriteString("  " + gemLine(gem.Name, gem.Version, gem.Options) + "\n")
	}
	b.WriteString("end\n")
	return mutation(mutate.Request{Target: gemfile, Op: mutate.OpAppend, Payload: b.String()})
}

func environment(e *config.EnvironmentAction) (step.Action, error) {
	if strings.TrimSpace(e.Content) == "" {
		return nil, errors.ValidationError("environment content must not be empty").Build()
	}
	if e.Env == "" {
		return mutation(mutate.Request{Target: applicationFile, Op: mutate.OpInsertAfter, Marker: applicationMarker, Payload: indentCode(e.Content, 4)})
	}
	if strings.ContainsAny(e.Env, `/\`) {
		return nil, errors.ValidationError(fmt.Sprintf("invalid environment name %q", e.Env)).Build()
	}
	target := path.Join(environmentsDir, e.Env+".rb")
	return mutation(mutate.Request{Target: target, Op: mutate.OpInsertAfter, Marker: configureMarker, Payload: indentCode(e.Content, 2)})
}

func fileUnder(dir string, f *config.FileAction) (step.Action, error) {
	if f.File == "" {
		return nil, errors.ValidationError("file name must not be empty").Build()
	}
	return mutation(mutate.Request{Target: path.Join(dir, f.File), Op: mutate.OpOverwrite, Payload: indentCode(f.Content, 0)})
}
