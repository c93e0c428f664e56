package commands

import (
	"context"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/appstrap/internal/config"
	"git.home.luguber.info/inful/appstrap/internal/logfields"
	"git.home.luguber.info/inful/appstrap/internal/pipeline"
	"git.home.luguber.info/inful/appstrap/internal/recipe"
)

// StepsCmd implements the 'steps' command.
type StepsCmd struct {
	Root string `help:"Project root (overrides settings.root)" type:"path"`
}

func (s *StepsCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	steps, err := recipe.Compile(cfg)
	if err != nil {
		return err
	}
	tr, err := projectTree(cfg, s.Root)
	if err != nil {
		return err
	}

	opts := []pipeline.Option{pipeline.WithDryRun(true), pipeline.WithLogger(g.logger())}
	store, err := existingStore(tr)
	if err != nil {
		return err
	}
	if store != nil {
		defer func() {
			if err := store.Close(); err != nil {
				g.logger().Warn("Failed to close checkpoint store", logfields.Error(err))
			}
		}()
		opts = append(opts, pipeline.WithCheckpoints(store, false))
	}

	p, err := pipeline.New(steps, nil, opts...)
	if err != nil {
		return err
	}
	statuses, err := p.Plan(context.Background())
	if err != nil {
		return err
	}

	width := len("STEP")
	for _, st := range statuses {
		width = max(width, len(st.Name))
	}
	out := g.out()
	_, _ = fmt.Fprintf(out, "%3s  %-*s  %-9s  %-8s  %s\n", "#", width, "STEP", "STATUS", "COMMIT", "DEPENDS ON")
	for i, st := range statuses {
		status := "pending"
		if st.Reason == "checkpoint" {
			status = "done"
		}
		commit := st.Commit
		if len(commit) > 8 {
			commit = commit[:8]
		}
		if commit == "" {
			commit = "-"
		}
		deps := strings.Join(st.DependsOn, ",")
		if deps == "" {
			deps = "-"
		}
		_, _ = fmt.Fprintf(out, "%3d  %-*s  %-9s  %-8s  %s\n", i+1, width, st.Name, status, commit, deps)
	}
	return nil
}
