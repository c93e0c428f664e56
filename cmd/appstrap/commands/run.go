package commands

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/appstrap/internal/checkpoint"
	"git.home.luguber.info/inful/appstrap/internal/command"
	"git.home.luguber.info/inful/appstrap/internal/config"
	"git.home.luguber.info/inful/appstrap/internal/logfields"
	"git.home.luguber.info/inful/appstrap/internal/metrics"
	"git.home.luguber.info/inful/appstrap/internal/mutate"
	"git.home.luguber.info/inful/appstrap/internal/pipeline"
	"git.home.luguber.info/inful/appstrap/internal/recipe"
	"git.home.luguber.info/inful/appstrap/internal/step"
	"git.home.luguber.info/inful/appstrap/internal/vcs"
)

// RunCmd implements the 'run' command.
type RunCmd struct {
	DryRun      bool   `name:"dry-run" help:"Log what each step would do without changing anything"`
	FromStep    string `name:"from-step" help:"Start at the named step, skipping earlier ones"`
	Fresh       bool   `help:"Ignore and clear checkpoints from earlier runs"`
	Root        string `help:"Project root (overrides settings.root)" type:"path"`
	MetricsFile string `name:"metrics-file" help:"Write Prometheus metrics to this file after the run" type:"path"`
}

func (r *RunCmd) Run(g *Global, root *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	return r.execute(ctx, g, cfg)
}

func (r *RunCmd) execute(ctx context.Context, g *Global, cfg *config.Config) error {
	logger := g.logger()

	steps, err := recipe.Compile(cfg)
	if err != nil {
		return err
	}
	tr, err := projectTree(cfg, r.Root)
	if err != nil {
		return err
	}

	reg := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)
	if r.MetricsFile != "" {
		defer func() {
			if err := metrics.WriteTextfile(reg, r.MetricsFile); err != nil {
				logger.Warn("Failed to write metrics file", logfields.Path(r.MetricsFile), logfields.Error(err))
			}
		}()
	}

	opts := []pipeline.Option{
		pipeline.WithDryRun(r.DryRun),
		pipeline.WithFromStep(r.FromStep),
		pipeline.WithRecorder(recorder),
		pipeline.WithLogger(logger),
	}

	var runner *step.Runner
	var store checkpoint.Store
	if r.DryRun {
		store, err = existingStore(tr)
		if err != nil {
			return err
		}
	} else {
		if err := tr.Ensure(); err != nil {
			return err
		}
		repo, err := vcs.Open(tr, vcs.Options{Init: true, Author: vcs.Author(cfg.Settings.Author)})
		if err != nil {
			return err
		}
		store, err = checkpoint.NewSQLiteStore(checkpointPath(tr))
		if err != nil {
			return err
		}
		runner = step.NewRunner(step.Env{
			Mutator:  mutate.New(tr),
			Commands: command.NewExecRunner(tr, cfg.Settings.CommandTimeout).WithLogger(logger),
			Recorder: recorder,
			Logger:   logger,
		}, repo)
	}
	if store != nil {
		defer func() {
			if err := store.Close(); err != nil {
				logger.Warn("Failed to close checkpoint store", logfields.Error(err))
			}
		}()
		opts = append(opts, pipeline.WithCheckpoints(store, r.Fresh))
	}

	p, err := pipeline.New(steps, runner, opts...)
	if err != nil {
		return err
	}
	commits, err := p.Run(ctx)
	if err != nil {
		var pe *pipeline.PipelineError
		if stderrors.As(err, &pe) {
			logger.Error("Step failed",
				logfields.Step(pe.FailedStep),
				slog.Int("committed", len(pe.Partial)),
				logfields.Error(pe.Cause))
		}
		return err
	}

	out := g.out()
	for _, c := range commits {
		_, _ = fmt.Fprintf(out, "%s %s: %s\n", c.ShortHash(), c.Step, c.Message)
	}
	return nil
}
