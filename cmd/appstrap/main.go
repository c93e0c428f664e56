package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/appstrap/cmd/appstrap/commands"
	"git.home.luguber.info/inful/appstrap/internal/foundation/errors"
	"git.home.luguber.info/inful/appstrap/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("appstrap"),
		kong.Description("Bootstrap a freshly generated application by applying a recipe of setup steps, one commit per step."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := parser.Run(&commands.Global{Logger: slog.Default()}, cli)
	os.Exit(errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).Report(err))
}
