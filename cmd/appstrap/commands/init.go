package commands

import (
	"fmt"

	"git.home.luguber.info/inful/appstrap/internal/config"
	"git.home.luguber.info/inful/appstrap/internal/recipe"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing recipe file"`
	Rails bool `help:"Write the full Rails starter recipe instead of the small example"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	out := g.out()
	_, _ = fmt.Fprintf(out, "Writing recipe to %s\n", root.Config)
	var err error
	if i.Rails {
		err = recipe.InitRails(root.Config, i.Force)
	} else {
		err = config.Init(root.Config, i.Force)
	}
	if err != nil {
		_, _ = fmt.Fprintln(out, "Initialization failed")
		return err
	}
	_, _ = fmt.Fprintln(out, "initialized successfully")
	return nil
}
