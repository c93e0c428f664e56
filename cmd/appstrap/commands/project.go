package commands

import (
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/appstrap/internal/checkpoint"
	"git.home.luguber.info/inful/appstrap/internal/config"
	"git.home.luguber.info/inful/appstrap/internal/tree"
	"github.com/go-git/go-git/v5"
)

// projectTree builds the tree for cfg. A non-empty rootOverride replaces
// settings.root.
func projectTree(cfg *config.Config, rootOverride string) (*tree.Tree, error) {
	root := cfg.RootDir()
	if rootOverride != "" {
		root = rootOverride
	}
	return tree.NewWithTemplateDir(root, cfg.TemplateDir())
}

// checkpointPath is the checkpoint database location for a tree.
func checkpointPath(t *tree.Tree) string {
	return filepath.Join(t.Root(), git.GitDirName, checkpoint.FileName)
}

// existingStore opens the checkpoint database of t if one was created by an
// earlier run. It returns nil without error when there is none.
func existingStore(t *tree.Tree) (checkpoint.Store, error) {
	path := checkpointPath(t)
	if _, err := os.Stat(path); err != nil {
		return nil, nil //nolint:nilerr // no database yet
	}
	store, err := checkpoint.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	return store, nil
}
