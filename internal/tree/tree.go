package tree

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/appstrap/internal/foundation/errors"
	"git.home.luguber.info/inful/appstrap/internal/logfields"
)

// Tree is the mutable project directory shared by all steps of a pipeline.
type Tree struct {
	root      string
	templates fs.FS
}

// New returns a Tree rooted at root. templates may be nil when the recipe
// performs no copy operations.
func New(root string, templates fs.FS) (*Tree, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to resolve project root").
			WithContext("root", root).
			Build()
	}
	return &Tree{root: filepath.Clean(abs), templates: templates}, nil
}

// NewWithTemplateDir is New with templates served from a directory on disk.
func NewWithTemplateDir(root, templateDir string) (*Tree, error) {
	var templates fs.FS
	if templateDir != "" {
		templates = os.DirFS(templateDir)
	}
	return New(root, templates)
}

// Root returns the absolute project root.
func (t *Tree) Root() string {
	return t.root
}

// Templates returns the template filesystem, or nil if none was configured.
func (t *Tree) Templates() fs.FS {
	return t.templates
}

// Ensure creates the project root if it does not exist.
func (t *Tree) Ensure() error {
	if err := os.MkdirAll(t.root, 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to create project root").
			WithContext("root", t.root).
			Build()
	}
	slog.Debug("Project root ready", logfields.Path(t.root))
	return nil
}

// Resolve maps a tree-relative path to an absolute path inside the root.
// Absolute paths are accepted only if they already lie inside the root.
func (t *Tree) Resolve(rel string) (string, error) {
	if rel == "" {
		return "", errors.ValidationError("empty path").Build()
	}
	var abs string
	if filepath.IsAbs(rel) {
		abs = filepath.Clean(rel)
	} else {
		abs = filepath.Join(t.root, filepath.FromSlash(rel))
	}
	if abs != t.root && !strings.HasPrefix(abs, t.root+string(filepath.Separator)) {
		return "", errors.ValidationError("path escapes project root").
			WithContext("path", rel).
			WithContext("root", t.root).
			Build()
	}
	return abs, nil
}

// Rel returns the slash-separated path of abs relative to the root.
func (t *Tree) Rel(abs string) string {
	rel, err := filepath.Rel(t.root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}

// Exists reports whether the tree-relative path exists.
func (t *Tree) Exists(rel string) bool {
	abs, err := t.Resolve(rel)
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}

// String implements fmt.Stringer.
func (t *Tree) String() string {
	return fmt.Sprintf("tree(%s)", t.root)
}
