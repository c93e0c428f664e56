package helpers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"git.home.luguber.info/inful/appstrap/internal/tree"
)

// SetupGitTree initializes a temporary git repository and returns it together
// with a project tree rooted at the same directory.
func SetupGitTree(t *testing.T) (*git.Repository, *tree.Tree) {
	t.Helper()

	tempDir := t.TempDir()

	repo, err := git.PlainInit(tempDir, false)
	if err != nil {
		t.Fatalf("failed to initialize git repo: %v", err)
	}

	tr, err := tree.New(tempDir, nil)
	if err != nil {
		t.Fatalf("failed to create project tree: %v", err)
	}

	return repo, tr
}

// WriteFile writes content below root, creating parent directories.
func WriteFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		t.Fatalf("failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", rel, err)
	}
}

// CommitMessages returns the messages on HEAD's history, newest first.
// An unborn branch yields nil.
func CommitMessages(t *testing.T, repo *git.Repository) []string {
	t.Helper()

	head, err := repo.Head()
	if err != nil {
		return nil
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		t.Fatalf("failed to read git log: %v", err)
	}
	var messages []string
	err = iter.ForEach(func(c *object.Commit) error {
		messages = append(messages, c.Message)
		return nil
	})
	if err != nil {
		t.Fatalf("failed to iterate git log: %v", err)
	}
	return messages
}
