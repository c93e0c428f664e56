package vcs

import (
	"context"
	stderrors "errors"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"git.home.luguber.info/inful/appstrap/internal/foundation/errors"
	"git.home.luguber.info/inful/appstrap/internal/logfields"
	"git.home.luguber.info/inful/appstrap/internal/tree"
)

const (
	defaultAuthorName  = "appstrap"
	defaultAuthorEmail = "appstrap@localhost"
)

// CommitRecord is the immutable log entry for one committed step.
type CommitRecord struct {
	Step         string    `json:"step"`
	Message      string    `json:"message"`
	Hash         string    `json:"hash"`
	Timestamp    time.Time `json:"timestamp"`
	FilesChanged []string  `json:"files_changed"`
}

// ShortHash returns the abbreviated commit hash.
func (c CommitRecord) ShortHash() string {
	if len(c.Hash) > 8 {
		return c.Hash[:8]
	}
	return c.Hash
}

// Sink stages and commits the working tree.
type Sink interface {
	CommitAll(ctx context.Context, step, message string) (CommitRecord, error)
}

// Author identifies who commits.
type Author struct {
	Name  string
	Email string
}

// Options controls how the repository is opened.
type Options struct {
	// Init creates the repository when the tree is not yet one.
	Init   bool
	Author Author
}

// Repository is a go-git backed Sink for one project tree.
type Repository struct {
	repo   *git.Repository
	tree   *tree.Tree
	author Author
	now    func() time.Time
}

// Open opens the repository at the tree root, initialising it if allowed.
func Open(t *tree.Tree, opts Options) (*Repository, error) {
	repo, err := git.PlainOpen(t.Root())
	if stderrors.Is(err, git.ErrRepositoryNotExists) && opts.Init {
		repo, err = git.PlainInit(t.Root(), false)
		if err == nil {
			slog.Info("Initialized git repository", logfields.Path(t.Root()))
		}
	}
	if err != nil {
		return nil, errors.CommitError("failed to open git repository").
			WithCause(err).
			WithContext("path", t.Root()).
			Build()
	}
	return &Repository{
		repo:   repo,
		tree:   t,
		author: resolveAuthor(repo, opts.Author),
		now:    time.Now,
	}, nil
}

// resolveAuthor fills missing author fields from git configuration, then defaults.
func resolveAuthor(repo *git.Repository, author Author) Author {
	if author.Name == "" || author.Email == "" {
		if cfg, err := repo.ConfigScoped(gitconfig.GlobalScope); err == nil {
			if author.Name == "" {
				author.Name = cfg.User.Name
			}
			if author.Email == "" {
				author.Email = cfg.User.Email
			}
		}
	}
	if author.Name == "" {
		author.Name = defaultAuthorName
	}
	if author.Email == "" {
		author.Email = defaultAuthorEmail
	}
	return author
}

// Author returns the identity used for commits.
func (r *Repository) Author() Author {
	return r.author
}

// GitDir returns the path of the .git directory.
func (r *Repository) GitDir() string {
	return filepath.Join(r.tree.Root(), git.GitDirName)
}

// Head returns the hash HEAD points to, or "" for an unborn branch.
func (r *Repository) Head() (string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		if stderrors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", nil
		}
		return "", errors.CommitError("failed to resolve HEAD").WithCause(err).Build()
	}
	return ref.Hash().String(), nil
}

// CommitAll stages every change in the working tree (additions, modifications
// and deletions) and commits it. A step that changed nothing still gets an
// empty commit so each completed step has exactly one record.
func (r *Repository) CommitAll(ctx context.Context, step, message string) (CommitRecord, error) {
	if err := ctx.Err(); err != nil {
		return CommitRecord{}, errors.CommitError("commit canceled").WithCause(err).Build()
	}
	if message == "" {
		message = step
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return CommitRecord{}, errors.CommitError("failed to get git worktree").WithCause(err).Build()
	}

	status, err := wt.Status()
	if err != nil {
		return CommitRecord{}, errors.CommitError("failed to get git status").WithCause(err).Build()
	}
	files := make([]string, 0, len(status))
	for path, st := range status {
		if st.Worktree == git.Unmodified && st.Staging == git.Unmodified {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return CommitRecord{}, errors.CommitError("failed to stage changes").
			WithCause(err).
			WithContext("step", step).
			Build()
	}

	when := r.now()
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author:            &object.Signature{Name: r.author.Name, Email: r.author.Email, When: when},
		AllowEmptyCommits: true,
	})
	if err != nil {
		return CommitRecord{}, errors.CommitError("failed to commit").
			WithCause(err).
			WithContext("step", step).
			Build()
	}

	rec := CommitRecord{
		Step:         step,
		Message:      message,
		Hash:         hash.String(),
		Timestamp:    when,
		FilesChanged: files,
	}
	slog.Info("Committed step", logfields.Step(step), logfields.Commit(rec.ShortHash()), logfields.Files(len(files)))
	return rec, nil
}
