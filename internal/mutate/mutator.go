package mutate

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/appstrap/internal/foundation/errors"
	"git.home.luguber.info/inful/appstrap/internal/logfields"
	"git.home.luguber.info/inful/appstrap/internal/tree"
)

// Mutator applies Requests to one project tree.
type Mutator struct {
	tree *tree.Tree
}

// New returns a Mutator confined to t.
func New(t *tree.Tree) *Mutator {
	return &Mutator{tree: t}
}

// Apply performs req. Every write stays inside req.Target (or, for OpCopyDir,
// below it).
func (m *Mutator) Apply(req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, errors.WrapError(err, errors.CategoryValidation, "invalid mutation").Build()
	}
	abs, err := m.tree.Resolve(req.Target)
	if err != nil {
		return Result{}, err
	}

	var res Result
	switch req.Op {
	case OpInsertAfter:
		if req.Marker == "" {
			res, err = m.appendText(abs, req)
		} else {
			res, err = m.insertAfter(abs, req)
		}
	case OpAppend:
		res, err = m.appendText(abs, req)
	case OpOverwrite:
		res, err = m.overwrite(abs, req)
	case OpDelete:
		res, err = m.remove(abs, req)
	case OpCopy:
		res, err = m.copyFile(abs, req.source(), req)
	case OpCopyDir:
		res, err = m.copyDir(abs, req)
	case OpUncomment:
		res, err = m.uncomment(abs, req)
	}
	if err != nil {
		return Result{}, err
	}

	if res.Changed() {
		slog.Debug("Mutation applied", logfields.Action(req.Describe()), logfields.Files(len(res.Touched)))
	} else {
		slog.Debug("Mutation already satisfied", logfields.Action(req.Describe()))
	}
	return res, nil
}

func (m *Mutator) insertAfter(abs string, req Request) (Result, error) {
	content, err := m.readExisting(abs, req)
	if err != nil {
		return Result{}, err
	}
	idx := strings.Index(content, req.Marker)
	if idx < 0 {
		return Result{}, failure(req, ErrMarkerNotFound, "insert marker not found").
			WithContext("marker", req.Marker).
			Build()
	}
	at := idx + len(req.Marker)
	if containsLine(content[at:], req.Payload) {
		return Result{}, nil
	}
	updated := content[:at] + req.Payload + content[at:]
	return m.write(abs, req, []byte(updated), len(req.Payload))
}

func (m *Mutator) appendText(abs string, req Request) (Result, error) {
	data, err := os.ReadFile(abs)
	switch {
	case err == nil:
	case stderrors.Is(err, fs.ErrNotExist):
		data = nil
	default:
		return Result{}, ioFailure(req, err, "read target")
	}
	if containsLine(string(data), req.Payload) {
		return Result{}, nil
	}
	payload := req.Payload
	if len(data) > 0 && data[len(data)-1] != '\n' && !strings.HasPrefix(payload, "\n") {
		payload = "\n" + payload
	}
	updated := append(data, payload...)
	return m.write(abs, req, updated, len(payload))
}

// containsLine reports whether payload occurs in content starting at the
// beginning of a line. Occurrences inside a longer line (a commented-out
// copy, say) do not count.
func containsLine(content, payload string) bool {
	for off := 0; off < len(content); {
		i := strings.Index(content[off:], payload)
		if i < 0 {
			return false
		}
		at := off + i
		if at == 0 || content[at-1] == '\n' || strings.HasPrefix(payload, "\n") {
			return true
		}
		off = at + 1
	}
	return false
}

func (m *Mutator) overwrite(abs string, req Request) (Result, error) {
	existing, err := os.ReadFile(abs)
	switch {
	case err == nil:
		if string(existing) == req.Payload {
			return Result{}, nil
		}
	case stderrors.Is(err, fs.ErrNotExist):
		if req.MustExist && !req.Force {
			return Result{}, failure(req, ErrTargetMissing, "overwrite target does not exist").Build()
		}
	default:
		return Result{}, ioFailure(req, err, "read target")
	}
	return m.write(abs, req, []byte(req.Payload), len(req.Payload))
}

func (m *Mutator) remove(abs string, req Request) (Result, error) {
	info, err := os.Lstat(abs)
	if stderrors.Is(err, fs.ErrNotExist) {
		if req.IgnoreMissing {
			return Result{}, nil
		}
		return Result{}, failure(req, ErrTargetMissing, "delete target does not exist").Build()
	}
	if err != nil {
		return Result{}, ioFailure(req, err, "stat target")
	}
	if info.IsDir() {
		return Result{}, errors.ValidationError("delete target is a directory").
			WithContext("file", req.Target).
			Build()
	}
	if err := os.Remove(abs); err != nil {
		return Result{}, ioFailure(req, err, "remove target")
	}
	return Result{Touched: []string{m.tree.Rel(abs)}, BytesChanged: int(info.Size())}, nil
}

func (m *Mutator) copyFile(abs, source string, req Request) (Result, error) {
	templates := m.tree.Templates()
	if templates == nil {
		return Result{}, errors.ConfigError("no template directory configured").
			WithContext("source", source).
			Build()
	}
	data, err := fs.ReadFile(templates, path.Clean(source))
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return Result{}, failure(req, ErrTargetMissing, "template source does not exist").
				WithContext("source", source).
				Build()
		}
		return Result{}, ioFailure(req, err, "read template")
	}

	existing, err := os.ReadFile(abs)
	switch {
	case err == nil:
		if bytes.Equal(existing, data) {
			return Result{}, nil
		}
		if !req.Force {
			return Result{}, failure(req, ErrTargetExists, "copy target already exists with different content").
				WithContext("file", m.tree.Rel(abs)).
				Build()
		}
	case !stderrors.Is(err, fs.ErrNotExist):
		return Result{}, ioFailure(req, err, "read target")
	}
	return m.write(abs, req, data, len(data))
}

func (m *Mutator) copyDir(abs string, req Request) (Result, error) {
	templates := m.tree.Templates()
	if templates == nil {
		return Result{}, errors.ConfigError("no template directory configured").
			WithContext("source", req.source()).
			Build()
	}
	root := path.Clean(req.source())
	var total Result
	err := fs.WalkDir(templates, root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel := p
		if root != "." {
			rel = strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
		}
		target := abs
		if rel != "" {
			target = filepath.Join(abs, filepath.FromSlash(rel))
		}
		res, err := m.copyFile(target, p, req)
		if err != nil {
			return err
		}
		total.Touched = append(total.Touched, res.Touched...)
		total.BytesChanged += res.BytesChanged
		return nil
	})
	if err != nil {
		if errors.IsClassified(err) {
			return Result{}, err
		}
		if stderrors.Is(err, fs.ErrNotExist) {
			return Result{}, failure(req, ErrTargetMissing, "template directory does not exist").
				WithContext("source", root).
				Build()
		}
		return Result{}, ioFailure(req, err, "walk template directory")
	}
	return total, nil
}

func (m *Mutator) uncomment(abs string, req Request) (Result, error) {
	content, err := m.readExisting(abs, req)
	if err != nil {
		return Result{}, err
	}
	pattern := regexp.MustCompile(`(?m)^([ \t]*)#[ \t]?(.*` + regexp.QuoteMeta(req.Payload) + `)`)
	if !pattern.MatchString(content) {
		if strings.Contains(content, req.Payload) {
			return Result{}, nil
		}
		return Result{}, failure(req, ErrMarkerNotFound, "no line matches uncomment pattern").
			WithContext("pattern", req.Payload).
			Build()
	}
	updated := pattern.ReplaceAllString(content, "${1}${2}")
	return m.write(abs, req, []byte(updated), len(content)-len(updated))
}

func (m *Mutator) readExisting(abs string, req Request) (string, error) {
	data, err := os.ReadFile(abs)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return "", failure(req, ErrTargetMissing, "target file does not exist").Build()
		}
		return "", ioFailure(req, err, "read target")
	}
	return string(data), nil
}

func (m *Mutator) write(abs string, req Request, data []byte, changed int) (Result, error) {
	if err := writeFileAtomic(abs, data); err != nil {
		return Result{}, ioFailure(req, err, "write target")
	}
	return Result{Touched: []string{m.tree.Rel(abs)}, BytesChanged: changed}, nil
}

func failure(req Request, kind error, message string) *errors.ErrorBuilder {
	return errors.MutationError(message).
		WithCause(fmt.Errorf("%w: %s", kind, req.Target)).
		WithContext("file", req.Target).
		WithContext("op", string(req.Op))
}

func ioFailure(req Request, err error, what string) error {
	return errors.WrapError(err, errors.CategoryMutation, "failed to "+what).
		WithContext("file", req.Target).
		WithContext("op", string(req.Op)).
		Build()
}
