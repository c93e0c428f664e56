package mutate

import (
	stderrors "errors"
	"fmt"
)

// Op names one kind of file mutation.
type Op string

const (
	OpInsertAfter Op = "insert_after"
	OpAppend      Op = "append"
	OpOverwrite   Op = "overwrite"
	OpDelete      Op = "delete"
	OpCopy        Op = "copy"
	OpCopyDir     Op = "copy_dir"
	OpUncomment   Op = "uncomment"
)

// Sentinel failure kinds, matched with errors.Is.
var (
	ErrMarkerNotFound = stderrors.New("marker not found")
	ErrTargetMissing  = stderrors.New("target missing")
	ErrTargetExists   = stderrors.New("target exists")
)

// Request describes one mutation of one target file.
type Request struct {
	Target string // tree-relative path
	Op     Op
	// Payload is the text to write, or for copy operations the template
	// source path (defaults to Target).
	Payload string
	// Marker anchors InsertAfter. An empty marker appends.
	Marker string

	Force         bool // Overwrite/Copy: replace existing or create missing targets
	IgnoreMissing bool // Delete: a missing target is not an error
	MustExist     bool // Overwrite: the target must already exist
}

// Result reports which files a mutation wrote or removed.
type Result struct {
	Touched      []string
	BytesChanged int
}

// Changed reports whether anything on disk was modified.
func (r Result) Changed() bool {
	return len(r.Touched) > 0
}

// Describe returns a short human-readable summary used in logs and dry runs.
func (r Request) Describe() string {
	switch r.Op {
	case OpInsertAfter:
		if r.Marker == "" {
			return fmt.Sprintf("append to %s", r.Target)
		}
		return fmt.Sprintf("insert into %s after %q", r.Target, r.Marker)
	case OpCopy, OpCopyDir:
		return fmt.Sprintf("%s %s -> %s", r.Op, r.source(), r.Target)
	case OpUncomment:
		return fmt.Sprintf("uncomment %q in %s", r.Payload, r.Target)
	default:
		return fmt.Sprintf("%s %s", r.Op, r.Target)
	}
}

func (r Request) source() string {
	if r.Payload != "" {
		return r.Payload
	}
	return r.Target
}

// Validate checks the request is well formed before anything is touched.
func (r Request) Validate() error {
	if r.Target == "" {
		return fmt.Errorf("%s: target is required", r.Op)
	}
	switch r.Op {
	case OpInsertAfter, OpAppend, OpUncomment:
		if r.Payload == "" {
			return fmt.Errorf("%s %s: payload is required", r.Op, r.Target)
		}
	case OpOverwrite, OpDelete, OpCopy, OpCopyDir:
	default:
		return fmt.Errorf("unknown mutation %q", r.Op)
	}
	return nil
}
