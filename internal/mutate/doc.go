// Package mutate applies single text transformations to files inside a
// project tree: insert after a marker, append, overwrite, delete, copy from
// the template filesystem and uncomment lines.
//
// Inserting operations are re-run safe. A payload that is already present is
// reported as success with nothing touched, so applying the same request twice
// leaves the file exactly as applying it once.
package mutate
