// Package tree provides the ProjectTree handle: the root directory of the
// generated application plus the read-only template filesystem that copy
// operations draw from.
//
// Every path handed to a mutation or command is resolved through a Tree, so
// no component touches files outside the project root.
package tree
