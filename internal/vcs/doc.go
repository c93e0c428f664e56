// Package vcs is the version-control sink of a pipeline run: it stages the
// whole working tree and records one commit per completed step using go-git.
//
// Only "init if missing, stage all, commit with message" is supported. No
// remotes, branches or history rewriting are involved.
package vcs
