// Package step runs one logical setup step as an atomic unit: its actions
// execute in declared order, stopping at the first failure, and a completed
// step is recorded with exactly one commit.
//
// A failed step leaves its partial file writes in place. Nothing is rolled
// back and nothing is retried; the next run re-applies the idempotent
// mutations.
package step
