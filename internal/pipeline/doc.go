// Package pipeline executes an ordered list of steps against one project
// tree, halting at the first failing step.
//
// Steps run strictly in declared order. Declared dependencies are validated
// to point backwards and are never used to reorder. A run can be previewed
// (dry run), started part-way (from-step), or resumed from checkpoints left
// by an earlier interrupted run.
package pipeline
