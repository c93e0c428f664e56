// Package recipe compiles recipe actions into executable steps.
//
// High level Rails template actions (gem, route, environment, initializer,
// generate, ...) are lowered onto the two primitives the pipeline knows:
// file mutations and external commands. The lowering follows what the
// corresponding Rails generator actions write, so a recipe reads like an
// application template.
package recipe
