package config

import "time"

// ActionConfig declares one action. Exactly one field must be set; it
// selects the action kind.
type ActionConfig struct {
	Insert       *InsertAction       `yaml:"insert,omitempty"`
	Append       *FileAction         `yaml:"append,omitempty"`
	Create       *CreateAction       `yaml:"create,omitempty"`
	Remove       *RemoveAction       `yaml:"remove,omitempty"`
	Copy         *CopyAction         `yaml:"copy,omitempty"`
	Directory    *CopyAction         `yaml:"directory,omitempty"`
	Uncomment    *UncommentAction    `yaml:"uncomment,omitempty"`
	Run          *RunAction          `yaml:"run,omitempty"`
	Gem          *GemAction          `yaml:"gem,omitempty"`
	GemGroup     *GemGroupAction     `yaml:"gem_group,omitempty"`
	Generate     *GenerateAction     `yaml:"generate,omitempty"`
	RailsCommand *RailsCommandAction `yaml:"rails_command,omitempty"`
	Route        *RouteAction        `yaml:"route,omitempty"`
	Environment  *EnvironmentAction  `yaml:"environment,omitempty"`
	Initializer  *FileAction         `yaml:"initializer,omitempty"`
	Lib          *FileAction         `yaml:"lib,omitempty"`
	Say          *SayAction          `yaml:"say,omitempty"`
}

// Kinds returns the names of the kinds set on a, in declaration order.
func (a ActionConfig) Kinds() []string {
	var kinds []string
	add := func(set bool, name string) {
		if set {
			kinds = append(kinds, name)
		}
	}
	add(a.Insert != nil, "insert")
	add(a.Append != nil, "append")
	add(a.Create != nil, "create")
	add(a.Remove != nil, "remove")
	add(a.Copy != nil, "copy")
	add(a.Directory != nil, "directory")
	add(a.Uncomment != nil, "uncomment")
	add(a.Run != nil, "run")
	add(a.Gem != nil, "gem")
	add(a.GemGroup != nil, "gem_group")
	add(a.Generate != nil, "generate")
	add(a.RailsCommand != nil, "rails_command")
	add(a.Route != nil, "route")
	add(a.Environment != nil, "environment")
	add(a.Initializer != nil, "initializer")
	add(a.Lib != nil, "lib")
	add(a.Say != nil, "say")
	return kinds
}

// InsertAction inserts content after the first occurrence of After, or
// appends it when After is empty.
type InsertAction struct {
	File    string `yaml:"file"`
	Content string `yaml:"content"`
	After   string `yaml:"after,omitempty"`
}

// FileAction names a file and its content. For initializer and lib the file
// is relative to config/initializers and lib.
type FileAction struct {
	File    string `yaml:"file"`
	Content string `yaml:"content"`
}

// CreateAction writes a whole file, replacing any existing content.
type CreateAction struct {
	File    string `yaml:"file"`
	Content string `yaml:"content"`
}

// RemoveAction deletes a file.
type RemoveAction struct {
	File          string `yaml:"file"`
	IgnoreMissing bool   `yaml:"ignore_missing,omitempty"`
}

// CopyAction copies a template resource (file or directory) into the tree.
// Source defaults to File.
type CopyAction struct {
	Source string `yaml:"source,omitempty"`
	File   string `yaml:"file"`
	Force  bool   `yaml:"force,omitempty"`
}

// UncommentAction uncomments lines containing Pattern.
type UncommentAction struct {
	File    string `yaml:"file"`
	Pattern string `yaml:"pattern"`
}

// CommandOptions tune how a command action runs.
type CommandOptions struct {
	Timeout    time.Duration     `yaml:"timeout,omitempty"`
	ExpectExit []int             `yaml:"expect_exit,omitempty"`
	Dir        string            `yaml:"dir,omitempty"`
	Env        map[string]string `yaml:"env,omitempty"`
}

// RunAction runs Command through the shell, or Argv directly.
type RunAction struct {
	Command        string   `yaml:"command,omitempty"`
	Argv           []string `yaml:"argv,omitempty"`
	CommandOptions `yaml:",inline"`
}

// GemAction adds a gem line to the Gemfile. Options is raw Ruby appended
// after the name and version, e.g. `github: "owner/repo", branch: "main"`.
type GemAction struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version,omitempty"`
	Options string `yaml:"options,omitempty"`
}

// GemGroupAction adds a group block of gems to the Gemfile.
type GemGroupAction struct {
	Groups []string    `yaml:"groups"`
	Gems   []GemAction `yaml:"gems"`
}

// GenerateAction runs bin/rails generate.
type GenerateAction struct {
	Generator      string   `yaml:"generator"`
	Args           []string `yaml:"args,omitempty"`
	CommandOptions `yaml:",inline"`
}

// RailsCommandAction runs bin/rails with a task, e.g. "db:migrate".
type RailsCommandAction struct {
	Command        string `yaml:"command"`
	CommandOptions `yaml:",inline"`
}

// RouteAction adds a line to config/routes.rb.
type RouteAction struct {
	Route string `yaml:"route"`
}

// EnvironmentAction adds configuration to config/application.rb, or to
// config/environments/<Env>.rb when Env is set.
type EnvironmentAction struct {
	Content string `yaml:"content"`
	Env     string `yaml:"env,omitempty"`
}

// SayAction logs a progress message.
type SayAction struct {
	Message string `yaml:"message"`
}
