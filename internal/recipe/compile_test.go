package recipe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/appstrap/internal/command"
	"git.home.luguber.info/inful/appstrap/internal/config"
	"git.home.luguber.info/inful/appstrap/internal/foundation/errors"
	"git.home.luguber.info/inful/appstrap/internal/mutate"
	"git.home.luguber.info/inful/appstrap/internal/pipeline"
	"git.home.luguber.info/inful/appstrap/internal/step"
)

func compileOne(t *testing.T, yaml string) step.Action {
	t.Helper()
	cfg, err := config.Parse([]byte("settings:\n  command_env: {RAILS_ENV: development}\nsteps:\n  - name: s\n    actions:\n" + yaml))
	require.NoError(t, err)
	steps, err := Compile(cfg)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	require.Len(t, steps[0].Actions, 1)
	return steps[0].Actions[0]
}

func request(t *testing.T, a step.Action) mutate.Request {
	t.Helper()
	m, ok := a.(step.Mutation)
	require.True(t, ok, "expected a mutation, got %T", a)
	return m.Request
}

func commandSpec(t *testing.T, a step.Action) command.Spec {
	t.Helper()
	c, ok := a.(step.Command)
	require.True(t, ok, "expected a command, got %T", a)
	return c.Spec
}

func TestCompileFileActions(t *testing.T) {
	req := request(t, compileOne(t, "      - insert: {file: config/importmap.rb, content: \"pin 'popper'\\n\", after: \"pin_all\"}\n"))
	assert.Equal(t, mutate.Request{Target: "config/importmap.rb", Op: mutate.OpInsertAfter, Marker: "pin_all", Payload: "pin 'popper'\n"}, req)

	req = request(t, compileOne(t, "      - append: {file: .gitignore, content: \"/tmp\\n\"}\n"))
	assert.Equal(t, mutate.OpAppend, req.Op)

	req = request(t, compileOne(t, "      - create: {file: Procfile, content: \"web: bin/rails s\\n\"}\n"))
	assert.Equal(t, mutate.OpOverwrite, req.Op)
	assert.False(t, req.MustExist)

	req = request(t, compileOne(t, "      - remove: {file: README.md, ignore_missing: true}\n"))
	assert.Equal(t, mutate.Request{Target: "README.md", Op: mutate.OpDelete, IgnoreMissing: true}, req)

	req = request(t, compileOne(t, "      - copy: {file: config/storage.yml, force: true}\n"))
	assert.Equal(t, mutate.Request{Target: "config/storage.yml", Op: mutate.OpCopy, Force: true}, req)

	req = request(t, compileOne(t, "      - directory: {source: starter/app, file: app}\n"))
	assert.Equal(t, mutate.Request{Target: "app", Op: mutate.OpCopyDir, Payload: "starter/app"}, req)

	req = request(t, compileOne(t, "      - uncomment: {file: config/puma.rb, pattern: \"workers ENV\"}\n"))
	assert.Equal(t, mutate.OpUncomment, req.Op)
	assert.Equal(t, "workers ENV", req.Payload)
}

func TestCompileRailsActions(t *testing.T) {
	req := request(t, compileOne(t, "      - gem: {name: bootstrap, version: \"~> 5.3\", options: 'require: false'}\n"))
	assert.Equal(t, "Gemfile", req.Target)
	assert.Equal(t, "gem \"bootstrap\", \"~> 5.3\", require: false\n", req.Payload)

	req = request(t, compileOne(t, "      - gem_group: {groups: [development, test], gems: [{name: hirb}, {name: rails-erd}]}\n"))
	assert.Equal(t, "\ngroup :development, :test do\n  gem \"hirb\"\n  gem \"rails-erd\"\nend\n", req.Payload)

	req = request(t, compileOne(t, "      - route: {route: \"  root to: 'home#index'  \"}\n"))
	assert.Equal(t, "config/routes.rb", req.Target)
	assert.Equal(t, "Rails.application.routes.draw do\n", req.Marker)
	assert.Equal(t, "  root to: 'home#index'\n", req.Payload)

	req = request(t, compileOne(t, "      - environment: {content: \"config.time_zone = 'UTC'\"}\n"))
	assert.Equal(t, "config/application.rb", req.Target)
	assert.Equal(t, " < Rails::Application\n", req.Marker)
	assert.Equal(t, "    config.time_zone = 'UTC'\n", req.Payload)

	req = request(t, compileOne(t, "      - environment: {env: production, content: \"config.force_ssl = true\"}\n"))
	assert.Equal(t, "config/environments/production.rb", req.Target)
	assert.Equal(t, "Rails.application.configure do\n", req.Marker)
	assert.Equal(t, "  config.force_ssl = true\n", req.Payload)

	req = request(t, compileOne(t, "      - initializer:\n          file: dartsass.rb\n          content: \"  Rails.application.config.dartsass.builds = {\\n    \\\"site.scss\\\" => \\\"site.css\\\"\\n  }\\n\"\n"))
	assert.Equal(t, "config/initializers/dartsass.rb", req.Target)
	assert.Equal(t, mutate.OpOverwrite, req.Op)
	assert.Equal(t, "Rails.application.config.dartsass.builds = {\n  \"site.scss\" => \"site.css\"\n}\n", req.Payload)

	req = request(t, compileOne(t, "      - lib: {file: components/x.rb, content: \"module X; end\"}\n"))
	assert.Equal(t, "lib/components/x.rb", req.Target)
	assert.Equal(t, "module X; end\n", req.Payload)
}

func TestCompileCommands(t *testing.T) {
	s := commandSpec(t, compileOne(t, "      - run: {command: bundle install, timeout: 20m}\n"))
	assert.Equal(t, "/bin/sh", s.Executable)
	assert.Equal(t, []string{"-c", "bundle install"}, s.Args)
	assert.Equal(t, 20*time.Minute, s.Timeout)
	assert.Equal(t, map[string]string{"RAILS_ENV": "development"}, s.Env)

	s = commandSpec(t, compileOne(t, "      - run: {argv: [bin/importmap, pin, bootstrap], expect_exit: [0, 3], env: {RAILS_ENV: test}}\n"))
	assert.Equal(t, "bin/importmap", s.Executable)
	assert.Equal(t, []string{"pin", "bootstrap"}, s.Args)
	assert.Equal(t, []int{0, 3}, s.ExpectedExitCodes)
	assert.Equal(t, "test", s.Env["RAILS_ENV"], "action env overrides settings")
	assert.Equal(t, config.DefaultCommandTimeout, s.Timeout)

	s = commandSpec(t, compileOne(t, "      - generate: {generator: \"simple_form:install --bootstrap\"}\n"))
	assert.Equal(t, "bin/rails", s.Executable)
	assert.Equal(t, []string{"generate", "simple_form:install", "--bootstrap"}, s.Args)

	s = commandSpec(t, compileOne(t, "      - generate: {generator: devise, args: [User, \"admin:boolean\"]}\n"))
	assert.Equal(t, []string{"generate", "devise", "User", "admin:boolean"}, s.Args)

	s = commandSpec(t, compileOne(t, "      - rails_command: {command: \"db:migrate\", dir: engine}\n"))
	assert.Equal(t, "bin/rails", s.Executable)
	assert.Equal(t, []string{"db:migrate"}, s.Args)
	assert.Equal(t, "engine", s.Dir)

	say, ok := compileOne(t, "      - say: {message: hello}\n").(step.Say)
	require.True(t, ok)
	assert.Equal(t, "hello", say.Message)
}

func TestCompileRejectsInvalidActions(t *testing.T) {
	cases := map[string]string{
		"gem without name":       "      - gem: {version: \"1.0\"}\n",
		"run without command":    "      - run: {}\n",
		"run with both":          "      - run: {command: ls, argv: [ls]}\n",
		"empty generator":        "      - generate: {generator: \"\"}\n",
		"empty rails command":    "      - rails_command: {command: \" \"}\n",
		"empty route":            "      - route: {route: \"\"}\n",
		"environment path":       "      - environment: {env: ../prod, content: x}\n",
		"empty gem group":        "      - gem_group: {groups: [development]}\n",
		"insert without content": "      - insert: {file: a.rb}\n",
		"initializer no file":    "      - initializer: {content: x}\n",
		"negative timeout":       "      - run: {command: ls, timeout: -5s}\n",
	}
	for name, action := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := config.Parse([]byte("steps:\n  - name: s\n    actions:\n" + action))
			require.NoError(t, err)
			_, err = Compile(cfg)
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
		})
	}
}

func TestRailsStarterCompiles(t *testing.T) {
	cfg, err := config.Parse(RailsStarter())
	require.NoError(t, err)
	require.NoError(t, config.Validate(cfg))

	steps, err := Compile(cfg)
	require.NoError(t, err)
	require.NoError(t, pipeline.Validate(steps))

	names := cfg.StepNames()
	assert.Equal(t, "setup", names[0])
	assert.Equal(t, []string{"copy-app", "breadcrumbs", "time-formats", "dotenv"}, names[len(names)-4:])
	assert.Less(t, indexOf(names, "gems"), indexOf(names, "bundle"))
	assert.Less(t, indexOf(names, "devise"), indexOf(names, "user-settings"))
	assert.Equal(t, "Initial commit", steps[0].CommitMessage())
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
