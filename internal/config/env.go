package config

import (
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"git.home.luguber.info/inful/appstrap/internal/foundation/errors"
)

// EnvPrefix marks environment variables that override recipe settings.
const EnvPrefix = "APPSTRAP_"

// loadEnvFile loads the first of .env and .env.local that exists. Variables
// already set in the process environment are not overwritten.
func loadEnvFile() {
	for _, envPath := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err != nil {
			slog.Warn("Failed to load environment file", slog.String("path", envPath), slog.String("error", err.Error()))
			continue
		}
		slog.Debug("Loaded environment variables", slog.String("path", envPath))
		return
	}
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv substitutes ${VAR} with the value of VAR. Bare $VAR and
// references to unset variables are left as written, so shell, Ruby and
// JavaScript snippets in step content survive.
func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		if v, ok := os.LookupEnv(ref[2 : len(ref)-1]); ok {
			return v
		}
		return ref
	})
}

// mapSettings are settings whose sub-keys are map keys; their case is kept.
var mapSettings = map[string]bool{"command_env": true}

// envKey maps APPSTRAP_AUTHOR__NAME to author.name and
// APPSTRAP_COMMAND_ENV__RAILS_ENV to command_env.RAILS_ENV.
func envKey(s string) string {
	name := strings.TrimPrefix(s, EnvPrefix)
	head, rest, nested := strings.Cut(name, "__")
	head = strings.ToLower(head)
	if !nested {
		return head
	}
	if mapSettings[head] {
		return head + "." + rest
	}
	return head + "." + strings.ReplaceAll(strings.ToLower(rest), "__", ".")
}

// applyEnvOverrides merges APPSTRAP_* variables into s.
func applyEnvOverrides(s *Settings) error {
	k := koanf.New(".")
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return errors.ConfigError("failed to load environment overrides").WithCause(err).Build()
	}
	if len(k.Keys()) == 0 {
		return nil
	}
	if err := k.Unmarshal("", s); err != nil {
		return errors.ConfigError("invalid environment override").
			WithCause(err).
			WithContext("keys", strings.Join(k.Keys(), ",")).
			Build()
	}
	return nil
}
