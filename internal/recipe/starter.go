package recipe

import (
	_ "embed"

	"git.home.luguber.info/inful/appstrap/internal/config"
)

//go:embed rails.yaml
var railsStarter []byte

// RailsStarter returns the built-in Rails starter recipe as YAML.
func RailsStarter() []byte {
	out := make([]byte, len(railsStarter))
	copy(out, railsStarter)
	return out
}

// InitRails writes the Rails starter recipe to path.
func InitRails(path string, force bool) error {
	return config.Write(path, RailsStarter(), force)
}
