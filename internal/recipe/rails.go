package recipe

import (
	"strconv"
	"strings"
)

// Files and markers used by the Rails actions.
const (
	gemfile         = "Gemfile"
	routesFile      = "config/routes.rb"
	applicationFile = "config/application.rb"
	initializersDir = "config/initializers"
	environmentsDir = "config/environments"
	libDir          = "lib"
	railsBin        = "bin/rails"

	routesMarker      = "Rails.application.routes.draw do\n"
	applicationMarker = " < Rails::Application\n"
	configureMarker   = "Rails.application.configure do\n"
)

// gemLine renders a Gemfile entry: gem "name", "version", options.
func gemLine(name, version, options string) string {
	parts := []string{strconv.Quote(name)}
	if version != "" {
		parts = append(parts, strconv.Quote(version))
	}
	if options != "" {
		parts = append(parts, options)
	}
	return "gem " + strings.Join(parts, ", ")
}

// groupSymbols renders group names as Ruby symbols.
func groupSymbols(groups []string) string {
	syms := make([]string, len(groups))
	for i, g := range groups {
		syms[i] = ":" + strings.TrimPrefix(g, ":")
	}
	return strings.Join(syms, ", ")
}

// indentCode normalises a code snippet: single lines are trimmed, multi-line
// snippets lose their common leading whitespace, then every non-blank line is
// indented by amount spaces and the result ends with a newline.
func indentCode(code string, amount int) string {
	var lines []string
	if strings.Contains(strings.TrimRight(code, "\n"), "\n") {
		lines = dedent(strings.Split(strings.TrimRight(code, "\n"), "\n"))
	} else {
		lines = []string{strings.TrimSpace(code)}
	}
	pad := strings.Repeat(" ", amount)
	var b strings.Builder
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			b.WriteString(pad)
			b.WriteString(line)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func dedent(lines []string) []string {
	common := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if common < 0 || n < common {
			common = n
		}
	}
	if common <= 0 {
		return lines
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		if len(line) >= common {
			out[i] = line[common:]
		} else {
			out[i] = strings.TrimLeft(line, " \t")
		}
	}
	return out
}
