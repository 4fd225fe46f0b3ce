package config

import (
	"os"
	"strings"
)

// ExpandEnv substitutes ${VAR} and ${VAR:-default} references in s against
// the process environment, as a preprocessing pass over a config file's
// raw bytes before YAML-decoding them. An unset VAR with no default
// expands to the empty string, matching os.Expand's own behavior for
// plain ${VAR}.
func ExpandEnv(s string) string {
	var out strings.Builder
	for {
		start := strings.Index(s, "${")
		if start == -1 {
			out.WriteString(s)
			break
		}
		end := strings.Index(s[start:], "}")
		if end == -1 {
			out.WriteString(s)
			break
		}
		end += start
		out.WriteString(s[:start])
		expr := s[start+2 : end]
		name, def, hasDefault := strings.Cut(expr, ":-")
		val, ok := os.LookupEnv(name)
		switch {
		case ok:
			out.WriteString(val)
		case hasDefault:
			out.WriteString(def)
		}
		s = s[end+1:]
	}
	return out.String()
}

// Resolve locates the config file to load, preferring an explicit path
// (the CLI's --config) over $SOP_CONFIG, and returns Default() with no
// error when neither is set (sop runs fine with only built-in defaults).
func Resolve(explicit string) (*Config, error) {
	path := explicit
	if path == "" {
		path = os.Getenv("SOP_CONFIG")
	}
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}
