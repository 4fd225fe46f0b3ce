// Package config loads sop's process-level defaults: the settings that
// have no natural CLI spelling because they apply across every stage in a
// pipeline rather than to one stage's own flags.
//
// A YAML-backed struct with defaults, loaded from an optional file path
// and merged, environment variables expanded before the bytes ever reach
// the YAML decoder.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config carries the JSON-LD local loader root, extra format aliases
// beyond the built-in table, and the metrics listener address. Stage
// options always win over these; these always win over the package
// defaults compiled into format/metrics.
type Config struct {
	// JSONLDLocalRoot is the directory root for the JSON-LD local context
	// loader; empty disables the local loader.
	JSONLDLocalRoot string `yaml:"jsonld_local_root"`
	// JSONLDAllowRemote enables the URL loader fallback; when
	// false and JSONLDLocalRoot is also empty, only inline contexts are
	// accepted.
	JSONLDAllowRemote bool `yaml:"jsonld_allow_remote"`
	// FormatAliases extends the format package's alias table: extra
	// spellings recognized by --format, file extension, or Content-Type,
	// mapped to one of the canonical format names format.Lookup already
	// knows (e.g. "ttl2": "turtle").
	FormatAliases map[string]string `yaml:"format_aliases"`
	// MetricsAddr, when non-empty, is the default HTTP listen address for
	// the Prometheus /metrics endpoint; overridden by --metrics-addr.
	MetricsAddr string `yaml:"metrics_addr"`
	// QueryEndpoint, when non-empty, is the default NATS subject the
	// `query` stage delegates to; overridden by --query-endpoint.
	QueryEndpoint string `yaml:"query_endpoint"`
	// NATSURL is the default NATS server URL used to reach QueryEndpoint;
	// overridden by --nats-url.
	NATSURL string `yaml:"nats_url"`
}

// Default returns the zero-value defaults: no JSON-LD loaders configured
// (inline contexts only until the user opts in), no extra format
// aliases, no metrics server, no query delegation.
func Default() *Config {
	return &Config{}
}

// Load reads and parses a YAML config file at path, expanding ${VAR} and
// ${VAR:-default} references against the process environment before the
// bytes reach the YAML decoder.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	expanded := ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Merge overlays non-zero fields of other onto c, other taking precedence.
// Resolve and Load do not call it: Load decodes a file loaded via
// --config/$SOP_CONFIG directly over Default().
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if other.JSONLDLocalRoot != "" {
		c.JSONLDLocalRoot = other.JSONLDLocalRoot
	}
	if other.JSONLDAllowRemote {
		c.JSONLDAllowRemote = true
	}
	for k, v := range other.FormatAliases {
		if c.FormatAliases == nil {
			c.FormatAliases = map[string]string{}
		}
		c.FormatAliases[k] = v
	}
	if other.MetricsAddr != "" {
		c.MetricsAddr = other.MetricsAddr
	}
	if other.QueryEndpoint != "" {
		c.QueryEndpoint = other.QueryEndpoint
	}
	if other.NATSURL != "" {
		c.NATSURL = other.NATSURL
	}
}
