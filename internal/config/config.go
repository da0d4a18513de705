// Package config loads the daemon's TOML configuration.
package config

import (
	"github.com/BurntSushi/toml"
)

// Config is the controller daemon's static configuration.
type Config struct {
	NodeName    string   `toml:"node_name"`
	ClusterName string   `toml:"cluster_name"`
	Peers       []string `toml:"peers"`
	FeatureSet  string   `toml:"feature_set"`

	CIB   EndpointConfig `toml:"cib"`
	Attrd EndpointConfig `toml:"attrd"`

	LogLevel string `toml:"log_level"`
}

// EndpointConfig names a client endpoint for an external collaborator
// (spec.md §6's CIB/attrd client seams).
type EndpointConfig struct {
	Address string `toml:"address"`
}

// Default returns a config suitable for a single-node smoke test.
func Default() *Config {
	return &Config{
		NodeName:    "localhost",
		ClusterName: "crmd-core",
		FeatureSet:  "3.10.0",
		LogLevel:    "info",
	}
}

// Load parses a TOML configuration file at path.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
