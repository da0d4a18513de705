package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "controller.toml")
	contents := `
node_name = "node-a"
cluster_name = "prod-cluster"
peers = ["node-a", "node-b"]
feature_set = "3.12.0"
log_level = "debug"

[cib]
address = "unix:///var/run/cib.sock"

[attrd]
address = "unix:///var/run/attrd.sock"
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("unexpected error writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.NodeName != "node-a" || cfg.ClusterName != "prod-cluster" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.Peers) != 2 || cfg.Peers[1] != "node-b" {
		t.Fatalf("unexpected peers: %v", cfg.Peers)
	}
	if cfg.CIB.Address != "unix:///var/run/cib.sock" {
		t.Fatalf("unexpected cib address: %s", cfg.CIB.Address)
	}
}

func TestLoad_MissingFileErrors(t *testing.T) {
	if _, err := Load("/nonexistent/path.toml"); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}

func TestDefault_HasSaneValues(t *testing.T) {
	cfg := Default()
	if cfg.FeatureSet == "" || cfg.NodeName == "" {
		t.Fatalf("expected default config to be populated, got %+v", cfg)
	}
}
