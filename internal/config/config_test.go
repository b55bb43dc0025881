package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "pingcheck.toml", `
[ping]
count = 3
timeout_ms = 1500

[dns]
resolvers = ["1.1.1.1", "8.8.8.8:53"]

[[targets]]
name = "gw"
host = "192.168.1.1"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Ping.Count)
	assert.Equal(t, 1500*time.Millisecond, cfg.Ping.Timeout())
	assert.Equal(t, BackendExec, cfg.Ping.Backend)
	assert.Equal(t, []string{"1.1.1.1", "8.8.8.8:53"}, cfg.DNS.Resolvers)
	require.Len(t, cfg.Targets, 1)
	assert.Equal(t, "gw", cfg.Targets[0].Label())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "pingcheck.yaml", `
ping:
  count: 2
  backend: icmp
targets:
  - host: example.com
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Ping.Count)
	assert.Equal(t, BackendICMP, cfg.Ping.Backend)
	assert.Equal(t, "example.com", cfg.Targets[0].Label())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorContains(t, err, "config file not found")
}

func TestLoadCollectsAllViolations(t *testing.T) {
	path := writeFile(t, "bad.toml", `
[ping]
count = -1
backend = "carrier-pigeon"

[[targets]]
name = "blank"
host = " "
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping.count must be > 0")
	assert.Contains(t, err.Error(), "ping.backend must be")
	assert.Contains(t, err.Error(), "targets[0].host is required")
}

func TestDefaultUsesBuiltinTargets(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Len(t, cfg.Targets, len(DefaultTargets))
	assert.Equal(t, 1, cfg.Ping.Count)
	assert.Equal(t, 2*time.Second, cfg.Ping.Timeout())
	assert.Zero(t, cfg.Ping.Deadline())
}
