package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iaserrat/pingcheck/internal/config"
	"github.com/iaserrat/pingcheck/internal/logging"
	"github.com/iaserrat/pingcheck/internal/probe"
)

type hostPinger struct {
	mu    sync.Mutex
	down  map[string]bool
	calls int
}

func (h *hostPinger) Probe(_ context.Context, target string, _ probe.Config) (probe.Result, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if h.down[target] {
		return probe.Result{Target: target, Address: target, RawExitCode: 1}, nil
	}
	latency := 1.0
	return probe.Result{Target: target, Address: target, Reachable: true, LatencyMs: &latency}, nil
}

func withPinger(t *testing.T, p probe.Pinger) {
	t.Helper()
	orig := newPinger
	newPinger = func(config.Config, logrus.FieldLogger) probe.Pinger { return p }
	t.Cleanup(func() { newPinger = orig })
}

func writeConfig(t *testing.T, logDir string, hosts ...string) string {
	t.Helper()
	var sb strings.Builder
	fmt.Fprintf(&sb, "[logging]\ndir = %q\n\n[watch]\ninterval_ms = 1\nwindow_secs = 60\n\n", logDir)
	for _, h := range hosts {
		fmt.Fprintf(&sb, "[[targets]]\nhost = %q\n\n", h)
	}
	path := filepath.Join(t.TempDir(), "pingsweep.toml")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func readRecords(t *testing.T, dir string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, logging.FileName))
	require.NoError(t, err)

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func countType(records []map[string]any, typ string) int {
	n := 0
	for _, r := range records {
		if r["type"] == typ {
			n++
		}
	}
	return n
}

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestStatusAllReachable(t *testing.T) {
	logDir := t.TempDir()
	withPinger(t, &hostPinger{})

	code, stdout, _ := runCLI("-config", writeConfig(t, logDir, "10.0.0.1", "10.0.0.2"))
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "10.0.0.1")
	assert.Contains(t, stdout, "Available")

	records := readRecords(t, logDir)
	assert.Equal(t, 2, countType(records, "probe_result"))
	assert.Equal(t, "pingsweep", records[0]["tool_name"])
}

func TestStatusReportsFailure(t *testing.T) {
	withPinger(t, &hostPinger{down: map[string]bool{"10.0.0.2": true}})

	code, stdout, _ := runCLI("-config", writeConfig(t, t.TempDir(), "10.0.0.1", "10.0.0.2"))
	assert.Equal(t, exitFailed, code)
	assert.Contains(t, stdout, "Unavailable")
}

func TestRandomProbesOneTarget(t *testing.T) {
	p := &hostPinger{}
	withPinger(t, p)

	code, stdout, _ := runCLI("-random", "-config", writeConfig(t, t.TempDir(), "10.0.0.1", "10.0.0.2", "10.0.0.3"))
	assert.Equal(t, exitOK, code)
	assert.Equal(t, 1, p.calls)
	assert.Contains(t, stdout, "successful")
}

func TestWatchReportsDownTarget(t *testing.T) {
	logDir := t.TempDir()
	p := &hostPinger{down: map[string]bool{"10.0.0.2": true}}
	withPinger(t, p)

	code, stdout, _ := runCLI("-watch", "-rounds", "4", "-config", writeConfig(t, logDir, "10.0.0.1", "10.0.0.2"))
	assert.Equal(t, exitFailed, code)
	assert.Equal(t, 8, p.calls)
	assert.Contains(t, stdout, "10.0.0.2 is DOWN")
	assert.NotContains(t, stdout, "10.0.0.1 is DOWN")
	assert.Contains(t, stdout, "Summary:")

	records := readRecords(t, logDir)
	assert.Equal(t, 8, countType(records, "probe_result"))
	assert.Equal(t, 1, countType(records, "target_down"))
	assert.Equal(t, 2, countType(records, "target_summary"))
}

func TestWatchAllHealthy(t *testing.T) {
	withPinger(t, &hostPinger{})

	code, _, _ := runCLI("-watch", "-rounds", "2", "-config", writeConfig(t, t.TempDir(), "10.0.0.1"))
	assert.Equal(t, exitOK, code)
}

func TestResolveIPLiteral(t *testing.T) {
	code, stdout, _ := runCLI("-resolve", "127.0.0.1")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Hostname '127.0.0.1' resolves to: 127.0.0.1")
}

func TestHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Served-By", "edge-1")
	}))
	defer srv.Close()
	host := strings.TrimPrefix(srv.URL, "http://")

	code, stdout, _ := runCLI("-headers", host)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "--- HTTP Headers for "+host+" ---")
	assert.Contains(t, stdout, "X-Served-By: edge-1")
	assert.Contains(t, stdout, "Status Code: 200")

	code, stdout, _ = runCLI("-headers", "127.0.0.1:1")
	assert.Equal(t, exitFailed, code)
	assert.Contains(t, stdout, "Failed to retrieve HTTP headers for 127.0.0.1:1.")
}

func TestUnexpectedArgs(t *testing.T) {
	code, _, stderr := runCLI("example.com")
	assert.Equal(t, exitConfig, code)
	assert.Contains(t, stderr, "unexpected arguments")
}

func TestBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ping]\nbackend = \"smoke-signals\"\n"), 0o644))

	code, _, stderr := runCLI("-config", path)
	assert.Equal(t, exitConfig, code)
	assert.Contains(t, stderr, "ping.backend")
}
