package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEmitPopulatesBaseFields(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(Config{
		Dir:         dir,
		MaxMB:       1,
		MaxFiles:    1,
		ToolName:    "pingsweep",
		ToolVersion: "test",
		HostID:      "host-1",
	})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	defer logger.Close()

	latency := 1.25
	events := []Emittable{
		&ProbeRecord{
			BaseEvent: BaseEvent{Type: "probe_result", Target: "example.com"},
			Address:   "93.184.216.34",
			Reachable: true,
			LatencyMs: &latency,
			Round:     1,
		},
		&StateChange{
			BaseEvent:           BaseEvent{Type: "target_down", Target: "example.com", IncidentID: "example.com-1-000001"},
			Reason:              "loss_pct",
			LossPct:             50,
			ConsecutiveFailures: 3,
		},
		&TargetSummary{
			BaseEvent:  BaseEvent{Type: "target_summary", Target: "example.com"},
			Probes:     10,
			Reachable:  8,
			LossPct:    20,
			FirstProbe: time.Unix(1, 0).UTC(),
			LastProbe:  time.Unix(2, 0).UTC(),
		},
		&TracerouteResult{
			BaseEvent: BaseEvent{Type: "traceroute_result", Target: "example.com"},
			Hops:      []TracerouteHop{{TTL: 1, IP: "1.1.1.1"}},
			PathHash:  "hash",
		},
		&PathChange{
			BaseEvent:    BaseEvent{Type: "path_change", Target: "example.com"},
			PrevPathHash: "prev",
			NewPathHash:  "new",
		},
	}

	for _, evt := range events {
		if err := logger.Emit(evt); err != nil {
			t.Fatalf("emit: %v", err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != len(events) {
		t.Fatalf("expected %d log lines, got %d", len(events), len(lines))
	}

	for i, line := range lines {
		var payload map[string]any
		if err := json.Unmarshal([]byte(line), &payload); err != nil {
			t.Fatalf("unmarshal log line: %v", err)
		}

		tsUTC, ok := payload["ts_utc"].(string)
		if !ok || tsUTC == "" {
			t.Fatalf("invalid ts_utc: %v", payload["ts_utc"])
		}
		if _, err := time.Parse(time.RFC3339Nano, tsUTC); err != nil {
			t.Fatalf("ts_utc not RFC3339Nano: %v", err)
		}
		if tsUnix, ok := payload["ts_unix_ms"].(float64); !ok || tsUnix == 0 {
			t.Fatalf("invalid ts_unix_ms: %v", payload["ts_unix_ms"])
		}
		if payload["seq"] != float64(i+1) {
			t.Fatalf("expected seq %d, got %v", i+1, payload["seq"])
		}
		if payload["type"] == "" || payload["target"] != "example.com" {
			t.Fatalf("missing required identifiers: %#v", payload)
		}
		if payload["schema_version"] != float64(SchemaVersion) {
			t.Fatalf("expected schema_version %d, got %v", SchemaVersion, payload["schema_version"])
		}
		if payload["tool_name"] != "pingsweep" || payload["tool_version"] != "test" || payload["host_id"] != "host-1" {
			t.Fatalf("tool identity not stamped: %#v", payload)
		}
		if payload["clock_source"] != "system" {
			t.Fatalf("expected clock_source system, got %v", payload["clock_source"])
		}
	}
}

func TestEmitNilLogger(t *testing.T) {
	var logger *Logger
	if err := logger.Emit(&ProbeRecord{}); err == nil {
		t.Fatal("expected error from nil logger")
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("close nil logger: %v", err)
	}
}
