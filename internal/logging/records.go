package logging

import "time"

type BaseEvent struct {
	TSUTC         string `json:"ts_utc"`
	TSUnixMS      int64  `json:"ts_unix_ms"`
	Seq           uint64 `json:"seq"`
	Type          string `json:"type"`
	Target        string `json:"target"`
	IncidentID    string `json:"incident_id,omitempty"`
	SchemaVersion int    `json:"schema_version"`
	ToolName      string `json:"tool_name"`
	ToolVersion   string `json:"tool_version"`
	HostID        string `json:"host_id"`
	ClockSource   string `json:"clock_source"`
}

func (b *BaseEvent) Base() *BaseEvent {
	return b
}

type ProbeRecord struct {
	BaseEvent
	Address    string   `json:"address"`
	Reachable  bool     `json:"reachable"`
	LatencyMs  *float64 `json:"latency_ms"`
	ExitCode   int      `json:"exit_code"`
	TimedOut   bool     `json:"timed_out,omitempty"`
	ResolveErr string   `json:"resolve_err,omitempty"`
	ProbeErr   string   `json:"probe_err,omitempty"`
	Round      int      `json:"round"`
}

type StateChange struct {
	BaseEvent
	Reason              string  `json:"reason"`
	LossPct             float64 `json:"loss_pct"`
	RttP95Ms            float64 `json:"rtt_p95_ms"`
	ConsecutiveFailures int     `json:"consecutive_failures"`
}

type TargetSummary struct {
	BaseEvent
	Probes      int       `json:"probes"`
	Reachable   int       `json:"reachable"`
	LossPct     float64   `json:"loss_pct"`
	RttAvgMs    float64   `json:"rtt_avg_ms"`
	RttP95Ms    float64   `json:"rtt_p95_ms"`
	DownCount   int       `json:"down_count"`
	DownFor     int64     `json:"down_ms"`
	FirstProbe  time.Time `json:"first_probe"`
	LastProbe   time.Time `json:"last_probe"`
	Traceroutes int       `json:"traceroute_count"`
}

type TracerouteResult struct {
	BaseEvent
	Hops     []TracerouteHop `json:"hops"`
	PathHash string          `json:"path_hash"`
	Err      string          `json:"err,omitempty"`
}

type TracerouteHop struct {
	TTL   int      `json:"ttl"`
	IP    string   `json:"ip"`
	RttMs *float64 `json:"rtt_ms"`
}

type PathChange struct {
	BaseEvent
	PrevPathHash string          `json:"prev_path_hash"`
	NewPathHash  string          `json:"new_path_hash"`
	PrevHops     []TracerouteHop `json:"prev_hops"`
	NewHops      []TracerouteHop `json:"new_hops"`
}
