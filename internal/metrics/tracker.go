package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	lossThresholdPct      = 50.0
	consecutiveFailThresh = 3
	recoverSuccesses      = 3
	minLossSamples        = 3
	summaryRTTCap         = 1024
)

type EventKind string

const (
	KindDown EventKind = "target_down"
	KindUp   EventKind = "target_up"
)

type Event interface {
	Kind() EventKind
}

type Down struct {
	Target              string
	IncidentID          string
	Reason              string
	LossPct             float64
	RttP95Ms            float64
	ConsecutiveFailures int
}

func (Down) Kind() EventKind { return KindDown }

type Up struct {
	Target     string
	IncidentID string
	LossPct    float64
	RttP95Ms   float64
	DownFor    time.Duration
}

func (Up) Kind() EventKind { return KindUp }

// Sample is one probe outcome as seen by the tracker.
type Sample struct {
	Time      time.Time
	Reachable bool
	LatencyMs *float64
}

type Summary struct {
	Target      string
	Probes      int
	Reachable   int
	LossPct     float64
	RttAvgMs    float64
	RttP95Ms    float64
	DownCount   int
	DownFor     time.Duration
	FirstProbe  time.Time
	LastProbe   time.Time
	Traceroutes int
	Down        bool
}

// Tracker keeps a sliding window of probe outcomes per target and reports
// down/up transitions. Safe for concurrent use.
type Tracker struct {
	window time.Duration

	mu        sync.Mutex
	targets   map[string]*targetHealth
	incidents int64
}

type windowSample struct {
	ts  time.Time
	ok  bool
	rtt *float64
}

type targetHealth struct {
	samples     []windowSample
	consecFail  int
	consecOK    int
	down        bool
	incidentID  string
	downSince   time.Time
	downCount   int
	downTotal   time.Duration
	probes      int
	reachable   int
	rttSum      float64
	rttCount    int
	recentRTT   []float64
	first       time.Time
	last        time.Time
	traceroutes int
}

func NewTracker(window time.Duration) *Tracker {
	return &Tracker{
		window:  window,
		targets: make(map[string]*targetHealth),
	}
}

func (t *Tracker) Observe(target string, s Sample) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := t.healthFor(target)
	h.samples = append(h.samples, windowSample{ts: s.Time, ok: s.Reachable, rtt: s.LatencyMs})
	h.samples = pruneWindow(h.samples, s.Time, t.window)

	h.probes++
	if h.first.IsZero() {
		h.first = s.Time
	}
	h.last = s.Time

	if s.Reachable {
		h.reachable++
		h.consecFail = 0
		h.consecOK++
		if s.LatencyMs != nil {
			h.rttSum += *s.LatencyMs
			h.rttCount++
			h.recentRTT = append(h.recentRTT, *s.LatencyMs)
			if len(h.recentRTT) > summaryRTTCap {
				h.recentRTT = h.recentRTT[len(h.recentRTT)-summaryRTTCap:]
			}
		}
	} else {
		h.consecFail++
		h.consecOK = 0
	}

	stats := computeStats(h.samples)
	reason, failing := evaluate(stats, h.consecFail)

	switch {
	case !h.down && failing:
		t.incidents++
		h.down = true
		h.downCount++
		h.downSince = s.Time
		h.incidentID = fmt.Sprintf("%s-%d-%06d", target, s.Time.UnixNano(), t.incidents)
		return []Event{Down{
			Target:              target,
			IncidentID:          h.incidentID,
			Reason:              reason,
			LossPct:             stats.lossPct,
			RttP95Ms:            stats.rttP95,
			ConsecutiveFailures: h.consecFail,
		}}
	case h.down && !failing && h.consecOK >= recoverSuccesses:
		downFor := s.Time.Sub(h.downSince)
		h.downTotal += downFor
		evt := Up{
			Target:     target,
			IncidentID: h.incidentID,
			LossPct:    stats.lossPct,
			RttP95Ms:   stats.rttP95,
			DownFor:    downFor,
		}
		h.down = false
		h.incidentID = ""
		h.downSince = time.Time{}
		return []Event{evt}
	}

	return nil
}

// RecordTraceroute counts a trace against the target's open incident.
func (t *Tracker) RecordTraceroute(target string, incidentID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := t.targets[target]
	if h == nil || !h.down || h.incidentID != incidentID {
		return
	}
	h.traceroutes++
}

func (t *Tracker) IsDown(target string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := t.targets[target]
	return h != nil && h.down
}

// Summaries returns lifetime figures per target, sorted by target. A target
// still down has its open incident counted up to its last probe.
func (t *Tracker) Summaries() []Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Summary, 0, len(t.targets))
	for name, h := range t.targets {
		s := Summary{
			Target:      name,
			Probes:      h.probes,
			Reachable:   h.reachable,
			DownCount:   h.downCount,
			DownFor:     h.downTotal,
			FirstProbe:  h.first,
			LastProbe:   h.last,
			Traceroutes: h.traceroutes,
			Down:        h.down,
		}
		if h.down {
			s.DownFor += h.last.Sub(h.downSince)
		}
		if h.probes > 0 {
			s.LossPct = (1 - float64(h.reachable)/float64(h.probes)) * 100
		}
		if h.rttCount > 0 {
			s.RttAvgMs = h.rttSum / float64(h.rttCount)
		}
		s.RttP95Ms = percentile(h.recentRTT, 0.95)
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Target < out[j].Target })
	return out
}

func (t *Tracker) healthFor(target string) *targetHealth {
	h := t.targets[target]
	if h == nil {
		h = &targetHealth{}
		t.targets[target] = h
	}
	return h
}

type windowStats struct {
	samples int
	lossPct float64
	rttP95  float64
}

func computeStats(samples []windowSample) windowStats {
	if len(samples) == 0 {
		return windowStats{}
	}

	recv := 0
	var rtts []float64
	for _, s := range samples {
		if !s.ok {
			continue
		}
		recv++
		if s.rtt != nil {
			rtts = append(rtts, *s.rtt)
		}
	}

	return windowStats{
		samples: len(samples),
		lossPct: (1.0 - float64(recv)/float64(len(samples))) * 100.0,
		rttP95:  percentile(rtts, 0.95),
	}
}

func percentile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return sorted[int(float64(len(sorted)-1)*q)]
}

func evaluate(stats windowStats, consecutiveFailures int) (string, bool) {
	var reasons []string
	if stats.samples >= minLossSamples && stats.lossPct >= lossThresholdPct {
		reasons = append(reasons, "loss_pct")
	}
	if consecutiveFailures >= consecutiveFailThresh {
		reasons = append(reasons, "consecutive_failures")
	}
	if len(reasons) == 0 {
		return "", false
	}

	return strings.Join(reasons, ","), true
}

func pruneWindow(samples []windowSample, now time.Time, window time.Duration) []windowSample {
	cutoff := now.Add(-window)
	idx := 0
	for idx < len(samples) && samples[idx].ts.Before(cutoff) {
		idx++
	}
	if idx == 0 {
		return samples
	}

	return append([]windowSample(nil), samples[idx:]...)
}
