package probe

import (
	"net"
	"strings"
	"time"

	"golang.org/x/net/idna"
)

const (
	DefaultCount            = 1
	DefaultPerPacketTimeout = 2 * time.Second

	// ExitTimedOut is reported when the overall deadline killed the child.
	ExitTimedOut = -1
	// ExitResolveFailed mirrors the exit status ping uses for unknown hosts.
	ExitResolveFailed = 2
)

// Config controls a single probe.
type Config struct {
	// Count is the number of echo requests sent.
	Count int
	// PerPacketTimeout is handed to the ping tool as its per-reply wait.
	PerPacketTimeout time.Duration
	// Deadline bounds the whole probe. Zero derives one from Count and
	// PerPacketTimeout.
	Deadline time.Duration
}

func DefaultConfig() Config {
	return Config{Count: DefaultCount, PerPacketTimeout: DefaultPerPacketTimeout}
}

func (c Config) withDefaults() Config {
	if c.Count <= 0 {
		c.Count = DefaultCount
	}
	if c.PerPacketTimeout <= 0 {
		c.PerPacketTimeout = DefaultPerPacketTimeout
	}
	return c
}

// OverallDeadline is the caller-side bound enforced on the child process.
// The ping tool's own timeout is only a secondary bound.
func (c Config) OverallDeadline() time.Duration {
	c = c.withDefaults()
	if c.Deadline > 0 {
		return c.Deadline
	}
	return time.Duration(c.Count)*(c.PerPacketTimeout+time.Second) + time.Second
}

// Result is the normalized outcome of one probe.
type Result struct {
	Target    string
	Address   string
	Reachable bool
	// LatencyMs is the mean round trip, nil unless reachable and parseable.
	LatencyMs   *float64
	Samples     int
	RawExitCode int
	TimedOut    bool
	ResolveErr  string
	Time        time.Time
}

// Latency returns the parsed latency and whether it was present.
func (r Result) Latency() (float64, bool) {
	if r.LatencyMs == nil {
		return 0, false
	}
	return *r.LatencyMs, true
}

// NormalizeTarget trims the target and converts internationalized names to
// their ASCII form. A leading '-' is rejected since ping would read it as an
// option. Anything idna rejects is passed through untouched so the
// ping tool gets to decide.
func NormalizeTarget(target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", ErrEmptyTarget
	}
	if strings.HasPrefix(target, "-") {
		return "", ErrOptionTarget
	}
	if net.ParseIP(target) != nil {
		return target, nil
	}
	ascii, err := idna.Lookup.ToASCII(target)
	if err != nil || ascii == "" {
		return target, nil
	}
	return ascii, nil
}
