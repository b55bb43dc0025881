package traceroute

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/iaserrat/pingcheck/internal/probe"
)

type Config struct {
	MaxHops int
	Timeout time.Duration
}

type Hop struct {
	TTL   int
	IP    string
	RttMs *float64
}

type Result struct {
	Hops     []Hop
	PathHash string
	Err      string
}

var (
	hopLine = regexp.MustCompile(`^\s*(\d+)\s+(.+)$`)
	rttMs   = regexp.MustCompile(`^<?([\d.]+)$`)
)

// Command returns the trace tool and its arguments for the platform.
func Command(p probe.Platform, target string, cfg Config) (string, []string) {
	if p.Family == probe.WindowsLike {
		return "tracert", []string{"-d", "-h", strconv.Itoa(cfg.MaxHops), "-w", strconv.FormatInt(cfg.Timeout.Milliseconds(), 10), target}
	}
	secs := int(cfg.Timeout.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return "traceroute", []string{"-n", "-m", strconv.Itoa(cfg.MaxHops), "-w", strconv.Itoa(secs), target}
}

func Run(ctx context.Context, p probe.Platform, target string, cfg Config) Result {
	name, args := Command(p, target, cfg)
	cmd := exec.CommandContext(ctx, name, args...)

	out, err := cmd.CombinedOutput()
	hops := parseOutput(string(out))
	res := Result{Hops: hops}
	if len(hops) > 0 {
		res.PathHash = hashPath(hops)
	}
	if err != nil {
		res.Err = err.Error()
	}
	return res
}

func parseOutput(out string) []Hop {
	scanner := bufio.NewScanner(strings.NewReader(out))
	var hops []Hop

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "traceroute") || strings.HasPrefix(line, "Tracing") {
			continue
		}

		matches := hopLine.FindStringSubmatch(line)
		if len(matches) < 3 {
			continue
		}

		ttl, _ := strconv.Atoi(matches[1])
		ip, rtt := parseHop(matches[2])
		hops = append(hops, Hop{TTL: ttl, IP: ip, RttMs: rtt})
	}

	return hops
}

// parseHop handles both "10.0.0.1  0.512 ms  0.430 ms" (traceroute -n) and
// "<1 ms  1 ms  2 ms  10.0.0.1" (tracert -d). The first RTT is kept.
func parseHop(rest string) (string, *float64) {
	fields := strings.Fields(rest)
	var ip string
	var rtt *float64

	for i, f := range fields {
		if f == "ms" && i > 0 && rtt == nil {
			if m := rttMs.FindStringSubmatch(fields[i-1]); m != nil {
				if val, err := strconv.ParseFloat(m[1], 64); err == nil {
					rtt = &val
				}
			}
			continue
		}
		if ip == "" && isAddress(f) {
			ip = f
		}
	}

	if ip == "" {
		return "", nil
	}
	return ip, rtt
}

func isAddress(s string) bool {
	if strings.Count(s, ".") == 3 {
		for _, part := range strings.Split(s, ".") {
			if _, err := strconv.Atoi(part); err != nil {
				return false
			}
		}
		return true
	}
	return strings.Contains(s, ":")
}

func hashPath(hops []Hop) string {
	var sb strings.Builder
	for _, h := range hops {
		sb.WriteString(fmt.Sprintf("%d:%s|", h.TTL, h.IP))
	}

	hash := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(hash[:])
}
