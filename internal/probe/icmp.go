package probe

import (
	"context"
	"fmt"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// ICMPProber sends echo requests from inside the process instead of running
// the ping tool. Privileged mode needs root or CAP_NET_RAW; unprivileged mode
// relies on datagram ICMP sockets (net.ipv4.ping_group_range on Linux).
type ICMPProber struct {
	Privileged bool
	Resolver   Resolver
}

func (p *ICMPProber) Probe(ctx context.Context, target string, cfg Config) (Result, error) {
	host, err := NormalizeTarget(target)
	if err != nil {
		return Result{Target: target}, err
	}
	cfg = cfg.withDefaults()
	res := Result{Target: host, Address: host}

	if p.Resolver != nil {
		addr, err := p.Resolver.Resolve(ctx, host)
		if err != nil {
			res.Time = time.Now().UTC()
			res.RawExitCode = ExitResolveFailed
			res.ResolveErr = err.Error()
			return res, nil
		}
		res.Address = addr
	}

	pinger, err := probing.NewPinger(res.Address)
	if err != nil {
		res.Time = time.Now().UTC()
		res.RawExitCode = ExitResolveFailed
		res.ResolveErr = err.Error()
		return res, nil
	}
	pinger.Count = cfg.Count
	pinger.Timeout = cfg.OverallDeadline()
	pinger.SetPrivileged(p.Privileged)

	if err := ctx.Err(); err != nil {
		return res, err
	}
	done := make(chan error, 1)
	go func() { done <- pinger.Run() }()

	select {
	case err := <-done:
		if err != nil {
			return res, &ProbeError{Target: host, Tool: "icmp", Err: fmt.Errorf("icmp socket: %w", err)}
		}
	case <-ctx.Done():
		pinger.Stop()
		<-done
		return res, ctx.Err()
	}
	res.Time = time.Now().UTC()

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		res.RawExitCode = 1
		res.TimedOut = stats.PacketsSent < cfg.Count
		return res, nil
	}

	res.Reachable = true
	avg := float64(stats.AvgRtt) / float64(time.Millisecond)
	res.LatencyMs = &avg
	res.Samples = stats.PacketsRecv
	return res, nil
}
