package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Pinger is anything that can run a single probe.
type Pinger interface {
	Probe(ctx context.Context, target string, cfg Config) (Result, error)
}

// Resolver maps a hostname to the address that gets pinged.
type Resolver interface {
	Resolve(ctx context.Context, host string) (string, error)
}

// Prober shells out to the OS ping tool. It holds no per-call state and is
// safe for concurrent use.
type Prober struct {
	Tool     string
	Platform Platform
	Resolver Resolver
	Log      logrus.FieldLogger
}

func NewProber() *Prober {
	return &Prober{Tool: "ping", Platform: Detect()}
}

// Probe sends cfg.Count echo requests to target and waits for the tool to
// exit. A missing or unrunnable tool is a *ProbeError; an unanswered target
// is a Result with Reachable false and a nil error.
func (p *Prober) Probe(ctx context.Context, target string, cfg Config) (Result, error) {
	host, err := NormalizeTarget(target)
	if err != nil {
		return Result{Target: target}, err
	}
	cfg = cfg.withDefaults()
	res := Result{Target: host, Address: host}

	tool := p.tool()
	path, err := exec.LookPath(tool)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			err = fmt.Errorf("%w: %v", ErrToolNotFound, err)
		}
		return res, &ProbeError{Target: host, Tool: tool, Err: err}
	}

	if p.Resolver != nil && net.ParseIP(host) == nil {
		addr, err := p.Resolver.Resolve(ctx, host)
		if err != nil {
			p.log().WithField("target", host).WithError(err).Debug("resolve failed")
			res.Time = time.Now().UTC()
			res.RawExitCode = ExitResolveFailed
			res.ResolveErr = err.Error()
			return res, nil
		}
		res.Address = addr
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.OverallDeadline())
	defer cancel()

	args := p.Platform.PingArgs(res.Address, cfg)
	cmd := exec.CommandContext(runCtx, path, args...)
	cmd.WaitDelay = time.Second
	hideWindow(cmd)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	res.Time = time.Now().UTC()

	log := p.log().WithFields(logrus.Fields{
		"target":  host,
		"address": res.Address,
		"args":    strings.Join(args, " "),
		"elapsed": time.Since(start).Round(time.Millisecond),
	})

	if err != nil && runCtx.Err() != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		log.Debug("ping killed at deadline")
		res.TimedOut = true
		res.RawExitCode = ExitTimedOut
		return res, nil
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.Reachable = true
		res.LatencyMs, res.Samples = parseLatency(stdout.String())
	case errors.As(err, &exitErr):
		res.RawExitCode = exitErr.ExitCode()
	default:
		return res, &ProbeError{Target: host, Tool: path, Err: err}
	}

	log.WithFields(logrus.Fields{
		"exit_code": res.RawExitCode,
		"stderr":    strings.TrimSpace(stderr.String()),
	}).Debug("ping finished")

	return res, nil
}

func (p *Prober) tool() string {
	if p.Tool == "" {
		return "ping"
	}
	return p.Tool
}

func (p *Prober) log() logrus.FieldLogger {
	if p.Log == nil {
		return logrus.StandardLogger()
	}
	return p.Log
}
