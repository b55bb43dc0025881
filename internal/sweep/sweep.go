// Package sweep runs independent probes over many targets. Any concurrency or
// repetition lives here; the prober itself stays a single attempt.
package sweep

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/iaserrat/pingcheck/internal/config"
	"github.com/iaserrat/pingcheck/internal/probe"
)

// Outcome pairs a target with its probe result or error.
type Outcome struct {
	Target config.TargetConfig
	Result probe.Result
	Err    error
}

// OK reports whether the target answered.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Result.Reachable
}

type Runner struct {
	Pinger  probe.Pinger
	Config  probe.Config
	Workers int
}

// Run probes every target with at most Workers probes in flight. Outcomes are
// returned in target order.
func (r Runner) Run(ctx context.Context, targets []config.TargetConfig) []Outcome {
	out := make([]Outcome, len(targets))
	workers := r.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(targets) {
		workers = len(targets)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res, err := r.Pinger.Probe(ctx, targets[i].Host, r.Config)
				out[i] = Outcome{Target: targets[i], Result: res, Err: err}
			}
		}()
	}

	for i := range targets {
		select {
		case jobs <- i:
		case <-ctx.Done():
			for j := i; j < len(targets); j++ {
				out[j] = Outcome{Target: targets[j], Err: ctx.Err()}
			}
			close(jobs)
			wg.Wait()
			return out
		}
	}
	close(jobs)
	wg.Wait()

	return out
}

// Stream probes targets once per interval and hands each outcome to fn in
// target order. rounds <= 0 runs until ctx is done.
func (r Runner) Stream(ctx context.Context, targets []config.TargetConfig, rounds int, interval time.Duration, fn func(round int, o Outcome)) {
	next := time.Now()
	for round := 1; rounds <= 0 || round <= rounds; round++ {
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		for _, o := range r.Run(ctx, targets) {
			if ctx.Err() != nil {
				return
			}
			fn(round, o)
		}

		next = next.Add(interval)
	}
}

// Pick returns one target at random.
func Pick(targets []config.TargetConfig, rng *rand.Rand) (config.TargetConfig, bool) {
	if len(targets) == 0 {
		return config.TargetConfig{}, false
	}
	return targets[rng.Intn(len(targets))], true
}

// AllOK reports whether every outcome was reachable.
func AllOK(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if !o.OK() {
			return false
		}
	}
	return len(outcomes) > 0
}
