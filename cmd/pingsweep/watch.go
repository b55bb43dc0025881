package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iaserrat/pingcheck/internal/config"
	"github.com/iaserrat/pingcheck/internal/logging"
	"github.com/iaserrat/pingcheck/internal/metrics"
	"github.com/iaserrat/pingcheck/internal/probe"
	"github.com/iaserrat/pingcheck/internal/report"
	"github.com/iaserrat/pingcheck/internal/sweep"
	"github.com/iaserrat/pingcheck/internal/traceroute"
)

type traceRequest struct {
	target     string
	incidentID string
}

func watch(ctx context.Context, cfg config.Config, runner sweep.Runner, printer *report.Printer, records *logging.Logger, log logrus.FieldLogger) int {
	tracker := metrics.NewTracker(time.Duration(cfg.Watch.WindowSecs) * time.Second)

	var traceCh chan traceRequest
	var traceDone <-chan struct{}
	if cfg.Traceroute.Enabled {
		traceCh = make(chan traceRequest, 64)
		traceDone = startTracer(ctx, cfg, records, tracker, log, traceCh)
	}

	interval := time.Duration(cfg.Watch.IntervalMS) * time.Millisecond
	runner.Stream(ctx, cfg.Targets, cfg.Watch.Rounds, interval, func(round int, o sweep.Outcome) {
		emitProbe(records, log, o, round)

		ts := o.Result.Time
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		events := tracker.Observe(o.Target.Host, metrics.Sample{Time: ts, Reachable: o.OK(), LatencyMs: o.Result.LatencyMs})
		for _, e := range events {
			printer.Event(e)
			emitStateChange(records, log, e)

			if down, ok := e.(metrics.Down); ok && traceCh != nil {
				select {
				case traceCh <- traceRequest{target: down.Target, incidentID: down.IncidentID}:
				default:
					log.WithField("target", down.Target).Warn("traceroute queue full")
				}
			}
		}
	})

	if traceCh != nil {
		close(traceCh)
		<-traceDone
	}

	sums := tracker.Summaries()
	printer.Summary(sums)

	code := exitOK
	for _, s := range sums {
		emitSummary(records, log, s)
		if s.Down {
			code = exitFailed
		}
	}
	return code
}

func startTracer(ctx context.Context, cfg config.Config, records *logging.Logger, tracker *metrics.Tracker, log logrus.FieldLogger, reqCh <-chan traceRequest) <-chan struct{} {
	done := make(chan struct{})
	platform := probe.Detect()
	trCfg := traceroute.Config{
		MaxHops: cfg.Traceroute.MaxHops,
		Timeout: time.Duration(cfg.Traceroute.TimeoutMS) * time.Millisecond,
	}
	cooldown := time.Duration(cfg.Traceroute.CooldownSecs) * time.Second
	traceTimeout := time.Duration(cfg.Traceroute.MaxHops)*trCfg.Timeout + 2*time.Second

	go func() {
		defer close(done)
		lastTrace := make(map[string]time.Time)
		lastPath := make(map[string]string)
		lastHops := make(map[string][]logging.TracerouteHop)

		for req := range reqCh {
			if ctx.Err() != nil {
				continue
			}
			if time.Since(lastTrace[req.target]) < cooldown {
				continue
			}
			lastTrace[req.target] = time.Now()

			trCtx, cancel := context.WithTimeout(ctx, traceTimeout)
			res := traceroute.Run(trCtx, platform, req.target, trCfg)
			cancel()

			tracker.RecordTraceroute(req.target, req.incidentID)
			log.WithFields(logrus.Fields{"target": req.target, "hops": len(res.Hops), "err": res.Err}).Debug("traceroute done")

			if records == nil {
				continue
			}
			hops := toLogHops(res.Hops)
			emit(records, log, &logging.TracerouteResult{
				BaseEvent: logging.BaseEvent{Type: "traceroute_result", Target: req.target, IncidentID: req.incidentID},
				Hops:      hops,
				PathHash:  res.PathHash,
				Err:       res.Err,
			})

			if res.Err != "" || res.PathHash == "" {
				continue
			}
			if prev := lastPath[req.target]; prev != "" && prev != res.PathHash {
				emit(records, log, &logging.PathChange{
					BaseEvent:    logging.BaseEvent{Type: "path_change", Target: req.target, IncidentID: req.incidentID},
					PrevPathHash: prev,
					NewPathHash:  res.PathHash,
					PrevHops:     lastHops[req.target],
					NewHops:      hops,
				})
			}
			lastPath[req.target] = res.PathHash
			lastHops[req.target] = hops
		}
	}()

	return done
}

func toLogHops(hops []traceroute.Hop) []logging.TracerouteHop {
	out := make([]logging.TracerouteHop, 0, len(hops))
	for _, h := range hops {
		out = append(out, logging.TracerouteHop{TTL: h.TTL, IP: h.IP, RttMs: h.RttMs})
	}
	return out
}

func emitStateChange(records *logging.Logger, log logrus.FieldLogger, e metrics.Event) {
	if records == nil {
		return
	}
	switch evt := e.(type) {
	case metrics.Down:
		emit(records, log, &logging.StateChange{
			BaseEvent:           logging.BaseEvent{Type: string(metrics.KindDown), Target: evt.Target, IncidentID: evt.IncidentID},
			Reason:              evt.Reason,
			LossPct:             evt.LossPct,
			RttP95Ms:            evt.RttP95Ms,
			ConsecutiveFailures: evt.ConsecutiveFailures,
		})
	case metrics.Up:
		emit(records, log, &logging.StateChange{
			BaseEvent: logging.BaseEvent{Type: string(metrics.KindUp), Target: evt.Target, IncidentID: evt.IncidentID},
			Reason:    "cleared",
			LossPct:   evt.LossPct,
			RttP95Ms:  evt.RttP95Ms,
		})
	}
}

func emitSummary(records *logging.Logger, log logrus.FieldLogger, s metrics.Summary) {
	if records == nil {
		return
	}
	emit(records, log, &logging.TargetSummary{
		BaseEvent:   logging.BaseEvent{Type: "target_summary", Target: s.Target},
		Probes:      s.Probes,
		Reachable:   s.Reachable,
		LossPct:     s.LossPct,
		RttAvgMs:    s.RttAvgMs,
		RttP95Ms:    s.RttP95Ms,
		DownCount:   s.DownCount,
		DownFor:     s.DownFor.Milliseconds(),
		FirstProbe:  s.FirstProbe,
		LastProbe:   s.LastProbe,
		Traceroutes: s.Traceroutes,
	})
}

func emit(records *logging.Logger, log logrus.FieldLogger, rec logging.Emittable) {
	if err := records.Emit(rec); err != nil {
		log.WithError(err).Warn("write record")
	}
}
