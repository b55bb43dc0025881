package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iaserrat/pingcheck/internal/config"
	"github.com/iaserrat/pingcheck/internal/enrich"
	"github.com/iaserrat/pingcheck/internal/logging"
	"github.com/iaserrat/pingcheck/internal/report"
	"github.com/iaserrat/pingcheck/internal/resolve"
	"github.com/iaserrat/pingcheck/internal/setup"
	"github.com/iaserrat/pingcheck/internal/sweep"
)

var version = "dev"

var newPinger = setup.Pinger

const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	random  bool
	watch   bool
	rounds  int
	resolve string
	headers string
	enrich  bool
	noColor bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pingsweep", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file (TOML, or YAML by extension)")
	verbose := fs.Bool("v", false, "Log diagnostics to stderr")
	showVersion := fs.Bool("version", false, "Print version and exit")

	var opts options
	fs.BoolVar(&opts.random, "random", false, "Probe one randomly chosen target")
	fs.BoolVar(&opts.watch, "watch", false, "Probe repeatedly and report targets going down or up")
	fs.IntVar(&opts.rounds, "rounds", -1, "Rounds in watch mode, 0 runs until interrupted (default from config)")
	fs.StringVar(&opts.resolve, "resolve", "", "Resolve a hostname and exit")
	fs.StringVar(&opts.headers, "headers", "", "Print the HTTP response headers of a host and exit")
	fs.BoolVar(&opts.enrich, "enrich", false, "Look up country and TLS certificate for each target")
	fs.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	if err := fs.Parse(args); err != nil {
		return exitConfig
	}
	if *showVersion {
		fmt.Fprintln(stdout, version)
		return exitOK
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n", fs.Args())
		return exitConfig
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintln(stderr, err)
			return exitConfig
		}
	}
	if opts.rounds >= 0 {
		cfg.Watch.Rounds = opts.rounds
	}
	if opts.enrich {
		cfg.Enrich.Country = true
		cfg.Enrich.Certificate = true
	}

	log := setup.Console(stderr, *verbose)
	printer := report.New(stdout, opts.noColor)

	if opts.resolve != "" {
		return resolveHost(ctx, cfg, printer, opts.resolve)
	}
	if opts.headers != "" {
		return httpHeaders(ctx, cfg, printer, log, opts.headers)
	}

	records, err := setup.RecordLog(cfg, "pingsweep", version)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitConfig
	}
	defer records.Close()

	runner := sweep.Runner{
		Pinger:  newPinger(cfg, log),
		Config:  setup.ProbeConfig(cfg),
		Workers: cfg.Ping.Workers,
	}

	switch {
	case opts.watch:
		return watch(ctx, cfg, runner, printer, records, log)
	case opts.random:
		return randomTarget(ctx, cfg, runner, printer, records, log)
	default:
		return status(ctx, cfg, runner, printer, records, log, setup.Enricher(cfg, log))
	}
}

func resolveHost(ctx context.Context, cfg config.Config, printer *report.Printer, host string) int {
	r := setup.Resolver(cfg)
	if r == nil {
		r = resolve.New(nil, time.Duration(cfg.DNS.TimeoutMS)*time.Millisecond)
	}
	addrs, err := r.Lookup(ctx, host)
	printer.Addresses(host, addrs, err)
	if err != nil {
		return exitFailed
	}
	return exitOK
}

func httpHeaders(ctx context.Context, cfg config.Config, printer *report.Printer, log logrus.FieldLogger, host string) int {
	h := setup.Enricher(cfg, log).Headers(ctx, host)
	printer.Headers(host, h)
	if h == nil {
		return exitFailed
	}
	return exitOK
}

func randomTarget(ctx context.Context, cfg config.Config, runner sweep.Runner, printer *report.Printer, records *logging.Logger, log logrus.FieldLogger) int {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	target, ok := sweep.Pick(cfg.Targets, rng)
	if !ok {
		return exitFailed
	}

	outcomes := runner.Run(ctx, []config.TargetConfig{target})
	o := outcomes[0]
	printer.Result(target.Host, o.Result, o.Err)
	emitProbe(records, log, o, 1)

	if !o.OK() {
		return exitFailed
	}
	return exitOK
}

func status(ctx context.Context, cfg config.Config, runner sweep.Runner, printer *report.Printer, records *logging.Logger, log logrus.FieldLogger, enricher *enrich.Enricher) int {
	outcomes := runner.Run(ctx, cfg.Targets)
	for _, o := range outcomes {
		emitProbe(records, log, o, 1)
	}

	var details map[string]enrich.Details
	if enricher.Country || enricher.Certificate {
		details = make(map[string]enrich.Details, len(outcomes))
		for _, o := range outcomes {
			details[o.Target.Host] = enricher.Lookup(ctx, o.Target.Host)
		}
	}

	printer.Status(outcomes, details)
	if !sweep.AllOK(outcomes) {
		return exitFailed
	}
	return exitOK
}

func emitProbe(records *logging.Logger, log logrus.FieldLogger, o sweep.Outcome, round int) {
	if records == nil {
		return
	}
	rec := &logging.ProbeRecord{
		BaseEvent:  logging.BaseEvent{Type: "probe_result", Target: o.Target.Host},
		Address:    o.Result.Address,
		Reachable:  o.OK(),
		LatencyMs:  o.Result.LatencyMs,
		ExitCode:   o.Result.RawExitCode,
		TimedOut:   o.Result.TimedOut,
		ResolveErr: o.Result.ResolveErr,
		Round:      round,
	}
	if o.Err != nil {
		rec.ProbeErr = o.Err.Error()
	}
	emit(records, log, rec)
}
