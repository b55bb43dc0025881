package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iaserrat/pingcheck/internal/config"
	"github.com/iaserrat/pingcheck/internal/probe"
	"github.com/iaserrat/pingcheck/internal/report"
	"github.com/iaserrat/pingcheck/internal/setup"
)

var version = "dev"

// newPinger is swapped out in tests.
var newPinger = setup.Pinger

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pingcheck", flag.ContinueOnError)
	fs.SetOutput(stdout)
	configPath := fs.String("config", "", "Path to config file (TOML, or YAML by extension)")
	count := fs.Int("count", 0, "Echo requests to send (default 1)")
	timeout := fs.Duration("timeout", 0, "Per-reply wait handed to ping (default 2s)")
	deadline := fs.Duration("deadline", 0, "Overall bound on the probe (default derived from count and timeout)")
	resolvers := fs.String("resolver", "", "Comma-separated DNS servers used to resolve the host")
	backend := fs.String("backend", "", "Probe backend: exec or icmp")
	verbose := fs.Bool("v", false, "Log diagnostics to stderr")
	noColor := fs.Bool("no-color", false, "Disable colored output")
	showVersion := fs.Bool("version", false, "Print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(stdout, "Usage: pingcheck [options] <hostname>\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *showVersion {
		fmt.Fprintln(stdout, version)
		return 0
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 1
	}
	target := fs.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if *count != 0 {
		cfg.Ping.Count = *count
	}
	if *timeout != 0 {
		cfg.Ping.TimeoutMS = ceilMillis(*timeout)
	}
	if *deadline != 0 {
		cfg.Ping.DeadlineMS = ceilMillis(*deadline)
	}
	if *resolvers != "" {
		cfg.DNS.Resolvers = setup.SplitList(*resolvers)
	}
	if *backend != "" {
		cfg.Ping.Backend = *backend
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	log := setup.Console(stderr, *verbose)
	pinger := newPinger(cfg, log)

	res, err := pinger.Probe(ctx, target, setup.ProbeConfig(cfg))
	report.New(stdout, *noColor).Result(target, res, err)

	if err != nil {
		if probe.IsProbeError(err) {
			log.WithError(err).Error("probe could not run")
		} else if !errors.Is(err, context.Canceled) {
			log.WithError(err).Warn("probe failed")
		}
		return 1
	}
	log.WithFields(logrus.Fields{
		"target":    res.Target,
		"address":   res.Address,
		"reachable": res.Reachable,
		"exit_code": res.RawExitCode,
	}).Debug("probe done")

	if !res.Reachable {
		return 1
	}
	return 0
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// ceilMillis rounds positive sub-millisecond durations up so they stay valid.
func ceilMillis(d time.Duration) int {
	ms := int(d / time.Millisecond)
	if d > 0 && d%time.Millisecond != 0 {
		ms++
	}
	return ms
}
