// Package setup turns a loaded config into the runtime pieces both CLIs use.
package setup

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iaserrat/pingcheck/internal/config"
	"github.com/iaserrat/pingcheck/internal/enrich"
	"github.com/iaserrat/pingcheck/internal/logging"
	"github.com/iaserrat/pingcheck/internal/probe"
	"github.com/iaserrat/pingcheck/internal/resolve"
)

// Console returns the diagnostics logger written to w, stderr in practice.
func Console(w io.Writer, verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: !verbose, FullTimestamp: true})
	log.SetLevel(logrus.WarnLevel)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

func ProbeConfig(cfg config.Config) probe.Config {
	return probe.Config{
		Count:            cfg.Ping.Count,
		PerPacketTimeout: cfg.Ping.Timeout(),
		Deadline:         cfg.Ping.Deadline(),
	}
}

// Resolver is nil unless custom DNS servers are configured.
func Resolver(cfg config.Config) *resolve.Resolver {
	if len(cfg.DNS.Resolvers) == 0 {
		return nil
	}
	return resolve.New(cfg.DNS.Resolvers, time.Duration(cfg.DNS.TimeoutMS)*time.Millisecond)
}

func Pinger(cfg config.Config, log logrus.FieldLogger) probe.Pinger {
	var resolver probe.Resolver
	if r := Resolver(cfg); r != nil {
		resolver = r
	}

	if cfg.Ping.Backend == config.BackendICMP {
		return &probe.ICMPProber{Privileged: cfg.Ping.Privileged, Resolver: resolver}
	}

	p := probe.NewProber()
	p.Resolver = resolver
	p.Log = log
	return p
}

func Enricher(cfg config.Config, log logrus.FieldLogger) *enrich.Enricher {
	e := &enrich.Enricher{
		Country:     cfg.Enrich.Country,
		Certificate: cfg.Enrich.Certificate,
		IPInfoURL:   cfg.Enrich.IPInfoURL,
		Timeout:     time.Duration(cfg.Enrich.TimeoutMS) * time.Millisecond,
		Log:         log,
	}
	if r := Resolver(cfg); r != nil {
		e.Resolver = r
	}
	return e
}

// RecordLog opens the JSONL record log, or returns nil when no directory is
// configured.
func RecordLog(cfg config.Config, tool string, version string) (*logging.Logger, error) {
	if strings.TrimSpace(cfg.Logging.Dir) == "" {
		return nil, nil
	}

	hostID, err := os.Hostname()
	if err != nil || hostID == "" {
		hostID = "unknown"
	}
	return logging.New(logging.Config{
		Dir:         cfg.Logging.Dir,
		MaxMB:       cfg.Logging.MaxMB,
		MaxFiles:    cfg.Logging.MaxFiles,
		ToolName:    tool,
		ToolVersion: version,
		HostID:      hostID,
	})
}

// SplitList parses a comma-separated flag value.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
