package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/iaserrat/pingcheck/internal/enrich"
	"github.com/iaserrat/pingcheck/internal/metrics"
	"github.com/iaserrat/pingcheck/internal/probe"
	"github.com/iaserrat/pingcheck/internal/sweep"
)

const (
	green = "\033[92m"
	red   = "\033[91m"
	cyan  = "\033[96m"
	reset = "\033[0m"
)

type Printer struct {
	w     io.Writer
	color bool
}

// New colors output only when w is a terminal and noColor is unset.
func New(w io.Writer, noColor bool) *Printer {
	color := false
	if f, ok := w.(*os.File); ok && !noColor {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &Printer{w: w, color: color}
}

func (p *Printer) paint(code string, s string) string {
	if !p.color {
		return s
	}
	return code + s + reset
}

// Result prints the one-line verdict for a single probe.
func (p *Printer) Result(target string, res probe.Result, err error) {
	fmt.Fprintln(p.w, p.Line(target, res, err))
}

func (p *Printer) Line(target string, res probe.Result, err error) string {
	switch {
	case err != nil:
		if errors.Is(err, probe.ErrToolNotFound) {
			return p.paint(red, fmt.Sprintf("Ping to %s failed: ping tool not found", target))
		}
		return p.paint(red, fmt.Sprintf("Ping to %s failed: %v", target, err))
	case res.Reachable:
		if latency, ok := res.Latency(); ok {
			return p.paint(green, fmt.Sprintf("Ping to %s successful. Avg Ping Time: %.2f ms", target, latency))
		}
		return p.paint(green, fmt.Sprintf("Ping to %s successful.", target))
	case res.TimedOut:
		return p.paint(red, fmt.Sprintf("Ping to %s failed: timed out", target))
	case res.ResolveErr != "":
		return p.paint(red, fmt.Sprintf("Ping to %s failed: could not resolve host", target))
	default:
		return p.paint(red, fmt.Sprintf("Ping to %s failed (exit code %d).", target, res.RawExitCode))
	}
}

// Status prints the server list with a status column.
func (p *Printer) Status(outcomes []sweep.Outcome, details map[string]enrich.Details) {
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tHOST\tSTATUS\tLATENCY\tCOUNTRY\tCERTIFICATE")
	for _, o := range outcomes {
		status := "Unavailable"
		if o.OK() {
			status = "Available"
		}
		if o.Err != nil && probe.IsProbeError(o.Err) {
			status = "Error"
		}

		latency := "-"
		if v, ok := o.Result.Latency(); ok && o.OK() {
			latency = fmt.Sprintf("%.2f ms", v)
		}

		country, cert := "-", "-"
		if d, ok := details[o.Target.Host]; ok {
			country = d.Country
			cert = certificateCell(d.Certificate)
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", o.Target.Label(), o.Target.Host, status, latency, country, cert)
	}
	_ = tw.Flush()
}

func certificateCell(c *enrich.Certificate) string {
	if c == nil {
		return enrich.Unknown
	}
	parts := []string{c.Subject, fmt.Sprintf("%dd left", c.DaysLeft), c.TLSVersion}
	if !c.Verified {
		parts = append(parts, "unverified")
	}
	return strings.Join(parts, ", ")
}

// Summary prints the per-target figures gathered in watch mode.
func (p *Printer) Summary(sums []metrics.Summary) {
	fmt.Fprintln(p.w, p.paint(cyan, "Summary:"))
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TARGET\tPROBES\tLOSS\tAVG\tP95\tDOWN")
	for _, s := range sums {
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\t%.2f ms\t%.2f ms\t%d (%s)\n",
			s.Target, s.Probes, s.LossPct, s.RttAvgMs, s.RttP95Ms, s.DownCount, s.DownFor)
	}
	_ = tw.Flush()
}

// Event prints a down/up transition.
func (p *Printer) Event(e metrics.Event) {
	switch evt := e.(type) {
	case metrics.Down:
		fmt.Fprintln(p.w, p.paint(red, fmt.Sprintf("%s is DOWN (%s, loss %.0f%%)", evt.Target, evt.Reason, evt.LossPct)))
	case metrics.Up:
		fmt.Fprintln(p.w, p.paint(green, fmt.Sprintf("%s is UP after %s", evt.Target, evt.DownFor)))
	}
}

// Addresses prints the result of a bare hostname resolution.
func (p *Printer) Addresses(host string, addrs []string, err error) {
	if err != nil {
		fmt.Fprintln(p.w, p.paint(red, fmt.Sprintf("Could not resolve hostname '%s'.", host)))
		return
	}
	fmt.Fprintln(p.w, p.paint(green, fmt.Sprintf("Hostname '%s' resolves to: %s", host, strings.Join(addrs, ", "))))
}

// Headers prints the response headers of a host, or the failure line when h
// is nil.
func (p *Printer) Headers(host string, h *enrich.Headers) {
	if h == nil {
		fmt.Fprintln(p.w, p.paint(red, fmt.Sprintf("Failed to retrieve HTTP headers for %s.", host)))
		return
	}
	fmt.Fprintln(p.w, p.paint(green, fmt.Sprintf("--- HTTP Headers for %s ---", host)))

	keys := make([]string, 0, len(h.Header))
	for k := range h.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(p.w, "  %s: %s\n", k, strings.Join(h.Header[k], ", "))
	}
	fmt.Fprintf(p.w, "  Status Code: %d\n", h.StatusCode)
}
