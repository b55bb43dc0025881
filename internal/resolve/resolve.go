package resolve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

var ErrNoAnswer = errors.New("no address records")

// Resolver queries an explicit list of DNS servers in order, A before AAAA.
// It backs the primary/secondary DNS setting; with no servers configured the
// OS resolver is used instead.
type Resolver struct {
	Servers []string
	Timeout time.Duration

	client *dns.Client
}

func New(servers []string, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	normalized := make([]string, 0, len(servers))
	for _, s := range servers {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		normalized = append(normalized, withPort(s))
	}
	return &Resolver{
		Servers: normalized,
		Timeout: timeout,
		client:  &dns.Client{Timeout: timeout},
	}
}

// Resolve returns the first address found for host.
func (r *Resolver) Resolve(ctx context.Context, host string) (string, error) {
	addrs, err := r.Lookup(ctx, host)
	if err != nil {
		return "", err
	}
	return addrs[0], nil
}

// Lookup returns every A and AAAA address for host. IP literals come back
// unchanged.
func (r *Resolver) Lookup(ctx context.Context, host string) ([]string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, fmt.Errorf("resolve: empty host")
	}
	if ip := net.ParseIP(host); ip != nil {
		return []string{ip.String()}, nil
	}

	if len(r.Servers) == 0 {
		addrs, err := net.DefaultResolver.LookupHost(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", host, err)
		}
		if len(addrs) == 0 {
			return nil, fmt.Errorf("resolve %s: %w", host, ErrNoAnswer)
		}
		return addrs, nil
	}

	var errs []error
	for _, server := range r.Servers {
		addrs, err := r.query(ctx, server, host)
		if err == nil {
			return addrs, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", server, err))
	}

	return nil, fmt.Errorf("resolve %s: %w", host, errors.Join(errs...))
}

func (r *Resolver) query(ctx context.Context, server string, host string) ([]string, error) {
	client := r.client
	if client == nil {
		client = &dns.Client{Timeout: r.Timeout}
	}

	var addrs []string
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(host), qtype)
		msg.RecursionDesired = true

		in, _, err := client.ExchangeContext(ctx, msg, server)
		if err != nil {
			return nil, err
		}
		if in.Rcode != dns.RcodeSuccess {
			return nil, fmt.Errorf("rcode %s", dns.RcodeToString[in.Rcode])
		}

		for _, rr := range in.Answer {
			switch rec := rr.(type) {
			case *dns.A:
				addrs = append(addrs, rec.A.String())
			case *dns.AAAA:
				addrs = append(addrs, rec.AAAA.String())
			}
		}
		if len(addrs) > 0 {
			return addrs, nil
		}
	}

	return nil, ErrNoAnswer
}

func withPort(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(strings.Trim(server, "[]"), "53")
}
