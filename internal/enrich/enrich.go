// Package enrich looks up optional details about a target. Every lookup is
// best-effort: failures leave fields at Unknown and are never returned.
package enrich

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iaserrat/pingcheck/internal/probe"
)

const Unknown = "unknown"

type Details struct {
	Country     string
	Certificate *Certificate
}

type Certificate struct {
	Subject    string
	Issuer     string
	NotAfter   time.Time
	DaysLeft   int
	TLSVersion string
	Verified   bool
}

// Headers is the response to a plain GET against a host.
type Headers struct {
	URL        string
	StatusCode int
	Header     http.Header
}

type Enricher struct {
	Country     bool
	Certificate bool
	IPInfoURL   string
	Timeout     time.Duration
	Resolver    probe.Resolver
	HTTPClient  *http.Client
	Log         logrus.FieldLogger

	now func() time.Time
}

func (e *Enricher) Lookup(ctx context.Context, host string) Details {
	d := Details{Country: Unknown}
	if e.Country {
		d.Country = e.country(ctx, host)
	}
	if e.Certificate {
		d.Certificate = e.certificate(ctx, host, "443")
	}
	return d
}

func (e *Enricher) country(ctx context.Context, host string) string {
	ip, err := e.address(ctx, host)
	if err != nil {
		e.log().WithError(err).WithField("target", host).Debug("country lookup: resolve failed")
		return Unknown
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout())
	defer cancel()

	url := fmt.Sprintf("%s/%s/country", strings.TrimRight(e.IPInfoURL, "/"), ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Unknown
	}

	resp, err := e.client().Do(req)
	if err != nil {
		e.log().WithError(err).WithField("target", host).Debug("country lookup failed")
		return Unknown
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e.log().WithField("status", resp.StatusCode).WithField("target", host).Debug("country lookup rejected")
		return Unknown
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return Unknown
	}
	country := strings.TrimSpace(string(body))
	if country == "" {
		return Unknown
	}
	return country
}

func (e *Enricher) certificate(ctx context.Context, host string, port string) *Certificate {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: e.timeout()},
		Config: &tls.Config{
			ServerName: host,
			// Expired or self-signed certificates are still worth describing.
			InsecureSkipVerify: true,
		},
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout())
	defer cancel()

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		e.log().WithError(err).WithField("target", host).Debug("certificate lookup failed")
		return nil
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil
	}
	leaf := state.PeerCertificates[0]

	intermediates := x509.NewCertPool()
	for _, c := range state.PeerCertificates[1:] {
		intermediates.AddCert(c)
	}
	_, verifyErr := leaf.Verify(x509.VerifyOptions{DNSName: host, Intermediates: intermediates})

	return &Certificate{
		Subject:    certName(leaf),
		Issuer:     leaf.Issuer.CommonName,
		NotAfter:   leaf.NotAfter,
		DaysLeft:   int(leaf.NotAfter.Sub(e.clock()).Hours() / 24),
		TLSVersion: tls.VersionName(state.Version),
		Verified:   verifyErr == nil,
	}
}

// Headers fetches http://host, following redirects, and returns nil when no
// response arrives.
func (e *Enricher) Headers(ctx context.Context, host string) *Headers {
	url := host
	if !strings.Contains(url, "://") {
		url = "http://" + host
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		e.log().WithError(err).WithField("target", host).Debug("header lookup: bad url")
		return nil
	}

	resp, err := e.client().Do(req)
	if err != nil {
		e.log().WithError(err).WithField("target", host).Debug("header lookup failed")
		return nil
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return &Headers{URL: resp.Request.URL.String(), StatusCode: resp.StatusCode, Header: resp.Header}
}

func certName(c *x509.Certificate) string {
	if c.Subject.CommonName != "" {
		return c.Subject.CommonName
	}
	if len(c.DNSNames) > 0 {
		return c.DNSNames[0]
	}
	return Unknown
}

func (e *Enricher) address(ctx context.Context, host string) (string, error) {
	if net.ParseIP(host) != nil {
		return host, nil
	}
	if e.Resolver != nil {
		return e.Resolver.Resolve(ctx, host)
	}
	addrs, err := net.DefaultResolver.LookupHost(ctx, host)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("no addresses for %s", host)
	}
	return addrs[0], nil
}

func (e *Enricher) timeout() time.Duration {
	if e.Timeout <= 0 {
		return 5 * time.Second
	}
	return e.Timeout
}

func (e *Enricher) client() *http.Client {
	if e.HTTPClient != nil {
		return e.HTTPClient
	}
	return &http.Client{Timeout: e.timeout()}
}

func (e *Enricher) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now()
}

func (e *Enricher) log() logrus.FieldLogger {
	if e.Log == nil {
		return logrus.StandardLogger()
	}
	return e.Log
}
