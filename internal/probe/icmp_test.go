package probe

import (
	"context"
	"errors"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestICMPResolverFailureIsUnreachable(t *testing.T) {
	p := &ICMPProber{Resolver: stubResolver{err: errors.New("nxdomain")}}

	res, err := p.Probe(context.Background(), "missing.test", DefaultConfig())
	require.NoError(t, err)
	assert.False(t, res.Reachable)
	assert.Equal(t, ExitResolveFailed, res.RawExitCode)
	assert.Equal(t, "nxdomain", res.ResolveErr)
	assert.False(t, res.Time.IsZero())
}

func TestICMPRejectsBadTargets(t *testing.T) {
	p := &ICMPProber{}

	_, err := p.Probe(context.Background(), "  ", DefaultConfig())
	assert.ErrorIs(t, err, ErrEmptyTarget)

	_, err = p.Probe(context.Background(), "-f", DefaultConfig())
	assert.ErrorIs(t, err, ErrOptionTarget)
}

func TestICMPRawSocketWithoutPrivilegeIsProbeError(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("raw socket permissions checked on linux only")
	}
	if os.Geteuid() == 0 {
		t.Skip("root may open raw sockets")
	}
	p := &ICMPProber{Privileged: true}

	res, err := p.Probe(context.Background(), "127.0.0.1", Config{Count: 1, PerPacketTimeout: time.Second})
	require.Error(t, err)
	assert.True(t, IsProbeError(err))
	assert.False(t, res.Reachable)
}

func TestICMPLoopback(t *testing.T) {
	if testing.Short() {
		t.Skip("sends real echo requests")
	}
	p := &ICMPProber{Privileged: os.Geteuid() == 0}

	res, err := p.Probe(context.Background(), "127.0.0.1", Config{Count: 1, PerPacketTimeout: 2 * time.Second})
	if IsProbeError(err) {
		t.Skipf("icmp sockets not permitted here: %v", err)
	}
	require.NoError(t, err)
	if !res.Reachable {
		t.Skip("loopback echo not answered in this environment")
	}
	assert.Equal(t, 0, res.RawExitCode)
	assert.Equal(t, 1, res.Samples)
	_, ok := res.Latency()
	assert.True(t, ok)
}

func TestICMPCallerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&ICMPProber{}).Probe(ctx, "127.0.0.1", Config{Count: 5, PerPacketTimeout: time.Second})
	assert.ErrorIs(t, err, context.Canceled)
}
