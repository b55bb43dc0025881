package traceroute

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iaserrat/pingcheck/internal/probe"
)

func TestCommandPerPlatform(t *testing.T) {
	cfg := Config{MaxHops: 15, Timeout: 1500 * time.Millisecond}

	name, args := Command(probe.PlatformFor("linux"), "example.com", cfg)
	assert.Equal(t, "traceroute", name)
	assert.Equal(t, []string{"-n", "-m", "15", "-w", "2", "example.com"}, args)

	name, args = Command(probe.PlatformFor("windows"), "example.com", cfg)
	assert.Equal(t, "tracert", name)
	assert.Equal(t, []string{"-d", "-h", "15", "-w", "1500", "example.com"}, args)
}

func TestParseTraceroute(t *testing.T) {
	out := `traceroute to 1.1.1.1 (1.1.1.1), 30 hops max, 60 byte packets
 1  192.168.1.1  0.512 ms  0.430 ms  0.401 ms
 2  * * *
 3  1.1.1.1  9.870 ms  9.990 ms  10.100 ms
`
	hops := parseOutput(out)
	require.Len(t, hops, 3)

	assert.Equal(t, 1, hops[0].TTL)
	assert.Equal(t, "192.168.1.1", hops[0].IP)
	require.NotNil(t, hops[0].RttMs)
	assert.InDelta(t, 0.512, *hops[0].RttMs, 1e-9)

	assert.Equal(t, "", hops[1].IP)
	assert.Nil(t, hops[1].RttMs)

	assert.Equal(t, "1.1.1.1", hops[2].IP)
}

func TestParseTracert(t *testing.T) {
	out := `Tracing route to 1.1.1.1 over a maximum of 30 hops

  1    <1 ms    <1 ms    <1 ms  192.168.1.1
  2     *        *        *     Request timed out.
  3    10 ms     9 ms    11 ms  1.1.1.1

Trace complete.
`
	hops := parseOutput(out)
	require.Len(t, hops, 3)
	assert.Equal(t, "192.168.1.1", hops[0].IP)
	require.NotNil(t, hops[0].RttMs)
	assert.Equal(t, 1.0, *hops[0].RttMs)
	assert.Equal(t, "", hops[1].IP)
	assert.Equal(t, "1.1.1.1", hops[2].IP)
	assert.Equal(t, 10.0, *hops[2].RttMs)
}

func TestHashPathStable(t *testing.T) {
	a := []Hop{{TTL: 1, IP: "10.0.0.1"}, {TTL: 2, IP: "10.0.0.2"}}
	b := []Hop{{TTL: 1, IP: "10.0.0.1"}, {TTL: 2, IP: "10.0.0.3"}}

	assert.Equal(t, hashPath(a), hashPath(a))
	assert.NotEqual(t, hashPath(a), hashPath(b))
}
