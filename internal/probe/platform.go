package probe

import (
	"fmt"
	"runtime"
	"strconv"
	"time"
)

// Family is the OS family whose native ping syntax we have to speak.
type Family int

const (
	PosixLike Family = iota
	WindowsLike
)

func (f Family) String() string {
	switch f {
	case WindowsLike:
		return "windows"
	case PosixLike:
		return "posix"
	default:
		return fmt.Sprintf("family(%d)", int(f))
	}
}

// Platform describes the host the probe runs on.
type Platform struct {
	Family Family
	// WaitInMillis is set for BSD-derived pings (macOS) whose -W takes
	// milliseconds instead of seconds.
	WaitInMillis bool
}

// Detect resolves the platform from the Go runtime.
func Detect() Platform {
	return PlatformFor(runtime.GOOS)
}

func PlatformFor(goos string) Platform {
	switch goos {
	case "windows":
		return Platform{Family: WindowsLike}
	case "darwin", "ios":
		return Platform{Family: PosixLike, WaitInMillis: true}
	default:
		return Platform{Family: PosixLike}
	}
}

// PingArgs builds the argument list for the native ping tool.
func (p Platform) PingArgs(target string, cfg Config) []string {
	cfg = cfg.withDefaults()
	count := strconv.Itoa(cfg.Count)

	if p.Family == WindowsLike {
		return []string{"-n", count, "-w", strconv.FormatInt(cfg.PerPacketTimeout.Milliseconds(), 10), target}
	}

	wait := waitSeconds(cfg.PerPacketTimeout)
	if p.WaitInMillis {
		wait = strconv.FormatInt(cfg.PerPacketTimeout.Milliseconds(), 10)
	}
	return []string{"-c", count, "-W", wait, target}
}

// waitSeconds rounds up, iputils rejects a zero wait.
func waitSeconds(d time.Duration) string {
	secs := int64((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}
