package probe

import (
	"regexp"
	"strconv"
)

// Matches "time=12.3 ms" (iputils, BSD) and "time=12ms" / "time<1ms" (Windows).
var rttField = regexp.MustCompile(`time([=<])\s?([\d.]+)\s?ms`)

// parseLatency averages every round-trip sample in the tool output.
func parseLatency(out string) (*float64, int) {
	matches := rttField.FindAllStringSubmatch(out, -1)

	var sum float64
	n := 0
	for _, m := range matches {
		val, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		sum += val
		n++
	}
	if n == 0 {
		return nil, 0
	}

	avg := sum / float64(n)
	return &avg, n
}
