package telemetry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Millis is a duration in milliseconds as reported by the simulator.
type Millis int64

const (
	// MaxLapTime is the exclusive upper bound of a plausible lap time.
	MaxLapTime Millis = 3_600_000
	// NoTime is the simulator's "no time recorded" sentinel.
	NoTime Millis = 2147483647

	zeroTime = "00:00.000"

	// maxSegment caps a parsed time segment so the arithmetic in ParseTime
	// cannot overflow.
	maxSegment = 999_999_999
)

// Valid reports whether m is a usable lap time.
func (m Millis) Valid() bool {
	return m > 0 && m < MaxLapTime
}

// ParseTime converts a lap time string to milliseconds. Supported shapes,
// checked in this order:
//
//	SS:mmm     single colon, no leading colon, no '.' in the second segment
//	:SS:mmm    leading colon, three segments
//	M:SS.mmm   single colon; M:SS when the second segment has no '.'
//	M:SS:mmm   three non-empty segments
//
// Anything else, including blank input, reports false.
func ParseTime(s string) (Millis, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	parts := strings.Split(s, ":")
	leading := strings.HasPrefix(s, ":")

	switch {
	case !leading && len(parts) == 2 && !strings.Contains(parts[1], "."):
		return Millis(leadingInt(parts[0])*1000 + leadingInt(parts[1])), true
	case leading && len(parts) == 3:
		return Millis(leadingInt(parts[1])*1000 + leadingInt(parts[2])), true
	case len(parts) == 2:
		minutes := leadingInt(parts[0])
		secParts := strings.Split(parts[1], ".")
		if len(secParts) == 2 {
			return Millis(minutes*60000 + leadingInt(secParts[0])*1000 + leadingInt(secParts[1])), true
		}
		return Millis(minutes*60000 + leadingInt(parts[1])*1000), true
	case len(parts) == 3 && parts[0] != "" && parts[1] != "" && parts[2] != "":
		return Millis(leadingInt(parts[0])*60000 + leadingInt(parts[1])*1000 + leadingInt(parts[2])), true
	}
	return 0, false
}

// FormatTime renders ms as MM:SS.mmm. Non-positive input renders as zero.
func FormatTime(ms Millis) string {
	if ms <= 0 {
		return zeroTime
	}
	return fmt.Sprintf("%02d:%02d.%03d", ms/60000, (ms%60000)/1000, ms%1000)
}

// FormatDelta renders a signed difference, "+" for zero and above.
func FormatDelta(diff Millis) string {
	if diff >= 0 {
		return "+" + FormatTime(diff)
	}
	return "-" + FormatTime(-diff)
}

// leadingInt reads an optionally signed run of digits at the start of s.
// Text without leading digits counts as zero. The magnitude is clamped to
// maxSegment.
func leadingInt(s string) int64 {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	switch {
	case n > maxSegment:
		return maxSegment
	case n < -maxSegment:
		return -maxSegment
	}
	return n
}
