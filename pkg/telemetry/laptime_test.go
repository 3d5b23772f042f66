package telemetry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"acdash/pkg/telemetry"
)

func TestParseTimeShapes(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want telemetry.Millis
	}{
		{"seconds and millis", "45:678", 45678},
		{"leading colon", ":45:678", 45678},
		{"minutes dotted", "1:23.456", 83456},
		{"minutes three segments", "1:23:456", 83456},
		{"surrounding whitespace", "  29:337  ", 29337},
		{"ambiguous single colon reads as seconds", "1:23", 1023},
		{"leading colon minutes form", ":45", 45000},
		{"extra dot keeps whole seconds", "1:23.4.5", 83000},
		{"non numeric segments default to zero", "ab:cd", 0},
		{"trailing garbage after digits", "1:30.500ms", 90500},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := telemetry.ParseTime(tc.in)
			assert.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseTimeUnparseable(t *testing.T) {
	for _, in := range []string{"", "   ", "garbage", "1:2:3:4", "1::5", ":1:2:3"} {
		_, ok := telemetry.ParseTime(in)
		assert.False(t, ok, "input %q", in)
	}
}

func TestParseTimeClampsHugeSegments(t *testing.T) {
	got, ok := telemetry.ParseTime("99999999999999999999:00.000")
	assert.True(t, ok)
	assert.Equal(t, telemetry.Millis(999_999_999*60000), got)
	assert.False(t, got.Valid())

	got, ok = telemetry.ParseTime("1:9223372036854775807:0")
	assert.True(t, ok)
	assert.Equal(t, telemetry.Millis(60000+999_999_999*1000), got)
	assert.False(t, got.Valid())
}

func TestFormatTime(t *testing.T) {
	var absent telemetry.Millis

	assert.Equal(t, "00:00.000", telemetry.FormatTime(0))
	assert.Equal(t, "00:00.000", telemetry.FormatTime(-5))
	assert.Equal(t, "00:00.000", telemetry.FormatTime(absent))
	assert.Equal(t, "00:00.005", telemetry.FormatTime(5))
	assert.Equal(t, "01:23.456", telemetry.FormatTime(83456))
	assert.Equal(t, "59:59.999", telemetry.FormatTime(3_599_999))
	assert.Equal(t, "60:00.000", telemetry.FormatTime(3_600_000))
}

func TestParseFormatRoundTrip(t *testing.T) {
	cases := map[string]string{
		"45:678":   "00:45.678",
		":45:678":  "00:45.678",
		"1:23.456": "01:23.456",
		"1:23:456": "01:23.456",
	}
	for in, want := range cases {
		ms, ok := telemetry.ParseTime(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, telemetry.FormatTime(ms), in)
	}
}

func TestFormatDelta(t *testing.T) {
	assert.Equal(t, "+00:02.500", telemetry.FormatDelta(2500))
	assert.Equal(t, "-00:04.500", telemetry.FormatDelta(-4500))
	assert.Equal(t, "+00:00.000", telemetry.FormatDelta(0))
}

func TestMillisValid(t *testing.T) {
	assert.False(t, telemetry.Millis(0).Valid())
	assert.False(t, telemetry.NoTime.Valid())
	assert.False(t, telemetry.MaxLapTime.Valid())
	assert.True(t, telemetry.Millis(1).Valid())
	assert.True(t, (telemetry.MaxLapTime - 1).Valid())
}
