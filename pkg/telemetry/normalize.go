package telemetry

import (
	"math"
	"strconv"
	"strings"
)

const (
	noDelta = "-0.000"

	absThreshold   = 0.1
	tcThreshold    = 0.1
	brakeThreshold = 0.1
	drsThreshold   = 0.5
)

// Normalize resolves every widget value of s. prev is the previously
// rendered display; only the tyre tuples read from it, since an incomplete
// tuple keeps the prior values instead of rendering partially.
func Normalize(s Snapshot, prev Display) Display {
	return Display{
		RPM:        formatNumber(numberOr(s, "rpm", 0)),
		RPMPercent: rpmPercent(s),
		Gear:       GearLabel(numberOr(s, "gear", 1)),
		Speed:      formatRounded(numberOr(s, "speed", 0)),

		ABS:        thresholdIndicator(s, "abs", absThreshold, "abs", "abs_physics"),
		TC:         thresholdIndicator(s, "tc", tcThreshold, "tc", "tc_physics"),
		DRS:        flagIndicator(numberOr(s, "drs", 0) > drsThreshold),
		PitLimiter: flagIndicator(numberOr(s, "pitLimiter", 0) > 0),
		Brake:      thresholdIndicator(s, "brake", brakeThreshold, "brake"),

		FuelFill:      clampPercent(roundHalfUp(numberOr(s, "fuel", 0) * 100)),
		FuelRemaining: optionalFixed(s, "fuelRem", 1, false),
		FuelPerLap:    optionalFixed(s, "fuelPerLap", 1, true),
		FuelCapacity:  optionalFixed(s, "fuelCap", 0, false),

		WaterTemp:    waterTemp(s),
		Lap:          formatNumber(numberOr(s, "lap", 0)),
		BrakeBias:    formatNumber(numberOr(s, "brakeBias", 0)) + "%",
		TyreCompound: ClassifyCompound(firstText(s, "tyreCompound", "tyreType", "wheelType")),

		TyrePressure: corners(s, "tyrePressure", prev.TyrePressure, func(v float64) string { return formatFixed(v, 1) }),
		TyreTemp:     corners(s, "tyreCoreTemperature", prev.TyreTemp, formatRounded),

		LapTime: lapTimeText(s),
		Delta:   deltaText(s),
		BestLap: bestLapText(s),
	}
}

// GearLabel maps the simulator gear code: 0 reverse, 1 neutral, 2..8 the
// forward gears. Anything else is shown as neutral.
func GearLabel(code float64) string {
	switch {
	case code == 0:
		return "R"
	case code == 1:
		return "N"
	case code >= 2 && code <= 8 && code == math.Trunc(code):
		return strconv.Itoa(int(code) - 1)
	default:
		return "N"
	}
}

// ClassifyCompound buckets a compound name into "WET" or "DRY".
func ClassifyCompound(name string) string {
	upper := strings.ToUpper(name)
	if strings.Contains(upper, "WET") || strings.Contains(upper, "RAIN") {
		return "WET"
	}
	return "DRY"
}

func numberOr(s Snapshot, name string, def float64) float64 {
	if v, ok := s.Get(name).Number(); ok {
		return v
	}
	return def
}

func firstText(s Snapshot, names ...string) string {
	for _, name := range names {
		if text, ok := s.Get(name).Text(); ok && text != "" {
			return text
		}
	}
	return ""
}

func rpmPercent(s Snapshot) float64 {
	if v, ok := s.Get("rpmPercent").Number(); ok {
		return clampPercent(v)
	}
	rpm, okRPM := s.Get("rpm").Number()
	maxRPM, okMax := s.Get("maxRpm").Number()
	if okRPM && okMax && maxRPM > 0 {
		return clampPercent(math.Trunc(rpm * 100 / maxRPM))
	}
	return 0
}

func clampPercent(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}

// thresholdIndicator is active when the intensity field exceeds limit. The
// value text comes from the first present field of valueNames.
func thresholdIndicator(s Snapshot, intensity string, limit float64, valueNames ...string) Indicator {
	active := numberOr(s, intensity, 0) > limit
	value := "0"
	for _, name := range valueNames {
		if f := s.Get(name); f.Present() {
			value = f.Display()
			break
		}
	}
	return newIndicator(active, value)
}

func flagIndicator(active bool) Indicator {
	if active {
		return newIndicator(true, "1")
	}
	return newIndicator(false, "0")
}

func optionalFixed(s Snapshot, name string, places int, positiveOnly bool) string {
	v, ok := s.Get(name).Number()
	if !ok || (positiveOnly && v <= 0) {
		return placeholder
	}
	return formatFixed(v, places)
}

func waterTemp(s Snapshot) string {
	v, ok := s.Get("waterTemp").Number()
	if !ok {
		return placeholder
	}
	return formatRounded(v) + "°C"
}

func corners(s Snapshot, name string, prev Corners, format func(float64) string) Corners {
	values, ok := s.Get(name).Numbers()
	if !ok || len(values) < 4 {
		if prev.Text == [4]string{} {
			return placeholderCorners()
		}
		return prev
	}

	out := Corners{Valid: true}
	for i := range out.Values {
		out.Values[i] = values[i]
		out.Text[i] = format(values[i])
	}
	return out
}

// textTime parses a non-blank string field.
func textTime(s Snapshot, name string) (Millis, bool) {
	text, ok := s.Get(name).Text()
	if !ok || strings.TrimSpace(text) == "" {
		return 0, false
	}
	return ParseTime(text)
}

// intTime reads an integer millisecond field, accepting only valid lap times.
func intTime(s Snapshot, name string) (Millis, bool) {
	v, ok := s.Get(name).Number()
	if !ok || v <= 0 || v >= float64(MaxLapTime) {
		return 0, false
	}
	m := Millis(v)
	return m, m.Valid()
}

// recordedTime prefers the string form of a time and falls back to the
// integer form when the string is missing or unparseable.
func recordedTime(s Snapshot, textName, intName string) (Millis, bool) {
	if m, ok := textTime(s, textName); ok {
		return m, true
	}
	return intTime(s, intName)
}

// CurrentTime resolves the in-progress lap time. A non-blank string is
// authoritative even when it does not parse; the integer field is read only
// when the string is missing or blank.
func CurrentTime(s Snapshot) (Millis, bool) {
	if text, ok := s.Get("currentTimeStr").Text(); ok && strings.TrimSpace(text) != "" {
		return ParseTime(text)
	}
	return intTime(s, "iCurrentTime")
}

// ReferenceTime resolves the time the delta is measured against: the best
// lap, or the last lap when no valid best exists.
func ReferenceTime(s Snapshot) (Millis, bool) {
	if m, ok := recordedTime(s, "bestTimeStr", "iBestTime"); ok && m.Valid() {
		return m, true
	}
	if m, ok := recordedTime(s, "lastTimeStr", "iLastTime"); ok && m.Valid() {
		return m, true
	}
	return 0, false
}

func lapTimeText(s Snapshot) string {
	if m, ok := CurrentTime(s); ok {
		return FormatTime(m)
	}
	if text, ok := s.Get("currentTimeStr").Text(); ok && strings.TrimSpace(text) != "" {
		return strings.TrimSpace(text)
	}
	return zeroTime
}

func deltaText(s Snapshot) string {
	current, ok := CurrentTime(s)
	if !ok || current <= 0 {
		return noDelta
	}
	ref, ok := ReferenceTime(s)
	if !ok {
		return noDelta
	}
	return FormatDelta(current - ref)
}

func bestLapText(s Snapshot) string {
	candidates := []func() (Millis, bool){
		func() (Millis, bool) { return intTime(s, "iBestTime") },
		func() (Millis, bool) { return textTime(s, "bestTimeStr") },
		func() (Millis, bool) { return intTime(s, "iLastTime") },
		func() (Millis, bool) { return textTime(s, "lastTimeStr") },
	}
	for _, candidate := range candidates {
		if m, ok := candidate(); ok && m.Valid() {
			return FormatTime(m)
		}
	}
	return zeroTime
}
