package telemetry

import (
	"math"
	"strconv"
)

const placeholder = "-"

// MetricKind identifies the variant of a Metric.
type MetricKind uint8

const (
	MetricScalar MetricKind = iota
	MetricText
	MetricBoolean
	MetricTuple4
)

// Metric is one canonical, always-defined display value.
type Metric struct {
	Kind   MetricKind
	Scalar float64
	Text   string
	Bool   bool
	Tuple  [4]float64
}

func Scalar(v float64) Metric { return Metric{Kind: MetricScalar, Scalar: v} }
func Text(s string) Metric { return Metric{Kind: MetricText, Text: s} }
func Boolean(b bool) Metric { return Metric{Kind: MetricBoolean, Bool: b} }
func Tuple4(v [4]float64) Metric { return Metric{Kind: MetricTuple4, Tuple: v} }

// Indicator is a thresholded on/off widget with its value text.
type Indicator struct {
	Active bool   `json:"active"`
	Value  string `json:"value"`
	Label  string `json:"label"`
}

func newIndicator(active bool, value string) Indicator {
	label := "OFF"
	if active {
		label = "ON"
	}
	return Indicator{Active: active, Value: value, Label: label}
}

// Corners holds one value per tyre in FL, FR, RL, RR order.
type Corners struct {
	Values [4]float64 `json:"values"`
	Text   [4]string  `json:"text"`
	Valid  bool       `json:"valid"`
}

func placeholderCorners() Corners {
	return Corners{Text: [4]string{placeholder, placeholder, placeholder, placeholder}}
}

// Display is the fully resolved view of one snapshot. JSON names follow
// the dashboard element ids.
type Display struct {
	RPM           string    `json:"rpm"`
	RPMPercent    float64   `json:"rpmFill"`
	Gear          string    `json:"gear"`
	Speed         string    `json:"speed"`
	ABS           Indicator `json:"abs"`
	TC            Indicator `json:"tc"`
	DRS           Indicator `json:"drs"`
	PitLimiter    Indicator `json:"pitLimiter"`
	Brake         Indicator `json:"brake"`
	FuelFill      float64   `json:"fuelFill"`
	FuelRemaining string    `json:"fuelRem"`
	FuelPerLap    string    `json:"fuelPerLap"`
	FuelCapacity  string    `json:"fuelCap"`
	WaterTemp     string    `json:"waterTemp"`
	Lap           string    `json:"lap"`
	BrakeBias     string    `json:"brakeBias"`
	TyreCompound  string    `json:"tyreType"`
	TyrePressure  Corners   `json:"tyrePressure"`
	TyreTemp      Corners   `json:"tyreTemp"`
	LapTime       string    `json:"laptime"`
	Delta         string    `json:"timeDiff"`
	BestLap       string    `json:"bestLap"`
}

// Placeholder is the display state before any snapshot has arrived.
func Placeholder() Display {
	off := newIndicator(false, "0")
	return Display{
		RPM:           "0",
		Gear:          "N",
		Speed:         "0",
		ABS:           off,
		TC:            off,
		DRS:           off,
		PitLimiter:    off,
		Brake:         off,
		FuelRemaining: placeholder,
		FuelPerLap:    placeholder,
		FuelCapacity:  placeholder,
		WaterTemp:     placeholder,
		Lap:           "0",
		BrakeBias:     "0%",
		TyreCompound:  "DRY",
		TyrePressure:  placeholderCorners(),
		TyreTemp:      placeholderCorners(),
		LapTime:       zeroTime,
		Delta:         noDelta,
		BestLap:       zeroTime,
	}
}

// Metrics flattens the display into canonical metrics keyed by widget id.
func (d Display) Metrics() map[string]Metric {
	m := map[string]Metric{
		"rpm":        Text(d.RPM),
		"rpmFill":    Scalar(d.RPMPercent),
		"gear":       Text(d.Gear),
		"speed":      Text(d.Speed),
		"fuelFill":   Scalar(d.FuelFill),
		"fuelRem":    Text(d.FuelRemaining),
		"fuelPerLap": Text(d.FuelPerLap),
		"fuelCap":    Text(d.FuelCapacity),
		"waterTemp":  Text(d.WaterTemp),
		"lap":        Text(d.Lap),
		"brakeBias":  Text(d.BrakeBias),
		"tyreType":   Text(d.TyreCompound),
		"laptime":    Text(d.LapTime),
		"timeDiff":   Text(d.Delta),
		"bestLap":    Text(d.BestLap),

		"tyrePressure":        Tuple4(d.TyrePressure.Values),
		"tyreCoreTemperature": Tuple4(d.TyreTemp.Values),
	}

	indicators := map[string]Indicator{
		"abs":        d.ABS,
		"tc":         d.TC,
		"drs":        d.DRS,
		"pitLimiter": d.PitLimiter,
		"brake":      d.Brake,
	}
	for id, ind := range indicators {
		m[id] = Boolean(ind.Active)
		m[id+"Value"] = Text(ind.Value)
		m[id+"Text"] = Text(ind.Label)
	}

	for i, corner := range cornerNames {
		m["tyre"+corner+"Pressure"] = Text(d.TyrePressure.Text[i])
		m["tyre"+corner+"Temp"] = Text(d.TyreTemp.Text[i])
	}
	return m
}

var cornerNames = [4]string{"FL", "FR", "RL", "RR"}

// formatNumber prints v in its shortest decimal form.
func formatNumber(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// roundHalfUp rounds .5 towards positive infinity.
func roundHalfUp(v float64) float64 {
	r := math.Floor(v + 0.5)
	if r == 0 {
		return 0
	}
	return r
}

func formatRounded(v float64) string {
	return formatNumber(roundHalfUp(v))
}

// formatFixed prints v with the given number of decimals, rounding ties away
// from zero.
func formatFixed(v float64, places int) string {
	if v < 0 {
		return "-" + formatFixed(-v, places)
	}
	scale := math.Pow10(places)
	return strconv.FormatFloat(math.Floor(v*scale+0.5)/scale, 'f', places, 64)
}
