package simfeed

import (
	"fmt"
	"math"
	"time"

	"acdash/pkg/telemetry"
)

const (
	mockLapLength   = 90 * time.Second
	mockBestLap     = 88_750
	mockMaxRPM      = 8000.0
	mockFuelCap     = 60.0
	mockFuelPerLap  = 2.6
	mockThrottleHz  = 0.11
	mockCornerHz    = 0.37
	mockNoTimeLabel = "-:--:---"
)

var mockGearRatios = []float64{0, 0, 3.2, 2.3, 1.8, 1.45, 1.2, 1.0}

// Generator produces synthetic snapshots shaped like a live simulator feed.
type Generator struct {
	MaxRPM float64
}

func NewGenerator() *Generator {
	return &Generator{MaxRPM: mockMaxRPM}
}

// Snapshot returns the feed state elapsed after the session started.
func (g *Generator) Snapshot(elapsed time.Duration) telemetry.Snapshot {
	maxRPM := g.MaxRPM
	if maxRPM <= 0 {
		maxRPM = mockMaxRPM
	}
	t := elapsed.Seconds()

	throttle := 0.5 + 0.5*math.Sin(2*math.Pi*mockThrottleHz*t)
	speed := 60 + 220*throttle
	gear := mockGear(speed)
	rpm := math.Min(maxRPM, 2500+speed*mockGearRatios[gear]*9)
	braking := math.Sin(2*math.Pi*mockCornerHz*t) < -0.6

	lap := int64(elapsed / mockLapLength)
	current := int64((elapsed % mockLapLength) / time.Millisecond)
	best := int64(telemetry.NoTime)
	bestText := mockNoTimeLabel
	if lap > 0 {
		best = mockBestLap
		bestText = acTime(best)
	}

	fuel := math.Max(0, 1-float64(lap)*mockFuelPerLap/mockFuelCap-float64(current)/float64(mockLapLength.Milliseconds())*mockFuelPerLap/mockFuelCap)

	brake, abs, tc := 0.0, 0.0, 0.0
	if braking {
		brake = 0.85
		abs = 0.3
	} else if throttle > 0.8 {
		tc = 0.2
	}

	drs := 0.0
	if throttle > 0.9 {
		drs = 1
	}

	temps := make([]float64, 4)
	pressures := make([]float64, 4)
	for i := range temps {
		temps[i] = 78 + 6*throttle + float64(i)
		pressures[i] = 26.8 + 0.4*throttle + 0.1*float64(i%2)
	}

	return telemetry.NewSnapshot(map[string]telemetry.Field{
		"speed":               telemetry.Number(speed),
		"gear":                telemetry.Number(float64(gear)),
		"rpm":                 telemetry.Number(math.Round(rpm)),
		"brake":               telemetry.Number(brake),
		"drs":                 telemetry.Number(drs),
		"pitLimiter":          telemetry.Number(0),
		"fuel":                telemetry.Number(fuel),
		"tc":                  telemetry.Number(tc),
		"abs":                 telemetry.Number(abs),
		"lap":                 telemetry.Number(float64(lap)),
		"iCurrentTime":        telemetry.Number(float64(current)),
		"iBestTime":           telemetry.Number(float64(best)),
		"currentTimeStr":      telemetry.String(acTime(current)),
		"bestTimeStr":         telemetry.String(bestText),
		"tyreCompound":        telemetry.String("Soft"),
		"tyreCoreTemperature": telemetry.Numbers(temps...),
		"tyrePressure":        telemetry.Numbers(pressures...),
		"fuelRem":             telemetry.Number(math.Round(fuel*mockFuelCap*10) / 10),
		"fuelCap":             telemetry.Number(mockFuelCap),
		"fuelPerLap":          telemetry.Number(mockFuelPerLap),
		"waterTemp":           telemetry.Number(88 + 4*throttle),
		"brakeBias":           telemetry.Number(55),
		"maxRpm":              telemetry.Number(maxRPM),
		"rpmPercent":          telemetry.Number(math.Min(100, math.Max(0, math.Trunc(rpm*100/maxRPM)))),
	})
}

// mockGear returns the simulator gear code (0 reverse, 1 neutral, 2 first).
func mockGear(speed float64) int {
	switch {
	case speed < 70:
		return 2
	case speed < 110:
		return 3
	case speed < 150:
		return 4
	case speed < 190:
		return 5
	case speed < 230:
		return 6
	default:
		return 7
	}
}

// acTime renders milliseconds the way the simulator does, e.g. 1:23:456.
func acTime(ms int64) string {
	return fmt.Sprintf("%d:%02d:%03d", ms/60000, ms/1000%60, ms%1000)
}
