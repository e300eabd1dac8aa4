package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adkhan/fleet-analytics/internal/config"
)

func newTestTelemetry(t *testing.T, seed uint64) *TelemetryAR1 {
	t.Helper()
	g, err := NewTelemetryAR1(config.Default().StatisticalModels.ARTemperature, 3*time.Second, NewRand(seed))
	require.NoError(t, err)
	return g
}

func TestNewTelemetryAR1RejectsBadConfig(t *testing.T) {
	rng := NewRand(1)
	cases := []config.ARTemperature{
		{Phi: 0, MeanTemp: 85, Std: 5},
		{Phi: 1, MeanTemp: 85, Std: 5},
		{Phi: 1.2, MeanTemp: 85, Std: 5},
		{Phi: 0.95, MeanTemp: 85, Std: 0},
	}
	for _, cfg := range cases {
		_, err := NewTelemetryAR1(cfg, 3*time.Second, rng)
		assert.Error(t, err, "cfg %+v", cfg)
	}

	_, err := NewTelemetryAR1(config.Default().StatisticalModels.ARTemperature, 0, rng)
	assert.Error(t, err, "non-positive interval")
}

func TestStepClamps(t *testing.T) {
	g := newTestTelemetry(t, 61)
	for i := 0; i < 100; i++ {
		assert.LessOrEqual(t, g.Step(500, 1.0), float64(maxEngineTemp))
		assert.GreaterOrEqual(t, g.Step(-500, 1.0), float64(minEngineTemp))
	}
}

func TestStepLoadShiftsMean(t *testing.T) {
	g := newTestTelemetry(t, 62)
	const n = 5000
	idle, loaded := 0.0, 0.0
	for i := 0; i < n; i++ {
		idle += g.Step(85, 1.0)
		loaded += g.Step(85, 2.0)
	}
	// External load 2.0 raises the target temperature by 15 degrees; one step
	// from the old mean moves (1-phi) of the way there.
	assert.InDelta(t, 85, idle/n, 0.3)
	assert.InDelta(t, 85.75, loaded/n, 0.3)
}

func TestSeries(t *testing.T) {
	g := newTestTelemetry(t, 63)

	assert.Nil(t, g.Series(0, nil, nil))
	assert.Nil(t, g.Series(-1, nil, nil))

	initial := 100.0
	series := g.Series(200, &initial, []float64{1, 1.5})
	require.Len(t, series, 200)
	assert.Equal(t, 100.0, series[0])
	for i := 1; i < len(series); i++ {
		assert.GreaterOrEqual(t, series[i], float64(minEngineTemp))
		assert.LessOrEqual(t, series[i], float64(maxEngineTemp))
	}
}

func TestVerifyAR1(t *testing.T) {
	g := newTestTelemetry(t, 64)

	series := g.Series(50000, nil, nil)
	check := g.VerifyAR1(series)

	assert.True(t, check.Holds, "lag-1 autocorr %v too far from 0.95", check.Lag1Autocorr)
	assert.InDelta(t, 0.95, check.Lag1Autocorr, 0.1)
	assert.InDelta(t, 85, check.SampleMean, 3)
	assert.InDelta(t, 256.41, check.TheoreticalVariance, 0.01)
	// Operating clamps trim the tails, so the sample variance sits below the
	// unbounded stationary value.
	assert.InEpsilon(t, check.TheoreticalVariance, check.SampleVariance, 0.2)

	empty := g.VerifyAR1(nil)
	assert.False(t, empty.Holds)
	assert.Zero(t, empty.SampleMean)
	assert.InDelta(t, 256.41, empty.TheoreticalVariance, 0.01)
}

func TestReadingFirst(t *testing.T) {
	g := newTestTelemetry(t, 65)
	for i := 0; i < 50; i++ {
		r := g.Reading(60, nil, 1.0)

		assert.InDelta(t, 5, r.EngineTemp-r.CoolantTemp, 0.02, "coolant starts 5 degrees under engine")
		assert.GreaterOrEqual(t, r.FuelLevel, 50.0)
		assert.LessOrEqual(t, r.FuelLevel, 100.0)
		assert.Equal(t, 2500, r.RPM)
		assert.LessOrEqual(t, r.ThrottlePosition, 100.0)
		assert.GreaterOrEqual(t, r.OilPressure, 20.0)
		assert.LessOrEqual(t, r.OilPressure, 70.0)
		assert.GreaterOrEqual(t, r.FuelConsumptionLph, minFuelLph)
		assert.LessOrEqual(t, r.FuelConsumptionLph, maxFuelLph)
	}
}

func TestReadingChain(t *testing.T) {
	g := newTestTelemetry(t, 66)

	prev := g.Reading(60, nil, 1.0)
	for i := 0; i < 200; i++ {
		next := g.Reading(60, &prev, 1.0)

		if next.FuelLevel > prev.FuelLevel {
			t.Fatalf("fuel level rose from %v to %v at step %d", prev.FuelLevel, next.FuelLevel, i)
		}
		assert.GreaterOrEqual(t, next.EngineTemp, float64(minEngineTemp))
		assert.LessOrEqual(t, next.EngineTemp, float64(maxEngineTemp))

		wantCoolant := prev.CoolantTemp + 0.3*(next.EngineTemp-prev.EngineTemp)
		assert.InDelta(t, wantCoolant, next.CoolantTemp, 0.02)

		prev = next
	}
}

func TestRPMForSpeed(t *testing.T) {
	cases := []struct {
		speed float64
		want  int
	}{
		{0, 800},
		{10, 1200},
		{19.99, 1599},
		{20, 1500},
		{40, 2000},
		{59, 2475},
		{60, 2500},
		{100, 3100},
		{200, 4500},
	}
	for _, tc := range cases {
		if got := rpmForSpeed(tc.speed); got != tc.want {
			t.Fatalf("rpmForSpeed(%v) = %d, want %d", tc.speed, got, tc.want)
		}
	}
}

func TestFuelConsumption(t *testing.T) {
	g := newTestTelemetry(t, 67)

	// Warm idle: base 8 + rpm 800 contributes 0.4.
	assert.InDelta(t, 8.4, g.fuelConsumption(0, 800, 0, 85), 1e-9)

	// Cold engine adds 0.05 per degree below the mean.
	assert.InDelta(t, 9.4, g.fuelConsumption(0, 800, 0, 65), 1e-9)

	// Flat out: 8 + 1.4^2*3 + 4.5*0.5 + 4 = 20.13.
	assert.InDelta(t, 20.13, g.fuelConsumption(140, 4500, 100, 85), 1e-9)

	// Never below idle floor or above the clamp.
	assert.GreaterOrEqual(t, g.fuelConsumption(0, 0, 0, 125), minFuelLph)
	assert.LessOrEqual(t, g.fuelConsumption(300, 9000, 100, 20), maxFuelLph)
}
