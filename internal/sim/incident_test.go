package sim

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adkhan/fleet-analytics/internal/config"
	"github.com/adkhan/fleet-analytics/internal/models"
)

func newTestIncidents(t *testing.T, seed uint64) *IncidentProcess {
	t.Helper()
	p, err := NewIncidentProcess(config.Default().StatisticalModels.PoissonIncidents, NewRand(seed))
	require.NoError(t, err)
	return p
}

func TestRateComposition(t *testing.T) {
	p := newTestIncidents(t, 51)

	// base 0.3 x novice 3.0 x rain 2.0 x heavy 1.7 x evening rush 1.6 x aggressive 2.0
	worst := p.Rate(Novice, BehaviorAggressive, WeatherRain, TrafficHeavy, EveningRush)
	assert.InDelta(t, 0.3*3.0*2.0*1.7*1.6*2.0, worst, 1e-9)

	// base 0.3 x master 0.6 x clear 1.0 x light 0.8 x midday 1.0 x cautious 0.7
	best := p.Rate(Master, BehaviorCautious, WeatherClear, TrafficLight, Midday)
	assert.InDelta(t, 0.3*0.6*0.8*0.7, best, 1e-9)

	assert.Greater(t, worst, best)

	// Unknown condition keys leave the rate unadjusted.
	base := p.Rate(Experience("Rookie"), BehaviorNormal, Weather("hail"), Traffic("gridlock"), TimeOfDay("dawn"))
	assert.InDelta(t, 0.3, base, 1e-9)
}

func TestCountMatchesPoissonSignature(t *testing.T) {
	p := newTestIncidents(t, 52)

	counts := make([]int, 500)
	sum := 0
	for i := range counts {
		counts[i] = p.Count(0.5, 2.0)
		sum += counts[i]
	}
	assert.InDelta(t, 1.0, float64(sum)/500, 0.25, "mean count for lambda*duration = 1")

	check := p.VerifyPoisson(counts)
	assert.True(t, check.Poisson, "variance ratio %v outside [0.8,1.2]", check.VarianceRatio)
	assert.InDelta(t, 1.0, check.Mean, 0.25)
}

func TestCountZeroRate(t *testing.T) {
	p := newTestIncidents(t, 53)
	for i := 0; i < 100; i++ {
		assert.Zero(t, p.Count(0, 8))
		assert.Zero(t, p.Count(0.5, 0))
	}
}

func TestVerifyPoissonEdgeCases(t *testing.T) {
	p := newTestIncidents(t, 54)
	assert.Equal(t, PoissonCheck{}, p.VerifyPoisson(nil))

	check := p.VerifyPoisson([]int{0, 0, 0, 0})
	assert.Zero(t, check.Mean)
	assert.Zero(t, check.VarianceRatio)
	assert.False(t, check.Poisson)
}

func TestMaterialize(t *testing.T) {
	p := newTestIncidents(t, 55)
	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	ctx := TripContext{
		VehicleID:     "VEH-00007",
		DriverID:      "DRV-00003",
		Start:         start,
		DurationHours: 3,
		Origin:        models.Location{Latitude: 24.8607, Longitude: 67.0011},
		AvgSpeed:      75,
		Weather:       WeatherRain,
	}

	assert.Empty(t, p.Materialize(0, ctx))

	incidents := p.Materialize(25, ctx)
	require.Len(t, incidents, 25)

	idPattern := regexp.MustCompile(`^INC-[0-9A-F]{16}$`)
	seen := map[string]bool{}
	end := start.Add(3 * time.Hour)
	for i, inc := range incidents {
		assert.Regexp(t, idPattern, inc.IncidentID)
		assert.False(t, seen[inc.IncidentID], "duplicate incident id %s", inc.IncidentID)
		seen[inc.IncidentID] = true

		assert.Equal(t, "VEH-00007", inc.VehicleID)
		assert.Equal(t, "DRV-00003", inc.DriverID)
		assert.Equal(t, "rain", inc.WeatherCondition)

		if inc.Timestamp.Before(start) || inc.Timestamp.After(end) {
			t.Fatalf("incident %d at %v outside trip window", i, inc.Timestamp)
		}
		if i > 0 && inc.Timestamp.Before(incidents[i-1].Timestamp) {
			t.Fatalf("incidents not chronological at %d", i)
		}

		assert.InDelta(t, ctx.Origin.Latitude, inc.Location.Latitude, 0.1001)
		assert.InDelta(t, ctx.Origin.Longitude, inc.Location.Longitude, 0.1001)
		assert.GreaterOrEqual(t, inc.SpeedAtIncident, 0.0)
		assert.Contains(t, []string{SeverityLow, SeverityMedium, SeverityHigh}, inc.Severity)
		assert.NotEmpty(t, inc.Description)
	}
}

func TestTypeForSpeedBands(t *testing.T) {
	p := newTestIncidents(t, 56)

	high := map[string]bool{IncidentSpeeding: true, IncidentHarshAcceleration: true, IncidentSharpTurn: true}
	mid := map[string]bool{IncidentHarshBraking: true, IncidentSharpTurn: true, IncidentSuddenLaneChange: true, IncidentSpeeding: true}
	low := map[string]bool{IncidentHarshBraking: true, IncidentHarshAcceleration: true, IncidentSuddenLaneChange: true}

	for i := 0; i < 300; i++ {
		assert.True(t, high[p.typeForSpeed(120)])
		assert.True(t, mid[p.typeForSpeed(80)])
		assert.True(t, low[p.typeForSpeed(40)])
	}
}

func TestSeverityDistribution(t *testing.T) {
	p := newTestIncidents(t, 57)
	counts := map[string]int{}
	const n = 5000
	for i := 0; i < n; i++ {
		counts[p.severity.sample(p.rng)]++
	}
	assert.InDelta(t, 0.70, float64(counts[SeverityLow])/n, 0.02)
	assert.InDelta(t, 0.25, float64(counts[SeverityMedium])/n, 0.02)
	assert.InDelta(t, 0.05, float64(counts[SeverityHigh])/n, 0.015)
}

func TestDescribeIncident(t *testing.T) {
	cases := map[string]string{
		IncidentHarshBraking:      "Sudden deceleration from 72 km/h",
		IncidentHarshAcceleration: "Rapid acceleration to 72 km/h",
		IncidentSpeeding:          "Speed exceeded limit: 72 km/h",
		IncidentSharpTurn:         "Sharp turn at 72 km/h",
		IncidentSuddenLaneChange:  "Abrupt lane change at 72 km/h",
	}
	for kind, want := range cases {
		assert.Equal(t, want, describeIncident(kind, 72.4))
	}
	assert.True(t, strings.HasPrefix(describeIncident("unknown", 72.4), "Safety incident"))
}
