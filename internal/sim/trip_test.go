package sim

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adkhan/fleet-analytics/internal/config"
	"github.com/adkhan/fleet-analytics/internal/models"
)

func newTestOrchestrator(t *testing.T, seed uint64) *TripOrchestrator {
	t.Helper()
	o, err := NewTripOrchestrator(config.Default(), WarehouseCoords(99), seed)
	require.NoError(t, err)
	return o
}

func basePlan(steps int) TripPlan {
	return TripPlan{
		TripID:      "TRIP-000001",
		VehicleID:   "VEH-00001",
		DriverID:    "DRV-00001",
		Origin:      "Karachi",
		Destination: models.Location{Latitude: 25.1, Longitude: 67.3},
		Start:       time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC),
		Steps:       steps,
		Weather:     WeatherClear,
		Traffic:     TrafficModerate,
		Experience:  Expert,
		Profile:     BehaviorNormal,
	}
}

func TestNewTripOrchestratorRejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.StatisticalModels.ARTemperature.Phi = 1.5
	_, err := NewTripOrchestrator(cfg, WarehouseCoords(1), 1)
	assert.Error(t, err)
}

func TestRunProducesCoherentTrip(t *testing.T) {
	o := newTestOrchestrator(t, 81)
	plan := basePlan(200)

	res := o.Run(plan)
	require.Len(t, res.Records, 200)

	validStates := map[string]bool{
		string(DriverNormal):     true,
		string(DriverAggressive): true,
		string(DriverTired):      true,
	}
	validRoads := map[string]bool{
		string(RoadHighway): true,
		string(RoadUrban):   true,
	}

	for i, rec := range res.Records {
		assert.Equal(t, plan.TripID, rec.TripID)
		assert.Equal(t, plan.VehicleID, rec.VehicleID)
		assert.Equal(t, plan.DriverID, rec.DriverID)

		wantTS := plan.Start.Add(time.Duration(i) * 3 * time.Second)
		if !rec.Timestamp.Equal(wantTS) {
			t.Fatalf("record %d timestamp %v, want %v", i, rec.Timestamp, wantTS)
		}

		assert.True(t, validStates[rec.DriverState], "record %d state %q", i, rec.DriverState)
		assert.True(t, validRoads[rec.RoadType], "record %d road %q", i, rec.RoadType)

		assert.GreaterOrEqual(t, rec.SpeedKmh, float64(minSpeedKmh))
		assert.LessOrEqual(t, rec.SpeedKmh, float64(maxSpeedKmh))
		assert.GreaterOrEqual(t, rec.Telemetry.EngineTemp, float64(minEngineTemp))
		assert.LessOrEqual(t, rec.Telemetry.EngineTemp, float64(maxEngineTemp))

		if i > 0 {
			prev := res.Records[i-1]
			assert.LessOrEqual(t, math.Abs(rec.SpeedKmh-prev.SpeedKmh), maxSpeedStep+1e-9,
				"record %d speed jump", i)
			assert.LessOrEqual(t, rec.Telemetry.FuelLevel, prev.Telemetry.FuelLevel,
				"record %d fuel level rose", i)
			assert.GreaterOrEqual(t, rec.OdometerKm, prev.OdometerKm,
				"record %d odometer went backwards", i)
		}
	}

	last := res.Records[len(res.Records)-1]
	assert.InDelta(t, last.OdometerKm, res.DistanceKm, 1e-9)
	assert.Greater(t, res.DistanceKm, 0.0)
}

func TestRunReproducible(t *testing.T) {
	plan := basePlan(150)

	a := newTestOrchestrator(t, 82).Run(plan)
	b := newTestOrchestrator(t, 82).Run(plan)
	require.Equal(t, a, b, "same seed must reproduce the trip exactly")

	c := newTestOrchestrator(t, 83).Run(plan)
	assert.NotEqual(t, a, c, "different seeds must diverge")
}

func TestRunZeroSteps(t *testing.T) {
	o := newTestOrchestrator(t, 84)
	res := o.Run(basePlan(0))
	assert.Empty(t, res.Records)
	assert.Empty(t, res.Incidents)
	assert.Zero(t, res.DistanceKm)
}

func TestRunIncidentsStayInsideTrip(t *testing.T) {
	o := newTestOrchestrator(t, 85)

	plan := basePlan(1200)
	plan.Start = time.Date(2024, 6, 1, 22, 0, 0, 0, time.UTC)
	plan.Weather = WeatherRain
	plan.Traffic = TrafficCongested
	plan.Experience = Novice
	plan.Profile = BehaviorAggressive

	res := o.Run(plan)
	require.NotEmpty(t, res.Incidents, "high risk trip should log incidents")

	end := plan.Start.Add(1200 * 3 * time.Second)
	for i, inc := range res.Incidents {
		assert.Equal(t, plan.VehicleID, inc.VehicleID)
		assert.Equal(t, plan.DriverID, inc.DriverID)
		if inc.Timestamp.Before(plan.Start) || inc.Timestamp.After(end) {
			t.Fatalf("incident %d at %v outside trip window", i, inc.Timestamp)
		}
	}
}

func TestExternalLoad(t *testing.T) {
	obs := models.BehaviorObservation{AccelerationIntensity: 0.3}
	assert.InDelta(t, 1.0, externalLoad(obs), 1e-9)

	obs.AccelerationIntensity = 0.8
	assert.InDelta(t, 1.5, externalLoad(obs), 1e-9)
}
