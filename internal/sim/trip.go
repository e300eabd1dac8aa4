package sim

import (
	"fmt"
	"time"

	"github.com/adkhan/fleet-analytics/internal/config"
	"github.com/adkhan/fleet-analytics/internal/models"
)

// TripPlan fixes everything about a trip that is decided before simulation
// starts: identity, route endpoints, schedule and the trip-wide conditions.
type TripPlan struct {
	TripID      string
	VehicleID   string
	DriverID    string
	Origin      string // warehouse city
	Destination models.Location
	Start       time.Time
	Steps       int
	Weather     Weather
	Traffic     Traffic
	Experience  Experience
	Profile     Behavior // driver's long-run behavior profile
}

// TripResult is one simulated trip: the synchronized per-step records, the
// incidents drawn for the trip duration, and the total distance covered.
type TripResult struct {
	Records    []models.TripRecord
	Incidents  []models.Incident
	DistanceKm float64
}

// TripOrchestrator composes the five generators into temporally consistent
// trips. It owns one random stream, so a single orchestrator must not run
// trips concurrently; build one per worker, seeded per trip.
type TripOrchestrator struct {
	route     *RouteStateChain
	speed     *SpeedSampler
	incidents *IncidentProcess
	telemetry *TelemetryAR1
	behavior  *DriverHMM
	interval  time.Duration
	rng       *Rand
}

// NewTripOrchestrator builds all five generators from cfg on one stream
// seeded with seed. The coords map must be shared across all orchestrators of
// a run so every trip sees the same warehouse placement.
func NewTripOrchestrator(cfg *config.Config, coords map[string]models.Location, seed uint64) (*TripOrchestrator, error) {
	rng := NewRand(seed)
	sm := cfg.StatisticalModels

	route, err := NewRouteStateChain(sm.MarkovChain, coords, rng)
	if err != nil {
		return nil, fmt.Errorf("route chain: %w", err)
	}
	speed, err := NewSpeedSampler(sm.GaussianSpeed, rng)
	if err != nil {
		return nil, fmt.Errorf("speed sampler: %w", err)
	}
	incidents, err := NewIncidentProcess(sm.PoissonIncidents, rng)
	if err != nil {
		return nil, fmt.Errorf("incident process: %w", err)
	}
	interval := cfg.DataGeneration.StepInterval()
	telemetry, err := NewTelemetryAR1(sm.ARTemperature, interval, rng)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	behavior, err := NewDriverHMM(rng)
	if err != nil {
		return nil, fmt.Errorf("driver hmm: %w", err)
	}

	return &TripOrchestrator{
		route:     route,
		speed:     speed,
		incidents: incidents,
		telemetry: telemetry,
		behavior:  behavior,
		interval:  interval,
		rng:       rng,
	}, nil
}

// Run simulates one trip. Each step advances the route chain, the driver
// HMM, the speed sampler and the AR(1) telemetry in lockstep, so record t
// depends only on record t-1 and the fixed parameters. Incidents are drawn
// once for the whole duration. A plan with no steps yields an empty result.
func (o *TripOrchestrator) Run(plan TripPlan) *TripResult {
	if plan.Steps <= 0 {
		return &TripResult{}
	}

	route := o.route.GenerateRoute(plan.Origin, plan.Destination, plan.Steps, plan.Start, o.interval)

	records := make([]models.TripRecord, 0, len(route))
	state := o.behavior.InitialState()
	var prevSpeed *float64
	var prevReading *models.EngineTelemetry
	odometer := 0.0
	speedSum := 0.0

	for i, wp := range route {
		if i > 0 {
			state = o.behavior.Transition(state)
			odometer += HaversineKm(route[i-1].Point(), wp.Point())
		}
		obs := o.behavior.Emit(state)
		speed := o.speed.Sample(RoadType(wp.RoadType), TimeOfDayAt(wp.Timestamp), plan.Weather, BehaviorFor(state), prevSpeed)
		reading := o.telemetry.Reading(speed, prevReading, externalLoad(obs))
		speedSum += speed

		records = append(records, models.TripRecord{
			TripID:      plan.TripID,
			VehicleID:   plan.VehicleID,
			DriverID:    plan.DriverID,
			Timestamp:   wp.Timestamp,
			Location:    wp.Point(),
			RoadType:    wp.RoadType,
			SpeedKmh:    speed,
			DriverState: string(state),
			Behavior:    obs,
			Telemetry:   reading,
			OdometerKm:  round2(odometer),
		})
		last := &records[len(records)-1]
		prevSpeed = &last.SpeedKmh
		prevReading = &last.Telemetry
	}

	hours := (time.Duration(plan.Steps) * o.interval).Hours()
	lambda := o.incidents.Rate(plan.Experience, plan.Profile, plan.Weather, plan.Traffic, TimeOfDayAt(plan.Start))
	incidents := o.incidents.Materialize(o.incidents.Count(lambda, hours), TripContext{
		VehicleID:     plan.VehicleID,
		DriverID:      plan.DriverID,
		Start:         plan.Start,
		DurationHours: hours,
		Origin:        route[0].Point(),
		AvgSpeed:      speedSum / float64(len(records)),
		Weather:       plan.Weather,
	})

	return &TripResult{
		Records:    records,
		Incidents:  incidents,
		DistanceKm: round2(odometer),
	}
}

// externalLoad derives the engine load factor from how hard the driver is
// accelerating: 1.0 at moderate intensity, up to 1.7 flat out.
func externalLoad(obs models.BehaviorObservation) float64 {
	return 0.7 + obs.AccelerationIntensity
}
