package sim

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/adkhan/fleet-analytics/internal/config"
	"github.com/adkhan/fleet-analytics/internal/models"
)

// Incident types.
const (
	IncidentHarshBraking      = "harsh_braking"
	IncidentHarshAcceleration = "harsh_acceleration"
	IncidentSpeeding          = "speeding"
	IncidentSharpTurn         = "sharp_turn"
	IncidentSuddenLaneChange  = "sudden_lane_change"
)

// Incident severities.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// categorical is a validated discrete distribution over string values.
type categorical struct {
	values  []string
	weights []float64
}

func newCategorical(name string, values []string, weights []float64) (categorical, error) {
	if len(values) != len(weights) {
		return categorical{}, fmt.Errorf("%s: %d values for %d weights", name, len(values), len(weights))
	}
	if err := validateDistribution(name, weights); err != nil {
		return categorical{}, err
	}
	return categorical{values: values, weights: weights}, nil
}

func (c categorical) sample(r *Rand) string {
	return c.values[r.Weighted(c.weights)]
}

// IncidentProcess models safety incidents as a Poisson process whose rate is
// conditioned on driver, weather, traffic and time of day.
type IncidentProcess struct {
	baseLambda           float64
	aggressiveMultiplier float64

	experienceFactors map[Experience]float64
	weatherFactors    map[Weather]float64
	trafficFactors    map[Traffic]float64
	timeFactors       map[TimeOfDay]float64

	severity  categorical
	highSpeed categorical
	midSpeed  categorical
	lowSpeed  categorical

	rng *Rand
}

// NewIncidentProcess builds the process from configuration. All factor tables
// and categorical distributions are validated up front.
func NewIncidentProcess(cfg config.PoissonIncidents, rng *Rand) (*IncidentProcess, error) {
	if cfg.BaseLambda < 0 {
		return nil, fmt.Errorf("incident process: base lambda must be non-negative")
	}
	p := &IncidentProcess{
		baseLambda:           cfg.BaseLambda,
		aggressiveMultiplier: cfg.AggressiveDriverMultiplier,
		experienceFactors: map[Experience]float64{
			Novice:       3.0,
			Intermediate: 1.5,
			Expert:       1.0,
			Master:       0.6,
		},
		weatherFactors: map[Weather]float64{
			WeatherClear: 1.0,
			WeatherRain:  2.0,
			WeatherFog:   2.5,
			WeatherDust:  1.8,
		},
		trafficFactors: map[Traffic]float64{
			TrafficLight:     0.8,
			TrafficModerate:  1.0,
			TrafficHeavy:     1.7,
			TrafficCongested: 2.2,
		},
		timeFactors: map[TimeOfDay]float64{
			MorningRush: 1.5,
			Midday:      1.0,
			EveningRush: 1.6,
			Night:       1.3,
		},
		rng: rng,
	}
	if err := completeTable("experience factors", p.experienceFactors, ExperienceLevels); err != nil {
		return nil, err
	}
	if err := completeTable("weather factors", p.weatherFactors, Weathers); err != nil {
		return nil, err
	}
	if err := completeTable("traffic factors", p.trafficFactors, TrafficLevels); err != nil {
		return nil, err
	}
	if err := completeTable("time factors", p.timeFactors, TimesOfDay); err != nil {
		return nil, err
	}

	var err error
	if p.severity, err = newCategorical("severity",
		[]string{SeverityLow, SeverityMedium, SeverityHigh},
		[]float64{0.70, 0.25, 0.05}); err != nil {
		return nil, err
	}
	if p.highSpeed, err = newCategorical("high speed incident types",
		[]string{IncidentSpeeding, IncidentHarshAcceleration, IncidentSharpTurn},
		[]float64{0.6, 0.3, 0.1}); err != nil {
		return nil, err
	}
	if p.midSpeed, err = newCategorical("mid speed incident types",
		[]string{IncidentHarshBraking, IncidentSharpTurn, IncidentSuddenLaneChange, IncidentSpeeding},
		[]float64{0.4, 0.3, 0.2, 0.1}); err != nil {
		return nil, err
	}
	if p.lowSpeed, err = newCategorical("low speed incident types",
		[]string{IncidentHarshBraking, IncidentHarshAcceleration, IncidentSuddenLaneChange},
		[]float64{0.5, 0.3, 0.2}); err != nil {
		return nil, err
	}
	return p, nil
}

// Rate composes the adjusted hourly incident rate from the five risk factors.
// Unknown values leave the rate unadjusted.
func (p *IncidentProcess) Rate(exp Experience, behavior Behavior, weather Weather, traffic Traffic, tod TimeOfDay) float64 {
	lambda := p.baseLambda
	if f, ok := p.experienceFactors[exp]; ok {
		lambda *= f
	}
	if f, ok := p.weatherFactors[weather]; ok {
		lambda *= f
	}
	if f, ok := p.trafficFactors[traffic]; ok {
		lambda *= f
	}
	if f, ok := p.timeFactors[tod]; ok {
		lambda *= f
	}
	switch behavior {
	case BehaviorAggressive:
		lambda *= p.aggressiveMultiplier
	case BehaviorCautious:
		lambda *= 0.7
	}
	return lambda
}

// Count draws the number of incidents over durationHours at hourly rate
// lambda.
func (p *IncidentProcess) Count(lambda, durationHours float64) int {
	return p.rng.Poisson(lambda * durationHours)
}

// TripContext carries the trip attributes an incident record needs.
type TripContext struct {
	VehicleID     string
	DriverID      string
	Start         time.Time
	DurationHours float64
	Origin        models.Location
	AvgSpeed      float64
	Weather       Weather
}

// Materialize turns an incident count into chronologically ordered incident
// records. Timestamps are uniform over the duration and then sorted; the
// incident type distribution depends on the instantaneous speed band.
// A zero count yields an empty slice.
func (p *IncidentProcess) Materialize(count int, ctx TripContext) []models.Incident {
	if count <= 0 {
		return nil
	}

	offsets := make([]float64, count)
	for i := range offsets {
		offsets[i] = p.rng.Uniform(0, ctx.DurationHours)
	}
	sort.Float64s(offsets)

	incidents := make([]models.Incident, 0, count)
	for _, off := range offsets {
		speed := math.Max(0, ctx.AvgSpeed+p.rng.Normal(0, 15))
		kind := p.typeForSpeed(speed)
		incidents = append(incidents, models.Incident{
			IncidentID: fmt.Sprintf("INC-%016X", p.rng.Uint64()),
			VehicleID:  ctx.VehicleID,
			DriverID:   ctx.DriverID,
			Type:       kind,
			Severity:   p.severity.sample(p.rng),
			Location: models.Location{
				Latitude:  round6(ctx.Origin.Latitude + p.rng.Uniform(-0.1, 0.1)),
				Longitude: round6(ctx.Origin.Longitude + p.rng.Uniform(-0.1, 0.1)),
			},
			SpeedAtIncident:  round2(speed),
			Timestamp:        ctx.Start.Add(time.Duration(off * float64(time.Hour))),
			WeatherCondition: string(ctx.Weather),
			Description:      describeIncident(kind, speed),
		})
	}
	return incidents
}

// typeForSpeed samples an incident type from the speed band's distribution.
func (p *IncidentProcess) typeForSpeed(speed float64) string {
	switch {
	case speed > 100:
		return p.highSpeed.sample(p.rng)
	case speed > 60:
		return p.midSpeed.sample(p.rng)
	default:
		return p.lowSpeed.sample(p.rng)
	}
}

func describeIncident(kind string, speed float64) string {
	switch kind {
	case IncidentHarshBraking:
		return fmt.Sprintf("Sudden deceleration from %.0f km/h", speed)
	case IncidentHarshAcceleration:
		return fmt.Sprintf("Rapid acceleration to %.0f km/h", speed)
	case IncidentSpeeding:
		return fmt.Sprintf("Speed exceeded limit: %.0f km/h", speed)
	case IncidentSharpTurn:
		return fmt.Sprintf("Sharp turn at %.0f km/h", speed)
	case IncidentSuddenLaneChange:
		return fmt.Sprintf("Abrupt lane change at %.0f km/h", speed)
	default:
		return "Safety incident occurred"
	}
}

// PoissonCheck summarizes repeated count draws against the Poisson
// mean-equals-variance signature.
type PoissonCheck struct {
	Mean          float64
	Variance      float64
	VarianceRatio float64
	Poisson       bool
}

// VerifyPoisson checks that the variance to mean ratio of repeated counts is
// within 20% of 1. A zero mean reports a ratio of 0. Diagnostic only.
func (p *IncidentProcess) VerifyPoisson(counts []int) PoissonCheck {
	if len(counts) == 0 {
		return PoissonCheck{}
	}
	data := make([]float64, len(counts))
	for i, c := range counts {
		data[i] = float64(c)
	}
	mean, _ := stats.Mean(data)
	variance, _ := stats.PopulationVariance(data)

	ratio := 0.0
	if mean > 0 {
		ratio = variance / mean
	}
	return PoissonCheck{
		Mean:          round3(mean),
		Variance:      round3(variance),
		VarianceRatio: round3(ratio),
		Poisson:       ratio >= 0.8 && ratio <= 1.2,
	}
}
