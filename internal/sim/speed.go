package sim

import (
	"time"

	"github.com/montanaflynn/stats"

	"github.com/adkhan/fleet-analytics/internal/config"
)

// Speed bounds in km/h. Samples outside are clamped, never resampled.
const (
	minSpeedKmh = 10
	maxSpeedKmh = 140
	// maxSpeedStep bounds acceleration between consecutive samples.
	maxSpeedStep = 15
	// rushStdFactor inflates the std during rush hours.
	rushStdFactor = 1.3
)

type speedParams struct {
	mean, std float64
}

// SpeedSampler draws speeds from a Gaussian whose mean is conditioned on road
// type, time of day, weather and driver behavior.
type SpeedSampler struct {
	base            map[RoadType]speedParams
	timeFactors     map[TimeOfDay]float64
	weatherFactors  map[Weather]float64
	behaviorFactors map[Behavior]float64
	rng             *Rand
}

// NewSpeedSampler builds the sampler from configuration. Highway and urban
// parameters come from the config; rural roads use built-in values. Factor
// tables are checked for completeness over their enum domains.
func NewSpeedSampler(cfg config.GaussianSpeed, rng *Rand) (*SpeedSampler, error) {
	s := &SpeedSampler{
		base: map[RoadType]speedParams{
			RoadHighway: {mean: cfg.HighwayMean, std: cfg.HighwayStd},
			RoadUrban:   {mean: cfg.UrbanMean, std: cfg.UrbanStd},
			RoadRural:   {mean: 70, std: 12},
		},
		timeFactors: map[TimeOfDay]float64{
			MorningRush: 0.7,
			Midday:      1.0,
			EveningRush: 0.65,
			Night:       1.1,
		},
		weatherFactors: map[Weather]float64{
			WeatherClear: 1.0,
			WeatherRain:  0.8,
			WeatherFog:   0.6,
			WeatherDust:  0.7,
		},
		behaviorFactors: map[Behavior]float64{
			BehaviorCautious:   0.85,
			BehaviorNormal:     1.0,
			BehaviorAggressive: 1.25,
		},
		rng: rng,
	}
	if err := completeTable("time factors", s.timeFactors, TimesOfDay); err != nil {
		return nil, err
	}
	if err := completeTable("weather factors", s.weatherFactors, Weathers); err != nil {
		return nil, err
	}
	if err := completeTable("behavior factors", s.behaviorFactors, Behaviors); err != nil {
		return nil, err
	}
	return s, nil
}

// Sample draws one speed for the given conditions, in km/h rounded to two
// decimals. An unknown road type falls back to urban. If previous is non-nil
// the step change is capped at ±15 km/h by clamping toward the new sample.
func (s *SpeedSampler) Sample(road RoadType, tod TimeOfDay, weather Weather, behavior Behavior, previous *float64) float64 {
	base, ok := s.base[road]
	if !ok {
		base = s.base[RoadUrban]
	}

	mean := base.mean
	if f, ok := s.timeFactors[tod]; ok {
		mean *= f
	}
	// Unknown weather leaves the mean unadjusted.
	if f, ok := s.weatherFactors[weather]; ok {
		mean *= f
	}
	if f, ok := s.behaviorFactors[behavior]; ok {
		mean *= f
	}

	std := base.std
	if tod == MorningRush || tod == EveningRush {
		std *= rushStdFactor
	}

	speed := clamp(s.rng.Normal(mean, std), minSpeedKmh, maxSpeedKmh)

	if previous != nil {
		if diff := speed - *previous; diff > maxSpeedStep {
			speed = *previous + maxSpeedStep
		} else if diff < -maxSpeedStep {
			speed = *previous - maxSpeedStep
		}
	}
	return round2(speed)
}

// Profile samples a full trip's speed series on one road type. Conditions are
// drawn once and held fixed; consecutive samples are smoothed against each
// other.
func (s *SpeedSampler) Profile(road RoadType, duration, interval time.Duration) []float64 {
	if interval <= 0 {
		return nil
	}
	n := int(duration / interval)
	if n <= 0 {
		return nil
	}

	tod := TimesOfDay[s.rng.IntN(len(TimesOfDay))]
	weather := Weathers[s.rng.IntN(len(Weathers))]
	behavior := Behaviors[s.rng.IntN(len(Behaviors))]

	speeds := make([]float64, 0, n)
	var previous *float64
	for i := 0; i < n; i++ {
		sp := s.Sample(road, tod, weather, behavior, previous)
		speeds = append(speeds, sp)
		previous = &speeds[len(speeds)-1]
	}
	return speeds
}

// SpeedStats summarizes a speed series, all values rounded to two decimals.
type SpeedStats struct {
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	Q25    float64 `json:"q25"`
	Q75    float64 `json:"q75"`
}

// Stats computes summary statistics for a speed series. An empty series
// yields zeroes.
func (s *SpeedSampler) Stats(speeds []float64) SpeedStats {
	if len(speeds) == 0 {
		return SpeedStats{}
	}
	mean, _ := stats.Mean(speeds)
	std, _ := stats.StandardDeviation(speeds)
	min, _ := stats.Min(speeds)
	max, _ := stats.Max(speeds)
	median, _ := stats.Median(speeds)
	q25, _ := stats.Percentile(speeds, 25)
	q75, _ := stats.Percentile(speeds, 75)
	return SpeedStats{
		Mean:   round2(mean),
		Std:    round2(std),
		Min:    round2(min),
		Max:    round2(max),
		Median: round2(median),
		Q25:    round2(q25),
		Q75:    round2(q75),
	}
}

// GaussianCheck reports how a speed series matches the 68-95-99.7 rule. The
// Within fields are fractions of samples inside 1, 2 and 3 sample stds of the
// sample mean.
type GaussianCheck struct {
	Within1Std float64
	Within2Std float64
	Within3Std float64
	Rule68     bool
	Rule95     bool
	Rule997    bool
}

// VerifyGaussian checks the 68-95-99.7 rule with the tolerance bands
// 60-75%, 90-98% and 95-100%. Diagnostic only; an empty series fails all
// bands with zero fractions.
func (s *SpeedSampler) VerifyGaussian(speeds []float64) GaussianCheck {
	if len(speeds) == 0 {
		return GaussianCheck{}
	}
	mean, _ := stats.Mean(speeds)
	std, _ := stats.StandardDeviation(speeds)

	var in1, in2, in3 int
	for _, sp := range speeds {
		d := sp - mean
		if d < 0 {
			d = -d
		}
		if d <= std {
			in1++
		}
		if d <= 2*std {
			in2++
		}
		if d <= 3*std {
			in3++
		}
	}
	n := float64(len(speeds))
	c := GaussianCheck{
		Within1Std: float64(in1) / n,
		Within2Std: float64(in2) / n,
		Within3Std: float64(in3) / n,
	}
	c.Rule68 = c.Within1Std >= 0.60 && c.Within1Std <= 0.75
	c.Rule95 = c.Within2Std >= 0.90 && c.Within2Std <= 0.98
	c.Rule997 = c.Within3Std >= 0.95 && c.Within3Std <= 1.00
	return c
}
