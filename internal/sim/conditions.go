package sim

import (
	"fmt"
	"math"
	"time"
)

// RouteState is a state of the route Markov chain.
type RouteState string

// Route chain states. GenerateRoute always begins in StateWarehouse and ends
// in StateCustomer.
const (
	StateWarehouse RouteState = "warehouse"
	StateHighway   RouteState = "highway"
	StateUrban     RouteState = "urban"
	StateCustomer  RouteState = "customer"
)

// RouteStates lists the chain states in matrix row order.
var RouteStates = []RouteState{StateWarehouse, StateHighway, StateUrban, StateCustomer}

// RoadType classifies the road a waypoint sits on.
type RoadType string

// Road types recognized by the speed sampler.
const (
	RoadHighway RoadType = "highway"
	RoadUrban   RoadType = "urban"
	RoadRural   RoadType = "rural"
)

// TimeOfDay buckets the simulated clock into traffic periods.
type TimeOfDay string

// Traffic periods.
const (
	MorningRush TimeOfDay = "morning_rush"
	Midday      TimeOfDay = "midday"
	EveningRush TimeOfDay = "evening_rush"
	Night       TimeOfDay = "night"
)

// TimesOfDay lists every traffic period.
var TimesOfDay = []TimeOfDay{MorningRush, Midday, EveningRush, Night}

// TimeOfDayAt buckets t: 07-09 morning rush, 10-16 midday, 17-19 evening
// rush, everything else night.
func TimeOfDayAt(t time.Time) TimeOfDay {
	switch h := t.Hour(); {
	case h >= 7 && h <= 9:
		return MorningRush
	case h >= 10 && h <= 16:
		return Midday
	case h >= 17 && h <= 19:
		return EveningRush
	default:
		return Night
	}
}

// Weather is the weather condition over a trip.
type Weather string

// Weather conditions.
const (
	WeatherClear Weather = "clear"
	WeatherRain  Weather = "rain"
	WeatherFog   Weather = "fog"
	WeatherDust  Weather = "dust"
)

// Weathers lists every weather condition.
var Weathers = []Weather{WeatherClear, WeatherRain, WeatherFog, WeatherDust}

// Traffic is the congestion level over a trip.
type Traffic string

// Traffic levels.
const (
	TrafficLight     Traffic = "light"
	TrafficModerate  Traffic = "moderate"
	TrafficHeavy     Traffic = "heavy"
	TrafficCongested Traffic = "congested"
)

// TrafficLevels lists every congestion level.
var TrafficLevels = []Traffic{TrafficLight, TrafficModerate, TrafficHeavy, TrafficCongested}

// Behavior is a driver behavior class, either a profile assigned to a driver
// or derived per step from the HMM hidden state.
type Behavior string

// Behavior classes.
const (
	BehaviorCautious   Behavior = "cautious"
	BehaviorNormal     Behavior = "normal"
	BehaviorAggressive Behavior = "aggressive"
)

// Behaviors lists every behavior class.
var Behaviors = []Behavior{BehaviorCautious, BehaviorNormal, BehaviorAggressive}

// Experience is a driver experience level.
type Experience string

// Experience levels.
const (
	Novice       Experience = "Novice"
	Intermediate Experience = "Intermediate"
	Expert       Experience = "Expert"
	Master       Experience = "Master"
)

// ExperienceLevels lists every experience level.
var ExperienceLevels = []Experience{Novice, Intermediate, Expert, Master}

// DriverState is a hidden state of the behavior HMM.
type DriverState string

// Hidden driver states.
const (
	DriverNormal     DriverState = "normal"
	DriverAggressive DriverState = "aggressive"
	DriverTired      DriverState = "tired"
)

// DriverStates lists the hidden states in matrix row order.
var DriverStates = []DriverState{DriverNormal, DriverAggressive, DriverTired}

// BehaviorFor maps a hidden driver state to the behavior class used when
// sampling speed: tired drivers slow down, so they read as cautious.
func BehaviorFor(s DriverState) Behavior {
	switch s {
	case DriverAggressive:
		return BehaviorAggressive
	case DriverTired:
		return BehaviorCautious
	default:
		return BehaviorNormal
	}
}

// stochasticTol is the tolerance for probability rows summing to 1.
const stochasticTol = 1e-9

// validateDistribution checks that weights form a probability distribution.
func validateDistribution(name string, weights []float64) error {
	if len(weights) == 0 {
		return fmt.Errorf("%s: empty distribution", name)
	}
	sum := 0.0
	for i, w := range weights {
		if w < 0 {
			return fmt.Errorf("%s: negative probability %v at index %d", name, w, i)
		}
		sum += w
	}
	if math.Abs(sum-1) > stochasticTol {
		return fmt.Errorf("%s: probabilities sum to %v, want 1", name, sum)
	}
	return nil
}

// validateStochastic checks that matrix is square over n states with every
// row a probability distribution.
func validateStochastic(name string, matrix [][]float64, n int) error {
	if len(matrix) != n {
		return fmt.Errorf("%s: %d rows, want %d", name, len(matrix), n)
	}
	for i, row := range matrix {
		if len(row) != n {
			return fmt.Errorf("%s: row %d has %d entries, want %d", name, i, len(row), n)
		}
		if err := validateDistribution(fmt.Sprintf("%s row %d", name, i), row); err != nil {
			return err
		}
	}
	return nil
}

// completeTable checks that table has an entry for every domain value.
func completeTable[K comparable](name string, table map[K]float64, domain []K) error {
	for _, k := range domain {
		if _, ok := table[k]; !ok {
			return fmt.Errorf("%s: missing factor for %v", name, k)
		}
	}
	return nil
}

// round2 rounds to two decimals, the precision of all emitted readings.
func round2(v float64) float64 { return math.Round(v*100) / 100 }

// round3 rounds to three decimals.
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }

// round6 rounds to six decimals, the precision of emitted coordinates.
func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }

// clamp bounds v into [lo,hi]. Out-of-range values are clamped, never
// resampled.
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
