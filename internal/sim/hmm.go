package sim

import (
	"fmt"
	"math"

	"github.com/adkhan/fleet-analytics/internal/models"
)

// Reaction time bounds in milliseconds.
const (
	minReactionMs = 300
	maxReactionMs = 2000
)

// gaussian holds the (mean, std) of one emission dimension.
type gaussian struct {
	mean, std float64
}

func (g gaussian) pdf(x float64) float64 {
	variance := g.std * g.std
	return math.Exp(-((x-g.mean)*(x-g.mean))/(2*variance)) / math.Sqrt(2*math.Pi*variance)
}

// emissionParams holds one hidden state's Gaussian parameters for the six
// observable dimensions.
type emissionParams struct {
	speedDeviation gaussian
	acceleration   gaussian
	braking        gaussian
	steering       gaussian
	reaction       gaussian
	laneKeeping    gaussian
}

// DriverHMM models the unobservable driver condition as a three-state hidden
// Markov chain emitting six observable driving signals per step.
type DriverHMM struct {
	states     []DriverState
	transition [][]float64
	initial    []float64
	emissions  map[DriverState]emissionParams
	rng        *Rand
}

// NewDriverHMM builds the model with its fixed transition matrix, initial
// distribution and emission parameters, validating all of them.
func NewDriverHMM(rng *Rand) (*DriverHMM, error) {
	h := &DriverHMM{
		states: DriverStates,
		transition: [][]float64{
			// To: normal, aggressive, tired.
			{0.85, 0.10, 0.05},
			{0.30, 0.60, 0.10},
			{0.20, 0.05, 0.75},
		},
		initial: []float64{0.80, 0.15, 0.05},
		emissions: map[DriverState]emissionParams{
			DriverNormal: {
				speedDeviation: gaussian{0, 5},
				acceleration:   gaussian{0.3, 0.15},
				braking:        gaussian{0.2, 0.1},
				steering:       gaussian{0.8, 0.1},
				reaction:       gaussian{700, 100},
				laneKeeping:    gaussian{0.9, 0.1},
			},
			DriverAggressive: {
				speedDeviation: gaussian{15, 8},
				acceleration:   gaussian{0.8, 0.15},
				braking:        gaussian{0.7, 0.2},
				steering:       gaussian{0.4, 0.15},
				reaction:       gaussian{500, 80},
				laneKeeping:    gaussian{0.6, 0.2},
			},
			DriverTired: {
				speedDeviation: gaussian{-5, 5},
				acceleration:   gaussian{0.2, 0.1},
				braking:        gaussian{0.3, 0.15},
				steering:       gaussian{0.6, 0.2},
				reaction:       gaussian{1200, 200},
				laneKeeping:    gaussian{0.5, 0.25},
			},
		},
		rng: rng,
	}
	if err := validateStochastic("driver transition matrix", h.transition, len(h.states)); err != nil {
		return nil, err
	}
	if err := validateDistribution("driver initial distribution", h.initial); err != nil {
		return nil, err
	}
	for _, s := range h.states {
		if _, ok := h.emissions[s]; !ok {
			return nil, fmt.Errorf("driver hmm: missing emission parameters for state %q", s)
		}
	}
	return h, nil
}

// InitialState samples the starting hidden state.
func (h *DriverHMM) InitialState() DriverState {
	return h.states[h.rng.Weighted(h.initial)]
}

// Transition samples the successor of current from its transition row.
func (h *DriverHMM) Transition(current DriverState) DriverState {
	for i, s := range h.states {
		if s == current {
			return h.states[h.rng.Weighted(h.transition[i])]
		}
	}
	// Unknown states re-enter the chain at the initial distribution.
	return h.InitialState()
}

// Emit draws the six observable signals for the given hidden state, each
// clamped to its physical range.
func (h *DriverHMM) Emit(state DriverState) models.BehaviorObservation {
	p, ok := h.emissions[state]
	if !ok {
		p = h.emissions[DriverNormal]
	}

	reaction := int(h.rng.Normal(p.reaction.mean, p.reaction.std))
	if reaction < minReactionMs {
		reaction = minReactionMs
	}
	if reaction > maxReactionMs {
		reaction = maxReactionMs
	}

	return models.BehaviorObservation{
		SpeedDeviation:        round2(h.rng.Normal(p.speedDeviation.mean, p.speedDeviation.std)),
		AccelerationIntensity: round3(clamp(h.rng.Normal(p.acceleration.mean, p.acceleration.std), 0, 1)),
		BrakingIntensity:      round3(clamp(h.rng.Normal(p.braking.mean, p.braking.std), 0, 1)),
		SteeringSmoothness:    round3(clamp(h.rng.Normal(p.steering.mean, p.steering.std), 0, 1)),
		ReactionTimeMs:        reaction,
		LaneKeeping:           round3(clamp(h.rng.Normal(p.laneKeeping.mean, p.laneKeeping.std), 0, 1)),
	}
}

// GenerateSequence chains InitialState then Transition for n steps, emitting
// one observation per state. n <= 0 yields empty slices.
func (h *DriverHMM) GenerateSequence(n int) ([]DriverState, []models.BehaviorObservation) {
	if n <= 0 {
		return nil, nil
	}
	states := make([]DriverState, 0, n)
	observations := make([]models.BehaviorObservation, 0, n)

	current := h.InitialState()
	for i := 0; i < n; i++ {
		states = append(states, current)
		observations = append(observations, h.Emit(current))
		current = h.Transition(current)
	}
	return states, observations
}

// Infer estimates the hidden state posterior for one observation using only
// the speed deviation and reaction time dimensions as independent Gaussian
// likelihoods, normalized to sum to 1. This is a deliberate approximation of
// forward-backward inference. Degenerate likelihoods yield all zeroes.
func (h *DriverHMM) Infer(obs models.BehaviorObservation) map[DriverState]float64 {
	likelihoods := make(map[DriverState]float64, len(h.states))
	total := 0.0
	for _, s := range h.states {
		p := h.emissions[s]
		l := p.speedDeviation.pdf(obs.SpeedDeviation) * p.reaction.pdf(float64(obs.ReactionTimeMs))
		likelihoods[s] = l
		total += l
	}
	probs := make(map[DriverState]float64, len(h.states))
	for s, l := range likelihoods {
		if total > 0 {
			probs[s] = l / total
		} else {
			probs[s] = 0
		}
	}
	return probs
}

// StateStats returns the percentage of steps spent in each state, rounded to
// two decimals.
func (h *DriverHMM) StateStats(states []DriverState) map[DriverState]float64 {
	if len(states) == 0 {
		return map[DriverState]float64{}
	}
	counts := make(map[DriverState]int)
	for _, s := range states {
		counts[s]++
	}
	pct := make(map[DriverState]float64, len(counts))
	for s, n := range counts {
		pct[s] = round2(float64(n) / float64(len(states)) * 100)
	}
	return pct
}
