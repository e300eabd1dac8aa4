package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/adkhan/fleet-analytics/internal/config"
	"github.com/adkhan/fleet-analytics/internal/models"
)

// Engine temperature bounds in °C.
const (
	minEngineTemp = 30
	maxEngineTemp = 125
	// loadTempGain is how many °C the long-run mean rises per unit of
	// external load above 1.
	loadTempGain = 15
)

// Fuel model constants.
const (
	baseFuelRateLph = 8.0
	tankLiters      = 80.0
	minFuelLph      = 2.0
	maxFuelLph      = 30.0
)

// TelemetryAR1 generates engine telemetry. Temperature follows an AR(1)
// recurrence around a load-adjusted mean; every other sensor is derived from
// temperature, speed and the previous reading.
type TelemetryAR1 struct {
	phi      float64
	meanTemp float64
	std      float64
	interval time.Duration
	rng      *Rand
}

// NewTelemetryAR1 builds the generator from configuration. Phi must lie in
// (0,1) for the process to be stationary; interval is the simulated time
// between readings and drives fuel integration.
func NewTelemetryAR1(cfg config.ARTemperature, interval time.Duration, rng *Rand) (*TelemetryAR1, error) {
	if cfg.Phi <= 0 || cfg.Phi >= 1 {
		return nil, fmt.Errorf("ar telemetry: phi must be in (0,1), got %v", cfg.Phi)
	}
	if cfg.Std <= 0 {
		return nil, fmt.Errorf("ar telemetry: std must be positive, got %v", cfg.Std)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("ar telemetry: interval must be positive, got %v", interval)
	}
	return &TelemetryAR1{
		phi:      cfg.Phi,
		meanTemp: cfg.MeanTemp,
		std:      cfg.Std,
		interval: interval,
		rng:      rng,
	}, nil
}

// Step advances the temperature recurrence one step:
// T_t = μ_L + φ(T_{t-1} − μ_L) + ε, with μ_L raised by external load and ε
// drawn from Normal(0, σ). The result is clamped to [30,125] °C and rounded
// to two decimals.
func (g *TelemetryAR1) Step(previousTemp, externalLoad float64) float64 {
	adjustedMean := g.meanTemp + (externalLoad-1.0)*loadTempGain
	temp := adjustedMean + g.phi*(previousTemp-adjustedMean) + g.rng.Normal(0, g.std)
	return round2(clamp(temp, minEngineTemp, maxEngineTemp))
}

// Series chains Step n−1 times from an initial temperature. A nil initial
// starts near the operating mean; a nil load profile holds the load at 1.0.
// n <= 0 yields an empty series.
func (g *TelemetryAR1) Series(n int, initial *float64, loads []float64) []float64 {
	if n <= 0 {
		return nil
	}
	first := g.meanTemp + g.rng.Normal(0, 5)
	if initial != nil {
		first = *initial
	}
	series := make([]float64, 1, n)
	series[0] = first
	for i := 1; i < n; i++ {
		load := 1.0
		if i < len(loads) {
			load = loads[i]
		}
		series = append(series, g.Step(series[i-1], load))
	}
	return series
}

// Reading produces a full telemetry snapshot for the current speed. The first
// reading of a trip (previous nil) starts near operating temperature with a
// random fuel level; later readings advance the AR(1) recurrence and
// integrate fuel burn over the sampling interval.
func (g *TelemetryAR1) Reading(speedKmh float64, previous *models.EngineTelemetry, externalLoad float64) models.EngineTelemetry {
	var engineTemp, coolantTemp float64
	if previous == nil {
		engineTemp = g.meanTemp + g.rng.Normal(0, 10)
		coolantTemp = engineTemp - 5
	} else {
		engineTemp = g.Step(previous.EngineTemp, externalLoad)
		// Coolant follows engine temperature with lag.
		coolantTemp = previous.CoolantTemp + 0.3*(engineTemp-previous.EngineTemp)
	}

	rpm := rpmForSpeed(speedKmh)
	throttle := math.Min(100, externalLoad*50+g.rng.Uniform(0, 20))
	oilPressure := clamp(30+float64(rpm)/100+g.rng.Normal(0, 3), 20, 70)
	fuelLph := g.fuelConsumption(speedKmh, rpm, throttle, engineTemp)

	var fuelLevel float64
	if previous == nil {
		fuelLevel = g.rng.Uniform(50, 100)
	} else {
		burnt := fuelLph / 3600 * g.interval.Seconds() * (100 / tankLiters)
		fuelLevel = math.Max(0, previous.FuelLevel-burnt)
	}

	return models.EngineTelemetry{
		EngineTemp:         round2(engineTemp),
		CoolantTemp:        round2(coolantTemp),
		OilPressure:        round2(oilPressure),
		FuelLevel:          round2(fuelLevel),
		FuelConsumptionLph: fuelLph,
		RPM:                rpm,
		ThrottlePosition:   round2(throttle),
	}
}

// rpmForSpeed approximates an automatic transmission with three gear bands,
// capped at 4500.
func rpmForSpeed(speedKmh float64) int {
	var rpm int
	switch {
	case speedKmh < 20:
		rpm = int(800 + speedKmh*40)
	case speedKmh < 60:
		rpm = int(1500 + (speedKmh-20)*25)
	default:
		rpm = int(2500 + (speedKmh-60)*15)
	}
	if rpm > 4500 {
		rpm = 4500
	}
	return rpm
}

// fuelConsumption models burn rate in L/h: quadratic in speed, linear in RPM
// and throttle, with a cold-engine penalty below the operating mean. Clamped
// to [2,30].
func (g *TelemetryAR1) fuelConsumption(speedKmh float64, rpm int, throttle, engineTemp float64) float64 {
	fuel := baseFuelRateLph
	fuel += math.Pow(speedKmh/100, 2) * 3.0
	fuel += float64(rpm) / 1000 * 0.5
	fuel += throttle / 100 * 4.0
	if engineTemp < g.meanTemp {
		fuel += (g.meanTemp - engineTemp) * 0.05
	}
	return round2(clamp(fuel, minFuelLph, maxFuelLph))
}

// ARCheck compares a temperature series against the theoretical AR(1)
// moments.
type ARCheck struct {
	SampleMean          float64
	SampleVariance      float64
	TheoreticalVariance float64
	Lag1Autocorr        float64
	Holds               bool
}

// VerifyAR1 checks that the lag-1 autocorrelation of a series is within 0.1
// of phi and reports the sample moments against the stationary variance
// std^2/(1-phi^2). Series shorter than two elements report zeroes.
// Diagnostic only.
func (g *TelemetryAR1) VerifyAR1(series []float64) ARCheck {
	theoretical := g.std * g.std / (1 - g.phi*g.phi)
	if len(series) < 2 {
		return ARCheck{TheoreticalVariance: round2(theoretical)}
	}
	mean, _ := stats.Mean(series)
	variance, _ := stats.PopulationVariance(series)
	lag1, err := stats.Correlation(series[:len(series)-1], series[1:])
	if err != nil {
		lag1 = 0
	}
	return ARCheck{
		SampleMean:          round2(mean),
		SampleVariance:      round2(variance),
		TheoreticalVariance: round2(theoretical),
		Lag1Autocorr:        round3(lag1),
		Holds:               math.Abs(lag1-g.phi) < 0.1,
	}
}
