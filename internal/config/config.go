// Package config loads and validates the generation and pipeline settings
// from a YAML document. Statistical parameters are checked for structural
// completeness here; distribution-level checks (row sums, factor tables)
// happen where the generators are constructed.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	DataGeneration    DataGeneration    `yaml:"data_generation"`
	StatisticalModels StatisticalModels `yaml:"statistical_models"`
	Pipeline          Pipeline          `yaml:"pipeline"`
}

// DataGeneration sizes one generation run.
type DataGeneration struct {
	NumVehicles         int `yaml:"num_vehicles"`
	NumDrivers          int `yaml:"num_drivers"`
	NumWarehouses       int `yaml:"num_warehouses"`
	NumCustomers        int `yaml:"num_customers"`
	NumTrips            int `yaml:"num_trips"`
	WaypointsPerTrip    int `yaml:"waypoints_per_trip"`
	StepIntervalSeconds int `yaml:"step_interval_seconds"`
}

// StepInterval returns the simulated time between consecutive records.
func (d DataGeneration) StepInterval() time.Duration {
	return time.Duration(d.StepIntervalSeconds) * time.Second
}

// StatisticalModels holds the parameters of the four configurable generators.
type StatisticalModels struct {
	MarkovChain      MarkovChain      `yaml:"markov_chain"`
	GaussianSpeed    GaussianSpeed    `yaml:"gaussian_speed"`
	PoissonIncidents PoissonIncidents `yaml:"poisson_incidents"`
	ARTemperature    ARTemperature    `yaml:"ar_temperature"`
}

// MarkovChain configures the route state chain. TransitionMatrix is keyed by
// state name; each row must list one probability per state in state order.
type MarkovChain struct {
	States           []string             `yaml:"states"`
	TransitionMatrix map[string][]float64 `yaml:"transition_matrix"`
}

// GaussianSpeed configures the base speed distributions for the two
// configurable road types. Rural roads use built-in parameters.
type GaussianSpeed struct {
	HighwayMean float64 `yaml:"highway_mean"`
	HighwayStd  float64 `yaml:"highway_std"`
	UrbanMean   float64 `yaml:"urban_mean"`
	UrbanStd    float64 `yaml:"urban_std"`
}

// PoissonIncidents configures the incident rate model.
type PoissonIncidents struct {
	BaseLambda                 float64 `yaml:"base_lambda"`
	AggressiveDriverMultiplier float64 `yaml:"aggressive_driver_multiplier"`
}

// ARTemperature configures the AR(1) engine temperature process.
type ARTemperature struct {
	Phi      float64 `yaml:"phi"`
	MeanTemp float64 `yaml:"mean_temp"`
	Std      float64 `yaml:"std"`
}

// Pipeline configures the streaming consumer.
type Pipeline struct {
	Topics    Topics     `yaml:"topics"`
	Window    Window     `yaml:"window"`
	Anomalies Thresholds `yaml:"anomalies"`
}

// Topics names the MQTT topics carrying each record type.
type Topics struct {
	Telemetry  string `yaml:"telemetry"`
	Deliveries string `yaml:"deliveries"`
	Incidents  string `yaml:"incidents"`
}

// Window configures the sliding aggregation window.
type Window struct {
	SizeMinutes      int `yaml:"size_minutes"`
	SlideMinutes     int `yaml:"slide_minutes"`
	WatermarkMinutes int `yaml:"watermark_minutes"`
}

// Size returns the window length.
func (w Window) Size() time.Duration { return time.Duration(w.SizeMinutes) * time.Minute }

// Slide returns the window slide interval.
func (w Window) Slide() time.Duration { return time.Duration(w.SlideMinutes) * time.Minute }

// Watermark returns how long a window stays open for late events.
func (w Window) Watermark() time.Duration { return time.Duration(w.WatermarkMinutes) * time.Minute }

// Thresholds are the anomaly detection bounds applied to telemetry events.
type Thresholds struct {
	MaxSpeed      float64 `yaml:"max_speed"`
	MinSpeed      float64 `yaml:"min_speed"`
	MaxEngineTemp float64 `yaml:"max_engine_temp"`
	MinEngineTemp float64 `yaml:"min_engine_temp"`
	MinFuelLevel  float64 `yaml:"min_fuel_level"`
}

// Load reads, parses and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks that every recognized key is present and structurally sound.
func (c *Config) Validate() error {
	d := c.DataGeneration
	if d.NumVehicles <= 0 || d.NumDrivers <= 0 || d.NumWarehouses <= 0 || d.NumCustomers <= 0 {
		return fmt.Errorf("data_generation: entity counts must be positive")
	}
	if d.NumTrips <= 0 {
		return fmt.Errorf("data_generation: num_trips must be positive")
	}
	if d.WaypointsPerTrip <= 0 {
		return fmt.Errorf("data_generation: waypoints_per_trip must be positive")
	}
	if d.StepIntervalSeconds <= 0 {
		return fmt.Errorf("data_generation: step_interval_seconds must be positive")
	}

	m := c.StatisticalModels.MarkovChain
	if len(m.States) == 0 {
		return fmt.Errorf("markov_chain: states list is missing")
	}
	for _, s := range m.States {
		row, ok := m.TransitionMatrix[s]
		if !ok {
			return fmt.Errorf("markov_chain: transition_matrix missing row for state %q", s)
		}
		if len(row) != len(m.States) {
			return fmt.Errorf("markov_chain: row %q has %d entries, want %d", s, len(row), len(m.States))
		}
	}

	g := c.StatisticalModels.GaussianSpeed
	if g.HighwayMean <= 0 || g.UrbanMean <= 0 {
		return fmt.Errorf("gaussian_speed: means must be positive")
	}
	if g.HighwayStd <= 0 || g.UrbanStd <= 0 {
		return fmt.Errorf("gaussian_speed: stds must be positive")
	}

	p := c.StatisticalModels.PoissonIncidents
	if p.BaseLambda < 0 {
		return fmt.Errorf("poisson_incidents: base_lambda must be non-negative")
	}
	if p.AggressiveDriverMultiplier <= 0 {
		return fmt.Errorf("poisson_incidents: aggressive_driver_multiplier must be positive")
	}

	a := c.StatisticalModels.ARTemperature
	if a.Phi <= 0 || a.Phi >= 1 {
		return fmt.Errorf("ar_temperature: phi must be in (0,1), got %v", a.Phi)
	}
	if a.Std <= 0 {
		return fmt.Errorf("ar_temperature: std must be positive")
	}

	pl := c.Pipeline
	if pl.Topics.Telemetry == "" || pl.Topics.Deliveries == "" || pl.Topics.Incidents == "" {
		return fmt.Errorf("pipeline: all topics must be named")
	}
	if pl.Window.SlideMinutes <= 0 {
		return fmt.Errorf("pipeline: window slide_minutes must be positive")
	}
	if pl.Window.SizeMinutes < pl.Window.SlideMinutes {
		return fmt.Errorf("pipeline: window size_minutes must be >= slide_minutes")
	}
	if pl.Window.WatermarkMinutes < 0 {
		return fmt.Errorf("pipeline: window watermark_minutes must be non-negative")
	}
	if pl.Anomalies.MaxSpeed <= pl.Anomalies.MinSpeed {
		return fmt.Errorf("pipeline: anomaly speed bounds are inverted")
	}
	if pl.Anomalies.MaxEngineTemp <= pl.Anomalies.MinEngineTemp {
		return fmt.Errorf("pipeline: anomaly engine temp bounds are inverted")
	}
	return nil
}

// Default returns the configuration shipped in config/config.yaml. Tests and
// tools use it to construct generators without touching the filesystem.
func Default() *Config {
	return &Config{
		DataGeneration: DataGeneration{
			NumVehicles:         50,
			NumDrivers:          60,
			NumWarehouses:       10,
			NumCustomers:        200,
			NumTrips:            100,
			WaypointsPerTrip:    100,
			StepIntervalSeconds: 3,
		},
		StatisticalModels: StatisticalModels{
			MarkovChain: MarkovChain{
				States: []string{"warehouse", "highway", "urban", "customer"},
				TransitionMatrix: map[string][]float64{
					"warehouse": {0.10, 0.60, 0.30, 0.00},
					"highway":   {0.00, 0.70, 0.25, 0.05},
					"urban":     {0.05, 0.30, 0.45, 0.20},
					"customer":  {0.00, 0.15, 0.35, 0.50},
				},
			},
			GaussianSpeed: GaussianSpeed{
				HighwayMean: 90,
				HighwayStd:  15,
				UrbanMean:   45,
				UrbanStd:    10,
			},
			PoissonIncidents: PoissonIncidents{
				BaseLambda:                 0.3,
				AggressiveDriverMultiplier: 2.0,
			},
			ARTemperature: ARTemperature{
				Phi:      0.95,
				MeanTemp: 85,
				Std:      5,
			},
		},
		Pipeline: Pipeline{
			Topics: Topics{
				Telemetry:  "vehicle-telemetry",
				Deliveries: "deliveries",
				Incidents:  "incidents",
			},
			Window: Window{
				SizeMinutes:      5,
				SlideMinutes:     1,
				WatermarkMinutes: 10,
			},
			Anomalies: Thresholds{
				MaxSpeed:      140,
				MinSpeed:      0,
				MaxEngineTemp: 110,
				MinEngineTemp: 40,
				MinFuelLevel:  5,
			},
		},
	}
}
