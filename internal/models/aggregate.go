package models

import "time"

// Aggregate is one per-vehicle sliding-window speed and telemetry summary.
type Aggregate struct {
	WindowStart   time.Time `bson:"window_start" json:"window_start"`
	WindowEnd     time.Time `bson:"window_end" json:"window_end"`
	VehicleID     string    `bson:"vehicle_id" json:"vehicle_id"`
	AvgSpeed      float64   `bson:"avg_speed" json:"avg_speed"`
	MaxSpeed      float64   `bson:"max_speed" json:"max_speed"`
	MinSpeed      float64   `bson:"min_speed" json:"min_speed"`
	AvgFuelLevel  float64   `bson:"avg_fuel_level" json:"avg_fuel_level"`
	AvgEngineTemp float64   `bson:"avg_engine_temp" json:"avg_engine_temp"`
	RecordCount   int       `bson:"record_count" json:"record_count"`
}

// Anomaly flags a telemetry event that tripped one of the threshold rules.
type Anomaly struct {
	VehicleID   string    `bson:"vehicle_id" json:"vehicle_id"`
	Timestamp   time.Time `bson:"timestamp" json:"timestamp"`
	AnomalyType string    `bson:"anomaly_type" json:"anomaly_type"`
	Speed       float64   `bson:"speed" json:"speed"`
	EngineTemp  float64   `bson:"engine_temp" json:"engine_temp"`
	FuelLevel   float64   `bson:"fuel_level" json:"fuel_level"`
}
