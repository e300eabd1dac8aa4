package models

import "time"

// TripRecord is one synchronized per-step record of a simulated trip: the
// waypoint, the sampled speed, the hidden driver state with its observation,
// and the engine reading for the same instant.
type TripRecord struct {
	TripID      string              `bson:"trip_id" json:"trip_id"`
	VehicleID   string              `bson:"vehicle_id" json:"vehicle_id"`
	DriverID    string              `bson:"driver_id" json:"driver_id"`
	Timestamp   time.Time           `bson:"timestamp" json:"timestamp"`
	Location    Location            `bson:"location" json:"location"`
	RoadType    string              `bson:"road_type" json:"road_type"`
	SpeedKmh    float64             `bson:"speed_kmh" json:"speed_kmh"`
	DriverState string              `bson:"driver_state" json:"driver_state"`
	Behavior    BehaviorObservation `bson:"behavior" json:"behavior"`
	Telemetry   EngineTelemetry     `bson:"telemetry" json:"telemetry"`
	OdometerKm  float64             `bson:"odometer_km" json:"odometer_km"`
}

// TelemetryEvent is the flat projection of a TripRecord published on the wire
// and stored in the telemetry_events collection.
type TelemetryEvent struct {
	VehicleID  string    `bson:"vehicle_id" json:"vehicle_id"`
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
	Latitude   float64   `bson:"latitude" json:"latitude"`
	Longitude  float64   `bson:"longitude" json:"longitude"`
	Speed      float64   `bson:"speed" json:"speed"`
	FuelLevel  float64   `bson:"fuel_level" json:"fuel_level"`
	EngineTemp float64   `bson:"engine_temp" json:"engine_temp"`
	RPM        int       `bson:"rpm" json:"rpm"`
	Odometer   float64   `bson:"odometer" json:"odometer"`
}

// Event flattens the record for streaming and document storage.
func (r TripRecord) Event() TelemetryEvent {
	return TelemetryEvent{
		VehicleID:  r.VehicleID,
		Timestamp:  r.Timestamp,
		Latitude:   r.Location.Latitude,
		Longitude:  r.Location.Longitude,
		Speed:      r.SpeedKmh,
		FuelLevel:  r.Telemetry.FuelLevel,
		EngineTemp: r.Telemetry.EngineTemp,
		RPM:        r.Telemetry.RPM,
		Odometer:   r.OdometerKm,
	}
}
