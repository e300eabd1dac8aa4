package models

import "time"

// Incident is a single safety incident materialized from a Poisson count,
// positioned uniformly over the trip duration.
type Incident struct {
	IncidentID       string    `bson:"incident_id" json:"incident_id"`
	VehicleID        string    `bson:"vehicle_id" json:"vehicle_id"`
	DriverID         string    `bson:"driver_id" json:"driver_id"`
	Type             string    `bson:"incident_type" json:"incident_type"`
	Severity         string    `bson:"severity" json:"severity"`
	Location         Location  `bson:"location" json:"location"`
	SpeedAtIncident  float64   `bson:"speed_at_incident" json:"speed_at_incident"`
	Timestamp        time.Time `bson:"timestamp" json:"timestamp"`
	WeatherCondition string    `bson:"weather_condition" json:"weather_condition"`
	Description      string    `bson:"description" json:"description"`
}
