package models

import "time"

// Waypoint is a single point on a generated route: a jittered position on the
// straight line between origin and destination, tagged with the road type of
// the route state that produced it.
type Waypoint struct {
	Latitude  float64   `bson:"latitude" json:"latitude"`
	Longitude float64   `bson:"longitude" json:"longitude"`
	RoadType  string    `bson:"road_type" json:"road_type"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// Point returns the waypoint position as a Location.
func (w Waypoint) Point() Location {
	return Location{Latitude: w.Latitude, Longitude: w.Longitude}
}
