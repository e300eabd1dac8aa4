package models

import "time"

// Delivery statuses.
const (
	DeliveryInProgress = "InProgress"
	DeliveryCompleted  = "Completed"
	DeliveryCancelled  = "Cancelled"
)

// Delivery links one trip to the warehouse it left from and the customer it
// served.
type Delivery struct {
	DeliveryID    string    `bson:"delivery_id" json:"delivery_id"`
	TripID        string    `bson:"trip_id" json:"trip_id"`
	VehicleID     string    `bson:"vehicle_id" json:"vehicle_id"`
	DriverID      string    `bson:"driver_id" json:"driver_id"`
	WarehouseID   string    `bson:"warehouse_id" json:"warehouse_id"`
	CustomerID    string    `bson:"customer_id" json:"customer_id"`
	Status        string    `bson:"status" json:"status"`
	ScheduledTime time.Time `bson:"scheduled_time" json:"scheduled_time"`
	ActualTime    time.Time `bson:"actual_time" json:"actual_time"`
	DistanceKm    float64   `bson:"distance_km" json:"distance_km"`
	IncidentCount int       `bson:"incident_count" json:"incident_count"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
}
