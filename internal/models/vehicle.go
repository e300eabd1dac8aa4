package models

import "time"

// Vehicle is one fleet vehicle dimension record.
type Vehicle struct {
	VehicleID           string    `bson:"vehicle_id" json:"vehicle_id"`
	DriverID            string    `bson:"driver_id" json:"driver_id"`
	VehicleType         string    `bson:"vehicle_type" json:"vehicle_type"` // "Van", "Truck", "Heavy Truck", "Refrigerated Truck"
	Make                string    `bson:"make" json:"make"`
	Model               string    `bson:"model" json:"model"`
	Year                int       `bson:"year" json:"year"`
	VIN                 string    `bson:"vin" json:"vin"`
	LicensePlate        string    `bson:"license_plate" json:"license_plate"`
	CapacityKg          int       `bson:"capacity_kg" json:"capacity_kg"`
	FuelTankLiters      int       `bson:"fuel_tank_capacity_liters" json:"fuel_tank_capacity_liters"`
	LastMaintenanceDate string    `bson:"last_maintenance_date" json:"last_maintenance_date"`
	NextMaintenanceDate string    `bson:"next_maintenance_date" json:"next_maintenance_date"`
	OdometerKm          int       `bson:"odometer_km" json:"odometer_km"`
	Status              string    `bson:"status" json:"status"` // "active", "maintenance", "inactive"
	InsuranceExpiry     string    `bson:"insurance_expiry" json:"insurance_expiry"`
	CreatedAt           time.Time `bson:"created_at" json:"created_at"`
}
