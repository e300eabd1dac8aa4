package models

import "time"

// Warehouse is one distribution-center dimension record. Every route starts at
// a warehouse.
type Warehouse struct {
	WarehouseID        string    `bson:"warehouse_id" json:"warehouse_id"`
	Name               string    `bson:"warehouse_name" json:"warehouse_name"`
	City               string    `bson:"city" json:"city"`
	Address            string    `bson:"address" json:"address"`
	Location           Location  `bson:"location" json:"location"`
	CapacityPallets    int       `bson:"capacity_pallets" json:"capacity_pallets"`
	UtilizationPercent float64   `bson:"current_utilization_percent" json:"current_utilization_percent"`
	ManagerName        string    `bson:"manager_name" json:"manager_name"`
	PhoneNumber        string    `bson:"phone_number" json:"phone_number"`
	OperatingHours     string    `bson:"operating_hours" json:"operating_hours"`
	LoadingDocks       int       `bson:"num_loading_docks" json:"num_loading_docks"`
	CreatedAt          time.Time `bson:"created_at" json:"created_at"`
}
