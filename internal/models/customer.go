package models

import "time"

// Customer is one customer dimension record. Customer locations are the
// destinations of generated routes.
type Customer struct {
	CustomerID       string    `bson:"customer_id" json:"customer_id"`
	Name             string    `bson:"name" json:"name"`
	CustomerType     string    `bson:"customer_type" json:"customer_type"` // "business", "residential"
	City             string    `bson:"city" json:"city"`
	Address          string    `bson:"address" json:"address"`
	Location         Location  `bson:"location" json:"location"`
	PhoneNumber      string    `bson:"phone_number" json:"phone_number"`
	Email            string    `bson:"email" json:"email"`
	RegistrationDate string    `bson:"registration_date" json:"registration_date"`
	TotalOrders      int       `bson:"total_orders" json:"total_orders"`
	Segment          string    `bson:"customer_segment" json:"customer_segment"` // "premium", "standard", "basic"
	CreditLimit      float64   `bson:"credit_limit" json:"credit_limit"`
	CreatedAt        time.Time `bson:"created_at" json:"created_at"`
}
