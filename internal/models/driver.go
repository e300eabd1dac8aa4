package models

import "time"

// Driver is one driver dimension record. ExperienceLevel and BehaviorProfile
// condition the statistical generators; the rest is descriptive.
type Driver struct {
	DriverID         string    `bson:"driver_id" json:"driver_id"`
	Name             string    `bson:"name" json:"name"`
	ExperienceLevel  string    `bson:"experience_level" json:"experience_level"` // "Novice", "Intermediate", "Expert", "Master"
	YearsExperience  int       `bson:"years_experience" json:"years_experience"`
	BehaviorProfile  string    `bson:"behavior_profile" json:"behavior_profile"` // "cautious", "normal", "aggressive"
	LicenseNumber    string    `bson:"license_number" json:"license_number"`
	PhoneNumber      string    `bson:"phone_number" json:"phone_number"`
	Email            string    `bson:"email" json:"email"`
	HireDate         string    `bson:"hire_date" json:"hire_date"`
	City             string    `bson:"city" json:"city"`
	Rating           float64   `bson:"rating" json:"rating"`
	PerformanceScore float64   `bson:"performance_score" json:"performance_score"`
	TotalDeliveries  int       `bson:"total_deliveries" json:"total_deliveries"`
	IncidentCount    int       `bson:"incident_count" json:"incident_count"`
	Status           string    `bson:"status" json:"status"` // "Available", "OnRoute", "OnBreak", "OffDuty"
	CreatedAt        time.Time `bson:"created_at" json:"created_at"`
}
