package models

// EngineTelemetry is one engine sensor reading. Engine temperature follows an
// AR(1) recurrence; every other field is derived from temperature, speed and
// the previous reading. Fuel level never increases within a trip.
type EngineTelemetry struct {
	EngineTemp         float64 `bson:"engine_temp" json:"engine_temp"`
	CoolantTemp        float64 `bson:"coolant_temp" json:"coolant_temp"`
	OilPressure        float64 `bson:"oil_pressure" json:"oil_pressure"`
	FuelLevel          float64 `bson:"fuel_level" json:"fuel_level"`
	FuelConsumptionLph float64 `bson:"fuel_consumption_lph" json:"fuel_consumption_lph"`
	RPM                int     `bson:"rpm" json:"rpm"`
	ThrottlePosition   float64 `bson:"throttle_position" json:"throttle_position"`
}
