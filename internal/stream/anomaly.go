package stream

import (
	"fmt"

	"github.com/adkhan/fleet-analytics/internal/config"
	"github.com/adkhan/fleet-analytics/internal/models"
)

// Anomaly types, in detection precedence order.
const (
	AnomalyOverSpeed    = "OVER_SPEED"
	AnomalyInvalidSpeed = "INVALID_SPEED"
	AnomalyOverheating  = "OVERHEATING"
	AnomalyEngineCold   = "ENGINE_COLD"
	AnomalyLowFuel      = "LOW_FUEL"
)

// DetectAnomaly checks one event against the thresholds. Rules are evaluated
// in precedence order and only the first hit is reported.
func DetectAnomaly(ev models.TelemetryEvent, th config.Thresholds) (models.Anomaly, bool) {
	var kind string
	switch {
	case ev.Speed > th.MaxSpeed:
		kind = AnomalyOverSpeed
	case ev.Speed < th.MinSpeed:
		kind = AnomalyInvalidSpeed
	case ev.EngineTemp > th.MaxEngineTemp:
		kind = AnomalyOverheating
	case ev.EngineTemp < th.MinEngineTemp:
		kind = AnomalyEngineCold
	case ev.FuelLevel < th.MinFuelLevel:
		kind = AnomalyLowFuel
	default:
		return models.Anomaly{}, false
	}
	return models.Anomaly{
		VehicleID:   ev.VehicleID,
		Timestamp:   ev.Timestamp,
		AnomalyType: kind,
		Speed:       ev.Speed,
		EngineTemp:  ev.EngineTemp,
		FuelLevel:   ev.FuelLevel,
	}, true
}

// Physical bounds for consumer-side validation. Wider than the generator's
// operating ranges; anything outside is a corrupt message, not an anomaly.
const (
	validMaxSpeedKmh = 200.0
	validMinSpeedKmh = 0.0
)

// ValidateTelemetry rejects events that cannot describe a real vehicle.
// Invalid events are dropped before aggregation so one corrupt message cannot
// poison a window.
func ValidateTelemetry(ev models.TelemetryEvent) error {
	if ev.VehicleID == "" {
		return fmt.Errorf("missing vehicle_id")
	}
	if ev.Timestamp.IsZero() {
		return fmt.Errorf("missing timestamp")
	}
	if ev.Speed < validMinSpeedKmh || ev.Speed > validMaxSpeedKmh {
		return fmt.Errorf("speed %.2f outside [%v,%v]", ev.Speed, validMinSpeedKmh, validMaxSpeedKmh)
	}
	if ev.Latitude < -90 || ev.Latitude > 90 {
		return fmt.Errorf("latitude %.6f out of range", ev.Latitude)
	}
	if ev.Longitude < -180 || ev.Longitude > 180 {
		return fmt.Errorf("longitude %.6f out of range", ev.Longitude)
	}
	return nil
}
