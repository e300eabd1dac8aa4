package models

// BehaviorObservation holds the six observable driving signals emitted for one
// time-step. Intensities, steering smoothness and lane keeping are fractions in
// [0,1]; speed deviation is km/h relative to the expected speed and may be
// negative; reaction time is milliseconds in [300,2000].
type BehaviorObservation struct {
	SpeedDeviation        float64 `bson:"speed_deviation" json:"speed_deviation"`
	AccelerationIntensity float64 `bson:"acceleration_intensity" json:"acceleration_intensity"`
	BrakingIntensity      float64 `bson:"braking_intensity" json:"braking_intensity"`
	SteeringSmoothness    float64 `bson:"steering_smoothness" json:"steering_smoothness"`
	ReactionTimeMs        int     `bson:"reaction_time_ms" json:"reaction_time_ms"`
	LaneKeeping           float64 `bson:"lane_keeping" json:"lane_keeping"`
}
