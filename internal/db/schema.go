package db

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/adkhan/fleet-analytics/internal/models"
)

// collectionSpec declares one collection: the fields its validator requires,
// optional per-field schema constraints and its index inventory.
type collectionSpec struct {
	name       string
	required   []string
	properties bson.M
	indexes    []mongo.IndexModel
}

func (c collectionSpec) validatorDoc() bson.M {
	schema := bson.M{
		"bsonType": "object",
		"required": c.required,
	}
	if len(c.properties) > 0 {
		schema["properties"] = c.properties
	}
	return bson.M{"$jsonSchema": schema}
}

func unique() *options.IndexOptions {
	return options.Index().SetUnique(true)
}

// collectionSpecs is the full schema of the analytics database. Dimension
// lookups run on their business keys, telemetry queries on vehicle plus time,
// and the two location indexes keep geo lookups off collection scans.
func collectionSpecs() []collectionSpec {
	return []collectionSpec{
		{
			name:     CollVehicles,
			required: []string{"vehicle_id", "vehicle_type"},
			indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "vehicle_id", Value: 1}}, Options: unique()},
				{Keys: bson.D{{Key: "vehicle_type", Value: 1}}},
				{Keys: bson.D{{Key: "status", Value: 1}}},
			},
		},
		{
			name:     CollDrivers,
			required: []string{"driver_id", "name"},
			indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "driver_id", Value: 1}}, Options: unique()},
				{Keys: bson.D{{Key: "license_number", Value: 1}}, Options: unique()},
				{Keys: bson.D{{Key: "status", Value: 1}}},
				{Keys: bson.D{{Key: "rating", Value: -1}}},
			},
		},
		{
			name:     CollWarehouses,
			required: []string{"warehouse_id", "city", "location"},
			indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "warehouse_id", Value: 1}}, Options: unique()},
				{Keys: bson.D{{Key: "location", Value: "2d"}}},
				{Keys: bson.D{{Key: "city", Value: 1}}},
			},
		},
		{
			name:     CollCustomers,
			required: []string{"customer_id", "location"},
			indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "customer_id", Value: 1}}, Options: unique()},
				{Keys: bson.D{{Key: "location", Value: "2d"}}},
				{Keys: bson.D{{Key: "city", Value: 1}}},
				{Keys: bson.D{{Key: "customer_type", Value: 1}}},
			},
		},
		{
			name:     CollTelemetry,
			required: []string{"vehicle_id", "timestamp"},
			indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "vehicle_id", Value: 1}, {Key: "timestamp", Value: -1}}},
				{Keys: bson.D{{Key: "timestamp", Value: -1}}},
				{Keys: bson.D{{Key: "latitude", Value: 1}, {Key: "longitude", Value: 1}}},
			},
		},
		{
			name:     CollAggregations,
			required: []string{"vehicle_id", "window_start"},
			indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "vehicle_id", Value: 1}, {Key: "window_start", Value: -1}}},
				{Keys: bson.D{{Key: "window_start", Value: -1}}},
			},
		},
		{
			name:     CollDeliveries,
			required: []string{"delivery_id", "vehicle_id", "status"},
			properties: bson.M{
				"status": bson.M{
					"enum": []string{
						models.DeliveryInProgress,
						models.DeliveryCompleted,
						models.DeliveryCancelled,
					},
				},
			},
			indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "delivery_id", Value: 1}}, Options: unique()},
				{Keys: bson.D{{Key: "vehicle_id", Value: 1}}},
				{Keys: bson.D{{Key: "driver_id", Value: 1}}},
				{Keys: bson.D{{Key: "status", Value: 1}}},
			},
		},
		{
			name:     CollIncidents,
			required: []string{"incident_id", "vehicle_id", "incident_type"},
			indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "incident_id", Value: 1}}, Options: unique()},
				{Keys: bson.D{{Key: "vehicle_id", Value: 1}, {Key: "timestamp", Value: -1}}},
				{Keys: bson.D{{Key: "incident_type", Value: 1}}},
				{Keys: bson.D{{Key: "severity", Value: 1}}},
			},
		},
	}
}
