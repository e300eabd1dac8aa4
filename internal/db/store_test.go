package db

import (
	"context"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/adkhan/fleet-analytics/internal/models"
)

func TestConnectMongo_BadURI(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://bad:uri")
	client, err := ConnectMongo(context.Background())
	if err == nil {
		t.Error("expected error for bad URI, got nil")
	}
	if client != nil {
		t.Error("expected nil client on error")
	}
}

func TestCollectionSpecs(t *testing.T) {
	specs := collectionSpecs()
	if len(specs) != 8 {
		t.Fatalf("expected 8 collections, got %d", len(specs))
	}

	want := map[string]bool{
		CollVehicles: true, CollDrivers: true, CollWarehouses: true, CollCustomers: true,
		CollTelemetry: true, CollAggregations: true, CollDeliveries: true, CollIncidents: true,
	}
	for _, spec := range specs {
		if !want[spec.name] {
			t.Errorf("unexpected or duplicate collection %q", spec.name)
		}
		delete(want, spec.name)

		if len(spec.required) == 0 {
			t.Errorf("%s: no required fields", spec.name)
		}
		if len(spec.indexes) == 0 {
			t.Errorf("%s: no indexes", spec.name)
		}

		doc := spec.validatorDoc()
		schema, ok := doc["$jsonSchema"].(bson.M)
		if !ok {
			t.Fatalf("%s: validator missing $jsonSchema", spec.name)
		}
		if schema["required"] == nil {
			t.Errorf("%s: validator has no required list", spec.name)
		}
	}
	if len(want) != 0 {
		t.Errorf("missing collections: %v", want)
	}
}

func TestDeliveryValidatorEnum(t *testing.T) {
	for _, spec := range collectionSpecs() {
		if spec.name != CollDeliveries {
			continue
		}
		status, ok := spec.properties["status"].(bson.M)
		if !ok {
			t.Fatal("deliveries validator has no status constraint")
		}
		enum, ok := status["enum"].([]string)
		if !ok || len(enum) != 3 {
			t.Fatalf("deliveries status enum = %v, want 3 states", status["enum"])
		}
		return
	}
	t.Fatal("deliveries spec not found")
}

func TestUpsertEmptyBatches(t *testing.T) {
	// Empty batches return before touching the database.
	store := &Store{}
	ctx := context.Background()
	if err := store.UpsertTelemetryEvents(ctx, nil); err != nil {
		t.Errorf("empty telemetry batch: %v", err)
	}
	if err := store.UpsertIncidents(ctx, nil); err != nil {
		t.Errorf("empty incident batch: %v", err)
	}
	if err := store.UpsertDeliveries(ctx, nil); err != nil {
		t.Errorf("empty delivery batch: %v", err)
	}
	if err := store.UpsertAggregates(ctx, nil); err != nil {
		t.Errorf("empty aggregate batch: %v", err)
	}
}

// Integration test (requires running MongoDB)
func TestStoreIntegration(t *testing.T) {
	if os.Getenv("MONGO_URI") == "" {
		t.Skip("MONGO_URI not set, skipping integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := ConnectMongo(ctx)
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
	}
	defer client.Disconnect(ctx)

	store := NewStore(client)
	if err := store.EnsureCollections(ctx); err != nil {
		t.Fatalf("EnsureCollections: %v", err)
	}
	// Second run must be a no-op, not an error.
	if err := store.EnsureCollections(ctx); err != nil {
		t.Fatalf("EnsureCollections rerun: %v", err)
	}

	vehicles := []models.Vehicle{
		{VehicleID: "VEH-TEST-1", VehicleType: "Van", Make: "Volvo", Model: "Volvo Van", Year: 2020, Status: "active"},
		{VehicleID: "VEH-TEST-2", VehicleType: "Truck", Make: "MAN", Model: "MAN Truck", Year: 2019, Status: "active"},
	}
	if err := store.ReplaceVehicles(ctx, vehicles); err != nil {
		t.Fatalf("ReplaceVehicles: %v", err)
	}
	if err := store.ReplaceVehicles(ctx, vehicles); err != nil {
		t.Fatalf("ReplaceVehicles rerun: %v", err)
	}

	counts, err := store.CollectionCounts(ctx)
	if err != nil {
		t.Fatalf("CollectionCounts: %v", err)
	}
	if counts[CollVehicles] != 2 {
		t.Errorf("vehicle count after reseed = %d, want 2", counts[CollVehicles])
	}

	ts := time.Now().UTC().Truncate(time.Millisecond)
	events := []models.TelemetryEvent{
		{VehicleID: "VEH-TEST-1", Timestamp: ts, Latitude: 24.86, Longitude: 67.0, Speed: 62.5, FuelLevel: 80, EngineTemp: 85, RPM: 2500},
	}
	if err := store.UpsertTelemetryEvents(ctx, events); err != nil {
		t.Fatalf("UpsertTelemetryEvents: %v", err)
	}
	before, err := store.CollectionCounts(ctx)
	if err != nil {
		t.Fatalf("CollectionCounts: %v", err)
	}
	// Replaying the same batch must not grow the collection.
	if err := store.UpsertTelemetryEvents(ctx, events); err != nil {
		t.Fatalf("UpsertTelemetryEvents replay: %v", err)
	}
	after, err := store.CollectionCounts(ctx)
	if err != nil {
		t.Fatalf("CollectionCounts: %v", err)
	}
	if before[CollTelemetry] != after[CollTelemetry] {
		t.Errorf("telemetry count changed on replay: %d -> %d", before[CollTelemetry], after[CollTelemetry])
	}

	deliveries := []models.Delivery{
		{DeliveryID: "DEL-TEST-1", TripID: "TRIP-TEST-1", VehicleID: "VEH-TEST-1", DriverID: "DRV-TEST-1",
			WarehouseID: "WH-001", CustomerID: "CUST-TEST-1", Status: models.DeliveryCompleted,
			ScheduledTime: ts, ActualTime: ts.Add(45 * time.Minute), DistanceKm: 32.4, CreatedAt: ts},
	}
	if err := store.UpsertDeliveries(ctx, deliveries); err != nil {
		t.Fatalf("UpsertDeliveries: %v", err)
	}
	if err := store.UpsertDeliveries(ctx, deliveries); err != nil {
		t.Fatalf("UpsertDeliveries replay: %v", err)
	}
}
