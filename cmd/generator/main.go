// Command generator produces a full synthetic fleet dataset: dimension
// records, per-trip telemetry, incidents and deliveries. Output goes to one
// of five sinks selected by the SINK env var: stdout (default JSONL), file,
// mongo, mqtt or http.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/adkhan/fleet-analytics/internal/config"
	"github.com/adkhan/fleet-analytics/internal/db"
	"github.com/adkhan/fleet-analytics/internal/fleet"
	"github.com/adkhan/fleet-analytics/internal/models"
	"github.com/adkhan/fleet-analytics/internal/sim"
	"github.com/adkhan/fleet-analytics/internal/stream"
)

// dimensions bundles the four reference datasets a run is generated against.
type dimensions struct {
	Vehicles   []models.Vehicle
	Drivers    []models.Driver
	Warehouses []models.Warehouse
	Customers  []models.Customer
}

// tripJob is one planned trip plus the dimension keys the resulting delivery
// record needs but the simulator does not.
type tripJob struct {
	plan        sim.TripPlan
	warehouseID string
	customerID  string
}

// tripOutput is one simulated trip ready for a sink.
type tripOutput struct {
	Plan     sim.TripPlan
	Result   *sim.TripResult
	Delivery models.Delivery
}

// sink receives generated records. Sinks are used from a single goroutine.
type sink interface {
	WriteDimensions(ctx context.Context, dims dimensions) error
	WriteTrip(ctx context.Context, out tripOutput) error
	Close(ctx context.Context) error
}

func main() {
	_ = godotenv.Load()
	if lvl, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}

	cfgPath := envString("CONFIG_PATH", "config/config.yaml")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}

	seed := envSeed()
	cfg.DataGeneration.NumTrips = envInt("GEN_TRIPS", cfg.DataGeneration.NumTrips)
	workers := envInt("GEN_WORKERS", runtime.NumCPU())
	sinkName := envString("SINK", "stdout")
	runID := uuid.NewString()[:8]

	log.WithFields(log.Fields{
		"run_id":  runID,
		"config":  cfgPath,
		"seed":    seed,
		"trips":   cfg.DataGeneration.NumTrips,
		"workers": workers,
		"sink":    sinkName,
	}).Info("Starting fleet data generation")

	started := time.Now()
	coords := sim.WarehouseCoords(seed)
	gen := fleet.NewGenerator(cfg.DataGeneration, coords, seed)
	dims := dimensions{Drivers: gen.Drivers()}
	dims.Vehicles = gen.Vehicles(dims.Drivers)
	dims.Warehouses = gen.Warehouses()
	dims.Customers = gen.Customers()

	log.WithFields(log.Fields{
		"vehicles":   len(dims.Vehicles),
		"drivers":    len(dims.Drivers),
		"warehouses": len(dims.Warehouses),
		"customers":  len(dims.Customers),
	}).Info("Dimension records generated")

	ctx := context.Background()
	snk, err := newSink(ctx, sinkName, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to open sink")
	}
	if err := snk.WriteDimensions(ctx, dims); err != nil {
		log.WithError(err).Fatal("Failed to write dimension records")
	}

	jobs := planTrips(cfg, dims, seed, time.Now().UTC().Truncate(time.Minute))
	outputs, err := runTrips(cfg, coords, seed, jobs, workers)
	if err != nil {
		log.WithError(err).Fatal("Trip simulation failed")
	}

	var records, incidents, failed int
	var distance float64
	for _, out := range outputs {
		if err := snk.WriteTrip(ctx, out); err != nil {
			log.WithError(err).WithField("trip_id", out.Plan.TripID).Error("Failed to write trip")
			failed++
			continue
		}
		records += len(out.Result.Records)
		incidents += len(out.Result.Incidents)
		distance += out.Result.DistanceKm
	}
	if err := snk.Close(ctx); err != nil {
		log.WithError(err).Error("Failed to close sink")
	}
	if failed > 0 {
		log.WithField("failed_trips", failed).Warn("Some trips were not written")
	}

	log.WithFields(log.Fields{
		"run_id":      runID,
		"trips":       len(outputs),
		"records":     records,
		"incidents":   incidents,
		"distance_km": math.Round(distance*100) / 100,
		"elapsed":     time.Since(started).Round(time.Millisecond),
	}).Info("Generation completed")
}

// planTrips joins the dimensions into trip plans: an active vehicle with its
// assigned driver, a warehouse origin, a customer destination and a start
// staggered over the 30 days before base. Planning has its own derived
// random stream so trip simulation stays reproducible per seed.
func planTrips(cfg *config.Config, dims dimensions, seed uint64, base time.Time) []tripJob {
	if len(dims.Vehicles) == 0 || len(dims.Drivers) == 0 || len(dims.Warehouses) == 0 || len(dims.Customers) == 0 {
		return nil
	}

	active := make([]models.Vehicle, 0, len(dims.Vehicles))
	for _, v := range dims.Vehicles {
		if v.Status == "active" {
			active = append(active, v)
		}
	}
	if len(active) == 0 {
		active = dims.Vehicles
	}

	driverByID := make(map[string]models.Driver, len(dims.Drivers))
	for _, d := range dims.Drivers {
		driverByID[d.DriverID] = d
	}

	rng := sim.NewRand(sim.TripSeed(seed, "plan", 0))
	jobs := make([]tripJob, 0, cfg.DataGeneration.NumTrips)
	for i := 0; i < cfg.DataGeneration.NumTrips; i++ {
		v := active[rng.IntN(len(active))]
		drv, ok := driverByID[v.DriverID]
		if !ok {
			drv = dims.Drivers[rng.IntN(len(dims.Drivers))]
		}
		wh := dims.Warehouses[rng.IntN(len(dims.Warehouses))]
		cust := dims.Customers[rng.IntN(len(dims.Customers))]
		start := base.Add(-time.Duration(rng.IntN(30*24*60)) * time.Minute)

		jobs = append(jobs, tripJob{
			plan: sim.TripPlan{
				TripID:      fmt.Sprintf("TRIP-%06d", i+1),
				VehicleID:   v.VehicleID,
				DriverID:    drv.DriverID,
				Origin:      wh.City,
				Destination: cust.Location,
				Start:       start,
				Steps:       cfg.DataGeneration.WaypointsPerTrip,
				Weather:     sim.Weathers[rng.IntN(len(sim.Weathers))],
				Traffic:     sim.TrafficLevels[rng.IntN(len(sim.TrafficLevels))],
				Experience:  sim.Experience(drv.ExperienceLevel),
				Profile:     sim.Behavior(drv.BehaviorProfile),
			},
			warehouseID: wh.WarehouseID,
			customerID:  cust.CustomerID,
		})
	}
	return jobs
}

// runTrips simulates all jobs on a worker pool. Each trip gets its own
// orchestrator seeded from the run seed, the vehicle and the trip index, so
// results do not depend on worker count or scheduling.
func runTrips(cfg *config.Config, coords map[string]models.Location, seed uint64, jobs []tripJob, workers int) ([]tripOutput, error) {
	if len(jobs) == 0 {
		return nil, nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	outputs := make([]tripOutput, len(jobs))
	idxCh := make(chan int)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxCh {
				job := jobs[i]
				orch, err := sim.NewTripOrchestrator(cfg, coords, sim.TripSeed(seed, job.plan.VehicleID, i))
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("trip %s: %w", job.plan.TripID, err)
					}
					mu.Unlock()
					continue
				}
				res := orch.Run(job.plan)
				outputs[i] = tripOutput{
					Plan:     job.plan,
					Result:   res,
					Delivery: buildDelivery(job, res, i, cfg.DataGeneration.StepInterval()),
				}
			}
		}()
	}
	for i := range jobs {
		idxCh <- i
	}
	close(idxCh)
	wg.Wait()
	return outputs, firstErr
}

func buildDelivery(job tripJob, res *sim.TripResult, idx int, interval time.Duration) models.Delivery {
	return models.Delivery{
		DeliveryID:    fmt.Sprintf("DEL-%08d", idx+1),
		TripID:        job.plan.TripID,
		VehicleID:     job.plan.VehicleID,
		DriverID:      job.plan.DriverID,
		WarehouseID:   job.warehouseID,
		CustomerID:    job.customerID,
		Status:        models.DeliveryCompleted,
		ScheduledTime: job.plan.Start,
		ActualTime:    job.plan.Start.Add(time.Duration(job.plan.Steps) * interval),
		DistanceKm:    res.DistanceKm,
		IncidentCount: len(res.Incidents),
		CreatedAt:     time.Now().UTC(),
	}
}

func newSink(ctx context.Context, name string, cfg *config.Config) (sink, error) {
	switch name {
	case "stdout":
		return newStdoutSink(), nil
	case "file":
		return newFileSink(envString("OUT_DIR", "data"))
	case "mongo":
		return newMongoSink(ctx)
	case "mqtt":
		return newMQTTSink(cfg)
	case "http":
		return newHTTPSink()
	default:
		return nil, fmt.Errorf("unknown sink %q", name)
	}
}

func encodeEach[T any](enc *json.Encoder, items []T) error {
	for _, it := range items {
		if err := enc.Encode(it); err != nil {
			return err
		}
	}
	return nil
}

// stdoutSink writes every record as one JSON line on stdout.
type stdoutSink struct {
	enc *json.Encoder
}

func newStdoutSink() *stdoutSink {
	return &stdoutSink{enc: json.NewEncoder(os.Stdout)}
}

func (s *stdoutSink) WriteDimensions(_ context.Context, d dimensions) error {
	if err := encodeEach(s.enc, d.Vehicles); err != nil {
		return err
	}
	if err := encodeEach(s.enc, d.Drivers); err != nil {
		return err
	}
	if err := encodeEach(s.enc, d.Warehouses); err != nil {
		return err
	}
	return encodeEach(s.enc, d.Customers)
}

func (s *stdoutSink) WriteTrip(_ context.Context, out tripOutput) error {
	if err := encodeEach(s.enc, out.Result.Records); err != nil {
		return err
	}
	if err := encodeEach(s.enc, out.Result.Incidents); err != nil {
		return err
	}
	return s.enc.Encode(out.Delivery)
}

func (s *stdoutSink) Close(context.Context) error { return nil }

// fileSink writes the dimensions as JSON arrays and the trip stream as JSONL
// files under one output directory.
type fileSink struct {
	dir        string
	trips      *os.File
	incidents  *os.File
	deliveries *os.File
	tripsEnc   *json.Encoder
	incEnc     *json.Encoder
	delEnc     *json.Encoder
}

func newFileSink(dir string) (*fileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	s := &fileSink{dir: dir}
	var err error
	if s.trips, err = os.Create(filepath.Join(dir, "trips.jsonl")); err != nil {
		return nil, err
	}
	if s.incidents, err = os.Create(filepath.Join(dir, "incidents.jsonl")); err != nil {
		return nil, err
	}
	if s.deliveries, err = os.Create(filepath.Join(dir, "deliveries.jsonl")); err != nil {
		return nil, err
	}
	s.tripsEnc = json.NewEncoder(s.trips)
	s.incEnc = json.NewEncoder(s.incidents)
	s.delEnc = json.NewEncoder(s.deliveries)
	return s, nil
}

func (s *fileSink) WriteDimensions(_ context.Context, d dimensions) error {
	if err := writeJSONFile(filepath.Join(s.dir, "vehicles.json"), d.Vehicles); err != nil {
		return err
	}
	if err := writeJSONFile(filepath.Join(s.dir, "drivers.json"), d.Drivers); err != nil {
		return err
	}
	if err := writeJSONFile(filepath.Join(s.dir, "warehouses.json"), d.Warehouses); err != nil {
		return err
	}
	return writeJSONFile(filepath.Join(s.dir, "customers.json"), d.Customers)
}

func (s *fileSink) WriteTrip(_ context.Context, out tripOutput) error {
	if err := encodeEach(s.tripsEnc, out.Result.Records); err != nil {
		return err
	}
	if err := encodeEach(s.incEnc, out.Result.Incidents); err != nil {
		return err
	}
	return s.delEnc.Encode(out.Delivery)
}

func (s *fileSink) Close(context.Context) error {
	var firstErr error
	for _, f := range []*os.File{s.trips, s.incidents, s.deliveries} {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func writeJSONFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0o644)
}

// mongoSink loads the dataset into MongoDB through the db package.
type mongoSink struct {
	client *mongo.Client
	store  *db.Store
}

func newMongoSink(ctx context.Context) (*mongoSink, error) {
	client, err := db.ConnectMongo(ctx)
	if err != nil {
		return nil, err
	}
	store := db.NewStore(client)
	if err := store.EnsureCollections(ctx); err != nil {
		return nil, err
	}
	return &mongoSink{client: client, store: store}, nil
}

func (s *mongoSink) WriteDimensions(ctx context.Context, d dimensions) error {
	if err := s.store.ReplaceVehicles(ctx, d.Vehicles); err != nil {
		return err
	}
	if err := s.store.ReplaceDrivers(ctx, d.Drivers); err != nil {
		return err
	}
	if err := s.store.ReplaceWarehouses(ctx, d.Warehouses); err != nil {
		return err
	}
	return s.store.ReplaceCustomers(ctx, d.Customers)
}

func (s *mongoSink) WriteTrip(ctx context.Context, out tripOutput) error {
	events := make([]models.TelemetryEvent, 0, len(out.Result.Records))
	for _, r := range out.Result.Records {
		events = append(events, r.Event())
	}
	if err := s.store.UpsertTelemetryEvents(ctx, events); err != nil {
		return err
	}
	if err := s.store.UpsertIncidents(ctx, out.Result.Incidents); err != nil {
		return err
	}
	return s.store.UpsertDeliveries(ctx, []models.Delivery{out.Delivery})
}

func (s *mongoSink) Close(ctx context.Context) error {
	counts, err := s.store.CollectionCounts(ctx)
	if err == nil {
		fields := log.Fields{}
		for coll, n := range counts {
			fields[coll] = n
		}
		log.WithFields(fields).Info("Collection counts after load")
	}
	return s.client.Disconnect(ctx)
}

// mqttSink replays the trip stream over the pipeline topics.
type mqttSink struct {
	pub *stream.Publisher
}

func newMQTTSink(cfg *config.Config) (*mqttSink, error) {
	client, err := stream.NewMQTTClient("fleet-generator")
	if err != nil {
		return nil, err
	}
	return &mqttSink{pub: stream.NewPublisher(client, cfg.Pipeline.Topics)}, nil
}

// WriteDimensions is a no-op: dimension records do not stream, load them
// with the mongo sink instead.
func (s *mqttSink) WriteDimensions(context.Context, dimensions) error { return nil }

func (s *mqttSink) WriteTrip(_ context.Context, out tripOutput) error {
	for _, r := range out.Result.Records {
		if err := s.pub.PublishTelemetry(r.Event()); err != nil {
			return err
		}
	}
	for _, inc := range out.Result.Incidents {
		if err := s.pub.PublishIncident(inc); err != nil {
			return err
		}
	}
	return s.pub.PublishDelivery(out.Delivery)
}

func (s *mqttSink) Close(context.Context) error {
	s.pub.Close()
	return nil
}

// httpSink posts record batches to an ingest API, optionally authorized with
// a bearer token. With INGEST_JWT_SECRET set it mints its own short-lived
// HS256 service token, otherwise INGEST_AUTH_TOKEN is sent as-is.
type httpSink struct {
	baseURL string
	token   string
	client  *http.Client
}

func newHTTPSink() (*httpSink, error) {
	token := os.Getenv("INGEST_AUTH_TOKEN")
	if secret := os.Getenv("INGEST_JWT_SECRET"); secret != "" {
		minted, err := mintServiceToken(secret, time.Now())
		if err != nil {
			return nil, fmt.Errorf("mint service token: %w", err)
		}
		token = minted
	}
	return &httpSink{
		baseURL: envString("API_BASE_URL", "http://localhost:8081/api"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func mintServiceToken(secret string, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub": "fleet-generator",
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func (s *httpSink) WriteDimensions(ctx context.Context, d dimensions) error {
	if err := s.post(ctx, "/vehicles", d.Vehicles); err != nil {
		return err
	}
	if err := s.post(ctx, "/drivers", d.Drivers); err != nil {
		return err
	}
	if err := s.post(ctx, "/warehouses", d.Warehouses); err != nil {
		return err
	}
	return s.post(ctx, "/customers", d.Customers)
}

func (s *httpSink) WriteTrip(ctx context.Context, out tripOutput) error {
	events := make([]models.TelemetryEvent, 0, len(out.Result.Records))
	for _, r := range out.Result.Records {
		events = append(events, r.Event())
	}
	if err := s.post(ctx, "/telemetry", events); err != nil {
		return err
	}
	if len(out.Result.Incidents) > 0 {
		if err := s.post(ctx, "/incidents", out.Result.Incidents); err != nil {
			return err
		}
	}
	return s.post(ctx, "/deliveries", []models.Delivery{out.Delivery})
}

func (s *httpSink) Close(context.Context) error { return nil }

func (s *httpSink) post(ctx context.Context, path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal for %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("post %s: unexpected status %s", path, resp.Status)
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envSeed() uint64 {
	if v := os.Getenv("GEN_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
		log.WithField("value", v).Warn("Ignoring unparseable GEN_SEED")
	}
	return uint64(time.Now().UnixNano())
}
