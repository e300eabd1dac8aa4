// Command pipeline consumes the generator's MQTT topics and lands the
// stream in MongoDB: validated telemetry events, sliding-window aggregates,
// incidents and deliveries. Readings that trip an anomaly rule are flagged
// on the log, mirroring the threshold checks the batch reports run offline.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/adkhan/fleet-analytics/internal/config"
	"github.com/adkhan/fleet-analytics/internal/db"
	"github.com/adkhan/fleet-analytics/internal/models"
	"github.com/adkhan/fleet-analytics/internal/stream"
)

const (
	batchSize     = 500
	flushInterval = 5 * time.Second
	writeTimeout  = 10 * time.Second
	chanBuffer    = 1024
)

func main() {
	_ = godotenv.Load()
	if lvl, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := db.ConnectMongo(ctx)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			log.WithError(err).Error("Failed to disconnect from MongoDB")
		}
	}()

	store := db.NewStore(client)
	if err := store.EnsureCollections(ctx); err != nil {
		log.WithError(err).Fatal("Failed to ensure collections")
	}

	mqttClient, err := stream.NewMQTTClient("fleet-pipeline")
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MQTT broker")
	}
	defer mqttClient.Disconnect(250)

	p := newPipeline(store, cfg)
	topics := cfg.Pipeline.Topics
	if err := subscribe(mqttClient, topics.Telemetry, p.telemetry); err != nil {
		log.WithError(err).Fatal("Failed to subscribe")
	}
	if err := subscribe(mqttClient, topics.Incidents, p.incidents); err != nil {
		log.WithError(err).Fatal("Failed to subscribe")
	}
	if err := subscribe(mqttClient, topics.Deliveries, p.deliveries); err != nil {
		log.WithError(err).Fatal("Failed to subscribe")
	}

	log.WithFields(log.Fields{
		"telemetry_topic":  topics.Telemetry,
		"incidents_topic":  topics.Incidents,
		"deliveries_topic": topics.Deliveries,
		"window":           cfg.Pipeline.Window.Size(),
		"slide":            cfg.Pipeline.Window.Slide(),
		"watermark":        cfg.Pipeline.Window.Watermark(),
	}).Info("Pipeline consuming")

	p.run(ctx)
}

// subscribe attaches a JSON-decoding handler for one record type. Handlers
// run on paho's goroutines and hand records to the processing loop over the
// channel, so a slow flush backpressures the broker instead of racing it.
func subscribe[T any](client mqtt.Client, topic string, out chan<- T) error {
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		var v T
		if err := json.Unmarshal(msg.Payload(), &v); err != nil {
			log.WithError(err).WithField("topic", msg.Topic()).Warn("Dropping undecodable message")
			return
		}
		out <- v
	}
	token := client.Subscribe(topic, stream.QoSAtLeastOnce, handler)
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("subscribe to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	return nil
}

// pipeline owns the stream state. All processing happens on the run loop's
// goroutine; the channels are its only input.
type pipeline struct {
	store      *db.Store
	agg        *stream.WindowAggregator
	thresholds config.Thresholds

	telemetry  chan models.TelemetryEvent
	incidents  chan models.Incident
	deliveries chan models.Delivery

	evBatch  []models.TelemetryEvent
	incBatch []models.Incident
	delBatch []models.Delivery

	received  int
	invalid   int
	anomalies int
	written   int
	failed    int
}

func newPipeline(store *db.Store, cfg *config.Config) *pipeline {
	return &pipeline{
		store:      store,
		agg:        stream.NewWindowAggregator(cfg.Pipeline.Window),
		thresholds: cfg.Pipeline.Anomalies,
		telemetry:  make(chan models.TelemetryEvent, chanBuffer),
		incidents:  make(chan models.Incident, chanBuffer),
		deliveries: make(chan models.Delivery, chanBuffer),
	}
}

// run processes records until ctx is cancelled, then drains every open
// window and writes what is left.
func (p *pipeline) run(ctx context.Context) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.shutdown()
			return
		case ev := <-p.telemetry:
			p.handleTelemetry(ev)
		case inc := <-p.incidents:
			p.incBatch = append(p.incBatch, inc)
			if len(p.incBatch) >= batchSize {
				p.flushIncidents()
			}
		case del := <-p.deliveries:
			p.delBatch = append(p.delBatch, del)
			if len(p.delBatch) >= batchSize {
				p.flushDeliveries()
			}
		case <-ticker.C:
			p.flush(false)
		}
	}
}

func (p *pipeline) handleTelemetry(ev models.TelemetryEvent) {
	p.received++
	if err := stream.ValidateTelemetry(ev); err != nil {
		p.invalid++
		log.WithError(err).WithField("vehicle_id", ev.VehicleID).Debug("Dropping invalid telemetry")
		return
	}
	if anomaly, ok := stream.DetectAnomaly(ev, p.thresholds); ok {
		p.anomalies++
		log.WithFields(log.Fields{
			"vehicle_id":  anomaly.VehicleID,
			"anomaly":     anomaly.AnomalyType,
			"speed":       anomaly.Speed,
			"engine_temp": anomaly.EngineTemp,
			"fuel_level":  anomaly.FuelLevel,
			"timestamp":   anomaly.Timestamp,
		}).Warn("Telemetry anomaly detected")
	}
	p.agg.Add(ev)
	p.evBatch = append(p.evBatch, ev)
	if len(p.evBatch) >= batchSize {
		p.flushEvents()
	}
}

// flush writes the pending batches and any closed windows. With final set it
// drains open windows too.
func (p *pipeline) flush(final bool) {
	p.flushEvents()
	p.flushIncidents()
	p.flushDeliveries()

	var aggs []models.Aggregate
	if final {
		aggs = p.agg.FlushAll()
	} else {
		aggs = p.agg.Flush()
	}
	if len(aggs) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := p.store.UpsertAggregates(ctx, aggs); err != nil {
		p.failed++
		log.WithError(err).Error("Failed to write aggregates")
		return
	}
	p.written += len(aggs)
}

func (p *pipeline) flushEvents() {
	if len(p.evBatch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := p.store.UpsertTelemetryEvents(ctx, p.evBatch); err != nil {
		p.failed++
		log.WithError(err).Error("Failed to write telemetry batch")
	} else {
		p.written += len(p.evBatch)
	}
	p.evBatch = p.evBatch[:0]
}

func (p *pipeline) flushIncidents() {
	if len(p.incBatch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := p.store.UpsertIncidents(ctx, p.incBatch); err != nil {
		p.failed++
		log.WithError(err).Error("Failed to write incident batch")
	} else {
		p.written += len(p.incBatch)
	}
	p.incBatch = p.incBatch[:0]
}

func (p *pipeline) flushDeliveries() {
	if len(p.delBatch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := p.store.UpsertDeliveries(ctx, p.delBatch); err != nil {
		p.failed++
		log.WithError(err).Error("Failed to write delivery batch")
	} else {
		p.written += len(p.delBatch)
	}
	p.delBatch = p.delBatch[:0]
}

func (p *pipeline) shutdown() {
	p.flush(true)
	log.WithFields(log.Fields{
		"received":      p.received,
		"invalid":       p.invalid,
		"anomalies":     p.anomalies,
		"late":          p.agg.Late(),
		"written":       p.written,
		"failed_writes": p.failed,
	}).Info("Pipeline stopped")
}
