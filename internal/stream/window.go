package stream

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/adkhan/fleet-analytics/internal/config"
	"github.com/adkhan/fleet-analytics/internal/models"
)

type windowKey struct {
	vehicleID string
	start     int64
}

type windowBucket struct {
	start    time.Time
	sumSpeed float64
	maxSpeed float64
	minSpeed float64
	sumFuel  float64
	sumTemp  float64
	count    int
}

// WindowAggregator folds telemetry events into sliding event-time windows per
// vehicle. An event lands in every window covering its timestamp; windows are
// emitted once the watermark passes their end. Time comes from the events,
// never from the wall clock, so replays aggregate identically.
type WindowAggregator struct {
	size      time.Duration
	slide     time.Duration
	watermark time.Duration

	mu       sync.Mutex
	buckets  map[windowKey]*windowBucket
	maxEvent time.Time
	late     int
}

// NewWindowAggregator builds an aggregator from validated window config.
func NewWindowAggregator(cfg config.Window) *WindowAggregator {
	return &WindowAggregator{
		size:      cfg.Size(),
		slide:     cfg.Slide(),
		watermark: cfg.Watermark(),
		buckets:   make(map[windowKey]*windowBucket),
	}
}

// Add folds one event into every window covering its timestamp. Events that
// arrive more than the watermark behind the newest seen timestamp are dropped
// and reported false.
func (w *WindowAggregator) Add(ev models.TelemetryEvent) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if ev.Timestamp.After(w.maxEvent) {
		w.maxEvent = ev.Timestamp
	}
	if w.maxEvent.Sub(ev.Timestamp) > w.watermark {
		w.late++
		return false
	}

	base := ev.Timestamp.Truncate(w.slide)
	for start := base; ev.Timestamp.Sub(start) < w.size; start = start.Add(-w.slide) {
		key := windowKey{vehicleID: ev.VehicleID, start: start.Unix()}
		b, ok := w.buckets[key]
		if !ok {
			b = &windowBucket{
				start:    start,
				maxSpeed: math.Inf(-1),
				minSpeed: math.Inf(1),
			}
			w.buckets[key] = b
		}
		b.sumSpeed += ev.Speed
		b.maxSpeed = math.Max(b.maxSpeed, ev.Speed)
		b.minSpeed = math.Min(b.minSpeed, ev.Speed)
		b.sumFuel += ev.FuelLevel
		b.sumTemp += ev.EngineTemp
		b.count++
	}
	return true
}

// Flush emits and removes every window the watermark has closed: windows
// ending at or before maxEvent minus the watermark.
func (w *WindowAggregator) Flush() []models.Aggregate {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := w.maxEvent.Add(-w.watermark)
	return w.drain(func(b *windowBucket) bool {
		return !b.start.Add(w.size).After(cutoff)
	})
}

// FlushAll emits and removes everything still buffered, closed or not. Called
// on shutdown.
func (w *WindowAggregator) FlushAll() []models.Aggregate {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.drain(func(*windowBucket) bool { return true })
}

// Late reports how many events were dropped behind the watermark.
func (w *WindowAggregator) Late() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.late
}

// Pending reports how many open windows are buffered.
func (w *WindowAggregator) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buckets)
}

// drain collects buckets matching closed, removes them and returns their
// aggregates ordered by window start then vehicle. Callers hold the lock.
func (w *WindowAggregator) drain(closed func(*windowBucket) bool) []models.Aggregate {
	var out []models.Aggregate
	for key, b := range w.buckets {
		if !closed(b) {
			continue
		}
		out = append(out, models.Aggregate{
			WindowStart:   b.start,
			WindowEnd:     b.start.Add(w.size),
			VehicleID:     key.vehicleID,
			AvgSpeed:      round2(b.sumSpeed / float64(b.count)),
			MaxSpeed:      round2(b.maxSpeed),
			MinSpeed:      round2(b.minSpeed),
			AvgFuelLevel:  round2(b.sumFuel / float64(b.count)),
			AvgEngineTemp: round2(b.sumTemp / float64(b.count)),
			RecordCount:   b.count,
		})
		delete(w.buckets, key)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].WindowStart.Equal(out[j].WindowStart) {
			return out[i].WindowStart.Before(out[j].WindowStart)
		}
		return out[i].VehicleID < out[j].VehicleID
	})
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
