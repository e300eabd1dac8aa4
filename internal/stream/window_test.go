package stream

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adkhan/fleet-analytics/internal/config"
	"github.com/adkhan/fleet-analytics/internal/models"
)

func newTestAggregator() *WindowAggregator {
	return NewWindowAggregator(config.Default().Pipeline.Window)
}

func telemetryAt(vehicleID string, ts time.Time, speed float64) models.TelemetryEvent {
	return models.TelemetryEvent{
		VehicleID:  vehicleID,
		Timestamp:  ts,
		Latitude:   24.86,
		Longitude:  67.0,
		Speed:      speed,
		FuelLevel:  90,
		EngineTemp: 85,
	}
}

func TestAddAssignsToEverySlidingWindow(t *testing.T) {
	w := newTestAggregator()
	ts := time.Date(2024, 6, 1, 10, 7, 30, 0, time.UTC)

	assert.True(t, w.Add(telemetryAt("VEH-00001", ts, 60)))

	// A 5 minute window sliding by 1 minute covers each event five times.
	assert.Equal(t, 5, w.Pending())
}

func TestFlushAggregatesClosedWindows(t *testing.T) {
	w := newTestAggregator()

	base := time.Date(2024, 6, 1, 10, 7, 0, 0, time.UTC)
	ev1 := telemetryAt("VEH-00001", base.Add(10*time.Second), 60)
	ev1.FuelLevel = 90
	ev1.EngineTemp = 85
	ev2 := telemetryAt("VEH-00001", base.Add(50*time.Second), 80)
	ev2.FuelLevel = 89
	ev2.EngineTemp = 86

	require.True(t, w.Add(ev1))
	require.True(t, w.Add(ev2))

	// Nothing is closed until the watermark passes the window ends.
	assert.Empty(t, w.Flush())

	// An event 23 minutes later closes every window around 10:07.
	require.True(t, w.Add(telemetryAt("VEH-00002", base.Add(23*time.Minute), 50)))

	aggs := w.Flush()
	require.Len(t, aggs, 5)

	for i, agg := range aggs {
		assert.Equal(t, "VEH-00001", agg.VehicleID)
		assert.Equal(t, 2, agg.RecordCount)
		assert.Equal(t, 70.0, agg.AvgSpeed)
		assert.Equal(t, 80.0, agg.MaxSpeed)
		assert.Equal(t, 60.0, agg.MinSpeed)
		assert.Equal(t, 89.5, agg.AvgFuelLevel)
		assert.Equal(t, 85.5, agg.AvgEngineTemp)
		assert.True(t, agg.WindowEnd.Equal(agg.WindowStart.Add(5*time.Minute)))

		if i > 0 {
			assert.True(t, aggs[i-1].WindowStart.Before(agg.WindowStart), "aggregates not ordered")
		}

		// Both events sit inside every emitted window.
		assert.False(t, ev1.Timestamp.Before(agg.WindowStart))
		assert.True(t, ev2.Timestamp.Before(agg.WindowEnd))
	}
}

func TestFlushLeavesOpenWindows(t *testing.T) {
	w := newTestAggregator()

	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	require.True(t, w.Add(telemetryAt("VEH-00001", ts, 60)))
	require.True(t, w.Add(telemetryAt("VEH-00002", ts.Add(12*time.Minute), 70)))

	// Watermark sits at 10:02; only the windows ending 10:01 and 10:02 close.
	aggs := w.Flush()
	require.Len(t, aggs, 2)
	for _, agg := range aggs {
		assert.Equal(t, "VEH-00001", agg.VehicleID)
	}
	assert.Equal(t, 8, w.Pending())

	rest := w.FlushAll()
	assert.Len(t, rest, 8)
	assert.Zero(t, w.Pending())
	assert.Empty(t, w.FlushAll())
}

func TestLateEventsAreDropped(t *testing.T) {
	w := newTestAggregator()

	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	require.True(t, w.Add(telemetryAt("VEH-00001", ts, 60)))
	require.True(t, w.Add(telemetryAt("VEH-00001", ts.Add(30*time.Minute), 60)))

	// 20 minutes behind the newest event, 10 past the watermark.
	assert.False(t, w.Add(telemetryAt("VEH-00001", ts.Add(10*time.Minute), 60)))
	assert.Equal(t, 1, w.Late())

	// Within the watermark still counts.
	assert.True(t, w.Add(telemetryAt("VEH-00001", ts.Add(21*time.Minute), 60)))
	assert.Equal(t, 1, w.Late())
}

func TestAddConcurrent(t *testing.T) {
	w := newTestAggregator()
	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				w.Add(telemetryAt("VEH-00001", ts, 60))
			}
		}()
	}
	wg.Wait()

	total := 0
	for _, agg := range w.FlushAll() {
		total += agg.RecordCount
	}
	// 1000 events times 5 windows each.
	assert.Equal(t, 5000, total)
}
