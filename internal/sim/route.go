package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/adkhan/fleet-analytics/internal/config"
	"github.com/adkhan/fleet-analytics/internal/models"
)

// WarehouseCities are the cities the fleet operates distribution centers in.
// Warehouse count is capped at this list.
var WarehouseCities = []string{
	"Karachi", "Lahore", "Islamabad", "Rawalpindi", "Faisalabad",
	"Multan", "Hyderabad", "Gujranwala", "Peshawar", "Quetta",
	"Sialkot", "Bahawalpur", "Sargodha", "Sukkur", "Larkana",
	"Mardan", "Kasur", "Rahim Yar Khan", "Sahiwal", "Okara",
}

// Karachi anchors the simulated operating region.
const (
	baseLatitude  = 24.8607
	baseLongitude = 67.0011
)

// WarehouseCoords places every warehouse city around the Karachi base with a
// deterministic spread. All generators in a run must share one coords map, so
// it is derived from the run seed rather than a per-trip stream.
func WarehouseCoords(seed uint64) map[string]models.Location {
	r := NewRand(seed)
	coords := make(map[string]models.Location, len(WarehouseCities))
	for _, city := range WarehouseCities {
		coords[city] = models.Location{
			Latitude:  baseLatitude + r.Uniform(-2, 2),
			Longitude: baseLongitude + r.Uniform(-2, 2),
		}
	}
	return coords
}

// stateRoadType maps a chain state to the road type stamped on waypoints.
var stateRoadType = map[RouteState]RoadType{
	StateWarehouse: RoadUrban,
	StateHighway:   RoadHighway,
	StateUrban:     RoadUrban,
	StateCustomer:  RoadUrban,
}

// gpsNoiseStd is the Gaussian jitter applied to waypoint coordinates, in
// degrees.
const gpsNoiseStd = 0.001

// RouteStateChain generates GPS routes by walking a four-state Markov chain
// from warehouse to customer while interpolating position toward the
// destination.
type RouteStateChain struct {
	states   []RouteState
	matrix   [][]float64
	start    int
	terminal int
	coords   map[string]models.Location
	rng      *Rand
}

// NewRouteStateChain builds the chain from configuration. The transition
// matrix must be row-stochastic within 1e-9 and the states list must include
// warehouse and customer; anything else is a configuration error.
func NewRouteStateChain(cfg config.MarkovChain, coords map[string]models.Location, rng *Rand) (*RouteStateChain, error) {
	states := make([]RouteState, len(cfg.States))
	start, terminal := -1, -1
	for i, name := range cfg.States {
		s := RouteState(name)
		if _, ok := stateRoadType[s]; !ok {
			return nil, fmt.Errorf("markov chain: unknown state %q", name)
		}
		states[i] = s
		switch s {
		case StateWarehouse:
			start = i
		case StateCustomer:
			terminal = i
		}
	}
	if start < 0 || terminal < 0 {
		return nil, fmt.Errorf("markov chain: states must include warehouse and customer")
	}

	matrix := make([][]float64, len(states))
	for i, s := range states {
		row, ok := cfg.TransitionMatrix[string(s)]
		if !ok {
			return nil, fmt.Errorf("markov chain: no transition row for state %q", s)
		}
		matrix[i] = row
	}
	if err := validateStochastic("transition matrix", matrix, len(states)); err != nil {
		return nil, err
	}

	return &RouteStateChain{
		states:   states,
		matrix:   matrix,
		start:    start,
		terminal: terminal,
		coords:   coords,
		rng:      rng,
	}, nil
}

// NextState samples the successor of current from its transition row.
func (c *RouteStateChain) NextState(current RouteState) (RouteState, error) {
	for i, s := range c.states {
		if s == current {
			return c.states[c.rng.Weighted(c.matrix[i])], nil
		}
	}
	return "", fmt.Errorf("markov chain: unknown state %q", current)
}

// GenerateRoute walks the chain for numWaypoints steps from the named
// warehouse toward dest, stamping each waypoint with the simulated clock.
// Position moves in equal increments toward dest with Gaussian GPS jitter on
// top. The last five waypoints are forced into the customer state regardless
// of what the chain sampled; the matrix itself is never altered.
func (c *RouteStateChain) GenerateRoute(warehouseCity string, dest models.Location, numWaypoints int, start time.Time, interval time.Duration) []models.Waypoint {
	if numWaypoints <= 0 {
		return nil
	}

	origin, ok := c.coords[warehouseCity]
	if !ok {
		// Unknown origin falls back to a random warehouse.
		origin = c.coords[WarehouseCities[c.rng.IntN(len(WarehouseCities))]]
	}

	latInc := (dest.Latitude - origin.Latitude) / float64(numWaypoints)
	lonInc := (dest.Longitude - origin.Longitude) / float64(numWaypoints)

	route := make([]models.Waypoint, 0, numWaypoints)
	stateIdx := c.start
	lat, lon := origin.Latitude, origin.Longitude

	for i := 0; i < numWaypoints; i++ {
		if i >= numWaypoints-5 {
			stateIdx = c.terminal
		}

		route = append(route, models.Waypoint{
			Latitude:  round6(lat + c.rng.Normal(0, gpsNoiseStd)),
			Longitude: round6(lon + c.rng.Normal(0, gpsNoiseStd)),
			RoadType:  string(stateRoadType[c.states[stateIdx]]),
			Timestamp: start.Add(time.Duration(i) * interval),
		})

		stateIdx = c.rng.Weighted(c.matrix[stateIdx])
		lat += latInc
		lon += lonInc
	}
	return route
}

// RouteDistance sums the Haversine distances between consecutive waypoints,
// in kilometers.
func (c *RouteStateChain) RouteDistance(route []models.Waypoint) float64 {
	total := 0.0
	for i := 0; i < len(route)-1; i++ {
		total += HaversineKm(route[i].Point(), route[i+1].Point())
	}
	return total
}

// StateDistribution returns the percentage of waypoints per road type,
// rounded to two decimals.
func (c *RouteStateChain) StateDistribution(route []models.Waypoint) map[RoadType]float64 {
	if len(route) == 0 {
		return map[RoadType]float64{}
	}
	counts := make(map[RoadType]int)
	for _, wp := range route {
		counts[RoadType(wp.RoadType)]++
	}
	dist := make(map[RoadType]float64, len(counts))
	for rt, n := range counts {
		dist[rt] = round2(float64(n) / float64(len(route)) * 100)
	}
	return dist
}

// HaversineKm returns the great-circle distance between two positions using
// an Earth radius of 6371 km.
func HaversineKm(a, b models.Location) float64 {
	const earthRadiusKm = 6371.0
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
