// Package fleet generates the dimension records a simulated fleet runs on:
// drivers, vehicles, warehouses and customers. Trip generation consumes these
// records and stamps their IDs into every fact it emits.
package fleet

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/adkhan/fleet-analytics/internal/config"
	"github.com/adkhan/fleet-analytics/internal/models"
	"github.com/adkhan/fleet-analytics/internal/sim"
)

// Vehicle catalog vocabulary.
var (
	vehicleTypes = []string{"Van", "Truck", "Heavy Truck", "Refrigerated Truck"}
	vehicleMakes = []string{"Volvo", "Mercedes", "MAN", "Scania", "DAF", "Iveco"}

	// capacityRangeKg is the inclusive payload range per vehicle type.
	capacityRangeKg = map[string][2]int{
		"Van":                {1000, 2000},
		"Truck":              {3000, 5000},
		"Heavy Truck":        {8000, 15000},
		"Refrigerated Truck": {4000, 8000},
	}
)

var (
	driverStatuses      = []string{"Available", "OnRoute", "OnBreak", "OffDuty"}
	driverStatusWeights = []float64{0.40, 0.35, 0.15, 0.10}

	// behaviorWeights follows the order of sim.Behaviors.
	behaviorWeights = []float64{0.20, 0.65, 0.15}

	vehicleStatuses      = []string{"active", "maintenance", "inactive"}
	vehicleStatusWeights = []float64{0.85, 0.10, 0.05}

	customerTypes       = []string{"business", "residential"}
	customerTypeWeights = []float64{0.70, 0.30}

	customerSegments       = []string{"premium", "standard", "basic"}
	customerSegmentWeights = []float64{0.15, 0.60, 0.25}
)

// Generator produces dimension records. Descriptive attributes (names,
// contact details) come from the faker; anything that conditions the
// statistical generators comes from the seeded numeric stream.
type Generator struct {
	cfg    config.DataGeneration
	coords map[string]models.Location
	faker  *gofakeit.Faker
	rng    *sim.Rand
	now    time.Time
}

// NewGenerator builds a Generator seeded for reproducible output. The coords
// map must be the same one the route chain uses, so warehouse records and
// generated routes agree on where every city is.
func NewGenerator(cfg config.DataGeneration, coords map[string]models.Location, seed uint64) *Generator {
	return &Generator{
		cfg:    cfg,
		coords: coords,
		faker:  gofakeit.New(seed),
		rng:    sim.NewRand(seed),
		now:    time.Now().UTC(),
	}
}

// Drivers generates the driver dimension. Experience level drives years of
// service, delivery counts and rating; the behavior profile skews the
// historical incident count.
func (g *Generator) Drivers() []models.Driver {
	drivers := make([]models.Driver, 0, g.cfg.NumDrivers)
	for i := 0; i < g.cfg.NumDrivers; i++ {
		level := sim.ExperienceLevels[g.rng.IntN(len(sim.ExperienceLevels))]
		years := g.yearsOfExperience(level)
		behavior := sim.Behaviors[g.rng.Weighted(behaviorWeights)]

		incidentFactor := 0.5
		if behavior == sim.BehaviorAggressive {
			incidentFactor = 2.0
		}

		drivers = append(drivers, models.Driver{
			DriverID:         fmt.Sprintf("DRV-%05d", i+1),
			Name:             g.faker.Name(),
			ExperienceLevel:  string(level),
			YearsExperience:  years,
			BehaviorProfile:  string(behavior),
			LicenseNumber:    strings.ToUpper(g.faker.Lexify(g.faker.Numerify("DL-####-????"))),
			PhoneNumber:      g.faker.Phone(),
			Email:            g.faker.Email(),
			HireDate:         g.now.AddDate(0, 0, -years*365).Format("2006-01-02"),
			City:             sim.WarehouseCities[g.rng.IntN(len(sim.WarehouseCities))],
			Rating:           round2(clampFloat(3.5+float64(years)/20*1.5+g.rng.Uniform(-0.3, 0.3), 3, 5)),
			PerformanceScore: round2(g.rng.Uniform(60, 100)),
			TotalDeliveries:  int(float64(years) * 1000 * g.rng.Uniform(0.8, 1.2)),
			IncidentCount:    int(float64(years) * 5 * incidentFactor),
			Status:           driverStatuses[g.rng.Weighted(driverStatusWeights)],
			CreatedAt:        g.now,
		})
	}
	return drivers
}

// yearsOfExperience draws years of service for an experience level.
func (g *Generator) yearsOfExperience(level sim.Experience) int {
	switch level {
	case sim.Novice:
		return g.rng.IntN(2)
	case sim.Intermediate:
		return 2 + g.rng.IntN(3)
	case sim.Expert:
		return 5 + g.rng.IntN(5)
	default:
		return 10 + g.rng.IntN(10)
	}
}

// Vehicles generates the vehicle dimension. Each vehicle is assigned a random
// driver from the given list.
func (g *Generator) Vehicles(drivers []models.Driver) []models.Vehicle {
	vehicles := make([]models.Vehicle, 0, g.cfg.NumVehicles)
	for i := 0; i < g.cfg.NumVehicles; i++ {
		vtype := vehicleTypes[g.rng.IntN(len(vehicleTypes))]
		brand := vehicleMakes[g.rng.IntN(len(vehicleMakes))]
		year := 2015 + g.rng.IntN(9)

		capRange := capacityRangeKg[vtype]
		tank := 150
		if vtype == "Van" {
			tank = 80
		}

		var driverID string
		if len(drivers) > 0 {
			driverID = drivers[g.rng.IntN(len(drivers))].DriverID
		}

		age := g.now.Year() - year
		vehicles = append(vehicles, models.Vehicle{
			VehicleID:           fmt.Sprintf("VEH-%05d", i+1),
			DriverID:            driverID,
			VehicleType:         vtype,
			Make:                brand,
			Model:               brand + " " + vtype,
			Year:                year,
			VIN:                 g.faker.Numerify("VIN-################"),
			LicensePlate:        strings.ToUpper(g.faker.Lexify(g.faker.Numerify("???-####"))),
			CapacityKg:          capRange[0] + g.rng.IntN(capRange[1]-capRange[0]+1),
			FuelTankLiters:      tank,
			LastMaintenanceDate: g.now.AddDate(0, 0, -(1 + g.rng.IntN(89))).Format("2006-01-02"),
			NextMaintenanceDate: g.now.AddDate(0, 0, 1+g.rng.IntN(89)).Format("2006-01-02"),
			OdometerKm:          int(float64(age) * 50000 * g.rng.Uniform(0.8, 1.2)),
			Status:              vehicleStatuses[g.rng.Weighted(vehicleStatusWeights)],
			InsuranceExpiry:     g.now.AddDate(0, 0, 30+g.rng.IntN(335)).Format("2006-01-02"),
			CreatedAt:           g.now,
		})
	}
	return vehicles
}

// Warehouses generates one distribution center per city, capped at the city
// list. Coordinates come from the shared coords map so routes start exactly
// where their warehouse record says.
func (g *Generator) Warehouses() []models.Warehouse {
	n := g.cfg.NumWarehouses
	if n > len(sim.WarehouseCities) {
		n = len(sim.WarehouseCities)
	}

	warehouses := make([]models.Warehouse, 0, n)
	for i := 0; i < n; i++ {
		city := sim.WarehouseCities[i]
		loc := g.coords[city]

		hours := "06:00-22:00"
		if g.rng.Float64() > 0.3 {
			hours = "24/7"
		}

		warehouses = append(warehouses, models.Warehouse{
			WarehouseID: fmt.Sprintf("WH-%03d", i+1),
			Name:        city + " Distribution Center",
			City:        city,
			Address:     fmt.Sprintf("%s, %s", g.faker.Street(), city),
			Location: models.Location{
				Latitude:  round6(loc.Latitude),
				Longitude: round6(loc.Longitude),
			},
			CapacityPallets:    500 + g.rng.IntN(1500),
			UtilizationPercent: round2(g.rng.Uniform(50, 95)),
			ManagerName:        g.faker.Name(),
			PhoneNumber:        g.faker.Phone(),
			OperatingHours:     hours,
			LoadingDocks:       4 + g.rng.IntN(16),
			CreatedAt:          g.now,
		})
	}
	return warehouses
}

// Customers generates the customer dimension. Customers scatter up to half a
// degree around their city center, so routes to them leave the warehouse
// neighborhood.
func (g *Generator) Customers() []models.Customer {
	customers := make([]models.Customer, 0, g.cfg.NumCustomers)
	for i := 0; i < g.cfg.NumCustomers; i++ {
		city := sim.WarehouseCities[g.rng.IntN(len(sim.WarehouseCities))]
		base := g.coords[city]
		ctype := customerTypes[g.rng.Weighted(customerTypeWeights)]

		name := g.faker.Name()
		if ctype == "business" {
			name = g.faker.Company()
		}

		customers = append(customers, models.Customer{
			CustomerID:   fmt.Sprintf("CUST-%06d", i+1),
			Name:         name,
			CustomerType: ctype,
			City:         city,
			Address:      fmt.Sprintf("%s, %s", g.faker.Street(), city),
			Location: models.Location{
				Latitude:  round6(base.Latitude + g.rng.Uniform(-0.5, 0.5)),
				Longitude: round6(base.Longitude + g.rng.Uniform(-0.5, 0.5)),
			},
			PhoneNumber:      g.faker.Phone(),
			Email:            g.faker.Email(),
			RegistrationDate: g.now.AddDate(0, 0, -(30 + g.rng.IntN(1065))).Format("2006-01-02"),
			TotalOrders:      1 + g.rng.IntN(99),
			Segment:          customerSegments[g.rng.Weighted(customerSegmentWeights)],
			CreditLimit:      round2(g.rng.Uniform(10000, 500000)),
			CreatedAt:        g.now,
		})
	}
	return customers
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
