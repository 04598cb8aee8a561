package simulation

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/savegress/melawatch/pkg/models"
)

// Mela zone names used for device placement and labels.
var melaAreas = []string{
	"Ram Ghat",
	"Har Ki Pauri",
	"Triveni Sangam",
	"Mahakaleshwar Temple",
	"Kal Bhairav Temple",
	"Chintaman Ganesh",
	"Bade Ganeshji Ka Mandir",
	"Gopal Mandir",
	"Sandipani Ashram",
	"Ved Shala",
	"Shipra River Bank",
	"Kumbh Mela Ground",
	"Parking Area A",
	"Parking Area B",
	"Food Court",
	"Medical Camp",
	"Lost & Found",
	"Information Center",
	"Security Post",
	"VIP Area",
	"Press Area",
	"Volunteer Base",
	"Emergency Services",
}

// Geographic center of the grounds (Ujjain) and placement radius in degrees,
// roughly 2 km.
const (
	baseLatitude  = 23.1765
	baseLongitude = 75.7885
	placementSpan = 0.02
)

// Fleet composition, fixed for the process lifetime.
const (
	toiletCount    = 80
	kioskCount     = 60
	binCount       = 70
	mmuCount       = 25
	volunteerCount = 50

	// FleetSize is the total number of simulated devices.
	FleetSize = toiletCount + kioskCount + binCount + mmuCount + volunteerCount
)

// statusWeight pairs a status with its draw probability
type statusWeight struct {
	status models.DeviceStatus
	weight float64
}

var (
	toiletWeights = []statusWeight{
		{models.StatusCleanFree, 0.60},
		{models.StatusInUse, 0.25},
		{models.StatusNeedsCleaning, 0.15},
	}
	kioskWeights = []statusWeight{
		{models.StatusWaterSafe, 0.80},
		{models.StatusCheckQuality, 0.15},
		{models.StatusWaterUnsafe, 0.05},
	}
	mmuWeights = []statusWeight{
		{models.StatusAvailableNow, 0.70},
		{models.StatusOnRoute, 0.20},
		{models.StatusEmergencyBusy, 0.10},
	}
	volunteerWeights = []statusWeight{
		{models.StatusAvailable, 0.50},
		{models.StatusAssignedTask, 0.35},
		{models.StatusOffDuty, 0.15},
	}
)

// pickStatus draws a status using weighted random selection: accumulate
// weights in order and return the first whose cumulative weight meets or
// exceeds a uniform [0,1) draw.
func pickStatus(rng *rand.Rand, weights []statusWeight) models.DeviceStatus {
	r := rng.Float64()
	sum := 0.0
	for _, w := range weights {
		sum += w.weight
		if r <= sum {
			return w.status
		}
	}
	return weights[len(weights)-1].status
}

// binStatusFor maps a fill level to its waste bin status.
func binStatusFor(fillLevel int) models.DeviceStatus {
	switch {
	case fillLevel < 30:
		return models.StatusBinEmpty
	case fillLevel < 80:
		return models.StatusFillingUp
	default:
		return models.StatusBinFull
	}
}

func (s *Store) randomCoordinates() (float64, float64) {
	lat := baseLatitude + (s.rng.Float64()-0.5)*placementSpan
	lng := baseLongitude + (s.rng.Float64()-0.5)*placementSpan
	return lat, lng
}

func (s *Store) randomArea() string {
	return melaAreas[s.rng.Intn(len(melaAreas))]
}

// seedFleet populates the fleet: deterministic composition, random
// placement and initial status.
func (s *Store) seedFleet() {
	now := time.Now()

	for i := 1; i <= toiletCount; i++ {
		s.addDevice(&models.Device{
			Type:   models.DeviceTypeToilet,
			Status: pickStatus(s.rng, toiletWeights),
			Metadata: models.Metadata{
				Toilet: &models.ToiletMetadata{
					UsageCount: s.rng.Intn(50),
					CleanedAt:  now.Add(-time.Duration(s.rng.Intn(3600)) * time.Second),
				},
			},
		}, "toilet", "Toilet", i, now)
	}

	for i := 1; i <= kioskCount; i++ {
		s.addDevice(&models.Device{
			Type:   models.DeviceTypeWaterKiosk,
			Status: pickStatus(s.rng, kioskWeights),
			Metadata: models.Metadata{
				Kiosk: &models.KioskMetadata{
					ChlorineLevel: s.rng.Float64()*2 + 0.5,
					PHLevel:       s.rng.Float64()*2 + 6.5,
					LastTested:    now.Add(-time.Duration(s.rng.Intn(7200)) * time.Second),
				},
			},
		}, "water", "Water Kiosk", i, now)
	}

	for i := 1; i <= binCount; i++ {
		fill := s.rng.Intn(100)
		s.addDevice(&models.Device{
			Type:   models.DeviceTypeWasteBin,
			Status: binStatusFor(fill),
			Metadata: models.Metadata{
				Bin: &models.BinMetadata{
					FillLevel: fill,
					Capacity:  100,
				},
			},
		}, "bin", "Waste Bin", i, now)
	}

	for i := 1; i <= mmuCount; i++ {
		meta := &models.MMUMetadata{
			PatientCount: s.rng.Intn(5),
		}
		if s.rng.Float64() > 0.7 {
			meta.AssignedEmergency = fmt.Sprintf("Emergency_%d", s.rng.Intn(100))
		}
		s.addDevice(&models.Device{
			Type:     models.DeviceTypeMMU,
			Status:   pickStatus(s.rng, mmuWeights),
			Metadata: models.Metadata{MMU: meta},
		}, "mmu", "MMU", i, now)
	}

	for i := 1; i <= volunteerCount; i++ {
		meta := &models.VolunteerMetadata{}
		if s.rng.Float64() > 0.6 {
			meta.AssignedTask = "Water Quality Check"
			meta.TaskLocation = s.randomArea()
		}
		s.addDevice(&models.Device{
			Type:     models.DeviceTypeVolunteer,
			Status:   pickStatus(s.rng, volunteerWeights),
			Metadata: models.Metadata{Volunteer: meta},
		}, "volunteer", "Volunteer", i, now)
	}
}

// addDevice finalizes identity and placement, then inserts the device.
func (s *Store) addDevice(d *models.Device, prefix, label string, seq int, now time.Time) {
	lat, lng := s.randomCoordinates()
	area := s.randomArea()

	d.ID = fmt.Sprintf("%s_%03d", prefix, seq)
	d.Name = fmt.Sprintf("%s %d - %s", label, seq, s.randomArea())
	d.Location = models.Location{Lat: lat, Lng: lng, Area: area}
	d.LastUpdated = now

	s.devices[d.ID] = d
	s.order = append(s.order, d.ID)
}
