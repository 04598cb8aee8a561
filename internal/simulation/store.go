package simulation

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/savegress/melawatch/internal/config"
	"github.com/savegress/melawatch/pkg/models"
)

// Store owns the simulated device fleet. It seeds the fleet at
// construction, mutates a random slice of it on a fixed cadence, keeps
// summary statistics current, and notifies subscribers after every
// committed mutation. All read accessors return defensive copies.
type Store struct {
	config  *config.SimulationConfig
	rng     *rand.Rand
	devices map[string]*models.Device
	order   []string // insertion order, used for random selection
	stats   models.SimulationStats
	subs    []subscription
	nextSub int
	mu      sync.Mutex
	running bool
	stopped bool
	stopCh  chan struct{}
}

// subscription is one registered listener. Registering twice yields two
// independent subscriptions.
type subscription struct {
	id int
	fn func()
}

// NewStore creates a store with a fully seeded fleet.
func NewStore(cfg *config.SimulationConfig) *Store {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Store{
		config:  cfg,
		rng:     rand.New(rand.NewSource(seed)),
		devices: make(map[string]*models.Device),
		stopCh:  make(chan struct{}),
	}

	s.seedFleet()
	s.stats = s.computeStats()
	return s
}

// Start starts the periodic mutation loop. A stopped store cannot be
// restarted; teardown is final.
func (s *Store) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStoreStopped
	}
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	go s.tickLoop(ctx)
	return nil
}

// Stop halts the mutation loop and clears all subscribers. No
// notifications fire after Stop returns. Idempotent.
func (s *Store) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		close(s.stopCh)
		s.running = false
	}
	s.stopped = true
	s.subs = nil
}

func (s *Store) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick mutates a random 10-15% slice of the fleet, sampled with
// replacement, then recomputes stats and notifies subscribers.
func (s *Store) tick() {
	s.mu.Lock()

	total := len(s.order)
	count := int(float64(total) * (0.10 + s.rng.Float64()*0.05))
	now := time.Now()

	for i := 0; i < count; i++ {
		device := s.devices[s.order[s.rng.Intn(total)]]
		s.mutateDevice(device)
		device.LastUpdated = now
	}

	s.stats = s.computeStats()
	listeners := s.snapshotSubscribers()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// mutateDevice re-rolls a device's status using its type's weight table
// and drifts its metadata. Caller holds the lock.
func (s *Store) mutateDevice(d *models.Device) {
	switch d.Type {
	case models.DeviceTypeToilet:
		d.Status = pickStatus(s.rng, toiletWeights)
		if d.Metadata.Toilet != nil {
			d.Metadata.Toilet.UsageCount += s.rng.Intn(3)
		}
	case models.DeviceTypeWaterKiosk:
		d.Status = pickStatus(s.rng, kioskWeights)
		if d.Metadata.Kiosk != nil {
			level := d.Metadata.Kiosk.ChlorineLevel + (s.rng.Float64()-0.5)*0.2
			if level < 0 {
				level = 0
			}
			d.Metadata.Kiosk.ChlorineLevel = level
		}
	case models.DeviceTypeWasteBin:
		if d.Metadata.Bin != nil {
			fill := d.Metadata.Bin.FillLevel + s.rng.Intn(10)
			if fill > 100 {
				fill = 100
			}
			d.Metadata.Bin.FillLevel = fill
			d.Status = binStatusFor(fill)
		}
	case models.DeviceTypeMMU:
		d.Status = pickStatus(s.rng, mmuWeights)
	case models.DeviceTypeVolunteer:
		d.Status = pickStatus(s.rng, volunteerWeights)
	}
}

// computeStats rebuilds the summary from the full fleet. Caller holds
// the lock.
func (s *Store) computeStats() models.SimulationStats {
	stats := models.SimulationStats{
		TotalDevices: len(s.devices),
		LastRefresh:  time.Now(),
	}

	for _, d := range s.devices {
		switch {
		case d.Type == models.DeviceTypeToilet && d.Status == models.StatusCleanFree:
			stats.ActiveToilets++
		case d.Type == models.DeviceTypeWaterKiosk && d.Status == models.StatusWaterUnsafe:
			stats.UnsafeWaterKiosks++
		case d.Type == models.DeviceTypeWasteBin && d.Status == models.StatusBinFull:
			stats.FullBins++
		case d.Type == models.DeviceTypeMMU && d.Status == models.StatusEmergencyBusy:
			stats.BusyMMUs++
		case d.Type == models.DeviceTypeVolunteer && d.Status == models.StatusAvailable:
			stats.ActiveVolunteers++
		}
	}

	return stats
}

func (s *Store) snapshotSubscribers() []func() {
	listeners := make([]func(), len(s.subs))
	for i, sub := range s.subs {
		listeners[i] = sub.fn
	}
	return listeners
}

// ForceRefresh triggers an out-of-band mutation cycle immediately.
func (s *Store) ForceRefresh() {
	s.tick()
}

// AllDevices returns a snapshot of every device in insertion order.
func (s *Store) AllDevices() []models.Device {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]models.Device, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.devices[id].Clone())
	}
	return result
}

// DevicesByType returns a snapshot of devices of the given type.
func (s *Store) DevicesByType(t models.DeviceType) []models.Device {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []models.Device
	for _, id := range s.order {
		if d := s.devices[id]; d.Type == t {
			result = append(result, d.Clone())
		}
	}
	return result
}

// DeviceByID returns a snapshot of a single device.
func (s *Store) DeviceByID(id string) (models.Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.devices[id]
	if !ok {
		return models.Device{}, false
	}
	return d.Clone(), true
}

// Stats returns a copy of the current summary statistics.
func (s *Store) Stats() models.SimulationStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Subscribe registers a listener invoked after every committed mutation
// and returns its unsubscribe function. Each registration is independent,
// even for the same callback.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, subscription{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// UpdateDevice replaces a device's mutable fields. The status must belong
// to the device type's status set; waste bin status is re-derived from the
// fill level rather than trusted. Only metadata matching the device's type
// is applied.
func (s *Store) UpdateDevice(id string, status models.DeviceStatus, meta *models.Metadata) error {
	s.mu.Lock()

	device, ok := s.devices[id]
	if !ok {
		s.mu.Unlock()
		return ErrDeviceNotFound
	}

	if status != "" && !models.ValidStatus(device.Type, status) {
		s.mu.Unlock()
		return ErrInvalidStatus
	}

	if meta != nil {
		s.applyMetadata(device, meta)
	}
	if status != "" {
		device.Status = status
	}
	if device.Type == models.DeviceTypeWasteBin && device.Metadata.Bin != nil {
		device.Status = binStatusFor(device.Metadata.Bin.FillLevel)
	}
	device.LastUpdated = time.Now()

	s.stats = s.computeStats()
	listeners := s.snapshotSubscribers()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	return nil
}

func (s *Store) applyMetadata(d *models.Device, meta *models.Metadata) {
	switch d.Type {
	case models.DeviceTypeToilet:
		if meta.Toilet != nil {
			v := *meta.Toilet
			d.Metadata.Toilet = &v
		}
	case models.DeviceTypeWaterKiosk:
		if meta.Kiosk != nil {
			v := *meta.Kiosk
			d.Metadata.Kiosk = &v
		}
	case models.DeviceTypeWasteBin:
		if meta.Bin != nil {
			v := *meta.Bin
			d.Metadata.Bin = &v
		}
	case models.DeviceTypeMMU:
		if meta.MMU != nil {
			v := *meta.MMU
			d.Metadata.MMU = &v
		}
	case models.DeviceTypeVolunteer:
		if meta.Volunteer != nil {
			v := *meta.Volunteer
			d.Metadata.Volunteer = &v
		}
	}
}

// AssignRFID attaches an RFID tag to a volunteer.
func (s *Store) AssignRFID(deviceID, tag string) error {
	return s.updateRFID(deviceID, tag)
}

// ClearRFID removes a volunteer's RFID tag.
func (s *Store) ClearRFID(deviceID string) error {
	return s.updateRFID(deviceID, "")
}

func (s *Store) updateRFID(deviceID, tag string) error {
	s.mu.Lock()

	device, ok := s.devices[deviceID]
	if !ok {
		s.mu.Unlock()
		return ErrDeviceNotFound
	}
	if device.Type != models.DeviceTypeVolunteer {
		s.mu.Unlock()
		return ErrRFIDUnsupported
	}

	if device.Metadata.Volunteer == nil {
		device.Metadata.Volunteer = &models.VolunteerMetadata{}
	}
	device.Metadata.Volunteer.RFIDTag = tag
	if tag == "" {
		device.Metadata.Volunteer.RFIDAssignedAt = nil
	} else {
		now := time.Now()
		device.Metadata.Volunteer.RFIDAssignedAt = &now
	}
	device.LastUpdated = time.Now()

	listeners := s.snapshotSubscribers()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	return nil
}

// Errors
var (
	ErrDeviceNotFound  = &Error{Code: "DEVICE_NOT_FOUND", Message: "Device not found"}
	ErrInvalidStatus   = &Error{Code: "INVALID_STATUS", Message: "Status not valid for device type"}
	ErrRFIDUnsupported = &Error{Code: "RFID_UNSUPPORTED", Message: "RFID tags are only assigned to volunteers"}
	ErrStoreStopped    = &Error{Code: "STORE_STOPPED", Message: "Store has been stopped"}
)

// Error represents a store error
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
