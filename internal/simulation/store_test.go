package simulation

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/savegress/melawatch/internal/config"
	"github.com/savegress/melawatch/pkg/models"
)

func newTestSimConfig() *config.SimulationConfig {
	return &config.SimulationConfig{
		TickInterval: time.Minute, // never fires within a test
		Seed:         42,
	}
}

func TestNewStore_FleetComposition(t *testing.T) {
	s := NewStore(newTestSimConfig())

	devices := s.AllDevices()
	if len(devices) != FleetSize {
		t.Fatalf("expected %d devices, got %d", FleetSize, len(devices))
	}

	counts := make(map[models.DeviceType]int)
	for _, d := range devices {
		counts[d.Type]++
	}

	expected := map[models.DeviceType]int{
		models.DeviceTypeToilet:     80,
		models.DeviceTypeWaterKiosk: 60,
		models.DeviceTypeWasteBin:   70,
		models.DeviceTypeMMU:        25,
		models.DeviceTypeVolunteer:  50,
	}
	for deviceType, want := range expected {
		if counts[deviceType] != want {
			t.Errorf("type %s: expected %d devices, got %d", deviceType, want, counts[deviceType])
		}
	}
}

func TestNewStore_StatusDomains(t *testing.T) {
	s := NewStore(newTestSimConfig())

	for _, d := range s.AllDevices() {
		if !models.ValidStatus(d.Type, d.Status) {
			t.Errorf("device %s has status %q outside type %s's status set", d.ID, d.Status, d.Type)
		}
	}
}

func TestNewStore_BinConsistency(t *testing.T) {
	s := NewStore(newTestSimConfig())
	assertBinConsistency(t, s)

	for i := 0; i < 5; i++ {
		s.ForceRefresh()
		assertBinConsistency(t, s)
	}
}

func assertBinConsistency(t *testing.T, s *Store) {
	t.Helper()
	for _, d := range s.DevicesByType(models.DeviceTypeWasteBin) {
		if d.Metadata.Bin == nil {
			t.Fatalf("bin %s has no bin metadata", d.ID)
		}
		if want := binStatusFor(d.Metadata.Bin.FillLevel); d.Status != want {
			t.Errorf("bin %s: fill %d should map to %s, got %s", d.ID, d.Metadata.Bin.FillLevel, want, d.Status)
		}
	}
}

func TestStore_StatsConsistency(t *testing.T) {
	s := NewStore(newTestSimConfig())
	s.ForceRefresh()

	stats := s.Stats()
	devices := s.AllDevices()

	if stats.TotalDevices != len(devices) {
		t.Errorf("stats total %d != device count %d", stats.TotalDevices, len(devices))
	}

	count := func(dt models.DeviceType, st models.DeviceStatus) int {
		n := 0
		for _, d := range devices {
			if d.Type == dt && d.Status == st {
				n++
			}
		}
		return n
	}

	checks := []struct {
		name string
		got  int
		want int
	}{
		{"active toilets", stats.ActiveToilets, count(models.DeviceTypeToilet, models.StatusCleanFree)},
		{"unsafe kiosks", stats.UnsafeWaterKiosks, count(models.DeviceTypeWaterKiosk, models.StatusWaterUnsafe)},
		{"full bins", stats.FullBins, count(models.DeviceTypeWasteBin, models.StatusBinFull)},
		{"busy MMUs", stats.BusyMMUs, count(models.DeviceTypeMMU, models.StatusEmergencyBusy)},
		{"active volunteers", stats.ActiveVolunteers, count(models.DeviceTypeVolunteer, models.StatusAvailable)},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: stats %d != filtered count %d", c.name, c.got, c.want)
		}
	}
}

func TestStore_SnapshotIsolation(t *testing.T) {
	s := NewStore(newTestSimConfig())

	snapshot := s.AllDevices()
	original := snapshot[0].Status
	snapshot[0].Status = "tampered"
	if snapshot[0].Metadata.Toilet != nil {
		snapshot[0].Metadata.Toilet.UsageCount = 99999
	}

	fresh := s.AllDevices()
	if fresh[0].Status != original {
		t.Error("mutating a snapshot changed internal status")
	}
	if fresh[0].Metadata.Toilet != nil && fresh[0].Metadata.Toilet.UsageCount == 99999 {
		t.Error("mutating snapshot metadata changed internal state")
	}

	single, ok := s.DeviceByID(fresh[0].ID)
	if !ok {
		t.Fatalf("device %s disappeared", fresh[0].ID)
	}
	if single.Metadata.Toilet != nil {
		single.Metadata.Toilet.UsageCount = 12345
		again, _ := s.DeviceByID(fresh[0].ID)
		if again.Metadata.Toilet.UsageCount == 12345 {
			t.Error("mutating a single-device snapshot changed internal state")
		}
	}
}

func TestStore_DeviceByID(t *testing.T) {
	s := NewStore(newTestSimConfig())

	d, ok := s.DeviceByID("toilet_001")
	if !ok {
		t.Fatal("toilet_001 should exist")
	}
	if d.Type != models.DeviceTypeToilet {
		t.Errorf("expected toilet, got %s", d.Type)
	}

	if _, ok := s.DeviceByID("toilet_999"); ok {
		t.Error("unknown id should not resolve")
	}
}

func TestStore_DevicesByType(t *testing.T) {
	s := NewStore(newTestSimConfig())

	mmus := s.DevicesByType(models.DeviceTypeMMU)
	if len(mmus) != 25 {
		t.Fatalf("expected 25 MMUs, got %d", len(mmus))
	}
	for _, d := range mmus {
		if d.Type != models.DeviceTypeMMU {
			t.Errorf("device %s is not an mmu", d.ID)
		}
	}
}

func TestStore_SubscribeUnsubscribe(t *testing.T) {
	s := NewStore(newTestSimConfig())

	calls := 0
	unsubscribe := s.Subscribe(func() { calls++ })

	s.ForceRefresh()
	if calls != 1 {
		t.Fatalf("expected 1 notification, got %d", calls)
	}

	unsubscribe()
	s.ForceRefresh()
	if calls != 1 {
		t.Errorf("unsubscribed listener was notified, calls=%d", calls)
	}
}

func TestStore_DoubleSubscription(t *testing.T) {
	s := NewStore(newTestSimConfig())

	calls := 0
	fn := func() { calls++ }
	unsubFirst := s.Subscribe(fn)
	s.Subscribe(fn)

	s.ForceRefresh()
	if calls != 2 {
		t.Fatalf("expected 2 notifications for 2 registrations, got %d", calls)
	}

	// Each registration is independently revocable
	unsubFirst()
	s.ForceRefresh()
	if calls != 3 {
		t.Errorf("expected remaining registration to fire once more, calls=%d", calls)
	}
}

func TestStore_ForceRefresh_MutationBound(t *testing.T) {
	s := NewStore(newTestSimConfig())

	before := make(map[string]time.Time)
	for _, d := range s.AllDevices() {
		before[d.ID] = d.LastUpdated
	}

	s.ForceRefresh()

	changed := 0
	for _, d := range s.AllDevices() {
		if !d.LastUpdated.Equal(before[d.ID]) {
			changed++
		}
	}

	// 10-15% of 285, sampled with replacement: at most 43 distinct
	// devices change; duplicates can pull the count slightly below the
	// nominal floor of 28.
	if changed < 20 || changed > 43 {
		t.Errorf("expected 20-43 distinct devices updated, got %d", changed)
	}
}

func TestStore_StopClearsSubscribers(t *testing.T) {
	s := NewStore(newTestSimConfig())

	calls := 0
	s.Subscribe(func() { calls++ })

	s.Stop()
	s.Stop() // idempotent

	s.ForceRefresh()
	if calls != 0 {
		t.Errorf("subscriber notified after Stop, calls=%d", calls)
	}
}

func TestStore_UpdateDevice(t *testing.T) {
	s := NewStore(newTestSimConfig())

	notified := 0
	s.Subscribe(func() { notified++ })

	err := s.UpdateDevice("toilet_001", models.StatusNeedsCleaning, &models.Metadata{
		Toilet: &models.ToiletMetadata{UsageCount: 47, Notes: "reported by admin"},
	})
	if err != nil {
		t.Fatalf("UpdateDevice failed: %v", err)
	}
	if notified != 1 {
		t.Errorf("expected 1 notification, got %d", notified)
	}

	d, _ := s.DeviceByID("toilet_001")
	if d.Status != models.StatusNeedsCleaning {
		t.Errorf("status not applied, got %s", d.Status)
	}
	if d.Metadata.Toilet == nil || d.Metadata.Toilet.UsageCount != 47 {
		t.Error("metadata not applied")
	}
}

func TestStore_UpdateDevice_InvalidStatus(t *testing.T) {
	s := NewStore(newTestSimConfig())

	err := s.UpdateDevice("toilet_001", models.StatusWaterUnsafe, nil)
	if err != ErrInvalidStatus {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}

	err = s.UpdateDevice("toilet_999", models.StatusCleanFree, nil)
	if err != ErrDeviceNotFound {
		t.Errorf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestStore_UpdateDevice_BinStatusDerived(t *testing.T) {
	s := NewStore(newTestSimConfig())

	// Status is re-derived from fill level, not trusted from the caller.
	err := s.UpdateDevice("bin_001", models.StatusBinEmpty, &models.Metadata{
		Bin: &models.BinMetadata{FillLevel: 92, Capacity: 100},
	})
	if err != nil {
		t.Fatalf("UpdateDevice failed: %v", err)
	}

	d, _ := s.DeviceByID("bin_001")
	if d.Status != models.StatusBinFull {
		t.Errorf("expected bin_full derived from fill 92, got %s", d.Status)
	}
}

func TestStore_RFIDAssignment(t *testing.T) {
	s := NewStore(newTestSimConfig())

	if err := s.AssignRFID("volunteer_001", "RFID-7F3K2M1Q"); err != nil {
		t.Fatalf("AssignRFID failed: %v", err)
	}

	d, _ := s.DeviceByID("volunteer_001")
	if d.Metadata.Volunteer == nil || d.Metadata.Volunteer.RFIDTag != "RFID-7F3K2M1Q" {
		t.Error("RFID tag not assigned")
	}
	if d.Metadata.Volunteer.RFIDAssignedAt == nil {
		t.Error("RFID assignment time not set")
	}

	if err := s.AssignRFID("toilet_001", "RFID-X"); err != ErrRFIDUnsupported {
		t.Errorf("expected ErrRFIDUnsupported for non-volunteer, got %v", err)
	}

	if err := s.ClearRFID("volunteer_001"); err != nil {
		t.Fatalf("ClearRFID failed: %v", err)
	}
	d, _ = s.DeviceByID("volunteer_001")
	if d.Metadata.Volunteer.RFIDTag != "" || d.Metadata.Volunteer.RFIDAssignedAt != nil {
		t.Error("RFID tag not cleared")
	}
}

func TestStore_StartStop(t *testing.T) {
	cfg := &config.SimulationConfig{TickInterval: 10 * time.Millisecond, Seed: 7}
	s := NewStore(cfg)

	notified := make(chan struct{}, 100)
	s.Subscribe(func() {
		select {
		case notified <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("second Start should be a no-op: %v", err)
	}

	select {
	case <-notified:
	case <-time.After(time.Second):
		t.Fatal("timer-driven tick never notified")
	}

	s.Stop()
}

func TestStore_StartAfterStop(t *testing.T) {
	s := NewStore(newTestSimConfig())
	s.Stop()

	err := s.Start(context.Background())
	if !errors.Is(err, ErrStoreStopped) {
		t.Fatalf("Start after Stop = %v, want ErrStoreStopped", err)
	}
}

func TestPickStatus_ToiletDistribution(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	const draws = 10000

	counts := make(map[models.DeviceStatus]int)
	for i := 0; i < draws; i++ {
		counts[pickStatus(rng, toiletWeights)]++
	}

	for _, w := range toiletWeights {
		freq := float64(counts[w.status]) / draws
		if math.Abs(freq-w.weight) > 0.03 {
			t.Errorf("status %s: observed frequency %.3f deviates from weight %.2f by more than 0.03",
				w.status, freq, w.weight)
		}
	}
}
