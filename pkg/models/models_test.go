package models

import (
	"testing"
	"time"
)

func TestStatusSets(t *testing.T) {
	for _, deviceType := range DeviceTypes {
		statuses := StatusSet(deviceType)
		if len(statuses) != 3 {
			t.Errorf("type %s: expected 3 statuses, got %d", deviceType, len(statuses))
		}
		for _, status := range statuses {
			if !ValidStatus(deviceType, status) {
				t.Errorf("type %s: %s should be valid for its own type", deviceType, status)
			}
		}
	}

	// Statuses never cross type boundaries.
	if ValidStatus(DeviceTypeToilet, StatusWaterUnsafe) {
		t.Error("water_unsafe should not be valid for toilets")
	}
	if ValidStatus(DeviceTypeMMU, StatusBinFull) {
		t.Error("bin_full should not be valid for MMUs")
	}
	if ValidStatus("unknown", StatusCleanFree) {
		t.Error("no status should be valid for an unknown type")
	}
}

func TestDeviceClone(t *testing.T) {
	assignedAt := time.Now()
	device := Device{
		ID:     "volunteer_001",
		Type:   DeviceTypeVolunteer,
		Status: StatusAvailable,
		Metadata: Metadata{
			Volunteer: &VolunteerMetadata{
				AssignedTask:   "Water Quality Check",
				RFIDTag:        "RFID-AB12CD34",
				RFIDAssignedAt: &assignedAt,
			},
		},
	}

	clone := device.Clone()
	clone.Metadata.Volunteer.RFIDTag = "tampered"
	*clone.Metadata.Volunteer.RFIDAssignedAt = assignedAt.Add(-time.Hour)

	if device.Metadata.Volunteer.RFIDTag != "RFID-AB12CD34" {
		t.Error("mutating a clone's metadata changed the original")
	}
	if !device.Metadata.Volunteer.RFIDAssignedAt.Equal(assignedAt) {
		t.Error("mutating a clone's timestamp pointer changed the original")
	}
}

func TestMetadataClone_Toilet(t *testing.T) {
	meta := Metadata{Toilet: &ToiletMetadata{UsageCount: 12}}

	clone := meta.Clone()
	clone.Toilet.UsageCount = 99

	if meta.Toilet.UsageCount != 12 {
		t.Error("mutating a cloned variant changed the original")
	}
	if clone.Kiosk != nil || clone.Bin != nil || clone.MMU != nil || clone.Volunteer != nil {
		t.Error("clone populated variants absent from the original")
	}
}
