package models

import (
	"time"
)

// DeviceType represents the type of monitored device
type DeviceType string

const (
	DeviceTypeToilet     DeviceType = "toilet"
	DeviceTypeWaterKiosk DeviceType = "water_kiosk"
	DeviceTypeWasteBin   DeviceType = "waste_bin"
	DeviceTypeMMU        DeviceType = "mmu"
	DeviceTypeVolunteer  DeviceType = "volunteer"
)

// DeviceTypes lists every device type in fleet order.
var DeviceTypes = []DeviceType{
	DeviceTypeToilet,
	DeviceTypeWaterKiosk,
	DeviceTypeWasteBin,
	DeviceTypeMMU,
	DeviceTypeVolunteer,
}

// DeviceStatus represents the operational status of a device.
// Each device type has its own closed set of valid statuses.
type DeviceStatus string

const (
	// Toilet statuses
	StatusCleanFree     DeviceStatus = "clean_free"
	StatusInUse         DeviceStatus = "in_use"
	StatusNeedsCleaning DeviceStatus = "needs_cleaning"

	// Water kiosk statuses
	StatusWaterSafe    DeviceStatus = "water_safe"
	StatusCheckQuality DeviceStatus = "check_quality"
	StatusWaterUnsafe  DeviceStatus = "water_unsafe"

	// Waste bin statuses
	StatusBinEmpty  DeviceStatus = "bin_empty"
	StatusFillingUp DeviceStatus = "filling_up"
	StatusBinFull   DeviceStatus = "bin_full"

	// MMU statuses
	StatusAvailableNow  DeviceStatus = "available_now"
	StatusOnRoute       DeviceStatus = "on_route"
	StatusEmergencyBusy DeviceStatus = "emergency_busy"

	// Volunteer statuses
	StatusAvailable    DeviceStatus = "available"
	StatusAssignedTask DeviceStatus = "assigned_task"
	StatusOffDuty      DeviceStatus = "off_duty"
)

var statusSets = map[DeviceType][]DeviceStatus{
	DeviceTypeToilet:     {StatusCleanFree, StatusInUse, StatusNeedsCleaning},
	DeviceTypeWaterKiosk: {StatusWaterSafe, StatusCheckQuality, StatusWaterUnsafe},
	DeviceTypeWasteBin:   {StatusBinEmpty, StatusFillingUp, StatusBinFull},
	DeviceTypeMMU:        {StatusAvailableNow, StatusOnRoute, StatusEmergencyBusy},
	DeviceTypeVolunteer:  {StatusAvailable, StatusAssignedTask, StatusOffDuty},
}

// StatusSet returns the valid statuses for a device type.
func StatusSet(t DeviceType) []DeviceStatus {
	return statusSets[t]
}

// ValidStatus reports whether status belongs to the type's status set.
func ValidStatus(t DeviceType, status DeviceStatus) bool {
	for _, s := range statusSets[t] {
		if s == status {
			return true
		}
	}
	return false
}

// Location represents a device's fixed physical placement
type Location struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Area string  `json:"area"`
}

// Device represents a simulated monitored device
type Device struct {
	ID          string       `json:"id"`
	Type        DeviceType   `json:"type"`
	Name        string       `json:"name"`
	Status      DeviceStatus `json:"status"`
	Location    Location     `json:"location"`
	LastUpdated time.Time    `json:"last_updated"`
	Metadata    Metadata     `json:"metadata"`
}

// Metadata carries type-specific measurements. Exactly one variant is
// populated, matching the device's type; the rest stay nil.
type Metadata struct {
	Toilet    *ToiletMetadata    `json:"toilet,omitempty"`
	Kiosk     *KioskMetadata     `json:"water_kiosk,omitempty"`
	Bin       *BinMetadata       `json:"waste_bin,omitempty"`
	MMU       *MMUMetadata       `json:"mmu,omitempty"`
	Volunteer *VolunteerMetadata `json:"volunteer,omitempty"`
}

// ToiletMetadata holds toilet measurements
type ToiletMetadata struct {
	UsageCount int       `json:"usage_count"`
	CleanedAt  time.Time `json:"cleaned_at"`
	Notes      string    `json:"notes,omitempty"`
}

// KioskMetadata holds water kiosk measurements
type KioskMetadata struct {
	ChlorineLevel float64   `json:"chlorine_level"`
	PHLevel       float64   `json:"ph_level"`
	LastTested    time.Time `json:"last_tested"`
}

// BinMetadata holds waste bin measurements
type BinMetadata struct {
	FillLevel int `json:"fill_level"`
	Capacity  int `json:"capacity"`
}

// MMUMetadata holds medical mobile unit state
type MMUMetadata struct {
	PatientCount      int    `json:"patient_count"`
	AssignedEmergency string `json:"assigned_emergency,omitempty"`
}

// VolunteerMetadata holds volunteer state
type VolunteerMetadata struct {
	AssignedTask   string     `json:"assigned_task,omitempty"`
	TaskLocation   string     `json:"task_location,omitempty"`
	RFIDTag        string     `json:"rfid_tag,omitempty"`
	RFIDAssignedAt *time.Time `json:"rfid_assigned_at,omitempty"`
}

// Clone returns a deep copy of the device.
func (d *Device) Clone() Device {
	c := *d
	c.Metadata = d.Metadata.Clone()
	return c
}

// Clone returns a deep copy of the metadata.
func (m Metadata) Clone() Metadata {
	c := Metadata{}
	if m.Toilet != nil {
		v := *m.Toilet
		c.Toilet = &v
	}
	if m.Kiosk != nil {
		v := *m.Kiosk
		c.Kiosk = &v
	}
	if m.Bin != nil {
		v := *m.Bin
		c.Bin = &v
	}
	if m.MMU != nil {
		v := *m.MMU
		c.MMU = &v
	}
	if m.Volunteer != nil {
		v := *m.Volunteer
		if m.Volunteer.RFIDAssignedAt != nil {
			t := *m.Volunteer.RFIDAssignedAt
			v.RFIDAssignedAt = &t
		}
		c.Volunteer = &v
	}
	return c
}

// SimulationStats contains fleet-wide summary counts, recomputed in full
// after every mutation cycle.
type SimulationStats struct {
	TotalDevices      int       `json:"total_devices"`
	ActiveToilets     int       `json:"active_toilets"`
	UnsafeWaterKiosks int       `json:"unsafe_water_kiosks"`
	FullBins          int       `json:"full_bins"`
	BusyMMUs          int       `json:"busy_mmus"`
	ActiveVolunteers  int       `json:"active_volunteers"`
	LastRefresh       time.Time `json:"last_refresh"`
}

// InsightType represents the kind of derived insight
type InsightType string

const (
	InsightTypePrediction     InsightType = "prediction"
	InsightTypeRecommendation InsightType = "recommendation"
	InsightTypeAlert          InsightType = "alert"
	InsightTypeForecast       InsightType = "forecast"
)

// Priority represents urgency for insights, assignments and reports
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Insight represents a derived, ephemeral fleet-wide observation.
// The full list is regenerated on every update cycle.
type Insight struct {
	ID             string      `json:"id"`
	Type           InsightType `json:"type"`
	Priority       Priority    `json:"priority"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Confidence     float64     `json:"confidence"`
	Timeframe      string      `json:"timeframe"`
	ActionRequired string      `json:"action_required,omitempty"`
}

// AssignmentType represents the kind of work an assignment demands
type AssignmentType string

const (
	AssignmentTypeCleaning    AssignmentType = "cleaning"
	AssignmentTypeWaterTest   AssignmentType = "water_test"
	AssignmentTypeMedical     AssignmentType = "medical"
	AssignmentTypeMaintenance AssignmentType = "maintenance"
)

// Role represents an operational role assignments are routed to
type Role string

const (
	RoleSweeper   Role = "sweeper"
	RoleVolunteer Role = "volunteer"
	RoleMMU       Role = "mmu"
	RoleAdmin     Role = "admin"
)

// AssignmentStatus represents the lifecycle state of an assignment
type AssignmentStatus string

const (
	AssignmentStatusPending    AssignmentStatus = "pending"
	AssignmentStatusAssigned   AssignmentStatus = "assigned"
	AssignmentStatusInProgress AssignmentStatus = "in_progress"
	AssignmentStatusCompleted  AssignmentStatus = "completed"
)

// Assignment represents a derived per-device task recommendation.
// Like insights, assignments are fully regenerated each cycle.
type Assignment struct {
	ID            string           `json:"id"`
	Type          AssignmentType   `json:"type"`
	DeviceID      string           `json:"device_id"`
	Device        Device           `json:"device"`
	AssignedTo    Role             `json:"assigned_to"`
	Priority      Priority         `json:"priority"`
	Description   string           `json:"description"`
	Reasoning     string           `json:"reasoning"`
	EstimatedTime int              `json:"estimated_time"`
	Location      string           `json:"location"`
	CreatedAt     time.Time        `json:"created_at"`
	Status        AssignmentStatus `json:"status"`
}

// ReportCategory represents what a citizen report concerns
type ReportCategory string

const (
	ReportCategoryEmergency ReportCategory = "emergency"
	ReportCategoryToilet    ReportCategory = "toilet"
	ReportCategoryWater     ReportCategory = "water"
)

// ReportStatus represents the lifecycle state of a citizen report
type ReportStatus string

const (
	ReportStatusOpen         ReportStatus = "open"
	ReportStatusAcknowledged ReportStatus = "acknowledged"
	ReportStatusResolved     ReportStatus = "resolved"
)

// IssueReport represents a citizen-submitted issue
type IssueReport struct {
	ID           string         `json:"id"`
	Category     ReportCategory `json:"category"`
	ReporterName string         `json:"reporter_name"`
	Phone        string         `json:"phone,omitempty"`
	Location     string         `json:"location"`
	Description  string         `json:"description"`
	Severity     Priority       `json:"severity"`
	Status       ReportStatus   `json:"status"`
	AckedAt      *time.Time     `json:"acked_at,omitempty"`
	ResolvedAt   *time.Time     `json:"resolved_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
