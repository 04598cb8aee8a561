package insights

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/savegress/melawatch/internal/config"
	"github.com/savegress/melawatch/pkg/models"
)

// FallbackRecommendation is returned to callers when recommendation
// generation fails internally. It is never surfaced as an error.
const FallbackRecommendation = "Unable to generate recommendation at this time."

// Service derives insights and task assignments from fleet snapshots.
// Both lists are replaced in full on every update; nothing carries over
// between cycles except the seed insights shown before the first analysis.
type Service struct {
	config      *config.InsightsConfig
	rng         *rand.Rand
	insights    []models.Insight
	assignments []models.Assignment
	responses   []string
	subs        []subscription
	nextSub     int
	mu          sync.Mutex
}

type subscription struct {
	id int
	fn func()
}

// NewService creates an insights service pre-populated with seed insights.
func NewService(cfg *config.InsightsConfig) *Service {
	s := &Service{
		config:    cfg,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		responses: defaultResponses,
	}
	s.insights = seedInsights()
	return s
}

// Placeholder pool for the generative-AI integration.
var defaultResponses = []string{
	"Based on crowd density patterns, recommend increasing cleaning frequency in high-traffic areas.",
	"Water quality trends suggest proactive testing every 2 hours during peak periods.",
	"MMU positioning analysis indicates optimal coverage with current deployment.",
	"Waste management efficiency can be improved by 23% with predictive emptying schedules.",
}

// seedInsights returns the fixed insights shown before any fleet has
// been analyzed.
func seedInsights() []models.Insight {
	return []models.Insight{
		{
			ID:             "insight_001",
			Type:           models.InsightTypePrediction,
			Priority:       models.PriorityHigh,
			Title:          "Toilet Usage Surge Predicted",
			Description:    "5 toilets near Ram Ghat expected to reach capacity in next 30 minutes",
			Confidence:     0.87,
			Timeframe:      "Next 30 minutes",
			ActionRequired: "Deploy cleaning teams proactively",
		},
		{
			ID:             "insight_002",
			Type:           models.InsightTypeAlert,
			Priority:       models.PriorityCritical,
			Title:          "Water Quality Degradation Risk",
			Description:    "3 water kiosks showing declining chlorine levels, unsafe conditions likely",
			Confidence:     0.92,
			Timeframe:      "Next 15 minutes",
			ActionRequired: "Immediate water quality testing required",
		},
		{
			ID:             "insight_003",
			Type:           models.InsightTypeForecast,
			Priority:       models.PriorityMedium,
			Title:          "Waste Overflow Risk",
			Description:    "7 bins in high-traffic areas approaching 85% capacity",
			Confidence:     0.78,
			Timeframe:      "Next 45 minutes",
			ActionRequired: "Schedule emptying operations",
		},
		{
			ID:             "insight_004",
			Type:           models.InsightTypeRecommendation,
			Priority:       models.PriorityHigh,
			Title:          "MMU Redistribution Needed",
			Description:    "Crowd density analysis suggests repositioning 2 MMUs to Mahakaleshwar area",
			Confidence:     0.83,
			Timeframe:      "Next hour",
			ActionRequired: "Coordinate MMU movement",
		},
	}
}

// UpdateInsights recomputes both derived lists from the snapshot,
// replacing previous results in full, then notifies subscribers.
func (s *Service) UpdateInsights(devices []models.Device) {
	s.mu.Lock()
	s.insights = GenerateInsights(s.rng, devices)
	s.assignments = GenerateAssignments(devices)
	listeners := s.snapshotSubscribers()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// GenerateInsights derives fleet-wide insights from a snapshot. Each
// category contributes at most one insight. Confidence jitter is purely
// cosmetic and carries no statistical meaning.
func GenerateInsights(rng *rand.Rand, devices []models.Device) []models.Insight {
	var insights []models.Insight

	// Toilet cleaning prediction
	var busyAreas []string
	for _, d := range devices {
		if d.Type != models.DeviceTypeToilet || d.Metadata.Toilet == nil {
			continue
		}
		if d.Metadata.Toilet.UsageCount > 40 && len(busyAreas) < 5 {
			busyAreas = append(busyAreas, d.Location.Area)
		}
	}
	if len(busyAreas) > 0 {
		insights = append(insights, models.Insight{
			ID:             "ai_toilet_" + uuid.New().String(),
			Type:           models.InsightTypePrediction,
			Priority:       models.PriorityHigh,
			Title:          fmt.Sprintf("%d Toilets Predicted to Need Cleaning", len(busyAreas)),
			Description:    "AI analysis indicates these toilets will reach capacity soon: " + strings.Join(busyAreas, ", "),
			Confidence:     0.85 + rng.Float64()*0.10,
			Timeframe:      "Next 20-40 minutes",
			ActionRequired: "Deploy cleaning teams",
		})
	}

	// Water risk alert
	riskKiosks := 0
	for _, d := range devices {
		if d.Type == models.DeviceTypeWaterKiosk && d.Metadata.Kiosk != nil && d.Metadata.Kiosk.ChlorineLevel < 1.0 {
			riskKiosks++
		}
	}
	if riskKiosks > 0 {
		insights = append(insights, models.Insight{
			ID:             "ai_water_" + uuid.New().String(),
			Type:           models.InsightTypeAlert,
			Priority:       models.PriorityCritical,
			Title:          fmt.Sprintf("%d Water Kiosks at Risk", riskKiosks),
			Description:    "Low chlorine levels detected, potential unsafe conditions developing",
			Confidence:     0.90 + rng.Float64()*0.08,
			Timeframe:      "Next 10-30 minutes",
			ActionRequired: "Immediate water testing required",
		})
	}

	// Waste overflow forecast
	nearFullBins := 0
	for _, d := range devices {
		if d.Type == models.DeviceTypeWasteBin && d.Metadata.Bin != nil && d.Metadata.Bin.FillLevel > 75 {
			nearFullBins++
		}
	}
	if nearFullBins > 0 {
		insights = append(insights, models.Insight{
			ID:             "ai_waste_" + uuid.New().String(),
			Type:           models.InsightTypeForecast,
			Priority:       models.PriorityMedium,
			Title:          fmt.Sprintf("%d Bins Approaching Capacity", nearFullBins),
			Description:    "Predictive analysis shows overflow risk in high-traffic areas",
			Confidence:     0.82 + rng.Float64()*0.12,
			Timeframe:      "Next 30-60 minutes",
			ActionRequired: "Schedule emptying operations",
		})
	}

	// MMU strain recommendation
	busyMMUs, availableMMUs := 0, 0
	for _, d := range devices {
		if d.Type != models.DeviceTypeMMU {
			continue
		}
		switch d.Status {
		case models.StatusEmergencyBusy:
			busyMMUs++
		case models.StatusAvailableNow:
			availableMMUs++
		}
	}
	if busyMMUs > availableMMUs {
		insights = append(insights, models.Insight{
			ID:             "ai_mmu_" + uuid.New().String(),
			Type:           models.InsightTypeRecommendation,
			Priority:       models.PriorityHigh,
			Title:          "MMU Resource Strain Detected",
			Description:    fmt.Sprintf("%d active emergencies with only %d available units", busyMMUs, availableMMUs),
			Confidence:     0.95,
			Timeframe:      "Current",
			ActionRequired: "Consider backup MMU deployment",
		})
	}

	return insights
}

// GenerateAssignments derives per-device task recommendations. Every
// device is scanned; each matches at most one rule.
func GenerateAssignments(devices []models.Device) []models.Assignment {
	var assignments []models.Assignment
	now := time.Now()

	for _, d := range devices {
		switch {
		case d.Type == models.DeviceTypeToilet && d.Status == models.StatusNeedsCleaning:
			priority := models.PriorityMedium
			usage := 0
			if d.Metadata.Toilet != nil {
				usage = d.Metadata.Toilet.UsageCount
			}
			if usage > 45 {
				priority = models.PriorityHigh
			}
			assignments = append(assignments, models.Assignment{
				ID:            "task_" + d.ID + "_" + uuid.New().String(),
				Type:          models.AssignmentTypeCleaning,
				DeviceID:      d.ID,
				Device:        d,
				AssignedTo:    models.RoleSweeper,
				Priority:      priority,
				Description:   "Clean and sanitize toilet facility",
				Reasoning:     fmt.Sprintf("Usage count: %d, Status: %s", usage, d.Status),
				EstimatedTime: 15,
				Location:      d.Location.Area,
				CreatedAt:     now,
				Status:        models.AssignmentStatusPending,
			})

		case d.Type == models.DeviceTypeWasteBin && d.Status == models.StatusBinFull:
			fill := 0
			if d.Metadata.Bin != nil {
				fill = d.Metadata.Bin.FillLevel
			}
			assignments = append(assignments, models.Assignment{
				ID:            "task_" + d.ID + "_" + uuid.New().String(),
				Type:          models.AssignmentTypeCleaning,
				DeviceID:      d.ID,
				Device:        d,
				AssignedTo:    models.RoleSweeper,
				Priority:      models.PriorityHigh,
				Description:   "Empty waste bin and replace liner",
				Reasoning:     fmt.Sprintf("Fill level: %d%%, Status: %s", fill, d.Status),
				EstimatedTime: 10,
				Location:      d.Location.Area,
				CreatedAt:     now,
				Status:        models.AssignmentStatusPending,
			})

		case d.Type == models.DeviceTypeWaterKiosk &&
			(d.Status == models.StatusWaterUnsafe || d.Status == models.StatusCheckQuality):
			priority := models.PriorityHigh
			if d.Status == models.StatusWaterUnsafe {
				priority = models.PriorityCritical
			}
			reasoning := "Water quality check required"
			if d.Metadata.Kiosk != nil {
				reasoning = fmt.Sprintf("Chlorine: %.2fmg/L, pH: %.1f",
					d.Metadata.Kiosk.ChlorineLevel, d.Metadata.Kiosk.PHLevel)
			}
			assignments = append(assignments, models.Assignment{
				ID:            "task_" + d.ID + "_" + uuid.New().String(),
				Type:          models.AssignmentTypeWaterTest,
				DeviceID:      d.ID,
				Device:        d,
				AssignedTo:    models.RoleVolunteer,
				Priority:      priority,
				Description:   "Test water quality and take corrective action",
				Reasoning:     reasoning,
				EstimatedTime: 20,
				Location:      d.Location.Area,
				CreatedAt:     now,
				Status:        models.AssignmentStatusPending,
			})

		case d.Type == models.DeviceTypeMMU && d.Status == models.StatusEmergencyBusy:
			emergency, patients := "", 0
			if d.Metadata.MMU != nil {
				emergency = d.Metadata.MMU.AssignedEmergency
				patients = d.Metadata.MMU.PatientCount
			}
			assignments = append(assignments, models.Assignment{
				ID:            "task_" + d.ID + "_" + uuid.New().String(),
				Type:          models.AssignmentTypeMedical,
				DeviceID:      d.ID,
				Device:        d,
				AssignedTo:    models.RoleMMU,
				Priority:      models.PriorityCritical,
				Description:   "Respond to medical emergency",
				Reasoning:     fmt.Sprintf("Emergency: %s, Patients: %d", emergency, patients),
				EstimatedTime: 45,
				Location:      d.Location.Area,
				CreatedAt:     now,
				Status:        models.AssignmentStatusInProgress,
			})
		}
	}

	return assignments
}

// Insights returns a copy of the current insight list.
func (s *Service) Insights() []models.Insight {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]models.Insight, len(s.insights))
	copy(result, s.insights)
	return result
}

// Assignments returns a copy of the current assignment list. The embedded
// device is deep-copied so callers cannot reach internal state through its
// metadata pointers.
func (s *Service) Assignments() []models.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]models.Assignment, len(s.assignments))
	for i, a := range s.assignments {
		result[i] = a
		result[i].Device = a.Device.Clone()
	}
	return result
}

// InsightsByPriority returns insights matching the given priority.
func (s *Service) InsightsByPriority(priority models.Priority) []models.Insight {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []models.Insight
	for _, in := range s.insights {
		if in.Priority == priority {
			result = append(result, in)
		}
	}
	return result
}

// AssignmentsByRole returns assignments routed to the given role.
func (s *Service) AssignmentsByRole(role models.Role) []models.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []models.Assignment
	for _, a := range s.assignments {
		if a.AssignedTo == role {
			c := a
			c.Device = a.Device.Clone()
			result = append(result, c)
		}
	}
	return result
}

// Subscribe registers a listener invoked after every update and returns
// its unsubscribe function.
func (s *Service) Subscribe(fn func()) func() {
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

func (s *Service) snapshotSubscribers() []func() {
	listeners := make([]func(), len(s.subs))
	for i, sub := range s.subs {
		listeners[i] = sub.fn
	}
	return listeners
}

// SetResponses replaces the recommendation response pool. Intended for
// wiring a real generative backend or for tests.
func (s *Service) SetResponses(responses []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = responses
}

// GenerateRecommendation returns one recommendation for the given free-text
// context after an artificial delay modeling backend latency. Once started
// it always completes; callers that stop waiting simply discard the result.
func (s *Service) GenerateRecommendation(ctx context.Context, contextText string) (string, error) {
	// A real backend would condition on contextText; the placeholder pool
	// ignores it.
	time.Sleep(s.config.RecommendationDelay)

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.responses) == 0 {
		return "", ErrNoRecommendation
	}
	return s.responses[s.rng.Intn(len(s.responses))], nil
}

// Errors
var (
	ErrNoRecommendation = &Error{Code: "NO_RECOMMENDATION", Message: "Recommendation pool is empty"}
)

// Error represents an insights error
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
