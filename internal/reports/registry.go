package reports

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/savegress/melawatch/internal/config"
	"github.com/savegress/melawatch/pkg/models"
)

// Registry manages citizen-submitted issue reports in memory.
type Registry struct {
	config  *config.ReportsConfig
	reports map[string]*models.IssueReport
	mu      sync.RWMutex
}

// NewRegistry creates a new report registry
func NewRegistry(cfg *config.ReportsConfig) *Registry {
	return &Registry{
		config:  cfg,
		reports: make(map[string]*models.IssueReport),
	}
}

// Submit records a new report. Emergency reports are always critical.
func (r *Registry) Submit(report *models.IssueReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	open := 0
	for _, existing := range r.reports {
		if existing.Status == models.ReportStatusOpen {
			open++
		}
	}
	if open >= r.config.MaxOpenReports {
		return ErrTooManyOpenReports
	}

	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.Severity == "" {
		report.Severity = models.PriorityMedium
	}
	if report.Category == models.ReportCategoryEmergency {
		report.Severity = models.PriorityCritical
	}
	report.Status = models.ReportStatusOpen
	report.CreatedAt = time.Now()

	r.reports[report.ID] = report
	return nil
}

// Get retrieves a report by ID
func (r *Registry) Get(id string) (models.IssueReport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	report, ok := r.reports[id]
	if !ok {
		return models.IssueReport{}, false
	}
	return cloneReport(report), true
}

// cloneReport copies a report, detaching its timestamp pointers from
// internal state.
func cloneReport(r *models.IssueReport) models.IssueReport {
	c := *r
	if r.AckedAt != nil {
		t := *r.AckedAt
		c.AckedAt = &t
	}
	if r.ResolvedAt != nil {
		t := *r.ResolvedAt
		c.ResolvedAt = &t
	}
	return c
}

// ReportFilter defines filters for report queries
type ReportFilter struct {
	Category models.ReportCategory
	Status   models.ReportStatus
	Severity models.Priority
}

// List lists reports matching the filter
func (r *Registry) List(filter ReportFilter) []models.IssueReport {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []models.IssueReport
	for _, report := range r.reports {
		if filter.Category != "" && report.Category != filter.Category {
			continue
		}
		if filter.Status != "" && report.Status != filter.Status {
			continue
		}
		if filter.Severity != "" && report.Severity != filter.Severity {
			continue
		}
		results = append(results, cloneReport(report))
	}
	return results
}

// Acknowledge marks a report as acknowledged
func (r *Registry) Acknowledge(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	report, ok := r.reports[id]
	if !ok {
		return ErrReportNotFound
	}

	now := time.Now()
	report.Status = models.ReportStatusAcknowledged
	report.AckedAt = &now
	return nil
}

// Resolve marks a report as resolved
func (r *Registry) Resolve(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	report, ok := r.reports[id]
	if !ok {
		return ErrReportNotFound
	}

	now := time.Now()
	report.Status = models.ReportStatusResolved
	report.ResolvedAt = &now
	return nil
}

// Stats returns report counts by category and status
func (r *Registry) Stats() *ReportStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &ReportStats{
		Total:      len(r.reports),
		ByCategory: make(map[string]int),
		ByStatus:   make(map[string]int),
	}
	for _, report := range r.reports {
		stats.ByCategory[string(report.Category)]++
		stats.ByStatus[string(report.Status)]++
		if report.Status == models.ReportStatusOpen {
			stats.Open++
		}
	}
	return stats
}

// ReportStats contains report statistics
type ReportStats struct {
	Total      int            `json:"total"`
	Open       int            `json:"open"`
	ByCategory map[string]int `json:"by_category"`
	ByStatus   map[string]int `json:"by_status"`
}

// Errors
var (
	ErrReportNotFound     = &Error{Code: "REPORT_NOT_FOUND", Message: "Report not found"}
	ErrTooManyOpenReports = &Error{Code: "TOO_MANY_OPEN_REPORTS", Message: "Maximum number of open reports reached"}
)

// Error represents a report registry error
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
