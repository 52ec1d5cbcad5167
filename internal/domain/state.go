package domain

import "time"

// MonitoringStatus is the detector lifecycle flag published in the snapshot.
type MonitoringStatus string

const (
	StatusRunning MonitoringStatus = "running"
	StatusStopped MonitoringStatus = "stopped"
)

// ReportState is the shared snapshot written by the detector. Opportunities
// holds only the most recent window; TotalOpportunitiesFound counts every
// accepted opportunity since the detector started.
type ReportState struct {
	LastUpdate              time.Time        `json:"last_update"`
	Opportunities           []Opportunity    `json:"opportunities"`
	TotalOpportunitiesFound int              `json:"total_opportunities_found"`
	LastSummaryTime         *time.Time       `json:"last_summary_time"`
	MonitoringStatus        MonitoringStatus `json:"monitoring_status"`
	StartupMessage          string           `json:"startup_message,omitempty"`
	SummaryMessage          string           `json:"summary_message,omitempty"`
}

// Cursor is the notifier's record of what it has already delivered.
// LogPosition is only used by event-log transports and is opaque to the
// consumer.
type Cursor struct {
	LastOpportunityCount int        `json:"last_opportunity_count"`
	StartupSent          bool       `json:"startup_sent"`
	LastSummaryTime      *time.Time `json:"last_summary_time"`
	LogPosition          string     `json:"log_position,omitempty"`
}

// SameTime compares two optional instants.
func SameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
