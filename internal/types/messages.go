package types

import "time"

// ProgressEvent is pushed to dashboard clients at each chunk boundary
type ProgressEvent struct {
	Type      string  `json:"type"` // "ingest_progress"
	RunID     string  `json:"runId"`
	Processed int     `json:"processed"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
}

// ReportSummaryEvent is a condensed report pushed to dashboard clients
// after a run completes or a periodic reclassification
type ReportSummaryEvent struct {
	Type          string          `json:"type"` // "report_summary"
	Timestamp     time.Time       `json:"timestamp"`
	TotalCalls    int             `json:"totalCalls"`
	Beneficiaries int             `json:"beneficiaries"`
	OnTrack       int             `json:"onTrack"`
	Pending       int             `json:"pending"`
	Urgent        int             `json:"urgent"`
	Alerts        []FollowUpAlert `json:"alerts,omitempty"`
}
