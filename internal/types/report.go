package types

import "time"

// CallSnapshot is the persistence-friendly shape of a folded call.
// Timestamps are RFC3339 strings so the snapshot survives any
// JSON/DynamoDB round trip without type loss.
type CallSnapshot struct {
	ID           string `json:"id,omitempty" dynamodbav:"ID"`
	Date         string `json:"date" dynamodbav:"Date"` // RFC3339
	TimeOfDay    string `json:"timeOfDay,omitempty" dynamodbav:"TimeOfDay"`
	Direction    string `json:"direction" dynamodbav:"Direction"`
	Phone        string `json:"phone,omitempty" dynamodbav:"Phone"`
	DurationSecs int    `json:"durationSecs" dynamodbav:"DurationSecs"`
	Outcome      string `json:"outcome,omitempty" dynamodbav:"Outcome"`
	Operator     string `json:"operator" dynamodbav:"Operator"`
	Commune      string `json:"commune,omitempty" dynamodbav:"Commune"`
	Successful   bool   `json:"successful" dynamodbav:"Successful"`
}

// OperatorSnapshot is a per-operator sub-aggregate in plain shape
type OperatorSnapshot struct {
	Calls         int      `json:"calls" dynamodbav:"Calls"`
	DurationSecs  int      `json:"durationSecs" dynamodbav:"DurationSecs"`
	Successful    int      `json:"successful" dynamodbav:"Successful"`
	Beneficiaries []string `json:"beneficiaries" dynamodbav:"Beneficiaries"`
	ActiveDays    []string `json:"activeDays" dynamodbav:"ActiveDays"` // YYYY-MM-DD
}

// ReportSnapshot is the serialized form of a full aggregation run.
// Sets become sorted arrays and maps become string-keyed objects so
// the report can be persisted and reloaded without loss.
type ReportSnapshot struct {
	RunID            string    `json:"runId" dynamodbav:"RunID"`
	GeneratedAt      time.Time `json:"generatedAt" dynamodbav:"GeneratedAt"`
	TotalCalls       int       `json:"totalCalls" dynamodbav:"TotalCalls"`
	Inbound          int       `json:"inbound" dynamodbav:"Inbound"`
	Outbound         int       `json:"outbound" dynamodbav:"Outbound"`
	TotalDurationSec int       `json:"totalDurationSecs" dynamodbav:"TotalDurationSecs"`
	AvgDurationSecs  float64   `json:"avgDurationSecs" dynamodbav:"AvgDurationSecs"`
	ProcessedRows    int       `json:"processedRows" dynamodbav:"ProcessedRows"`
	SkippedRows      int       `json:"skippedRows" dynamodbav:"SkippedRows"`
	CoveragePct      float64   `json:"coveragePct" dynamodbav:"CoveragePct"`

	Beneficiaries []string `json:"beneficiaries" dynamodbav:"Beneficiaries"`
	OnTrack       []string `json:"onTrack" dynamodbav:"OnTrack"`
	Pending       []string `json:"pending" dynamodbav:"Pending"`
	Urgent        []string `json:"urgent" dynamodbav:"Urgent"`

	Communes      map[string][]string         `json:"communes" dynamodbav:"Communes"`
	HourHistogram map[string]int              `json:"hourHistogram" dynamodbav:"HourHistogram"`
	Operators     map[string]OperatorSnapshot `json:"operators" dynamodbav:"Operators"`

	CallsByBeneficiary map[string][]CallSnapshot `json:"callsByBeneficiary" dynamodbav:"CallsByBeneficiary"`
	LastSuccessful     map[string]CallSnapshot   `json:"lastSuccessful" dynamodbav:"LastSuccessful"`

	// SeenRecordIDs carries the dedup set across runs so re-uploading
	// a file into a reloaded aggregate stays idempotent.
	SeenRecordIDs []string `json:"seenRecordIds" dynamodbav:"SeenRecordIDs"`
}
