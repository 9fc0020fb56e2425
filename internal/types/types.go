package types

import "time"

// CallDirection classifies a call as inbound or outbound
type CallDirection string

const (
	DirectionInbound  CallDirection = "inbound"
	DirectionOutbound CallDirection = "outbound"
)

// OperatorUnidentified is the pseudo-operator bucket for calls that
// could not be matched to any assignment. Unmatched calls are still
// counted under this bucket instead of being dropped.
const OperatorUnidentified = "No identificada"

// FollowUpStatus is the three-state follow-up classification of a beneficiary
type FollowUpStatus string

const (
	StatusOK      FollowUpStatus = "al-dia"    // successful call within the last 15 days
	StatusWarning FollowUpStatus = "pendiente" // has activity, but no qualifying recent success
	StatusDanger  FollowUpStatus = "urgente"   // no call in 30 days, or no success ever
)

// CallRecord is one observed call event, created transiently per
// ingested row and discarded once folded into the aggregate.
type CallRecord struct {
	ID             string        `json:"id"`
	Timestamp      time.Time     `json:"timestamp"`
	TimeOfDay      string        `json:"timeOfDay,omitempty"` // HH:MM, empty when unknown
	BeneficiaryRaw string        `json:"beneficiaryRaw"`
	Beneficiary    string        `json:"beneficiary"` // normalized dedup key
	Commune        string        `json:"commune"`
	Direction      CallDirection `json:"direction"`
	Phone          string        `json:"phone"`
	DurationSecs   int           `json:"durationSecs"`
	Outcome        string        `json:"outcome"`
	Notes          string        `json:"notes,omitempty"`
	Operator       string        `json:"operator"`
	Successful     bool          `json:"successful"`
}

// Assignment binds a beneficiary to a teleoperator
type Assignment struct {
	ID          string    `json:"id" dynamodbav:"ID"`
	Beneficiary string    `json:"beneficiary" dynamodbav:"Beneficiary"` // raw name
	Phones      []string  `json:"phones" dynamodbav:"Phones"`
	Operator    string    `json:"operator" dynamodbav:"Operator"`
	Commune     string    `json:"commune,omitempty" dynamodbav:"Commune"`
	CreatedAt   time.Time `json:"createdAt" dynamodbav:"CreatedAt"`
}

// FollowUpAlert flags a beneficiary whose follow-up is overdue
type FollowUpAlert struct {
	Beneficiary string         `json:"beneficiary"`
	Status      FollowUpStatus `json:"status"`
	Severity    AlertSeverity  `json:"severity"`
	Message     string         `json:"message"`
}

// AlertSeverity levels for follow-up alerts
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)
