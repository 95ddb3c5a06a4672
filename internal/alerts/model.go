package alerts

import "time"

// Severity classifies how urgent an alert is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is an append-only audit record of a pipeline failure or
// operator-facing event. Rows are never updated or deleted.
type Alert struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	LeadID         *string   `json:"leadId,omitempty"`
	Kind           string    `json:"kind"`
	Severity       Severity  `json:"severity"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Well-known alert kinds written by the dispatch pipeline.
const (
	KindAICallFailed      = "ai_call_failed"
	KindCredentialMissing = "credential_missing"
	KindQueueFailure      = "queue_failure"
)
