package leads

import "time"

// Status is the closed set of lead states. A lead leaves pending at most once
// through this pipeline; ai_triggered and ai_failed are terminal here, and
// called_by_human is set by the human-driven workflow outside this service.
type Status string

const (
	StatusPending       Status = "pending"
	StatusCalledByHuman Status = "called_by_human"
	StatusAITriggered   Status = "ai_triggered"
	StatusAIFailed      Status = "ai_failed"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCalledByHuman, StatusAITriggered, StatusAIFailed:
		return true
	}
	return false
}

// Terminal reports whether the pipeline must skip a lead in this status.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// Lead represents one inbound sales lead.
type Lead struct {
	ID                 string     `json:"id"`
	OrganizationID     string     `json:"organization_id"`
	CRMID              *string    `json:"crm_id,omitempty"`
	Name               string     `json:"name"`
	Phone              string     `json:"phone"`
	Email              *string    `json:"email,omitempty"`
	Status             Status     `json:"status"`
	ReceivedAt         time.Time  `json:"received_at"`
	AICallTriggeredAt  *time.Time `json:"ai_call_triggered_at,omitempty"`
	SpeedToLeadMinutes *int       `json:"speed_to_lead_minutes,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// DueLead is an evaluator result: a pending lead whose elapsed time has
// crossed its organization's threshold.
type DueLead struct {
	LeadID         string
	OrganizationID string
	ReceivedAt     time.Time
	ThresholdMins  int
}

// WebhookPayload is the CRM-facing lead creation body.
type WebhookPayload struct {
	Name           string `json:"name" validate:"required,min=1,max=500"`
	Phone          string `json:"phone" validate:"required,min=10,max=20"`
	Email          string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	CRMID          string `json:"crmId,omitempty" validate:"omitempty,max=255"`
	OrganizationID string `json:"organizationId" validate:"required,uuid"`
}
