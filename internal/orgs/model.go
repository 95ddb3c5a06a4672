package orgs

import "time"

// Default threshold applied when an organization has none configured.
const DefaultThresholdMinutes = 5

// Threshold bounds accepted from operators.
const (
	MinThresholdMinutes = 1
	MaxThresholdMinutes = 60
)

// Organization is the tenant boundary for leads and credentials.
type Organization struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	SubscriptionStatus string    `json:"subscription_status"`
	SpeedToLeadMinutes *int      `json:"speed_to_lead_minutes,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ThresholdMinutes returns the configured threshold or the default.
func (o *Organization) ThresholdMinutes() int {
	if o.SpeedToLeadMinutes == nil || *o.SpeedToLeadMinutes <= 0 {
		return DefaultThresholdMinutes
	}
	return *o.SpeedToLeadMinutes
}
