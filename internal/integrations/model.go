package integrations

import "time"

// ProviderType identifies which third-party system a credential belongs to.
type ProviderType string

const (
	ProviderGoHighLevel ProviderType = "gohighlevel"
	ProviderClose       ProviderType = "close"
	ProviderHubSpot     ProviderType = "hubspot"
	ProviderRetellAI    ProviderType = "retell_ai"
)

// Valid reports whether t is a known provider type.
func (t ProviderType) Valid() bool {
	switch t {
	case ProviderGoHighLevel, ProviderClose, ProviderHubSpot, ProviderRetellAI:
		return true
	}
	return false
}

// Credential is one encrypted secret per (organization, provider type).
type Credential struct {
	ID             string       `json:"id"`
	OrganizationID string       `json:"organization_id"`
	Type           ProviderType `json:"type"`
	EncryptedKey   string       `json:"-"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Metadata is the secret-free view returned by the API.
type Metadata struct {
	Type      ProviderType `json:"type"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
