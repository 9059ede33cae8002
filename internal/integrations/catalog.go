// Package integrations manages per-clinic settings for third-party services,
// gated by the clinic's subscription tier.
package integrations

import "github.com/clinigo/platform/internal/plans"

// Integration describes one connectable third-party service.
type Integration struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	MinimumPlan plans.Plan `json:"minimum_plan"`
	// CredentialKeys lists the credential fields the service expects.
	// Values for these keys are masked when settings are read back.
	CredentialKeys []string `json:"credential_keys,omitempty"`
}

var catalog = []Integration{
	{
		ID:             "payment_gateway",
		Name:           "Payment gateway",
		Description:    "Online checkout for private appointments",
		MinimumPlan:    plans.Starter,
		CredentialKeys: []string{"api_key", "webhook_secret"},
	},
	{
		ID:             "email_sender",
		Name:           "Transactional email",
		Description:    "Confirmation and reminder emails",
		MinimumPlan:    plans.Basic,
		CredentialKeys: []string{"api_key"},
	},
	{
		ID:             "messaging_api",
		Name:           "SMS and WhatsApp",
		Description:    "Appointment reminders over SMS and WhatsApp",
		MinimumPlan:    plans.Professional,
		CredentialKeys: []string{"api_key", "sender_id"},
	},
	{
		ID:          "analytics",
		Name:        "Analytics",
		Description: "Booking funnel and attendance dashboards",
		MinimumPlan: plans.Professional,
	},
	{
		ID:             "crm_export",
		Name:           "CRM export",
		Description:    "Nightly patient and appointment export",
		MinimumPlan:    plans.Enterprise,
		CredentialKeys: []string{"api_key", "endpoint_url"},
	},
}

// Lookup finds an integration by ID.
func Lookup(id string) (Integration, bool) {
	for _, in := range catalog {
		if in.ID == id {
			return in, true
		}
	}
	return Integration{}, false
}

// Catalog returns all known integrations in display order.
func Catalog() []Integration {
	out := make([]Integration, len(catalog))
	copy(out, catalog)
	return out
}
