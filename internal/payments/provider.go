// Package payments handles the checkout handoff to external gateways and
// the webhook that confirms paid appointments.
package payments

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/clinigo/platform/pkg/logging"
)

// CheckoutParams describes a payment to be collected for an appointment.
type CheckoutParams struct {
	AppointmentID string
	ClinicID      string
	AmountCents   int64
	PatientName   string
	Description   string
}

// CheckoutResponse carries the gateway handoff URL.
type CheckoutResponse struct {
	URL        string
	ProviderID string
}

// Provider produces checkout URLs. Implementations wrap a real gateway or
// the fake dev provider.
type Provider interface {
	CreateCheckout(ctx context.Context, params CheckoutParams) (*CheckoutResponse, error)
}

// FakeProvider is a dev/demo checkout provider that generates an internal
// URL and lets the user "complete" the payment without gateway credentials.
//
// This MUST be gated by configuration and should never be enabled in
// production.
type FakeProvider struct {
	publicBaseURL string
	logger        *logging.Logger
}

func NewFakeProvider(publicBaseURL string, logger *logging.Logger) *FakeProvider {
	if logger == nil {
		logger = logging.Default()
	}
	return &FakeProvider{
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
		logger:        logger,
	}
}

func (p *FakeProvider) CreateCheckout(ctx context.Context, params CheckoutParams) (*CheckoutResponse, error) {
	_ = ctx
	if params.AppointmentID == "" {
		return nil, fmt.Errorf("payments: fake checkout requires appointment id")
	}
	if p.publicBaseURL == "" {
		return nil, fmt.Errorf("payments: fake checkout requires PUBLIC_BASE_URL")
	}
	if !isValidBaseURL(p.publicBaseURL) {
		return nil, fmt.Errorf("payments: fake checkout PUBLIC_BASE_URL must be an absolute http(s) URL")
	}

	checkoutURL := fmt.Sprintf("%s/payments/fake/%s", p.publicBaseURL, params.AppointmentID)
	p.logger.Info("fake checkout created", "appointment_id", params.AppointmentID, "amount_cents", params.AmountCents)
	return &CheckoutResponse{
		URL:        checkoutURL,
		ProviderID: "fake:" + params.AppointmentID,
	}, nil
}

func isValidBaseURL(value string) bool {
	parsed, err := url.Parse(value)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return false
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		return true
	default:
		return false
	}
}
