// Package booking implements the public booking flow: price computation,
// patient-if-new creation and the gateway handoff.
package booking

import (
	"context"
	"fmt"

	"github.com/clinigo/platform/internal/appointments"
	"github.com/clinigo/platform/internal/doctors"
)

// priceSource is the slice of the doctors repository the pricer needs.
type priceSource interface {
	GetByID(ctx context.Context, id string) (*doctors.Doctor, error)
	GetInsurancePrice(ctx context.Context, doctorID, insuranceID string) (int64, error)
}

// Pricer computes the authoritative consultation price. The client shows
// prices too, but this is the value that gets persisted and charged:
// PRIVATE uses the doctor's own price, insurance with a chosen plan uses
// that plan's negotiated price, and insurance without a plan is zero with
// the pending flag ("consult for pricing").
type Pricer struct {
	doctors priceSource
}

func NewPricer(src priceSource) *Pricer {
	return &Pricer{doctors: src}
}

// Quote implements the appointments.PriceQuoter contract.
func (p *Pricer) Quote(ctx context.Context, doctorID, paymentType, insuranceID string) (int64, bool, error) {
	switch paymentType {
	case appointments.PaymentInsurance:
		if insuranceID == "" {
			return 0, true, nil
		}
		cents, err := p.doctors.GetInsurancePrice(ctx, doctorID, insuranceID)
		if err != nil {
			return 0, false, fmt.Errorf("booking: insurance price: %w", err)
		}
		return cents, false, nil
	case appointments.PaymentPrivate, "":
		doctor, err := p.doctors.GetByID(ctx, doctorID)
		if err != nil {
			return 0, false, fmt.Errorf("booking: doctor price: %w", err)
		}
		return doctor.ConsultationPrice, false, nil
	default:
		return 0, false, fmt.Errorf("booking: unknown payment type %q", paymentType)
	}
}
