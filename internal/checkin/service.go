package checkin

import (
	"context"
	"errors"
	"strings"

	"github.com/clinigo/platform/internal/documents"
	"github.com/clinigo/platform/internal/queue"
	"github.com/clinigo/platform/pkg/logging"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("clinigo.internal.checkin")

// Validation errors.
var (
	ErrMissingPatient = errors.New("checkin: patient_id is required")
	ErrMissingDoctor  = errors.New("checkin: doctor_id is required")
	ErrConsentNeeded  = errors.New("checkin: consent is required")
)

// UploadedFile is one document sent with the pre-check-in bundle.
type UploadedFile struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// PreCheckinRequest bundles everything the patient fills ahead of a visit.
type PreCheckinRequest struct {
	ClinicID      string `json:"clinic_id"`
	PatientID     string `json:"patient_id"`
	PatientName   string `json:"patient_name"`
	DoctorID      string `json:"doctor_id"`
	AppointmentID string `json:"appointment_id,omitempty"`
	Priority      string `json:"priority,omitempty"`

	Demographics map[string]string `json:"demographics,omitempty"`
	Health       map[string]string `json:"health,omitempty"`
	Consent      bool              `json:"consent"`

	Files []UploadedFile `json:"files,omitempty"`
}

// PreCheckinResult carries the QR handoff plus any non-fatal warnings.
type PreCheckinResult struct {
	QRToken   string               `json:"qr_token"`
	QRData    string               `json:"qr_data"`
	Documents []documents.Document `json:"documents,omitempty"`
	Warnings  []string             `json:"warnings,omitempty"`
}

// queueCheckIn is the slice of the queue service the scan flow needs.
type queueCheckIn interface {
	CheckIn(ctx context.Context, e *queue.Entry) error
}

// Service runs pre-check-in and the front desk QR scan.
type Service struct {
	issuer *TokenIssuer
	docs   *documents.Store
	queue  queueCheckIn
	logger *logging.Logger
}

// NewService creates the check-in service. docs may be a disabled store.
func NewService(issuer *TokenIssuer, docs *documents.Store, q queueCheckIn, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{issuer: issuer, docs: docs, queue: q, logger: logger}
}

// PreCheckin validates the bundle, stores documents where possible and
// issues the QR token. Missing document storage degrades to a warning so
// the patient can still check in.
func (s *Service) PreCheckin(ctx context.Context, req *PreCheckinRequest) (*PreCheckinResult, error) {
	ctx, span := tracer.Start(ctx, "checkin.pre_checkin")
	defer span.End()

	if strings.TrimSpace(req.PatientID) == "" {
		return nil, ErrMissingPatient
	}
	if strings.TrimSpace(req.DoctorID) == "" {
		return nil, ErrMissingDoctor
	}
	if !req.Consent {
		return nil, ErrConsentNeeded
	}

	result := &PreCheckinResult{}

	for _, f := range req.Files {
		doc, err := s.docs.Upload(ctx, req.ClinicID, req.PatientID, f.FileName, f.ContentType, f.Data)
		switch {
		case err == nil:
			result.Documents = append(result.Documents, *doc)
		case errors.Is(err, documents.ErrNotEnabled):
			result.Warnings = append(result.Warnings, "document storage is not configured, files were skipped")
			s.logger.Warn("pre-checkin without document storage", "clinic_id", req.ClinicID)
		case errors.Is(err, documents.ErrTooLarge), errors.Is(err, documents.ErrBadMIMEType):
			return nil, err
		default:
			return nil, err
		}
		if errors.Is(err, documents.ErrNotEnabled) {
			break
		}
	}

	token, err := s.issuer.Issue(QRClaims{
		ClinicID:      req.ClinicID,
		PatientID:     req.PatientID,
		DoctorID:      req.DoctorID,
		AppointmentID: req.AppointmentID,
		Priority:      req.Priority,
	})
	if err != nil {
		return nil, err
	}
	result.QRToken = token
	result.QRData = "clinigo://checkin?token=" + token

	s.logger.Info("pre-checkin completed", "patient_id", req.PatientID, "doctor_id", req.DoctorID,
		"documents", len(result.Documents))
	return result, nil
}

// Scan verifies a QR token at the front desk and checks the patient into
// the doctor's queue.
func (s *Service) Scan(ctx context.Context, clinicID, rawToken, patientName string) (*queue.Entry, error) {
	ctx, span := tracer.Start(ctx, "checkin.scan")
	defer span.End()

	claims, err := s.issuer.Verify(rawToken)
	if err != nil {
		return nil, err
	}
	if claims.ClinicID != clinicID {
		return nil, ErrTokenInvalid
	}

	entry := &queue.Entry{
		ClinicID:      claims.ClinicID,
		DoctorID:      claims.DoctorID,
		AppointmentID: claims.AppointmentID,
		PatientID:     claims.PatientID,
		PatientName:   patientName,
		Priority:      claims.Priority,
	}
	if err := s.queue.CheckIn(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("patient checked in via qr", "patient_id", claims.PatientID, "doctor_id", claims.DoctorID)
	return entry, nil
}
