package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clinigo/platform/internal/events"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// db is the pgx surface the repository needs.
type db interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists appointments and their outbox events atomically.
type Repository struct {
	db db
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(d db) *Repository {
	return &Repository{db: d}
}

const selectColumns = `id, clinic_id, doctor_id, patient_id, appointment_date, appointment_time,
	duration_minutes, type, status, payment_type, health_insurance_id, insurance_card_number,
	price_cents, price_pending, cancellation_reason, ignore_schedule_constraints,
	constraint_justification, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.ClinicID, &a.DoctorID, &a.PatientID, &a.Date, &a.Time,
		&a.DurationMinutes, &a.Type, &a.Status, &a.PaymentType, &a.InsuranceID, &a.InsuranceCardNumber,
		&a.PriceCents, &a.PricePending, &a.CancellationReason, &a.IgnoreConstraints,
		&a.ConstraintNote, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: scan: %w", err)
	}
	return &a, nil
}

// Create inserts the appointment and its outbox event in one transaction.
// A doctor/date/time collision on the unique slot index surfaces as
// ErrSlotTaken.
func (r *Repository) Create(ctx context.Context, a *Appointment, eventType string, payload events.AppointmentPayload) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("appointments: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err = tx.Exec(ctx, `
		INSERT INTO appointments (id, clinic_id, doctor_id, patient_id, appointment_date, appointment_time,
			duration_minutes, type, status, payment_type, health_insurance_id, insurance_card_number,
			price_cents, price_pending, cancellation_reason, ignore_schedule_constraints,
			constraint_justification, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`, a.ID, a.ClinicID, a.DoctorID, a.PatientID, a.Date, a.Time,
		a.DurationMinutes, a.Type, a.Status, a.PaymentType, a.InsuranceID, a.InsuranceCardNumber,
		a.PriceCents, a.PricePending, a.CancellationReason, a.IgnoreConstraints,
		a.ConstraintNote, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("appointments: insert: %w", err)
	}

	payload.AppointmentID = a.ID
	if _, err := events.InsertTx(ctx, tx, a.ClinicID, eventType, payload); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("appointments: commit: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields and records an outbox event.
func (r *Repository) Update(ctx context.Context, a *Appointment, eventType string, payload events.AppointmentPayload) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("appointments: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	a.UpdatedAt = time.Now().UTC()
	ct, err := tx.Exec(ctx, `
		UPDATE appointments SET doctor_id = $2, patient_id = $3, appointment_date = $4,
			appointment_time = $5, duration_minutes = $6, type = $7, status = $8,
			payment_type = $9, health_insurance_id = $10, insurance_card_number = $11,
			price_cents = $12, price_pending = $13, cancellation_reason = $14,
			ignore_schedule_constraints = $15, constraint_justification = $16, updated_at = $17
		WHERE id = $1
	`, a.ID, a.DoctorID, a.PatientID, a.Date, a.Time, a.DurationMinutes, a.Type, a.Status,
		a.PaymentType, a.InsuranceID, a.InsuranceCardNumber, a.PriceCents, a.PricePending,
		a.CancellationReason, a.IgnoreConstraints, a.ConstraintNote, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("appointments: update: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}

	payload.AppointmentID = a.ID
	if _, err := events.InsertTx(ctx, tx, a.ClinicID, eventType, payload); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("appointments: commit: %w", err)
	}
	return nil
}

// GetByID loads an appointment scoped to a clinic.
func (r *Repository) GetByID(ctx context.Context, clinicID, id string) (*Appointment, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM appointments WHERE clinic_id = $1 AND id = $2`,
		clinicID, id)
	return scanAppointment(row)
}

// ListRange returns the agenda for a visible date range, optionally
// filtered by doctor.
func (r *Repository) ListRange(ctx context.Context, clinicID, doctorID, from, to string) ([]Appointment, error) {
	query := `SELECT ` + selectColumns + ` FROM appointments
		WHERE clinic_id = $1 AND appointment_date >= $2 AND appointment_date <= $3`
	args := []any{clinicID, from, to}
	if doctorID != "" {
		query += ` AND doctor_id = $4`
		args = append(args, doctorID)
	}
	query += ` ORDER BY appointment_date, appointment_time`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list range: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate: %w", err)
	}
	return out, nil
}

// ConfirmByID flips an awaiting_payment appointment to confirmed. Used by
// the payment webhook.
func (r *Repository) ConfirmByID(ctx context.Context, clinicID, id string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("appointments: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
		UPDATE appointments SET status = $3, updated_at = now()
		WHERE clinic_id = $1 AND id = $2 AND status = $4
	`, clinicID, id, StatusConfirmed, StatusAwaitingPayment)
	if err != nil {
		return fmt.Errorf("appointments: confirm: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := events.InsertTx(ctx, tx, clinicID, events.AppointmentConfirmed,
		events.AppointmentPayload{AppointmentID: id, Status: StatusConfirmed}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("appointments: commit: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
