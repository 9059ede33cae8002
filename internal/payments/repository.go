package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Payment statuses.
const (
	StatusPending   = "pending"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ErrNotFound indicates the payment does not exist.
var ErrNotFound = errors.New("payments: not found")

// Payment records one checkout handed to a gateway for an appointment.
type Payment struct {
	ID            string    `json:"id"`
	ClinicID      string    `json:"clinic_id"`
	AppointmentID string    `json:"appointment_id"`
	AmountCents   int64     `json:"amount_cents"`
	Status        string    `json:"status"`
	ProviderID    string    `json:"provider_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// db is the pgx surface the repository needs.
type db interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository persists payment intents keyed to appointments.
type Repository struct {
	db db
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("payments: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(d db) *Repository {
	return &Repository{db: d}
}

// Create records a pending payment.
func (r *Repository) Create(ctx context.Context, p *Payment) error {
	p.ID = uuid.NewString()
	p.Status = StatusPending
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.Exec(ctx, `
		INSERT INTO payments (id, clinic_id, appointment_id, amount_cents, status, provider_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.ClinicID, p.AppointmentID, p.AmountCents, p.Status, p.ProviderID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("payments: insert: %w", err)
	}
	return nil
}

// GetByProviderID loads a payment by the gateway's reference.
func (r *Repository) GetByProviderID(ctx context.Context, providerID string) (*Payment, error) {
	var p Payment
	err := r.db.QueryRow(ctx, `
		SELECT id, clinic_id, appointment_id, amount_cents, status, provider_id, created_at, updated_at
		FROM payments WHERE provider_id = $1
	`, providerID).Scan(&p.ID, &p.ClinicID, &p.AppointmentID, &p.AmountCents, &p.Status,
		&p.ProviderID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("payments: load by provider id: %w", err)
	}
	return &p, nil
}

// MarkStatus updates a payment's status, returning false when the payment
// was already in that status (idempotent webhook replays).
func (r *Repository) MarkStatus(ctx context.Context, id, status string) (bool, error) {
	ct, err := r.db.Exec(ctx, `
		UPDATE payments SET status = $2, updated_at = now()
		WHERE id = $1 AND status <> $2
	`, id, status)
	if err != nil {
		return false, fmt.Errorf("payments: mark status: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}
