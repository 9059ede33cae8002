package doctors

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the doctor does not exist.
var ErrNotFound = errors.New("doctors: not found")

// querier is the pgx surface the repository needs.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides doctor persistence.
type Repository struct {
	db querier
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("doctors: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(db querier) *Repository {
	return &Repository{db: db}
}

// GetByID loads a single doctor.
func (r *Repository) GetByID(ctx context.Context, id string) (*Doctor, error) {
	var d Doctor
	err := r.db.QueryRow(ctx, `
		SELECT id, clinic_id, name, specialty, license_number, consultation_price_cents, photo_url, active, created_at
		FROM doctors WHERE id = $1
	`, id).Scan(&d.ID, &d.ClinicID, &d.Name, &d.Specialty, &d.LicenseNumber,
		&d.ConsultationPrice, &d.PhotoURL, &d.Active, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("doctors: load by id: %w", err)
	}
	return &d, nil
}

// ListByClinic returns the active doctors of a clinic ordered by name.
func (r *Repository) ListByClinic(ctx context.Context, clinicID string) ([]Doctor, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, clinic_id, name, specialty, license_number, consultation_price_cents, photo_url, active, created_at
		FROM doctors WHERE clinic_id = $1 AND active ORDER BY name
	`, clinicID)
	if err != nil {
		return nil, fmt.Errorf("doctors: list by clinic: %w", err)
	}
	defer rows.Close()

	var out []Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.ClinicID, &d.Name, &d.Specialty, &d.LicenseNumber,
			&d.ConsultationPrice, &d.PhotoURL, &d.Active, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("doctors: scan doctor: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("doctors: iterate doctors: %w", err)
	}
	return out, nil
}

// ListInsurancePlans returns the insurance plans a doctor accepts, with
// their negotiated prices. status filters by plan status when non-empty.
func (r *Repository) ListInsurancePlans(ctx context.Context, doctorID, status string) ([]InsurancePlan, error) {
	query := `
		SELECT hi.id, hi.name, di.consultation_price_cents, di.status
		FROM doctor_insurances di
		JOIN health_insurances hi ON hi.id = di.insurance_id
		WHERE di.doctor_id = $1`
	args := []any{doctorID}
	if status != "" {
		query += ` AND di.status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY hi.name`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("doctors: list insurance plans: %w", err)
	}
	defer rows.Close()

	var out []InsurancePlan
	for rows.Next() {
		var p InsurancePlan
		if err := rows.Scan(&p.ID, &p.Name, &p.ConsultationPrice, &p.Status); err != nil {
			return nil, fmt.Errorf("doctors: scan insurance plan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("doctors: iterate insurance plans: %w", err)
	}
	return out, nil
}

// GetInsurancePrice returns the negotiated price for one doctor/plan pair.
func (r *Repository) GetInsurancePrice(ctx context.Context, doctorID, insuranceID string) (int64, error) {
	var price int64
	err := r.db.QueryRow(ctx, `
		SELECT consultation_price_cents FROM doctor_insurances
		WHERE doctor_id = $1 AND insurance_id = $2 AND status = 'ACTIVE'
	`, doctorID, insuranceID).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("doctors: load insurance price: %w", err)
	}
	return price, nil
}
