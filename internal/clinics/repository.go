package clinics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clinigo/platform/internal/plans"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSlugTaken indicates the requested slug is already registered.
var ErrSlugTaken = errors.New("clinics: slug already taken")

// ErrTaxIDTaken indicates another clinic already registered this tax id.
var ErrTaxIDTaken = errors.New("clinics: tax id already registered")

// ErrNotFound indicates the clinic does not exist.
var ErrNotFound = errors.New("clinics: not found")

// db is the pgx surface the repository needs; pgxpool.Pool satisfies it and
// mocks can be injected for tests.
type db interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository provides persistence for clinics and their admin users.
type Repository struct {
	db db
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("clinics: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting mocks for tests.
func NewRepositoryWithDB(d db) *Repository {
	return &Repository{db: d}
}

// CreateWithAdmin inserts the clinic and its admin user in one transaction.
// A slug collision surfaces as ErrSlugTaken, a duplicate tax id as
// ErrTaxIDTaken.
func (r *Repository) CreateWithAdmin(ctx context.Context, c *Clinic, adminEmail, adminName, passwordHash string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("clinics: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()

	_, err = tx.Exec(ctx, `
		INSERT INTO clinics (id, name, slug, tax_id, phone, plan,
			address_street, address_number, address_complement, address_district,
			address_city, address_state, address_zip, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, c.ID, c.Name, c.Slug, c.TaxID, c.Phone, string(c.Plan),
		c.Address.Street, c.Address.Number, c.Address.Complement, c.Address.District,
		c.Address.City, c.Address.State, c.Address.ZipCode, c.CreatedAt)
	if err != nil {
		// Both slug and tax_id carry unique indexes; report the one that
		// actually collided.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if strings.Contains(pgErr.ConstraintName, "tax_id") {
				return ErrTaxIDTaken
			}
			return ErrSlugTaken
		}
		return fmt.Errorf("clinics: insert clinic: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO users (id, clinic_id, email, name, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5, 'admin', $6)
	`, uuid.NewString(), c.ID, adminEmail, adminName, passwordHash, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("clinics: admin email already registered: %w", err)
		}
		return fmt.Errorf("clinics: insert admin: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("clinics: commit: %w", err)
	}
	return nil
}

// GetBySlug loads the public clinic projection for a booking page.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*Clinic, error) {
	var c Clinic
	var plan string
	err := r.db.QueryRow(ctx, `
		SELECT id, name, slug, phone, plan,
			address_street, address_number, address_city, address_state, address_zip, created_at
		FROM clinics WHERE slug = $1
	`, slug).Scan(&c.ID, &c.Name, &c.Slug, &c.Phone, &plan,
		&c.Address.Street, &c.Address.Number, &c.Address.City, &c.Address.State, &c.Address.ZipCode, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("clinics: load by slug: %w", err)
	}
	c.Plan = plans.Plan(plan)
	return &c, nil
}

// GetPlan returns the subscription tier for a clinic id.
func (r *Repository) GetPlan(ctx context.Context, clinicID string) (plans.Plan, error) {
	var plan string
	err := r.db.QueryRow(ctx, `SELECT plan FROM clinics WHERE id = $1`, clinicID).Scan(&plan)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("clinics: load plan: %w", err)
	}
	return plans.Plan(plan), nil
}

// GetName returns the display name for a clinic id.
func (r *Repository) GetName(ctx context.Context, clinicID string) (string, error) {
	var name string
	err := r.db.QueryRow(ctx, `SELECT name FROM clinics WHERE id = $1`, clinicID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("clinics: load name: %w", err)
	}
	return name, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
