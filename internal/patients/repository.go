package patients

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the patient does not exist.
var ErrNotFound = errors.New("patients: not found")

var nonDigits = regexp.MustCompile(`\D`)

// querier is the pgx surface the repository needs.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository provides patient persistence.
type Repository struct {
	db querier
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("patients: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(db querier) *Repository {
	return &Repository{db: db}
}

// Search looks patients up by name, phone or document within one clinic.
// A term that is all digits and document-length is tried as an exact
// document match first; those hits rank above partial name/phone matches.
func (r *Repository) Search(ctx context.Context, clinicID, term string) ([]Match, error) {
	digits := nonDigits.ReplaceAllString(term, "")

	var out []Match
	if len(digits) >= 11 {
		rows, err := r.db.Query(ctx, `
			SELECT id, clinic_id, name, document, phone, email, created_at
			FROM patients WHERE clinic_id = $1 AND document = $2
		`, clinicID, digits)
		if err != nil {
			return nil, fmt.Errorf("patients: search by document: %w", err)
		}
		exact, err := scanMatches(rows, "exact")
		if err != nil {
			return nil, err
		}
		out = append(out, exact...)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, clinic_id, name, document, phone, email, created_at
		FROM patients
		WHERE clinic_id = $1 AND (name ILIKE '%' || $2 || '%' OR phone ILIKE '%' || $2 || '%')
		ORDER BY name LIMIT 20
	`, clinicID, term)
	if err != nil {
		return nil, fmt.Errorf("patients: search by name: %w", err)
	}
	partial, err := scanMatches(rows, "partial")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(out))
	for _, m := range out {
		seen[m.ID] = struct{}{}
	}
	for _, m := range partial {
		if _, ok := seen[m.ID]; !ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func scanMatches(rows pgx.Rows, matchType string) ([]Match, error) {
	defer rows.Close()
	var out []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.ClinicID, &m.Name, &m.Document, &m.Phone, &m.Email, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("patients: scan match: %w", err)
		}
		m.MatchType = matchType
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("patients: iterate matches: %w", err)
	}
	return out, nil
}

// GetByID loads a single patient scoped to a clinic.
func (r *Repository) GetByID(ctx context.Context, clinicID, id string) (*Patient, error) {
	var p Patient
	err := r.db.QueryRow(ctx, `
		SELECT id, clinic_id, name, document, phone, email, created_at
		FROM patients WHERE clinic_id = $1 AND id = $2
	`, clinicID, id).Scan(&p.ID, &p.ClinicID, &p.Name, &p.Document, &p.Phone, &p.Email, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("patients: load by id: %w", err)
	}
	return &p, nil
}

// FindOrCreate returns an existing patient matched by document or phone,
// creating one when nothing matches. Used by public booking and quick
// registration, where the person typing is not staff.
func (r *Repository) FindOrCreate(ctx context.Context, p *Patient) (*Patient, error) {
	digits := nonDigits.ReplaceAllString(p.Document, "")

	var existing Patient
	err := r.db.QueryRow(ctx, `
		SELECT id, clinic_id, name, document, phone, email, created_at
		FROM patients
		WHERE clinic_id = $1 AND (($2 <> '' AND document = $2) OR ($3 <> '' AND phone = $3))
		LIMIT 1
	`, p.ClinicID, digits, p.Phone).Scan(&existing.ID, &existing.ClinicID, &existing.Name,
		&existing.Document, &existing.Phone, &existing.Email, &existing.CreatedAt)
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("patients: find existing: %w", err)
	}

	p.ID = uuid.NewString()
	p.Document = digits
	p.CreatedAt = time.Now().UTC()
	_, err = r.db.Exec(ctx, `
		INSERT INTO patients (id, clinic_id, name, document, phone, email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.ClinicID, p.Name, p.Document, p.Phone, p.Email, p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("patients: insert: %w", err)
	}
	return p, nil
}
