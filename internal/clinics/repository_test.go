package clinics

import (
	"context"
	"errors"
	"testing"

	"github.com/clinigo/platform/internal/plans"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
)

// anyArgs builds n wildcard matchers; pgxmock requires the expected and
// actual argument counts to match even when the values are irrelevant.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestCreateWithAdmin(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO clinics`).
		WithArgs(anyArgs(14)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(anyArgs(6)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	repo := NewRepositoryWithDB(mock)
	clinic := &Clinic{
		Name: "Clínica Exemplo",
		Slug: "clinica-exemplo",
		Plan: plans.Basic,
		Address: Address{
			City:  "São Paulo",
			State: "SP",
		},
	}
	if err := repo.CreateWithAdmin(context.Background(), clinic, "admin@example.com", "Admin", "hash"); err != nil {
		t.Fatalf("CreateWithAdmin failed: %v", err)
	}
	if clinic.ID == "" {
		t.Error("expected clinic ID to be assigned")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateWithAdmin_SlugTaken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO clinics`).
		WithArgs(anyArgs(14)...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "clinics_slug_key"})
	mock.ExpectRollback()

	repo := NewRepositoryWithDB(mock)
	clinic := &Clinic{Name: "Clínica Exemplo", Slug: "clinica-exemplo", Plan: plans.Basic}
	err = repo.CreateWithAdmin(context.Background(), clinic, "admin@example.com", "Admin", "hash")
	if !errors.Is(err, ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}
}

func TestCreateWithAdmin_DuplicateTaxID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO clinics`).
		WithArgs(anyArgs(14)...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_clinics_tax_id"})
	mock.ExpectRollback()

	repo := NewRepositoryWithDB(mock)
	clinic := &Clinic{Name: "Clínica Exemplo", Slug: "clinica-nova", TaxID: "12.345.678/0001-90", Plan: plans.Basic}
	err = repo.CreateWithAdmin(context.Background(), clinic, "admin@example.com", "Admin", "hash")
	if !errors.Is(err, ErrTaxIDTaken) {
		t.Fatalf("expected ErrTaxIDTaken, got %v", err)
	}
	if errors.Is(err, ErrSlugTaken) {
		t.Fatal("tax id collision must not be reported as a slug conflict")
	}
}

func TestGetPlan(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT plan FROM clinics WHERE id = \$1`).
		WithArgs("clinic-1").
		WillReturnRows(pgxmock.NewRows([]string{"plan"}).AddRow("PROFESSIONAL"))

	repo := NewRepositoryWithDB(mock)
	plan, err := repo.GetPlan(context.Background(), "clinic-1")
	if err != nil {
		t.Fatalf("GetPlan failed: %v", err)
	}
	if plan != plans.Professional {
		t.Errorf("plan = %q, want %q", plan, plans.Professional)
	}
}
