package tenancy

import (
	"context"
	"testing"
)

func TestClinicIDRoundTrip(t *testing.T) {
	ctx := WithClinicID(context.Background(), "clinic-123")
	got, ok := ClinicIDFromContext(ctx)
	if !ok || got != "clinic-123" {
		t.Fatalf("expected clinic-123, got %q ok=%v", got, ok)
	}
}

func TestClinicIDMissing(t *testing.T) {
	if _, ok := ClinicIDFromContext(context.Background()); ok {
		t.Fatal("expected no clinic id in empty context")
	}
}

func TestEmptyClinicIDNotOK(t *testing.T) {
	ctx := WithClinicID(context.Background(), "")
	if _, ok := ClinicIDFromContext(ctx); ok {
		t.Fatal("empty clinic id should not be treated as present")
	}
}

func TestUserIDRoundTrip(t *testing.T) {
	ctx := WithUserID(context.Background(), "user-9")
	got, ok := UserIDFromContext(ctx)
	if !ok || got != "user-9" {
		t.Fatalf("expected user-9, got %q ok=%v", got, ok)
	}
}
