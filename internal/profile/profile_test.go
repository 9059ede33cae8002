package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/clinigo/platform/internal/documents"
	"github.com/clinigo/platform/internal/tenancy"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

func userRequest(method, target string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	ctx := tenancy.WithUserID(req.Context(), "user-1")
	ctx = tenancy.WithClinicID(ctx, "clinic-1")
	return req.WithContext(ctx)
}

func TestGetProfile(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT id, clinic_id, name, email`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "clinic_id", "name", "email", "phone", "role", "avatar_key", "created_at", "updated_at"}).
			AddRow("user-1", "clinic-1", "Dra. Ana", "ana@clinica.com", "+5511999999999", "admin", "", now, now))

	repo := NewRepository(db)
	p, err := repo.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if p.Name != "Dra. Ana" || p.ClinicID != "clinic-1" {
		t.Errorf("unexpected profile: %+v", p)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestNotificationChannelsRoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE users SET notification_channels`).
		WithArgs("user-1", pq.Array([]string{ChannelEmail, ChannelWhatsApp}), true, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewRepository(db)
	err = repo.UpdateNotifications(context.Background(), "user-1", &NotificationSettings{
		Channels:         []string{ChannelEmail, ChannelWhatsApp},
		RemindersEnabled: true,
	})
	if err != nil {
		t.Fatalf("UpdateNotifications failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUpdateNotificationsRejectsUnknownChannel(t *testing.T) {
	handler := NewHandler(nil, nil, nil)

	body, _ := json.Marshal(NotificationSettings{Channels: []string{"pigeon"}})
	rec := httptest.NewRecorder()
	handler.UpdateNotifications(rec, userRequest(http.MethodPatch, "/api/profile/notifications", body))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPasswordChangeRequiresCurrentPassword(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	defer db.Close()

	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	mock.ExpectQuery(`SELECT password_hash FROM users`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"password_hash"}).AddRow(string(hash)))

	handler := NewHandler(NewRepository(db), nil, nil)
	body, _ := json.Marshal(passwordRequest{CurrentPassword: "wrong", NewPassword: "new-password-1"})
	rec := httptest.NewRecorder()
	handler.UpdatePassword(rec, userRequest(http.MethodPatch, "/api/profile/password", body))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPasswordChangeSucceeds(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	defer db.Close()

	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	mock.ExpectQuery(`SELECT password_hash FROM users`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"password_hash"}).AddRow(string(hash)))
	mock.ExpectExec(`UPDATE users SET password_hash`).
		WithArgs("user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	handler := NewHandler(NewRepository(db), nil, nil)
	body, _ := json.Marshal(passwordRequest{CurrentPassword: "correct-horse", NewPassword: "new-password-1"})
	rec := httptest.NewRecorder()
	handler.UpdatePassword(rec, userRequest(http.MethodPatch, "/api/profile/password", body))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204: %s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestShortNewPasswordRejected(t *testing.T) {
	handler := NewHandler(nil, nil, nil)
	body, _ := json.Marshal(passwordRequest{CurrentPassword: "x", NewPassword: "short"})
	rec := httptest.NewRecorder()
	handler.UpdatePassword(rec, userRequest(http.MethodPatch, "/api/profile/password", body))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAvatarUploadWithoutStorageIs503(t *testing.T) {
	handler := NewHandler(nil, documents.NewStore(nil, "", 0, nil, nil), nil)
	body, _ := json.Marshal(avatarRequest{FileName: "me.jpg", ContentType: "image/jpeg", Data: []byte("x")})
	rec := httptest.NewRecorder()
	handler.UpdateAvatar(rec, userRequest(http.MethodPatch, "/api/profile/avatar", body))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestDeleteAccountSoftDeletes(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	defer db.Close()

	hash, _ := bcrypt.GenerateFromPassword([]byte("goodbye-123"), bcrypt.MinCost)
	mock.ExpectQuery(`SELECT password_hash FROM users`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"password_hash"}).AddRow(string(hash)))
	mock.ExpectExec(`UPDATE users SET deleted_at = NOW\(\)`).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	handler := NewHandler(NewRepository(db), nil, nil)
	body, _ := json.Marshal(deleteRequest{Password: "goodbye-123"})
	rec := httptest.NewRecorder()
	handler.DeleteAccount(rec, userRequest(http.MethodPost, "/api/profile/delete-account", body))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204: %s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
