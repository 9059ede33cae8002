package profile

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Repository reads and writes user profile rows.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a profile repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Get loads the profile for a user, excluding soft-deleted accounts.
func (r *Repository) Get(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	err := r.db.QueryRowContext(ctx, `
		SELECT id, clinic_id, name, email, COALESCE(phone, ''), role, COALESCE(avatar_key, ''),
		       created_at, updated_at
		FROM users WHERE id = $1 AND deleted_at IS NULL`, userID).Scan(
		&p.UserID, &p.ClinicID, &p.Name, &p.Email, &p.Phone, &p.Role, &p.AvatarKey,
		&p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile: get user: %w", err)
	}
	return &p, nil
}

// UpdateContact changes name and phone.
func (r *Repository) UpdateContact(ctx context.Context, userID, name, phone string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET name = $2, phone = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, userID, name, phone)
	if err != nil {
		return fmt.Errorf("profile: update contact: %w", err)
	}
	return checkFound(res)
}

// GetNotifications loads the user's notification settings.
func (r *Repository) GetNotifications(ctx context.Context, userID string) (*NotificationSettings, error) {
	var s NotificationSettings
	err := r.db.QueryRowContext(ctx, `
		SELECT notification_channels, reminders_enabled, digest_enabled
		FROM users WHERE id = $1 AND deleted_at IS NULL`, userID).Scan(
		pq.Array(&s.Channels), &s.RemindersEnabled, &s.DigestEnabled)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile: get notifications: %w", err)
	}
	if s.Channels == nil {
		s.Channels = []string{}
	}
	return &s, nil
}

// UpdateNotifications replaces the user's notification settings.
func (r *Repository) UpdateNotifications(ctx context.Context, userID string, s *NotificationSettings) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET notification_channels = $2, reminders_enabled = $3, digest_enabled = $4, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		userID, pq.Array(s.Channels), s.RemindersEnabled, s.DigestEnabled)
	if err != nil {
		return fmt.Errorf("profile: update notifications: %w", err)
	}
	return checkFound(res)
}

// GetPreferences loads dashboard preferences.
func (r *Repository) GetPreferences(ctx context.Context, userID string) (*Preferences, error) {
	var p Preferences
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(language, 'pt-BR'), COALESCE(timezone, 'America/Sao_Paulo'), COALESCE(calendar_view, 'week')
		FROM users WHERE id = $1 AND deleted_at IS NULL`, userID).Scan(
		&p.Language, &p.Timezone, &p.CalendarView)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile: get preferences: %w", err)
	}
	return &p, nil
}

// UpdatePreferences replaces dashboard preferences.
func (r *Repository) UpdatePreferences(ctx context.Context, userID string, p *Preferences) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET language = $2, timezone = $3, calendar_view = $4, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		userID, p.Language, p.Timezone, p.CalendarView)
	if err != nil {
		return fmt.Errorf("profile: update preferences: %w", err)
	}
	return checkFound(res)
}

// GetPasswordHash returns the stored bcrypt hash for verification.
func (r *Repository) GetPasswordHash(ctx context.Context, userID string) (string, error) {
	var hash string
	err := r.db.QueryRowContext(ctx, `
		SELECT password_hash FROM users WHERE id = $1 AND deleted_at IS NULL`, userID).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("profile: get password hash: %w", err)
	}
	return hash, nil
}

// UpdatePassword stores a new bcrypt hash.
func (r *Repository) UpdatePassword(ctx context.Context, userID, hash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, userID, hash)
	if err != nil {
		return fmt.Errorf("profile: update password: %w", err)
	}
	return checkFound(res)
}

// UpdateAvatar records the stored object key of the user's avatar.
func (r *Repository) UpdateAvatar(ctx context.Context, userID, key string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET avatar_key = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, userID, key)
	if err != nil {
		return fmt.Errorf("profile: update avatar: %w", err)
	}
	return checkFound(res)
}

// SoftDelete marks the account deleted. The row stays for audit history.
func (r *Repository) SoftDelete(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, userID)
	if err != nil {
		return fmt.Errorf("profile: delete account: %w", err)
	}
	return checkFound(res)
}

func checkFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("profile: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
