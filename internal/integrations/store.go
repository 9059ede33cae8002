package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Settings is the per-clinic state of one integration.
type Settings struct {
	ClinicID      string            `json:"clinic_id"`
	IntegrationID string            `json:"integration_id"`
	Enabled       bool              `json:"enabled"`
	Credentials   map[string]string `json:"credentials,omitempty"`
	Options       map[string]string `json:"options,omitempty"`
	UpdatedAt     time.Time         `json:"updated_at,omitempty"`
}

// DefaultSettings returns the disabled state for an unconfigured integration.
func DefaultSettings(clinicID, integrationID string) *Settings {
	return &Settings{
		ClinicID:      clinicID,
		IntegrationID: integrationID,
		Enabled:       false,
	}
}

// Store persists integration settings in Redis.
type Store struct {
	redis *redis.Client
}

// NewStore creates a settings store.
func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

func (s *Store) key(clinicID, integrationID string) string {
	return fmt.Sprintf("integrations:%s:%s", clinicID, integrationID)
}

// Get retrieves settings, returning the disabled default if not found.
func (s *Store) Get(ctx context.Context, clinicID, integrationID string) (*Settings, error) {
	data, err := s.redis.Get(ctx, s.key(clinicID, integrationID)).Bytes()
	if err == redis.Nil {
		return DefaultSettings(clinicID, integrationID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("integrations: get settings: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("integrations: unmarshal settings: %w", err)
	}
	return &settings, nil
}

// Set saves settings.
func (s *Store) Set(ctx context.Context, settings *Settings) error {
	settings.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("integrations: marshal settings: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(settings.ClinicID, settings.IntegrationID), data, 0).Err(); err != nil {
		return fmt.Errorf("integrations: set settings: %w", err)
	}
	return nil
}

// Delete removes settings, reverting the integration to its default state.
func (s *Store) Delete(ctx context.Context, clinicID, integrationID string) error {
	if err := s.redis.Del(ctx, s.key(clinicID, integrationID)).Err(); err != nil {
		return fmt.Errorf("integrations: delete settings: %w", err)
	}
	return nil
}
