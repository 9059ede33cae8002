package patients

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTermTooShort is returned for search terms under two characters, before
// any repository work happens.
var ErrTermTooShort = errors.New("patients: search term must have at least 2 characters")

// Searcher runs patient searches with a short-lived Redis result cache so
// that staff typing in the appointment modal does not hammer the database.
type Searcher struct {
	repo  *Repository
	redis *redis.Client
	ttl   time.Duration
}

// NewSearcher creates a patient searcher. redisClient may be nil; ttl <= 0
// defaults to 30 seconds.
func NewSearcher(repo *Repository, redisClient *redis.Client, ttl time.Duration) *Searcher {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Searcher{repo: repo, redis: redisClient, ttl: ttl}
}

func (s *Searcher) key(clinicID, term string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(term)))
	return fmt.Sprintf("patients:search:%s:%s", clinicID, hex.EncodeToString(sum[:8]))
}

// Search validates the term and returns matches, cached per clinic+term.
func (s *Searcher) Search(ctx context.Context, clinicID, term string) ([]Match, error) {
	term = strings.TrimSpace(term)
	if len([]rune(term)) < 2 {
		return nil, ErrTermTooShort
	}

	if s.redis != nil {
		if data, err := s.redis.Get(ctx, s.key(clinicID, term)).Bytes(); err == nil {
			var cached []Match
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	matches, err := s.repo.Search(ctx, clinicID, term)
	if err != nil {
		return nil, err
	}
	if matches == nil {
		matches = []Match{}
	}

	if s.redis != nil {
		if data, err := json.Marshal(matches); err == nil {
			_ = s.redis.Set(ctx, s.key(clinicID, term), data, s.ttl).Err()
		}
	}
	return matches, nil
}
