package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"ainastudio/pkg/onboarding"
	"github.com/redis/go-redis/v9"
)

// WizardStore holds in-progress onboarding drafts keyed by user ID.
type WizardStore interface {
	LoadWizard(ctx context.Context, userID string) (*onboarding.Wizard, bool, error)
	SaveWizard(ctx context.Context, userID string, w *onboarding.Wizard) error
	DeleteWizard(ctx context.Context, userID string) error
}

// MemoryWizardStore keeps drafts in-process with a TTL.
type MemoryWizardStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	drafts map[string]memoryDraft
}

type memoryDraft struct {
	data    []byte
	expires time.Time
}

// NewMemoryWizardStore builds an in-memory draft store.
func NewMemoryWizardStore(ttl time.Duration) *MemoryWizardStore {
	return &MemoryWizardStore{ttl: ttl, drafts: make(map[string]memoryDraft)}
}

// LoadWizard returns a private copy of the stored draft.
func (s *MemoryWizardStore) LoadWizard(_ context.Context, userID string) (*onboarding.Wizard, bool, error) {
	s.mu.Lock()
	d, ok := s.drafts[userID]
	if ok && s.ttl > 0 && time.Now().After(d.expires) {
		delete(s.drafts, userID)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return nil, false, nil
	}
	var w onboarding.Wizard
	if err := json.Unmarshal(d.data, &w); err != nil {
		return nil, false, fmt.Errorf("decode wizard: %w", err)
	}
	return &w, true, nil
}

func (s *MemoryWizardStore) SaveWizard(_ context.Context, userID string, w *onboarding.Wizard) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encode wizard: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[userID] = memoryDraft{data: data, expires: time.Now().Add(s.ttl)}
	return nil
}

func (s *MemoryWizardStore) DeleteWizard(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, userID)
	return nil
}

// RedisWizardStore keeps drafts as JSON strings with a sliding TTL.
type RedisWizardStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisWizardStore builds a Redis-backed draft store.
func NewRedisWizardStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisWizardStore {
	if prefix == "" {
		prefix = "aina:wizard"
	}
	return &RedisWizardStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisWizardStore) key(userID string) string {
	return s.prefix + ":" + userID
}

func (s *RedisWizardStore) LoadWizard(ctx context.Context, userID string) (*onboarding.Wizard, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load wizard: %w", err)
	}
	var w onboarding.Wizard
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, false, fmt.Errorf("decode wizard: %w", err)
	}
	return &w, true, nil
}

func (s *RedisWizardStore) SaveWizard(ctx context.Context, userID string, w *onboarding.Wizard) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encode wizard: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.client.Set(ctx, s.key(userID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save wizard: %w", err)
	}
	return nil
}

func (s *RedisWizardStore) DeleteWizard(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.client.Del(ctx, s.key(userID)).Err()
}
