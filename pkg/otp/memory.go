package otp

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore is the in-process fallback used when Redis is not configured.
// Codes do not survive a restart and are not shared between instances.
type MemoryStore struct {
	cache *cache.Cache
	mu    sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cache: cache.New(5*time.Minute, 10*time.Minute)}
}

func (s *MemoryStore) Save(_ context.Context, phone, code string, ttl time.Duration) error {
	s.cache.Set(key(phone), code, ttl)
	return nil
}

func (s *MemoryStore) Verify(_ context.Context, phone, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.cache.Get(key(phone))
	if !ok || stored.(string) != code {
		return false, nil
	}
	s.cache.Delete(key(phone))
	return true, nil
}
