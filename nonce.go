package nftkit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultNoncePrefix prefixes the Redis keys of used nonces.
const DefaultNoncePrefix = "nftkit:nonce:"

// NonceStore remembers the nonces of signed requests so none is accepted twice.
type NonceStore interface {
	// Claim marks nonce as used by caller for ttl. It reports false when the
	// nonce was already claimed and has not expired.
	Claim(ctx context.Context, caller Address, nonce string, ttl time.Duration) (bool, error)
}

// MemoryNonceStore keeps used nonces in process memory.
type MemoryNonceStore struct {
	mu        sync.Mutex
	seen      map[string]time.Time
	nextSweep time.Time
	now       func() time.Time
}

// NewMemoryNonceStore creates an empty in-memory nonce store.
func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

// Claim implements NonceStore.
func (s *MemoryNonceStore) Claim(_ context.Context, caller Address, nonce string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.After(s.nextSweep) {
		for k, exp := range s.seen {
			if now.After(exp) {
				delete(s.seen, k)
			}
		}
		s.nextSweep = now.Add(ttl)
	}

	key := nonceKey(caller, nonce)
	if exp, ok := s.seen[key]; ok && !now.After(exp) {
		return false, nil
	}
	s.seen[key] = now.Add(ttl)
	return true, nil
}

// Len returns the number of nonces currently remembered.
func (s *MemoryNonceStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// RedisNonceStore keeps used nonces in Redis with SET NX, so replicas sharing
// one Redis reject each other's replays.
type RedisNonceStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisNonceStore creates a nonce store on client. An empty prefix uses
// DefaultNoncePrefix.
func NewRedisNonceStore(client redis.Cmdable, prefix string) *RedisNonceStore {
	if prefix == "" {
		prefix = DefaultNoncePrefix
	}
	return &RedisNonceStore{client: client, prefix: prefix}
}

// Claim implements NonceStore.
func (s *RedisNonceStore) Claim(ctx context.Context, caller Address, nonce string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, s.prefix+nonceKey(caller, nonce), 1, ttl).Result()
}

func nonceKey(caller Address, nonce string) string {
	return caller.Hex() + ":" + nonce
}
