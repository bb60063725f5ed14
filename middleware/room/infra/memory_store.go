package infra

import (
	"context"
	"sync"
	"time"

	"room-gateway/middleware/room/domain"
)

// MemoryStore é uma implementação de domain.Store em memória, com TTL por chave.
// Útil para testes e desenvolvimento.
//
// A expiração é preguiçosa: a chave some na primeira leitura após o deadline.
// Não compartilha estado entre processos, então não é indicada para produção.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memEntry
	now     func() time.Time
}

type memEntry struct {
	hash     map[string]string
	set      map[string]struct{}
	deadline time.Time
}

type MemoryStoreOption func(*MemoryStore)

// WithClock troca o relógio (testes de expiração).
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*memEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

// lookup deve ser chamado com mu travado.
func (s *MemoryStore) lookup(key string) *memEntry {
	ent, ok := s.entries[key]
	if !ok {
		return nil
	}
	if !ent.deadline.IsZero() && !s.now().Before(ent.deadline) {
		delete(s.entries, key)
		return nil
	}
	return ent
}

func (s *MemoryStore) HSet(_ context.Context, key string, fields map[string]string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent := s.lookup(key)
	if ent == nil {
		ent = &memEntry{hash: make(map[string]string, len(fields))}
		s.entries[key] = ent
	}
	if ent.hash == nil {
		ent.hash = make(map[string]string, len(fields))
	}
	for k, v := range fields {
		ent.hash[k] = v
	}
	if ttl > 0 {
		ent.deadline = s.now().Add(ttl)
	}
	return nil
}

func (s *MemoryStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := map[string]string{}
	if ent := s.lookup(key); ent != nil {
		for k, v := range ent.hash {
			out[k] = v
		}
	}
	return out, nil
}

func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(key) != nil, nil
}

func (s *MemoryStore) SAdd(_ context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sadd(key, member), nil
}

func (s *MemoryStore) sadd(key, member string) bool {
	ent := s.lookup(key)
	if ent == nil {
		ent = &memEntry{}
		s.entries[key] = ent
	}
	if ent.set == nil {
		ent.set = make(map[string]struct{})
	}
	if _, ok := ent.set[member]; ok {
		return false
	}
	ent.set[member] = struct{}{}
	return true
}

func (s *MemoryStore) SRem(_ context.Context, key, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent := s.lookup(key)
	if ent == nil || ent.set == nil {
		return nil
	}
	delete(ent.set, member)
	// como no Redis: conjunto vazio deixa de existir
	if len(ent.set) == 0 && ent.hash == nil {
		delete(s.entries, key)
	}
	return nil
}

func (s *MemoryStore) SCard(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scard(key), nil
}

func (s *MemoryStore) scard(key string) int64 {
	ent := s.lookup(key)
	if ent == nil {
		return 0
	}
	return int64(len(ent.set))
}

func (s *MemoryStore) SIsMember(_ context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sismember(key, member), nil
}

func (s *MemoryStore) sismember(key, member string) bool {
	ent := s.lookup(key)
	if ent == nil {
		return false
	}
	_, ok := ent.set[member]
	return ok
}

func (s *MemoryStore) Expire(_ context.Context, ttl time.Duration, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire(ttl, keys...)
	return nil
}

func (s *MemoryStore) expire(ttl time.Duration, keys ...string) {
	deadline := s.now().Add(ttl)
	for _, k := range keys {
		if ent := s.lookup(k); ent != nil {
			ent.deadline = deadline
		}
	}
}

func (s *MemoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent := s.lookup(key)
	if ent == nil || ent.deadline.IsZero() {
		return 0, nil
	}
	return ent.deadline.Sub(s.now()), nil
}

// AdmitBounded faz, sob o mesmo lock, o que admit.lua faz no Redis.
func (s *MemoryStore) AdmitBounded(_ context.Context, membersKey, metaKey, member string, capacity int, ttl time.Duration) (domain.AdmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lookup(metaKey) == nil {
		return domain.AdmitNoRoom, nil
	}
	if s.sismember(membersKey, member) {
		s.expire(ttl, membersKey, metaKey)
		return domain.AdmitExisting, nil
	}
	if s.scard(membersKey) >= int64(capacity) {
		return domain.AdmitFull, nil
	}
	s.sadd(membersKey, member)
	s.expire(ttl, membersKey, metaKey)
	return domain.AdmitAdded, nil
}

// Len retorna quantas chaves vivas existem (debug/testes).
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k := range s.entries {
		if s.lookup(k) != nil {
			n++
		}
	}
	return n
}
