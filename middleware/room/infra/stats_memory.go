package infra

import (
	"context"
	"sync"

	"room-gateway/middleware/room/domain"
)

// MemoryStatsStore conta decisões por estado em memória.
// Útil para testes e desenvolvimento.
//
// Não faz expiração e não é indicada para produção.
type MemoryStatsStore struct {
	mu      sync.Mutex
	byState map[domain.State]int64
	byRoom  map[domain.RoomID]map[domain.State]int64
	failed  int64

	trackRooms bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackRooms(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackRooms = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		byState: make(map[domain.State]int64),
		byRoom:  make(map[domain.RoomID]map[domain.State]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byState[ev.State]++
	if ev.Failed {
		s.failed++
	}
	if s.trackRooms && ev.Room != "" {
		m := s.byRoom[ev.Room]
		if m == nil {
			m = make(map[domain.State]int64)
			s.byRoom[ev.Room] = m
		}
		m[ev.State]++
	}
	return nil
}

func (s *MemoryStatsStore) Count(state domain.State) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byState[state]
}

func (s *MemoryStatsStore) Failed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

func (s *MemoryStatsStore) ByRoom(id domain.RoomID) map[domain.State]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.State]int64, len(s.byRoom[id]))
	for k, v := range s.byRoom[id] {
		out[k] = v
	}
	return out
}
