package domain

import (
	"context"
	"time"
)

// StatsEvent representa uma decisão do gateway de admissão.
//
// Observação: cuidado com cardinalidade. Room é útil em memória/debug, mas
// não deve virar label de métrica nem chave permanente no Redis.
type StatsEvent struct {
	Room  RoomID
	State State
	// Failed indica que a decisão veio de erro no store (fail closed).
	Failed bool

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas de admissão.
//
// Implementações podem armazenar em Redis, Prometheus, memória, etc.
// O middleware trata erro como best-effort (não derruba a request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
