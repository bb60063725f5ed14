package domain

import (
	"context"
	"time"
)

// Store é o adapter mínimo sobre um key-value compartilhado (ex: Redis).
//
// Cada operação é atômica isoladamente; a sequência entre chamadas não é.
// Todas podem bloquear em I/O de rede: respeite o deadline do ctx.
type Store interface {
	// HSet grava campos de um registro tipo hash. Se ttl > 0, aplica o TTL
	// na mesma ida ao store.
	HSet(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error
	// HGetAll retorna um mapa vazio (sem erro) quando a chave não existe.
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Exists(ctx context.Context, key string) (bool, error)

	// SAdd retorna true se o elemento foi adicionado agora.
	SAdd(ctx context.Context, key, member string) (bool, error)
	SRem(ctx context.Context, key, member string) error
	SCard(ctx context.Context, key string) (int64, error)
	SIsMember(ctx context.Context, key, member string) (bool, error)

	// Expire define/renova o TTL de uma ou mais chaves.
	// Com várias chaves a implementação deve aplicá-las juntas quando puder.
	Expire(ctx context.Context, ttl time.Duration, keys ...string) error
	// TTL retorna <= 0 quando a chave não existe.
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// AdmitResult é o retorno de uma admissão atômica executada pelo próprio store.
type AdmitResult int

const (
	AdmitNoRoom AdmitResult = iota
	AdmitFull
	AdmitAdded
	AdmitExisting
)

// BoundedAdmitter é uma capacidade opcional do Store: checar capacidade e
// inserir numa única avaliação atômica (ex: script Lua), renovando o TTL dos
// metadados e do conjunto juntos. Elimina a janela de overshoot.
type BoundedAdmitter interface {
	AdmitBounded(ctx context.Context, membersKey, metaKey, member string, capacity int, ttl time.Duration) (AdmitResult, error)
}

// Pinger é implementado por stores que conseguem checar a conexão (health check).
type Pinger interface {
	Ping(ctx context.Context) error
}

// TokenIssuer emite tokens opacos e imprevisíveis. Não acessa o store.
type TokenIssuer interface {
	Mint() (Token, error)
}
