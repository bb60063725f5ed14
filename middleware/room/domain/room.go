package domain

import "time"

const (
	// DefaultCapacity é o número máximo de identidades distintas numa sala.
	DefaultCapacity = 2
	// DefaultTTL é o tempo de vida da sala a partir da criação (renovado em acessos).
	DefaultTTL = 600 * time.Second
)

type RoomID string

// Token é a credencial opaca de um membro. Só tem significado dentro da sala que o emitiu.
type Token string

// Room é a visão de leitura dos metadados de uma sala viva.
type Room struct {
	ID        RoomID
	CreatedAt time.Time
	Capacity  int
	TTL       time.Duration
	// ExpiresIn é o TTL restante observado no store no momento da leitura.
	ExpiresIn time.Duration
}

// Keys monta os nomes das chaves de uma sala no store.
//
// meta:{id} guarda o registro de metadados, connected:{id} o conjunto de tokens.
type Keys struct {
	Prefix string
}

func (k Keys) Meta(id RoomID) string {
	return k.Prefix + "meta:" + string(id)
}

func (k Keys) Members(id RoomID) string {
	return k.Prefix + "connected:" + string(id)
}
