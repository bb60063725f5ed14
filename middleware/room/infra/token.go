package infra

import (
	"fmt"

	"room-gateway/middleware/room/domain"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultTokenLength dá ~126 bits de entropia com o alfabeto URL-safe do nanoid.
const DefaultTokenLength = 21

// TokenIssuer gera ids de sala e tokens de membro com nanoid.
// Função pura da fonte de entropia (crypto/rand), sem acesso ao store.
type TokenIssuer struct {
	length int
}

type TokenIssuerOption func(*TokenIssuer)

func WithTokenLength(n int) TokenIssuerOption {
	return func(i *TokenIssuer) { i.length = n }
}

func NewTokenIssuer(opts ...TokenIssuerOption) *TokenIssuer {
	i := &TokenIssuer{length: DefaultTokenLength}
	for _, opt := range opts {
		opt(i)
	}
	if i.length <= 0 {
		i.length = DefaultTokenLength
	}
	return i
}

// Mint implementa domain.TokenIssuer.
func (i *TokenIssuer) Mint() (domain.Token, error) {
	v, err := nanoid.New(i.length)
	if err != nil {
		return "", fmt.Errorf("mint token: %w", err)
	}
	return domain.Token(v), nil
}

func (i *TokenIssuer) NewRoomID() (domain.RoomID, error) {
	v, err := nanoid.New(i.length)
	if err != nil {
		return "", fmt.Errorf("mint room id: %w", err)
	}
	return domain.RoomID(v), nil
}
