package application

import (
	"context"
	"time"

	"room-gateway/middleware/room/domain"
)

// Admission encadeia Registry e Membership para uma request ao caminho da sala.
type Admission struct {
	Registry   *Registry
	Membership *Membership
	// Timeout limita todas as idas ao store da decisão. Estourar vira
	// ErrStoreUnavailable (falha fechada).
	Timeout time.Duration
}

// Admit retorna StateUnknownRoom junto com qualquer erro: quem chama nunca
// deve liberar a request quando err != nil.
func (a Admission) Admit(ctx context.Context, id domain.RoomID, presented domain.Token) (domain.Decision, error) {
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	ok, err := a.Registry.Exists(ctx, id)
	if err != nil {
		return domain.Decision{State: domain.StateUnknownRoom}, err
	}
	if !ok {
		return domain.Decision{State: domain.StateUnknownRoom}, nil
	}

	dec, err := a.Membership.Decide(ctx, id, presented)
	if err != nil {
		return domain.Decision{State: domain.StateUnknownRoom}, err
	}
	return dec, nil
}
