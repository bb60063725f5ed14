package application

import (
	"context"
	"fmt"
	"time"

	"room-gateway/middleware/room/domain"

	"go.uber.org/zap"
)

// Mode escolhe como a admissão de um membro novo é feita contra o store.
type Mode string

const (
	// ModeAtomic usa domain.BoundedAdmitter quando o store oferece (padrão).
	ModeAtomic Mode = "atomic"
	// ModeOptimistic insere, conta e desfaz se passou da capacidade.
	// Entre o SADD e o SREM o conjunto pode ter capacity+k elementos.
	ModeOptimistic Mode = "optimistic"
)

// Membership concentra a decisão de admissão (quem entra, quem já é membro,
// quem é recusado), sem saber nada sobre HTTP.
type Membership struct {
	Store    domain.Store
	Issuer   domain.TokenIssuer
	Registry *Registry
	Mode     Mode
	// RollbackTimeout limita o SREM de compensação, que roda desacoplado do
	// cancelamento da request.
	RollbackTimeout time.Duration
	Logger          *zap.Logger
}

func (m *Membership) rollbackTimeout() time.Duration {
	if m.RollbackTimeout <= 0 {
		return 2 * time.Second
	}
	return m.RollbackTimeout
}

// Decide avalia o par (sala, credencial) do zero, sempre a partir do store.
//
// Não checa a existência da sala antes do teste de membro; isso é feito por
// Admission. No modo atômico o próprio store checa de novo.
func (m *Membership) Decide(ctx context.Context, id domain.RoomID, presented domain.Token) (domain.Decision, error) {
	log := orNop(m.Logger).With(zap.String("room", string(id)))

	if presented != "" {
		ok, err := m.IsMember(ctx, id, presented)
		if err != nil {
			return domain.Decision{State: domain.StateUnknownRoom}, err
		}
		if ok {
			m.Registry.RefreshTTL(ctx, id)
			return domain.Decision{State: domain.StateAlreadyMember}, nil
		}
		log.Debug("presented token is not a member")
	}

	token, err := m.Issuer.Mint()
	if err != nil {
		return domain.Decision{State: domain.StateUnknownRoom}, err
	}

	if admitter, ok := m.Store.(domain.BoundedAdmitter); ok && m.Mode != ModeOptimistic {
		return m.admitAtomic(ctx, admitter, id, token)
	}
	return m.admitOptimistic(ctx, id, token, log)
}

func (m *Membership) admitAtomic(ctx context.Context, admitter domain.BoundedAdmitter, id domain.RoomID, token domain.Token) (domain.Decision, error) {
	keys := m.Registry.Keys
	res, err := admitter.AdmitBounded(ctx, keys.Members(id), keys.Meta(id), string(token), m.Registry.capacity(), m.Registry.ttl())
	if err != nil {
		return domain.Decision{State: domain.StateUnknownRoom}, fmt.Errorf("admit: %w: %w", domain.ErrStoreUnavailable, err)
	}

	switch res {
	case domain.AdmitAdded:
		return domain.Decision{State: domain.StateAdmitted, Token: token}, nil
	case domain.AdmitFull:
		return domain.Decision{State: domain.StateRejectedFull}, nil
	case domain.AdmitExisting:
		return domain.Decision{State: domain.StateUnknownRoom}, domain.ErrTokenCollision
	}
	return domain.Decision{State: domain.StateUnknownRoom}, nil
}

func (m *Membership) admitOptimistic(ctx context.Context, id domain.RoomID, token domain.Token, log *zap.Logger) (domain.Decision, error) {
	key := m.Registry.Keys.Members(id)

	added, err := m.Store.SAdd(ctx, key, string(token))
	if err != nil {
		return domain.Decision{State: domain.StateUnknownRoom}, fmt.Errorf("admit: %w: %w", domain.ErrStoreUnavailable, err)
	}
	if !added {
		// o token não é nosso: não desfazer
		return domain.Decision{State: domain.StateUnknownRoom}, domain.ErrTokenCollision
	}

	m.Registry.RefreshTTL(ctx, id)

	n, err := m.Store.SCard(ctx, key)
	if err != nil {
		m.rollback(ctx, key, token, log)
		return domain.Decision{State: domain.StateUnknownRoom}, fmt.Errorf("admit count: %w: %w", domain.ErrStoreUnavailable, err)
	}

	if n > int64(m.Registry.capacity()) {
		m.rollback(ctx, key, token, log)
		log.Debug("admission overshoot rolled back", zap.Int64("cardinality", n))
		return domain.Decision{State: domain.StateRejectedFull}, nil
	}
	return domain.Decision{State: domain.StateAdmitted, Token: token}, nil
}

// rollback remove o token recém-inserido. Se falhar, o slot fica preso até o
// TTL do conjunto expirar (a sala fica mais cheia, nunca acima do permitido
// para quem já entrou).
func (m *Membership) rollback(ctx context.Context, key string, token domain.Token, log *zap.Logger) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.rollbackTimeout())
	defer cancel()

	if err := m.Store.SRem(rctx, key, string(token)); err != nil {
		log.Error("admission rollback failed", zap.Error(err))
	}
}

func (m *Membership) IsMember(ctx context.Context, id domain.RoomID, token domain.Token) (bool, error) {
	ok, err := m.Store.SIsMember(ctx, m.Registry.Keys.Members(id), string(token))
	if err != nil {
		return false, fmt.Errorf("membership test: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return ok, nil
}

func (m *Membership) Count(ctx context.Context, id domain.RoomID) (int64, error) {
	n, err := m.Store.SCard(ctx, m.Registry.Keys.Members(id))
	if err != nil {
		return 0, fmt.Errorf("membership count: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return n, nil
}
