package application

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"room-gateway/middleware/room/domain"

	"go.uber.org/zap"
)

// RoomIDGenerator gera ids de sala imprevisíveis e resistentes a colisão.
type RoomIDGenerator interface {
	NewRoomID() (domain.RoomID, error)
}

// Registry é dono da existência e dos metadados da sala.
//
// Não guarda estado em processo: tudo é relido do store a cada chamada.
type Registry struct {
	Store    domain.Store
	IDs      RoomIDGenerator
	Keys     domain.Keys
	TTL      time.Duration
	Capacity int
	Now      func() time.Time
	Logger   *zap.Logger
}

func (r *Registry) ttl() time.Duration {
	if r.TTL <= 0 {
		return domain.DefaultTTL
	}
	return r.TTL
}

func (r *Registry) capacity() int {
	if r.Capacity <= 0 {
		return domain.DefaultCapacity
	}
	return r.Capacity
}

func (r *Registry) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// Create grava os metadados de uma sala nova já com TTL e retorna o id.
func (r *Registry) Create(ctx context.Context) (domain.RoomID, error) {
	id, err := r.IDs.NewRoomID()
	if err != nil {
		return "", err
	}

	fields := map[string]string{
		"createdAt": strconv.FormatInt(r.now().UnixMilli(), 10),
		"connected": "[]",
	}
	if err := r.Store.HSet(ctx, r.Keys.Meta(id), fields, r.ttl()); err != nil {
		return "", fmt.Errorf("create room: %w: %w", domain.ErrStoreUnavailable, err)
	}

	orNop(r.Logger).Debug("room created", zap.String("room", string(id)), zap.Duration("ttl", r.ttl()))
	return id, nil
}

func (r *Registry) Exists(ctx context.Context, id domain.RoomID) (bool, error) {
	ok, err := r.Store.Exists(ctx, r.Keys.Meta(id))
	if err != nil {
		return false, fmt.Errorf("room exists: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return ok, nil
}

// RefreshTTL renova metadados e conjunto de membros juntos.
// É best-effort: erro vira log e nunca sobe para quem chamou.
func (r *Registry) RefreshTTL(ctx context.Context, id domain.RoomID) {
	err := r.Store.Expire(ctx, r.ttl(), r.Keys.Members(id), r.Keys.Meta(id))
	if err != nil {
		orNop(r.Logger).Warn("room ttl refresh",
			zap.String("room", string(id)),
			zap.Error(fmt.Errorf("%w: %w", domain.ErrTTLRefreshFailed, err)),
		)
	}
}

// Describe lê os metadados e o TTL restante (usado pelo contador da UI).
func (r *Registry) Describe(ctx context.Context, id domain.RoomID) (domain.Room, error) {
	meta, err := r.Store.HGetAll(ctx, r.Keys.Meta(id))
	if err != nil {
		return domain.Room{}, fmt.Errorf("describe room: %w: %w", domain.ErrStoreUnavailable, err)
	}
	if len(meta) == 0 {
		return domain.Room{}, domain.ErrRoomNotFound
	}

	left, err := r.Store.TTL(ctx, r.Keys.Meta(id))
	if err != nil {
		return domain.Room{}, fmt.Errorf("describe room: %w: %w", domain.ErrStoreUnavailable, err)
	}
	if left <= 0 {
		// expirou entre as duas leituras
		return domain.Room{}, domain.ErrRoomNotFound
	}

	room := domain.Room{
		ID:        id,
		Capacity:  r.capacity(),
		TTL:       r.ttl(),
		ExpiresIn: left,
	}
	if ms, err := strconv.ParseInt(meta["createdAt"], 10, 64); err == nil {
		room.CreatedAt = time.UnixMilli(ms)
	} else {
		orNop(r.Logger).Warn("room createdAt unreadable", zap.String("room", string(id)), zap.Error(err))
	}
	return room, nil
}
