package application

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"room-gateway/middleware/room/domain"
	"room-gateway/middleware/room/infra"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	store      domain.Store
	registry   *Registry
	membership *Membership
	admission  Admission
}

func newFixture(t *testing.T, store domain.Store, mode Mode) fixture {
	t.Helper()
	issuer := infra.NewTokenIssuer()
	reg := &Registry{Store: store, IDs: issuer}
	mem := &Membership{Store: store, Issuer: issuer, Registry: reg, Mode: mode}
	return fixture{
		store:      store,
		registry:   reg,
		membership: mem,
		admission:  Admission{Registry: reg, Membership: mem, Timeout: time.Second},
	}
}

// faultyStore embute só a interface domain.Store: não expõe AdmitBounded,
// então Membership sempre cai no caminho otimista.
type faultyStore struct {
	domain.Store
	fail  map[string]error
	calls atomic.Int64

	onSCard func()
	sremCtx error
}

func newFaultyStore(inner domain.Store) *faultyStore {
	return &faultyStore{Store: inner, fail: map[string]error{}}
}

func (f *faultyStore) err(op string) error {
	f.calls.Add(1)
	return f.fail[op]
}

func (f *faultyStore) HSet(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	if err := f.err("HSet"); err != nil {
		return err
	}
	return f.Store.HSet(ctx, key, fields, ttl)
}

func (f *faultyStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := f.err("Exists"); err != nil {
		return false, err
	}
	return f.Store.Exists(ctx, key)
}

func (f *faultyStore) SIsMember(ctx context.Context, key, member string) (bool, error) {
	if err := f.err("SIsMember"); err != nil {
		return false, err
	}
	return f.Store.SIsMember(ctx, key, member)
}

func (f *faultyStore) SAdd(ctx context.Context, key, member string) (bool, error) {
	if err := f.err("SAdd"); err != nil {
		return false, err
	}
	return f.Store.SAdd(ctx, key, member)
}

func (f *faultyStore) SCard(ctx context.Context, key string) (int64, error) {
	if f.onSCard != nil {
		f.onSCard()
	}
	if err := f.err("SCard"); err != nil {
		return 0, err
	}
	return f.Store.SCard(ctx, key)
}

func (f *faultyStore) SRem(ctx context.Context, key, member string) error {
	f.sremCtx = ctx.Err()
	if err := f.err("SRem"); err != nil {
		return err
	}
	return f.Store.SRem(ctx, key, member)
}

func (f *faultyStore) Expire(ctx context.Context, ttl time.Duration, keys ...string) error {
	if err := f.err("Expire"); err != nil {
		return err
	}
	return f.Store.Expire(ctx, ttl, keys...)
}

// blockingStore segura Exists até o ctx estourar.
type blockingStore struct {
	domain.Store
}

func (b blockingStore) Exists(ctx context.Context, _ string) (bool, error) {
	<-ctx.Done()
	return false, ctx.Err()
}
