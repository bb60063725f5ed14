package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"room-gateway/middleware/room/domain"
	"room-gateway/middleware/room/infra"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMembership_TwoJoinThenFull(t *testing.T) {
	for _, mode := range []Mode{ModeAtomic, ModeOptimistic} {
		t.Run(string(mode), func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, infra.NewMemoryStore(), mode)

			id, err := f.registry.Create(ctx)
			require.NoError(t, err)

			first, err := f.admission.Admit(ctx, id, "")
			require.NoError(t, err)
			second, err := f.admission.Admit(ctx, id, "")
			require.NoError(t, err)

			assert.Equal(t, domain.StateAdmitted, first.State)
			assert.Equal(t, domain.StateAdmitted, second.State)
			assert.NotEmpty(t, first.Token)
			assert.NotEqual(t, first.Token, second.Token)

			n, err := f.membership.Count(ctx, id)
			require.NoError(t, err)
			assert.EqualValues(t, 2, n)

			third, err := f.admission.Admit(ctx, id, "")
			require.NoError(t, err)
			assert.Equal(t, domain.StateRejectedFull, third.State)
			assert.Empty(t, third.Token)

			n, err = f.membership.Count(ctx, id)
			require.NoError(t, err)
			assert.EqualValues(t, 2, n)

			// quem já tem credencial continua entrando com a sala cheia
			again, err := f.admission.Admit(ctx, id, first.Token)
			require.NoError(t, err)
			assert.Equal(t, domain.StateAlreadyMember, again.State)
			assert.Empty(t, again.Token, "members must not receive a new token")

			n, err = f.membership.Count(ctx, id)
			require.NoError(t, err)
			assert.EqualValues(t, 2, n)
		})
	}
}

func TestMembership_UnknownTokenIsTreatedAsNewJoiner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, infra.NewMemoryStore(), ModeAtomic)
	id, err := f.registry.Create(ctx)
	require.NoError(t, err)

	dec, err := f.admission.Admit(ctx, id, "token-from-another-room")
	require.NoError(t, err)
	assert.Equal(t, domain.StateAdmitted, dec.State)
	assert.NotEqual(t, domain.Token("token-from-another-room"), dec.Token)
}

func TestMembership_MemberReentryRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := infra.NewMemoryStore(infra.WithClock(clk.Now))
	f := newFixture(t, store, ModeAtomic)

	id, err := f.registry.Create(ctx)
	require.NoError(t, err)
	dec, err := f.admission.Admit(ctx, id, "")
	require.NoError(t, err)

	clk.Advance(400 * time.Second)

	again, err := f.admission.Admit(ctx, id, dec.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.StateAlreadyMember, again.State)

	for _, key := range []string{f.registry.Keys.Meta(id), f.registry.Keys.Members(id)} {
		left, err := store.TTL(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultTTL, left, key)
	}
}

func TestMembership_ExpiredRoomIsUnknownEvenForMembers(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	f := newFixture(t, infra.NewMemoryStore(infra.WithClock(clk.Now)), ModeAtomic)

	id, err := f.registry.Create(ctx)
	require.NoError(t, err)
	dec, err := f.admission.Admit(ctx, id, "")
	require.NoError(t, err)
	require.Equal(t, domain.StateAdmitted, dec.State)

	clk.Advance(domain.DefaultTTL)

	after, err := f.admission.Admit(ctx, id, dec.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.StateUnknownRoom, after.State)
}

func TestMembership_ExpiredRoomOnRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	f := newFixture(t, infra.NewRedisStore(rdb), ModeAtomic)

	id, err := f.registry.Create(ctx)
	require.NoError(t, err)
	dec, err := f.admission.Admit(ctx, id, "")
	require.NoError(t, err)
	require.Equal(t, domain.StateAdmitted, dec.State)

	mr.FastForward(300 * time.Second)
	again, err := f.admission.Admit(ctx, id, dec.Token)
	require.NoError(t, err)
	require.Equal(t, domain.StateAlreadyMember, again.State)

	mr.FastForward(domain.DefaultTTL)
	assert.False(t, mr.Exists(f.registry.Keys.Meta(id)))
	assert.False(t, mr.Exists(f.registry.Keys.Members(id)), "membership set must expire with the room")

	after, err := f.admission.Admit(ctx, id, dec.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.StateUnknownRoom, after.State)
}

func TestMembership_ConcurrentJoinersNeverExceedCapacity(t *testing.T) {
	const racers = domain.DefaultCapacity + 8

	cases := []struct {
		name  string
		store func(t *testing.T) domain.Store
		mode  Mode
		exact bool
	}{
		{"memory/atomic", func(*testing.T) domain.Store { return infra.NewMemoryStore() }, ModeAtomic, true},
		{"memory/optimistic", func(*testing.T) domain.Store { return infra.NewMemoryStore() }, ModeOptimistic, false},
		{"redis/atomic", func(t *testing.T) domain.Store {
			mr := miniredis.RunT(t)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = rdb.Close() })
			return infra.NewRedisStore(rdb)
		}, ModeAtomic, true},
		{"redis/optimistic", func(t *testing.T) domain.Store {
			mr := miniredis.RunT(t)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = rdb.Close() })
			return infra.NewRedisStore(rdb)
		}, ModeOptimistic, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, tc.store(t), tc.mode)
			id, err := f.registry.Create(ctx)
			require.NoError(t, err)

			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				admitted []domain.Token
				full     int
			)
			start := make(chan struct{})
			for i := 0; i < racers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					dec, err := f.admission.Admit(ctx, id, "")
					if err != nil {
						t.Errorf("admit: %v", err)
						return
					}
					mu.Lock()
					defer mu.Unlock()
					switch dec.State {
					case domain.StateAdmitted:
						admitted = append(admitted, dec.Token)
					case domain.StateRejectedFull:
						full++
					default:
						t.Errorf("unexpected state %s", dec.State)
					}
				}()
			}
			close(start)
			wg.Wait()

			n, err := f.membership.Count(ctx, id)
			require.NoError(t, err)

			assert.LessOrEqual(t, len(admitted), domain.DefaultCapacity)
			assert.EqualValues(t, len(admitted), n, "every admitted token and only those stay in the set")
			assert.Equal(t, racers, len(admitted)+full)
			if tc.exact {
				assert.Len(t, admitted, domain.DefaultCapacity)
			}
			for _, tok := range admitted {
				ok, err := f.membership.IsMember(ctx, id, tok)
				require.NoError(t, err)
				assert.True(t, ok)
			}
		})
	}
}

func TestMembership_OptimisticRollbackOnOvershoot(t *testing.T) {
	ctx := context.Background()
	fs := newFaultyStore(infra.NewMemoryStore())
	f := newFixture(t, fs, ModeAtomic) // sem AdmitBounded: cai no otimista

	id, err := f.registry.Create(ctx)
	require.NoError(t, err)
	for _, tok := range []string{"a", "b"} {
		_, err := fs.SAdd(ctx, f.registry.Keys.Members(id), tok)
		require.NoError(t, err)
	}

	// a request é cancelada no meio; o rollback tem que rodar mesmo assim
	reqCtx, cancel := context.WithCancel(ctx)
	fs.onSCard = cancel

	dec, err := f.membership.Decide(reqCtx, id, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StateRejectedFull, dec.State)
	assert.NoError(t, fs.sremCtx, "rollback must not inherit request cancellation")

	n, err := f.membership.Count(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestMembership_StoreFailuresFailClosed(t *testing.T) {
	boom := errors.New("i/o timeout")

	for _, op := range []string{"SIsMember", "SAdd", "SCard"} {
		t.Run(op, func(t *testing.T) {
			ctx := context.Background()
			fs := newFaultyStore(infra.NewMemoryStore())
			f := newFixture(t, fs, ModeOptimistic)
			id, err := f.registry.Create(ctx)
			require.NoError(t, err)

			fs.fail[op] = boom
			dec, err := f.admission.Admit(ctx, id, "presented")
			assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
			assert.ErrorIs(t, err, boom)
			assert.Equal(t, domain.StateUnknownRoom, dec.State)
			assert.False(t, dec.State.Allowed())

			delete(fs.fail, op)
			n, err := f.membership.Count(ctx, id)
			require.NoError(t, err)
			assert.Zero(t, n, "failed admission must leave no member behind")
		})
	}
}

func TestMembership_TTLRefreshFailureDoesNotBlockAdmission(t *testing.T) {
	ctx := context.Background()
	fs := newFaultyStore(infra.NewMemoryStore())
	f := newFixture(t, fs, ModeOptimistic)
	id, err := f.registry.Create(ctx)
	require.NoError(t, err)

	fs.fail["Expire"] = errors.New("READONLY")

	dec, err := f.admission.Admit(ctx, id, "")
	require.NoError(t, err)
	require.Equal(t, domain.StateAdmitted, dec.State)

	again, err := f.admission.Admit(ctx, id, dec.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.StateAlreadyMember, again.State)
}

type collidingIssuer struct{ tok domain.Token }

func (c collidingIssuer) Mint() (domain.Token, error) { return c.tok, nil }

func TestMembership_TokenCollisionIsNotRolledBack(t *testing.T) {
	ctx := context.Background()
	store := infra.NewMemoryStore()
	reg := &Registry{Store: store, IDs: infra.NewTokenIssuer()}

	for _, mode := range []Mode{ModeAtomic, ModeOptimistic} {
		mem := &Membership{Store: store, Issuer: collidingIssuer{tok: "same"}, Registry: reg, Mode: mode}
		id, err := reg.Create(ctx)
		require.NoError(t, err)

		first, err := mem.Decide(ctx, id, "")
		require.NoError(t, err)
		require.Equal(t, domain.StateAdmitted, first.State)

		_, err = mem.Decide(ctx, id, "")
		assert.ErrorIs(t, err, domain.ErrTokenCollision, mode)

		ok, err := mem.IsMember(ctx, id, "same")
		require.NoError(t, err)
		assert.True(t, ok, "the original holder keeps its slot (%s)", mode)
	}
}
