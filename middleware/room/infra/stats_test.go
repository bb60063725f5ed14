package infra

import (
	"context"
	"errors"
	"testing"
	"time"

	"room-gateway/middleware/room/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStatsStore_CountsByState(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStatsStore(WithTrackRooms(true))

	_ = s.Record(ctx, domain.StatsEvent{Room: "r", State: domain.StateAdmitted})
	_ = s.Record(ctx, domain.StatsEvent{Room: "r", State: domain.StateAdmitted})
	_ = s.Record(ctx, domain.StatsEvent{Room: "r", State: domain.StateRejectedFull})
	_ = s.Record(ctx, domain.StatsEvent{Room: "x", State: domain.StateUnknownRoom, Failed: true})

	assert.EqualValues(t, 2, s.Count(domain.StateAdmitted))
	assert.EqualValues(t, 1, s.Count(domain.StateRejectedFull))
	assert.EqualValues(t, 1, s.Failed())
	assert.Equal(t, map[domain.State]int64{domain.StateAdmitted: 2, domain.StateRejectedFull: 1}, s.ByRoom("r"))
}

func TestRedisStatsStore_RecordsTotalsAndBucket(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newMiniRedis(t)
	s := NewRedisStatsStore(rdb, WithStatsPrefix("test:stats:"), WithStatsTTL(time.Hour))

	at := time.Date(2026, 10, 19, 14, 5, 0, 0, time.UTC)
	require.NoError(t, s.Record(ctx, domain.StatsEvent{State: domain.StateAdmitted, At: at}))
	require.NoError(t, s.Record(ctx, domain.StatsEvent{State: domain.StateUnknownRoom, Failed: true, At: at}))

	totals, err := s.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", totals["admitted"])
	assert.Equal(t, "1", totals["unknown_room"])
	assert.Equal(t, "1", totals["store_failed"])

	bucket := "test:stats:minute:202610191405"
	assert.Equal(t, "1", mr.HGet(bucket, "admitted"))
	assert.Equal(t, time.Hour, mr.TTL(bucket))
}

func TestPrometheusStatsStore_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPrometheusStatsStore(reg)
	require.NoError(t, err)

	_ = s.Record(context.Background(), domain.StatsEvent{State: domain.StateAlreadyMember})
	_ = s.Record(context.Background(), domain.StatsEvent{State: domain.StateAlreadyMember})

	assert.Equal(t, 2.0, testutil.ToFloat64(s.decisions.WithLabelValues("already_member", "false")))

	_, err = NewPrometheusStatsStore(reg)
	assert.Error(t, err, "second registration on the same registry must fail")
}

type failingStats struct{ err error }

func (f failingStats) Record(context.Context, domain.StatsEvent) error { return f.err }

func TestMultiStats_FansOutAndReturnsFirstError(t *testing.T) {
	mem := NewMemoryStatsStore()
	boom := errors.New("boom")
	m := MultiStats{failingStats{err: boom}, nil, mem}

	err := m.Record(context.Background(), domain.StatsEvent{State: domain.StateAdmitted})
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 1, mem.Count(domain.StateAdmitted))
}
