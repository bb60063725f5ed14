package infra

import (
	"context"
	"strconv"

	"room-gateway/middleware/room/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusStatsStore expõe as decisões como contador com labels de baixa
// cardinalidade (estado e falha de store). Nunca use o id da sala como label.
type PrometheusStatsStore struct {
	decisions *prometheus.CounterVec
}

func NewPrometheusStatsStore(reg prometheus.Registerer) (*PrometheusStatsStore, error) {
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "room_gateway",
		Name:      "admission_decisions_total",
		Help:      "Admission decisions taken by the room gateway.",
	}, []string{"state", "store_failed"})

	if err := reg.Register(decisions); err != nil {
		return nil, err
	}
	return &PrometheusStatsStore{decisions: decisions}, nil
}

func (s *PrometheusStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.decisions.WithLabelValues(ev.State.String(), strconv.FormatBool(ev.Failed)).Inc()
	return nil
}

// MultiStats repassa o evento para vários StatsStore; devolve o primeiro erro.
type MultiStats []domain.StatsStore

func (m MultiStats) Record(ctx context.Context, ev domain.StatsEvent) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
