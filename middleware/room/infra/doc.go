// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - RedisStore: adapter go-redis, com admissão atômica via script Lua
//   - MemoryStore: store em memória com TTL por chave (dev/testes)
//   - TokenIssuer: ids de sala e tokens de membro com nanoid
//   - LimiterStore: token bucket por chave (x/time/rate) para throttle de criação
//   - ChanPool: semáforo simples para limitar admissões em voo
//   - *StatsStore: estatísticas de decisão em memória, Redis ou Prometheus
package infra
