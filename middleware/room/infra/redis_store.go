package infra

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"room-gateway/middleware/room/domain"

	"github.com/redis/go-redis/v9"
)

//go:embed admit.lua
var admitSource string

var admitScript = redis.NewScript(admitSource)

// RedisStore implementa domain.Store e domain.BoundedAdmitter sobre go-redis.
//
// O client é compartilhado pelo processo inteiro (criado uma vez no main) e
// injetado aqui; o store não fecha a conexão.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) HSet(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	values := make(map[string]any, len(fields))
	for k, v := range fields {
		values[k] = v
	}

	// HSET + PEXPIRE no mesmo MULTI: o registro nunca fica visível sem TTL.
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, values)
		if ttl > 0 {
			pipe.PExpire(ctx, key, ttl)
		}
		return nil
	})
	return err
}

func (s *RedisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return s.rdb.HGetAll(ctx, key).Result()
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) SAdd(ctx context.Context, key, member string) (bool, error) {
	n, err := s.rdb.SAdd(ctx, key, member).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisStore) SRem(ctx context.Context, key, member string) error {
	return s.rdb.SRem(ctx, key, member).Err()
}

func (s *RedisStore) SCard(ctx context.Context, key string) (int64, error) {
	return s.rdb.SCard(ctx, key).Result()
}

func (s *RedisStore) SIsMember(ctx context.Context, key, member string) (bool, error) {
	return s.rdb.SIsMember(ctx, key, member).Result()
}

// Expire renova o TTL de todas as chaves num único MULTI/EXEC, para que
// metadados e conjunto de membros expirem juntos.
func (s *RedisStore) Expire(ctx context.Context, ttl time.Duration, keys ...string) error {
	switch len(keys) {
	case 0:
		return nil
	case 1:
		return s.rdb.PExpire(ctx, keys[0], ttl).Err()
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range keys {
			pipe.PExpire(ctx, k, ttl)
		}
		return nil
	})
	return err
}

func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.rdb.PTTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	// -2 (não existe) e -1 (sem TTL) chegam como durações negativas.
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

// AdmitBounded executa admit.lua: existência da sala, teste de membro,
// checagem de capacidade, SADD e renovação dos dois TTLs numa única avaliação.
func (s *RedisStore) AdmitBounded(ctx context.Context, membersKey, metaKey, member string, capacity int, ttl time.Duration) (domain.AdmitResult, error) {
	code, err := admitScript.Run(ctx, s.rdb,
		[]string{membersKey, metaKey},
		member, capacity, ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return domain.AdmitNoRoom, err
	}

	switch code {
	case 0:
		return domain.AdmitNoRoom, nil
	case 1:
		return domain.AdmitFull, nil
	case 2:
		return domain.AdmitAdded, nil
	case 3:
		return domain.AdmitExisting, nil
	}
	return domain.AdmitNoRoom, fmt.Errorf("admit script: unexpected result %d", code)
}
