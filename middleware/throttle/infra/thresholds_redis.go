package infra

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisThresholds lê o mapa rota→threshold de um hash do Redis
// (HGETALL), em intervalo fixo, e mantém o resultado num snapshot em
// memória. Current nunca vai à rede: é sempre o último snapshot bom.
type RedisThresholds struct {
	rdb *redis.Client

	hashKey string
	every   time.Duration
	log     *zap.Logger

	snapshot atomic.Pointer[map[string]int]
}

type RedisThresholdsOption func(*RedisThresholds)

// WithThresholdsHashKey troca a chave do hash consultado no Redis.
func WithThresholdsHashKey(key string) RedisThresholdsOption {
	return func(s *RedisThresholds) {
		if key != "" {
			s.hashKey = key
		}
	}
}

// WithRefreshEvery troca o intervalo de poll do refresher.
func WithRefreshEvery(d time.Duration) RedisThresholdsOption {
	return func(s *RedisThresholds) {
		if d > 0 {
			s.every = d
		}
	}
}

// WithRedisThresholdsLogger registra falhas de refresh (best-effort; sem
// logger as falhas são silenciosas e o snapshot anterior continua valendo).
func WithRedisThresholdsLogger(log *zap.Logger) RedisThresholdsOption {
	return func(s *RedisThresholds) { s.log = log }
}

func NewRedisThresholds(rdb *redis.Client, opts ...RedisThresholdsOption) *RedisThresholds {
	s := &RedisThresholds{
		rdb:     rdb,
		hashKey: "throttle:thresholds",
		every:   10 * time.Second,
	}
	empty := map[string]int{}
	s.snapshot.Store(&empty)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current implementa domain.ThresholdSource.
func (s *RedisThresholds) Current() map[string]int {
	return *s.snapshot.Load()
}

// Refresh relê o hash e troca o snapshot. Em caso de erro o snapshot
// anterior é mantido; campos não numéricos ou <= 0 são descartados.
func (s *RedisThresholds) Refresh(ctx context.Context) error {
	fields, err := s.rdb.HGetAll(ctx, s.hashKey).Result()
	if err != nil {
		return err
	}

	m := make(map[string]int, len(fields))
	for route, raw := range fields {
		rps, err := strconv.Atoi(raw)
		if err != nil || rps <= 0 {
			continue
		}
		m[route] = rps
	}
	s.snapshot.Store(&m)
	return nil
}

// StartRefresher faz um refresh imediato e inicia uma goroutine que repete
// a cada intervalo. Pare cancelando o contexto.
func (s *RedisThresholds) StartRefresher(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil && s.log != nil {
		s.log.Warn("redis thresholds: refresh inicial falhou", zap.Error(err))
	}

	t := time.NewTicker(s.every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := s.Refresh(ctx); err != nil && s.log != nil {
					s.log.Warn("redis thresholds: refresh falhou", zap.Error(err))
				}
			}
		}
	}()
}
