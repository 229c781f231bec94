package infra

import (
	"context"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/zap"
)

// routeThresholdDoc é o documento esperado na collection de thresholds:
//
//	{ "route": "/api/applications", "rps": 2 }
type routeThresholdDoc struct {
	Route string `bson:"route"`
	RPS   int    `bson:"rps"`
}

// MongoThresholds lê o mapa rota→threshold de uma collection do MongoDB em
// intervalo fixo, mantendo um snapshot em memória. Mesmo contrato das demais
// fontes: Current nunca vai à rede.
type MongoThresholds struct {
	col *mongo.Collection

	every time.Duration
	log   *zap.Logger

	snapshot atomic.Pointer[map[string]int]
}

type MongoThresholdsOption func(*MongoThresholds)

// WithMongoRefreshEvery troca o intervalo de poll do refresher.
func WithMongoRefreshEvery(d time.Duration) MongoThresholdsOption {
	return func(s *MongoThresholds) {
		if d > 0 {
			s.every = d
		}
	}
}

// WithMongoThresholdsLogger registra falhas de refresh.
func WithMongoThresholdsLogger(log *zap.Logger) MongoThresholdsOption {
	return func(s *MongoThresholds) { s.log = log }
}

func NewMongoThresholds(col *mongo.Collection, opts ...MongoThresholdsOption) *MongoThresholds {
	s := &MongoThresholds{
		col:   col,
		every: 10 * time.Second,
	}
	empty := map[string]int{}
	s.snapshot.Store(&empty)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current implementa domain.ThresholdSource.
func (s *MongoThresholds) Current() map[string]int {
	return *s.snapshot.Load()
}

// Refresh relê a collection inteira e troca o snapshot. A collection é
// pequena por hipótese (uma linha por rota configurada); documentos
// inválidos são descartados e erro mantém o snapshot anterior.
func (s *MongoThresholds) Refresh(ctx context.Context) error {
	cur, err := s.col.Find(ctx, bson.D{})
	if err != nil {
		return err
	}

	var docs []routeThresholdDoc
	if err := cur.All(ctx, &docs); err != nil {
		return err
	}

	m := make(map[string]int, len(docs))
	for _, d := range docs {
		if d.Route == "" || d.RPS <= 0 {
			continue
		}
		m[d.Route] = d.RPS
	}
	s.snapshot.Store(&m)
	return nil
}

// StartRefresher faz um refresh imediato e inicia uma goroutine que repete
// a cada intervalo. Pare cancelando o contexto.
func (s *MongoThresholds) StartRefresher(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil && s.log != nil {
		s.log.Warn("mongo thresholds: refresh inicial falhou", zap.Error(err))
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
					s.log.Warn("mongo thresholds: refresh falhou", zap.Error(err))
				}
			}
		}
	}()
}
