package domain

import (
	"context"
	"time"
)

// StatsEvent representa um veredito de admissão de uma requisição.
//
// Ele é propositalmente "agnóstico de HTTP": Route/Method são strings
// genéricas e servem para web, gRPC, etc.
//
// A cardinalidade aqui é limitada por construção: a chave é a rota lógica,
// não o cliente nem a URL crua, então o conjunto de séries é pequeno.
type StatsEvent struct {
	Route   Key
	Allowed bool

	Method string

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas do throttling.
//
// Implementações podem armazenar em Redis, memória, etc.
// O middleware deve tratar erro como best-effort (não derrubar request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
