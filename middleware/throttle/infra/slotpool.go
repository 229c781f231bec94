package infra

import (
	"context"

	"golang.org/x/sync/semaphore"

	"throttle-gateway/middleware/throttle/domain"
)

type slotPool struct {
	sem *semaphore.Weighted
}

// NewSlotPool cria um pool de vagas com capacidade max sobre um semáforo
// ponderado (x/sync). Acquire respeita cancelamento/timeout do contexto.
func NewSlotPool(max int) domain.SlotPool {
	return &slotPool{sem: semaphore.NewWeighted(int64(max))}
}

func (p *slotPool) Acquire(ctx context.Context) (func(), bool) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, false
	}
	return func() { p.sem.Release(1) }, true
}
