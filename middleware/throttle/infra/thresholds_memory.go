package infra

import "sync/atomic"

// MemoryThresholds é uma fonte de thresholds em memória, trocável em tempo
// de execução via Set. Útil para testes, desenvolvimento e wiring
// programático (o snapshot inteiro é substituído de forma atômica, nunca
// mutado in place).
type MemoryThresholds struct {
	snapshot atomic.Pointer[map[string]int]
}

func NewMemoryThresholds(m map[string]int) *MemoryThresholds {
	s := &MemoryThresholds{}
	s.Set(m)
	return s
}

// Set substitui o mapa vigente por uma cópia de m.
func (s *MemoryThresholds) Set(m map[string]int) {
	cp := make(map[string]int, len(m))
	for k, v := range m {
		cp[k] = v
	}
	s.snapshot.Store(&cp)
}

// Current implementa domain.ThresholdSource. O mapa retornado é um snapshot
// imutável; chamadores só leem.
func (s *MemoryThresholds) Current() map[string]int {
	return *s.snapshot.Load()
}
