package infra

import (
	"hash/fnv"
	"sync"
	"time"

	"throttle-gateway/middleware/throttle/domain"
)

// DefaultThreshold é o limite (req/s) aplicado a rotas ausentes do mapa da
// fonte, ou quando o mapa inteiro está vazio.
const DefaultThreshold = 50

const shardCount = 32

// Registry guarda o Entry de cada rota em shards independentes: resolves da
// mesma rota são serializados pelo mutex do shard dela, enquanto rotas
// diferentes quase nunca disputam o mesmo lock. É a implementação de
// domain.Registry usada pelo middleware.
type Registry struct {
	source           domain.ThresholdSource
	defaultThreshold int
	shards           [shardCount]shard
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

type RegistryOption func(*Registry)

// WithDefaultThreshold troca o limite aplicado a rotas sem threshold configurado.
// Valores <= 0 são ignorados.
func WithDefaultThreshold(rps int) RegistryOption {
	return func(r *Registry) {
		if rps > 0 {
			r.defaultThreshold = rps
		}
	}
}

func NewRegistry(source domain.ThresholdSource, opts ...RegistryOption) *Registry {
	r := &Registry{
		source:           source,
		defaultThreshold: DefaultThreshold,
	}
	for i := range r.shards {
		r.shards[i].entries = make(map[string]*Entry)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve implementa domain.Registry.
func (r *Registry) Resolve(key domain.Key) domain.Limiter {
	return r.resolve(string(key))
}

// resolve executa, sob o lock do shard da rota, o protocolo de três vias:
//
//  1. não existe Entry → cria com o threshold vigente e instala;
//  2. existe e o rate não mudou (tolerância rateEpsilon) → reusa como está;
//  3. existe e o rate mudou → reconfigura o MESMO Entry in place.
//
// O threshold é relido da fonte a cada chamada, dentro do lock, então uma
// reconfiguração vale já na próxima requisição da rota afetada, sem reload,
// e dois resolves concorrentes nunca instalam dois Entries nem deixam um
// estado meio atualizado visível.
func (r *Registry) resolve(key string) *Entry {
	s := &r.shards[shardIndex(key)]

	s.mu.Lock()
	defer s.mu.Unlock()

	target := float64(r.targetThreshold(key))

	ent, ok := s.entries[key]
	if !ok {
		ent = newEntry(target, time.Now())
		s.entries[key] = ent
		return ent
	}
	if ent.rateEquals(target) {
		return ent
	}
	ent.updateRate(target, time.Now())
	return ent
}

// targetThreshold consulta a fonte e cai no default quando a rota está
// ausente, o valor é inválido ou não há fonte configurada.
func (r *Registry) targetThreshold(key string) int {
	if r.source == nil {
		return r.defaultThreshold
	}
	if rps, ok := r.source.Current()[key]; ok && rps > 0 {
		return rps
	}
	return r.defaultThreshold
}

func shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % shardCount)
}
