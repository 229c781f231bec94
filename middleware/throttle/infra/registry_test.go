package infra

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"throttle-gateway/middleware/throttle/domain"
)

func resolveEntry(t *testing.T, r *Registry, key string) *Entry {
	t.Helper()
	ent, ok := r.Resolve(domain.Key(key)).(*Entry)
	require.True(t, ok, "Resolve should return an *Entry")
	return ent
}

func TestRegistry_SameKeyReturnsSameEntry(t *testing.T) {
	r := NewRegistry(NewMemoryThresholds(map[string]int{"/api/a": 10}))

	e1 := resolveEntry(t, r, "/api/a")
	e2 := resolveEntry(t, r, "/api/a")
	assert.Same(t, e1, e2)
}

func TestRegistry_UnknownRouteFallsBackToDefault(t *testing.T) {
	r := NewRegistry(NewMemoryThresholds(nil))

	e := resolveEntry(t, r, "/unknown")
	assert.InDelta(t, float64(DefaultThreshold), e.Rate(), rateEpsilon)
}

func TestRegistry_NilSourceFallsBackToDefault(t *testing.T) {
	r := NewRegistry(nil)

	e := resolveEntry(t, r, "/whatever")
	assert.InDelta(t, float64(DefaultThreshold), e.Rate(), rateEpsilon)
}

func TestRegistry_WithDefaultThreshold(t *testing.T) {
	r := NewRegistry(NewMemoryThresholds(nil), WithDefaultThreshold(7))

	e := resolveEntry(t, r, "/unknown")
	assert.InDelta(t, 7.0, e.Rate(), rateEpsilon)
}

func TestRegistry_InvalidThresholdFallsBackToDefault(t *testing.T) {
	r := NewRegistry(NewMemoryThresholds(map[string]int{"/api/a": 0}))

	e := resolveEntry(t, r, "/api/a")
	assert.InDelta(t, float64(DefaultThreshold), e.Rate(), rateEpsilon)
}

func TestRegistry_ThresholdChangeMutatesEntryInPlace(t *testing.T) {
	source := NewMemoryThresholds(map[string]int{"/api/a": 5})
	r := NewRegistry(source)

	e1 := resolveEntry(t, r, "/api/a")
	assert.InDelta(t, 5.0, e1.Rate(), rateEpsilon)
	backdate(e1, 2*time.Second)
	staleReset := e1.resetAt.Load()

	// a troca vale já no próximo resolve, sem reload
	source.Set(map[string]int{"/api/a": 9})

	e2 := resolveEntry(t, r, "/api/a")
	assert.Same(t, e1, e2, "rate change must mutate the same entry, not replace it")
	assert.InDelta(t, 9.0, e2.Rate(), rateEpsilon)
	assert.Greater(t, e2.resetAt.Load(), staleReset, "rate change must re-arm the grace window")
}

func TestRegistry_UnchangedThresholdDoesNotRearmGrace(t *testing.T) {
	source := NewMemoryThresholds(map[string]int{"/api/a": 5})
	r := NewRegistry(source)

	e := resolveEntry(t, r, "/api/a")
	backdate(e, 2*time.Second)
	staleReset := e.resetAt.Load()

	e2 := resolveEntry(t, r, "/api/a")
	assert.Same(t, e, e2)
	assert.Equal(t, staleReset, e2.resetAt.Load(), "same threshold must not touch the grace timestamp")
}

func TestRegistry_RateDecreaseAlsoRearmsGrace(t *testing.T) {
	source := NewMemoryThresholds(map[string]int{"/api/a": 100})
	r := NewRegistry(source)

	e := resolveEntry(t, r, "/api/a")
	backdate(e, 2*time.Second)

	// aperta o limite: mesmo assim a próxima requisição passa (graça rearmada)
	source.Set(map[string]int{"/api/a": 1})

	e2 := resolveEntry(t, r, "/api/a")
	assert.Same(t, e, e2)
	assert.True(t, e2.Allow(), "first request after tightening the limit must pass")
}

func TestRegistry_ConcurrentFirstAccessCreatesSingleEntry(t *testing.T) {
	r := NewRegistry(NewMemoryThresholds(map[string]int{"/api/new": 10}))

	const callers = 64
	entries := make([]*Entry, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entries[i], _ = r.Resolve(domain.Key("/api/new")).(*Entry)
		}(i)
	}
	wg.Wait()

	require.NotNil(t, entries[0])
	for i := 1; i < callers; i++ {
		require.Same(t, entries[0], entries[i], "caller %d observed a different entry", i)
	}
}

func TestRegistry_DifferentKeysGetIndependentEntries(t *testing.T) {
	r := NewRegistry(NewMemoryThresholds(map[string]int{"/api/a": 1, "/api/b": 100}))

	ea := resolveEntry(t, r, "/api/a")
	eb := resolveEntry(t, r, "/api/b")
	assert.NotSame(t, ea, eb)
	assert.InDelta(t, 1.0, ea.Rate(), rateEpsilon)
	assert.InDelta(t, 100.0, eb.Rate(), rateEpsilon)
}

func TestRegistry_FirstBurstInsideGraceAllPass(t *testing.T) {
	// mapa vazio, rota desconhecida: 50+ requisições no primeiro segundo
	// passam todas, independente do default
	r := NewRegistry(NewMemoryThresholds(nil))

	lim := r.Resolve(domain.Key("/unknown"))
	for i := 0; i < 60; i++ {
		require.True(t, lim.Allow(), "request %d should pass inside the grace window", i)
	}
}

func TestRegistry_ManyRoutesStayPartitioned(t *testing.T) {
	r := NewRegistry(NewMemoryThresholds(nil))

	seen := make(map[*Entry]struct{})
	for i := 0; i < 100; i++ {
		e := resolveEntry(t, r, fmt.Sprintf("/api/route-%d", i))
		seen[e] = struct{}{}
	}
	assert.Len(t, seen, 100)
}
