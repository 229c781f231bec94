package infra

import (
	"math"

	"golang.org/x/time/rate"
)

// rateEpsilon tolera o erro de representação ao comparar o threshold (int,
// vindo da config) com o rate corrente (float). Diferenças menores que isso
// contam como "não mudou" e não reconfiguram o bucket.
const rateEpsilon = 1e-6

// bucket é o token bucket de uma rota, sobre x/time/rate: recarga contínua
// ao rate sustentado, com burst dimensionado para ~1s de tráfego acumulado.
type bucket struct {
	lim *rate.Limiter
}

func newBucket(rps float64) *bucket {
	return &bucket{lim: rate.NewLimiter(rate.Limit(rps), burstFor(rps))}
}

// burstFor dimensiona o burst para aproximadamente um segundo do rate
// sustentado, nunca menor que 1.
func burstFor(rps float64) int {
	b := int(math.Ceil(rps))
	if b < 1 {
		b = 1
	}
	return b
}

func (b *bucket) Rate() float64 { return float64(b.lim.Limit()) }

// SetRate troca o ritmo de recarga em vigor, sem descartar o crédito já
// acumulado além do que o novo rate implica. Chamadores em voo não são
// bloqueados nem rejeitados pela troca.
func (b *bucket) SetRate(rps float64) {
	b.lim.SetLimit(rate.Limit(rps))
	b.lim.SetBurst(burstFor(rps))
}

// RateEquals compara com tolerância rateEpsilon.
func (b *bucket) RateEquals(rps float64) bool {
	return math.Abs(rps-b.Rate()) < rateEpsilon
}

// Allow consome um token se houver algum disponível agora. Nunca bloqueia.
// O *rate.Limiter interno é seguro para chamadas concorrentes: um mesmo
// token nunca é entregue a dois chamadores.
func (b *bucket) Allow() bool {
	return b.lim.Allow()
}
