package application

import (
	"time"

	"throttle-gateway/middleware/throttle/domain"
)

// Service concentra a decisão de admissão por rota.
//
// Ele não sabe nada sobre HTTP (headers/status): resolve o limiter vigente
// da rota no Registry e devolve o veredito. Nada aqui bloqueia nem faz I/O;
// a checagem inteira fica no caminho síncrono da requisição.
type Service struct {
	Registry   domain.Registry
	RetryAfter time.Duration
}

// Admit resolve o limiter atualizado da rota e tenta consumir um token.
func (s Service) Admit(key domain.Key) domain.Decision {
	if s.Registry == nil {
		return domain.Decision{Allowed: true}
	}
	if s.RetryAfter <= 0 {
		s.RetryAfter = 1 * time.Second
	}

	lim := s.Registry.Resolve(key)
	if lim == nil {
		return domain.Decision{Allowed: true}
	}
	if lim.Allow() {
		return domain.Decision{Allowed: true}
	}
	return domain.Decision{Allowed: false, RetryAfter: s.RetryAfter}
}

// Check é a forma em erro do veredito, para chamadores fora do pipeline
// HTTP: nil quando a requisição é admitida, domain.ErrRequestThrottled
// quando excede o limite da rota.
func (s Service) Check(key domain.Key) error {
	if s.Admit(key).Allowed {
		return nil
	}
	return domain.ErrRequestThrottled
}
