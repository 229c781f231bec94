package domain

// Camada de domínio do throttling por rota.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import "time"

// Key identifica a rota lógica de uma requisição (ex: "/api/applications").
// É estável entre requisições ao mesmo endpoint e é a única chave de
// particionamento do rate limit: o throttling aqui é por rota, não por cliente.
type Key string

// Limiter representa algo que pode decidir se uma ação é permitida agora.
//
// Allow nunca bloqueia; "sem token disponível" é um resultado normal e
// frequente, comunicado pelo bool, nunca por erro.
type Limiter interface {
	Allow() bool
}

// Registry obtém o limiter vigente de uma rota, criando-o na primeira
// requisição e reconfigurando-o quando o threshold externo muda.
//
// A implementação deve garantir que requisições concorrentes da mesma rota
// observem sempre um único limiter consistente (nunca dois, nunca um estado
// parcialmente atualizado).
type Registry interface {
	Resolve(Key) Limiter
}

// ThresholdSource fornece o mapa rota→threshold (req/s) vigente.
//
// A fonte se atualiza sozinha (poll de um serviço remoto, watch de arquivo);
// Current é consultado a cada requisição, então precisa ser barato: um
// snapshot em memória, não uma ida à rede. Rotas ausentes (ou mapa vazio)
// caem no threshold default do Registry.
type ThresholdSource interface {
	Current() map[string]int
}

type Decision struct {
	Allowed bool
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}
