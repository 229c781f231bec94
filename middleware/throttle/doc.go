// Package throttle fornece adapters HTTP (net/http) para admissão por rota
// com threshold dinâmico e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (veredito de admissão, acquire/timeout) sem net/http
//   - infra: implementações concretas (token bucket por rota, fontes de
//     threshold em memória/Redis/arquivo/Mongo, semáforo), detalhes de infraestrutura
//   - throttle (este pacote): middlewares HTTP + resolução da chave de rota +
//     tradução do veredito para status/headers
//
// Fluxo no gateway:
//
//  1. Resolve a chave da rota (pattern do chi quando houver, senão o path)
//  2. Chama a camada application, que obtém do registry o limiter vigente
//     da rota (criando-o ou reconfigurando-o se o threshold mudou) e tenta
//     consumir um token
//  3. Se bloqueado, responde 429 (throttling) ou 503 (concorrência)
//  4. Se permitido, chama o próximo handler (ex: reverse proxy)
//
// A configuração de thresholds é viva: a fonte externa se atualiza sozinha e
// o registry a consulta a cada requisição, então mudar o limite de uma rota
// vale já na requisição seguinte, sem reload nem restart. Logo após criar ou
// reconfigurar o limiter de uma rota há uma janela de graça de 1s em que
// tudo passa, para não rejeitar rajadas legítimas depois de um restart.
//
// Variáveis de ambiente do binário gateway (cmd/gateway) controlam o
// comportamento, como THROTTLE_DEFAULT_RPS, THRESHOLDS_SOURCE e CONCURRENCY_MAX.
package throttle
