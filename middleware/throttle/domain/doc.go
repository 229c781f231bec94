// Pacote domain contém os contratos do throttling por rota:
// tipos e interfaces puros, sem dependência de net/http ou de infraestrutura.
//
// A implementação concreta (token bucket, fontes de threshold, Redis, etc.)
// fica na camada infra; a decisão de admissão fica na camada application.
package domain
