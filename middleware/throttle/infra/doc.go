// Pacote infra contém as implementações concretas do throttling:
// token bucket (x/time/rate), registro sharded de limiters por rota,
// fontes de threshold (memória, Redis, arquivo, Mongo), stats e pool de vagas.
// Detalhes de infraestrutura ficam aqui; os contratos, em domain.
package infra
