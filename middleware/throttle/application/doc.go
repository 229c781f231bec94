// Pacote application contém os casos de uso do throttling
// (decisão de admissão por rota, aquisição de vaga de concorrência)
// sem nenhuma dependência de net/http ou de infraestrutura concreta.
package application
