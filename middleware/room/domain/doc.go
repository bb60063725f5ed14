// Package domain define contratos e tipos de domínio para admissão em salas efêmeras.
//
// Este pacote não depende de net/http nem de implementações concretas (Redis, memória).
// A intenção é permitir testes de unidade puros e desacoplar a decisão de admissão
// de detalhes de infraestrutura.
package domain
