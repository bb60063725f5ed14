// Package room fornece adapters HTTP (net/http) para o gateway de admissão em salas efêmeras.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (existência, decisão de admissão, TTL) sem net/http
//   - infra: implementações concretas (Redis, memória, nanoid, rate, stats)
//   - room (este pacote): middleware do caminho /room/{id}, cookie de credencial,
//     handlers de criação/consulta e tradução para redirect/status
//
// Fluxo no gateway:
//
//  1. Extrai o id da sala do caminho (formato inválido: redirect para /, sem tocar no store)
//  2. Chama application.Admission com a credencial do cookie, se houver
//  3. Membro ou admitido: segue para o próximo handler (ex: reverse proxy da UI);
//     admitido recebe o cookie novo
//  4. Sala cheia, inexistente ou erro de store: redirect para / com indicador
//
// Nenhum estado fica em processo: toda decisão é relida do store.
package room
