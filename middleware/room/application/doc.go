// Package application contém os casos de uso da admissão em salas:
// Registry (existência e TTL), Membership (decisão de admissão com capacidade)
// e Admission (sequência completa usada pelo gateway).
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Admission.Admit(ctx, room, token) retorna uma Decision.
package application

import "go.uber.org/zap"

func orNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
