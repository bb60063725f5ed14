package infra

import "context"

// ChanPool é um semáforo baseado em channel com capacidade `max`.
//
// No gateway ele limita quantas admissões estão em voo contra o store por
// instância; não protege estado (o store é a única fonte de verdade).
type ChanPool struct {
	sem chan struct{}
}

func NewChanPool(max int) *ChanPool {
	return &ChanPool{sem: make(chan struct{}, max)}
}

// Acquire bloqueia até conseguir uma vaga ou até o ctx encerrar.
// A função de release deve ser chamada exatamente uma vez.
func (p *ChanPool) Acquire(ctx context.Context) (func(), bool) {
	select {
	case p.sem <- struct{}{}:
		return func() { <-p.sem }, true
	case <-ctx.Done():
		return nil, false
	}
}

// InUse retorna quantas vagas estão ocupadas agora.
func (p *ChanPool) InUse() int { return len(p.sem) }
