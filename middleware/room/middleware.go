package room

import (
	"context"
	"net/http"
	"time"

	"room-gateway/middleware/room/application"
	"room-gateway/middleware/room/domain"
	"room-gateway/middleware/room/infra"

	"go.uber.org/zap"
)

type Options struct {
	Admission application.Admission
	Stats     domain.StatsStore
	Logger    *zap.Logger

	CookieName string
	// SecureCookie deve ser true em produção (cookie só trafega em HTTPS).
	SecureCookie bool
	// RedirectTo é o destino de toda recusa (padrão "/").
	RedirectTo string

	// MaxInFlight limita admissões simultâneas contra o store nesta instância.
	// 0 desliga o limite.
	MaxInFlight     int
	InFlightTimeout time.Duration
}

// Middleware intercepta /room/{id} antes de qualquer outro handler e decide
// se a request segue (membro/admitido) ou volta para a raiz.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.RedirectTo == "" {
		opts.RedirectTo = "/"
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var pool *infra.ChanPool
	if opts.MaxInFlight > 0 {
		pool = infra.NewChanPool(opts.MaxInFlight)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := ParseRoomPath(r.URL.Path)
			if !ok {
				redirect(w, r, opts.RedirectTo, "")
				return
			}

			var release func()
			if pool != nil {
				rel, ok := acquire(r.Context(), pool, opts.InFlightTimeout)
				if !ok {
					http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
					return
				}
				release = rel
			}

			dec, err := opts.Admission.Admit(r.Context(), id, ReadCredential(r, opts.CookieName))
			// a vaga cobre só as idas ao store, não o handler seguinte
			if release != nil {
				release()
			}
			if opts.Stats != nil {
				if serr := opts.Stats.Record(r.Context(), domain.StatsEvent{
					Room:   id,
					State:  dec.State,
					Failed: err != nil,
					At:     time.Now(),
				}); serr != nil {
					log.Debug("admission stats", zap.Error(serr))
				}
			}

			if err != nil {
				// falha fechada: erro de store nunca libera a request
				log.Error("admission failed", zap.String("room", string(id)), zap.Error(err))
				redirect(w, r, opts.RedirectTo, ErrorRoomNotFound)
				return
			}

			log.Debug("admission", zap.String("room", string(id)), zap.Stringer("state", dec.State))

			switch dec.State {
			case domain.StateAlreadyMember:
				next.ServeHTTP(w, r)
			case domain.StateAdmitted:
				BindCredential(w, opts.CookieName, dec.Token, opts.SecureCookie)
				next.ServeHTTP(w, r)
			case domain.StateRejectedFull:
				redirect(w, r, opts.RedirectTo, ErrorRoomFull)
			default:
				redirect(w, r, opts.RedirectTo, ErrorRoomNotFound)
			}
		})
	}
}

func acquire(ctx context.Context, pool *infra.ChanPool, timeout time.Duration) (func(), bool) {
	if timeout <= 0 {
		return pool.Acquire(ctx)
	}
	acqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return pool.Acquire(acqCtx)
}

func redirect(w http.ResponseWriter, r *http.Request, base, code string) {
	http.Redirect(w, r, redirectTarget(base, code), http.StatusTemporaryRedirect)
}
