package room

import (
	"errors"
	"net/http"
	"time"

	"room-gateway/middleware/room/application"
	"room-gateway/middleware/room/domain"

	"go.uber.org/zap"
)

type createRoomResponse struct {
	RoomID string `json:"roomId"`
}

// CreateHandler atende POST /api/room/create: sem corpo, devolve {"roomId": ...}.
func CreateHandler(reg *application.Registry, timeout time.Duration, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeError(w, http.StatusMethodNotAllowed, "")
			return
		}

		ctx, cancel := withTimeout(r, timeout)
		defer cancel()

		id, err := reg.Create(ctx)
		if err != nil {
			logger.Error("create room", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "could not create room")
			return
		}

		writeJSON(w, http.StatusOK, createRoomResponse{RoomID: string(id)})
	})
}

type describeRoomResponse struct {
	RoomID    string `json:"roomId"`
	CreatedAt int64  `json:"createdAt"`
	ExpiresIn int64  `json:"expiresIn"`
	Capacity  int    `json:"capacity"`
	Members   int64  `json:"members"`
}

// RoomParam extrai o id da sala da request (ex: chi.URLParam).
type RoomParam func(r *http.Request) string

type DescribeOptions struct {
	Admission  application.Admission
	Param      RoomParam
	CookieName string
	Logger     *zap.Logger
}

// DescribeHandler atende GET /api/room/{roomId} para quem já é membro: alimenta
// o contador regressivo da UI. Quem não é membro recebe 404, igual a sala
// inexistente, para não revelar que a sala existe.
func DescribeHandler(opts DescribeOptions) http.Handler {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.Param == nil {
		opts.Param = func(r *http.Request) string { return r.PathValue("roomId") }
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := domain.RoomID(opts.Param(r))
		token := ReadCredential(r, opts.CookieName)
		if id == "" || token == "" {
			writeError(w, http.StatusNotFound, ErrorRoomNotFound)
			return
		}

		ctx, cancel := withTimeout(r, opts.Admission.Timeout)
		defer cancel()

		member, err := opts.Admission.Membership.IsMember(ctx, id, token)
		if err != nil {
			logger.Error("describe room", zap.String("room", string(id)), zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "")
			return
		}
		if !member {
			writeError(w, http.StatusNotFound, ErrorRoomNotFound)
			return
		}

		room, err := opts.Admission.Registry.Describe(ctx, id)
		if errors.Is(err, domain.ErrRoomNotFound) {
			writeError(w, http.StatusNotFound, ErrorRoomNotFound)
			return
		}
		if err != nil {
			logger.Error("describe room", zap.String("room", string(id)), zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "")
			return
		}

		n, err := opts.Admission.Membership.Count(ctx, id)
		if err != nil {
			logger.Error("describe room", zap.String("room", string(id)), zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "")
			return
		}

		writeJSON(w, http.StatusOK, describeRoomResponse{
			RoomID:    string(room.ID),
			CreatedAt: room.CreatedAt.UnixMilli(),
			ExpiresIn: int64(room.ExpiresIn / time.Second),
			Capacity:  room.Capacity,
			Members:   n,
		})
	})
}
