package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"room-gateway/middleware/room"
	"room-gateway/middleware/room/application"
	"room-gateway/middleware/room/domain"
	"room-gateway/middleware/room/infra"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func main() {
	// Exemplo: gateway embutido direto no seu webserver (sem proxy), store em memória.
	logger := zap.Must(zap.NewDevelopment())
	defer func() { _ = logger.Sync() }()

	store := infra.NewMemoryStore()
	issuer := infra.NewTokenIssuer()
	registry := &application.Registry{Store: store, IDs: issuer, Logger: logger}
	admission := application.Admission{
		Registry: registry,
		Membership: &application.Membership{
			Store:    store,
			Issuer:   issuer,
			Registry: registry,
			Logger:   logger,
		},
		Timeout: time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	r := chi.NewRouter()
	r.Post("/api/room/create", room.CreateHandler(registry, time.Second, logger).ServeHTTP)
	r.With(room.Middleware(room.Options{
		Admission: admission,
		Stats:     infra.NewMemoryStatsStore(),
		Logger:    logger,
		// local, sem TLS
		SecureCookie: false,
	})).Get("/room/{roomId}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("welcome to room " + chi.URLParam(r, "roomId") + "\n"))
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		msg := "home\n"
		if e := r.URL.Query().Get("error"); e != "" {
			msg = "home (" + e + ")\n"
		}
		_, _ = w.Write([]byte(msg))
	})

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("example server listening",
		zap.String("addr", addr),
		zap.Int("capacity", domain.DefaultCapacity),
		zap.Duration("ttl", domain.DefaultTTL),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}
