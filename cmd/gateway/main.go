package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"room-gateway/middleware/room"
	"room-gateway/middleware/room/application"
	"room-gateway/middleware/room/domain"
	"room-gateway/middleware/room/infra"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := loadConfig(configPath(os.Args[1:]))
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		store domain.Store
		rdb   *redis.Client
	)
	switch cfg.Store.Driver {
	case "memory":
		logger.Warn("using in-memory store: rooms are not shared between instances")
		store = infra.NewMemoryStore()
	default:
		// client único por processo, injetado em tudo que fala com o Redis
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		pingCancel()
		if err != nil {
			logger.Fatal("redis ping", zap.String("addr", cfg.Store.RedisAddr), zap.Error(err))
		}
		store = infra.NewRedisStore(rdb)
	}

	issuer := infra.NewTokenIssuer(infra.WithTokenLength(cfg.Room.TokenLength))
	registry := &application.Registry{
		Store:    store,
		IDs:      issuer,
		Keys:     domain.Keys{Prefix: cfg.Store.KeyPrefix},
		TTL:      cfg.Room.TTL,
		Capacity: cfg.Room.Capacity,
		Logger:   logger.Named("registry"),
	}
	admission := application.Admission{
		Registry: registry,
		Membership: &application.Membership{
			Store:           store,
			Issuer:          issuer,
			Registry:        registry,
			Mode:            application.Mode(cfg.Admission.Mode),
			RollbackTimeout: cfg.Admission.StoreTimeout,
			Logger:          logger.Named("membership"),
		},
		Timeout: cfg.Admission.StoreTimeout,
	}

	var stats infra.MultiStats
	if cfg.Metrics.Enabled {
		ps, err := infra.NewPrometheusStatsStore(prometheus.DefaultRegisterer)
		if err != nil {
			logger.Fatal("metrics register", zap.Error(err))
		}
		stats = append(stats, ps)
	}
	if cfg.Stats.Enabled && rdb != nil {
		stats = append(stats, infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.Stats.Prefix),
			infra.WithStatsTTL(cfg.Stats.TTL),
			infra.WithStatsBucket(cfg.Stats.Bucket),
		))
	}

	limiter := infra.NewLimiterStore(cfg.Create.RPS, cfg.Create.Burst)
	limiter.StartJanitor(ctx)

	upstream, err := upstreamHandler(cfg.HTTP.UpstreamURL, logger)
	if err != nil {
		logger.Fatal("invalid upstream url", zap.String("url", cfg.HTTP.UpstreamURL), zap.Error(err))
	}

	gateway := room.Middleware(room.Options{
		Admission:       admission,
		Stats:           stats,
		Logger:          logger.Named("gateway"),
		CookieName:      cfg.Room.CookieName,
		SecureCookie:    cfg.Room.SecureCookie,
		MaxInFlight:     cfg.Admission.MaxInFlight,
		InFlightTimeout: cfg.Admission.InFlightTimeout,
	})
	throttle := room.Throttle(room.ThrottleOptions{
		Limiter:    limiter,
		KeyFn:      room.DefaultKeyFunc(cfg.Create.KeyHeader, cfg.Create.TrustXFF),
		RetryAfter: cfg.Create.RetryAfter,
	})

	r := chi.NewRouter()
	r.With(throttle).Method(http.MethodPost, "/api/room/create",
		room.CreateHandler(registry, cfg.Admission.StoreTimeout, logger.Named("create")))
	r.Method(http.MethodGet, "/api/room/{roomId}", room.DescribeHandler(room.DescribeOptions{
		Admission:  admission,
		Param:      func(r *http.Request) string { return chi.URLParam(r, "roomId") },
		CookieName: cfg.Room.CookieName,
		Logger:     logger.Named("describe"),
	}))
	r.Get("/healthz", healthHandler(store))
	if cfg.Metrics.Enabled {
		r.Method(http.MethodGet, cfg.Metrics.Path, promhttp.Handler())
	}
	// /room e tudo abaixo passa pelo gateway antes de chegar na UI
	r.Handle("/room", gateway(upstream))
	r.Handle("/room/*", gateway(upstream))
	r.Handle("/*", upstream)

	srv := &http.Server{
		Addr:              cfg.HTTP.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("gateway listening",
		zap.String("addr", cfg.HTTP.ListenAddr),
		zap.String("upstream", cfg.HTTP.UpstreamURL),
		zap.String("store", cfg.Store.Driver),
		zap.String("mode", cfg.Admission.Mode),
		zap.Int("capacity", cfg.Room.Capacity),
		zap.Duration("ttl", cfg.Room.TTL),
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}

func newLogger(cfg logConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = level
	return zc.Build()
}

// upstreamHandler faz proxy para a UI. Sem upstream configurado, responde com
// uma página mínima (útil em dev e testes manuais).
func upstreamHandler(raw string, logger *zap.Logger) (http.Handler, error) {
	if raw == "" {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = io.WriteString(w, "ok "+r.URL.Path+"\n")
		}), nil
	}

	target, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("proxy error", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}
	return proxy, nil
}

func healthHandler(store domain.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := store.(domain.Pinger)
		if !ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
