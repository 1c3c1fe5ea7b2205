// server runs the medconsult auth API over HTTP, with an optional gRPC health endpoint.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"medconsult/backend/internal/audit"
	audithandler "medconsult/backend/internal/audit/handler"
	auditrepo "medconsult/backend/internal/audit/repository"
	"medconsult/backend/internal/config"
	"medconsult/backend/internal/db"
	"medconsult/backend/internal/db/migrate"
	healthhandler "medconsult/backend/internal/health/handler"
	identityhandler "medconsult/backend/internal/identity/handler"
	identityservice "medconsult/backend/internal/identity/service"
	"medconsult/backend/internal/logger"
	"medconsult/backend/internal/platform/httpx"
	"medconsult/backend/internal/platform/ratelimit"
	"medconsult/backend/internal/policy/engine"
	"medconsult/backend/internal/security"
	"medconsult/backend/internal/server"
	"medconsult/backend/internal/server/middleware"
	sessionrepo "medconsult/backend/internal/session/repository"
	"medconsult/backend/internal/telemetry"
	"medconsult/backend/internal/telemetry/metrics"
	telemetryotel "medconsult/backend/internal/telemetry/otel"
	"medconsult/backend/internal/telemetry/producer"
	userhandler "medconsult/backend/internal/user/handler"
	userrepo "medconsult/backend/internal/user/repository"
	userservice "medconsult/backend/internal/user/service"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 15 * time.Second
	rateLimitPrefix   = "medconsult:ratelimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New("local", "info")
		log.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// stores holds the repositories and what is needed to release them.
type stores struct {
	users    userrepo.Repository
	sessions sessionrepo.Repository
	audits   auditrepo.Repository
	pinger   healthhandler.Pinger
	close    func()
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	if cfg.DatabaseURL == "" {
		if cfg.IsProduction() {
			return nil, errors.New("DATABASE_URL is required in production")
		}
		log.Warn().Msg("DATABASE_URL not set; using in-memory storage, data is lost on exit")
		return &stores{
			users:    userrepo.NewMemoryRepository(),
			sessions: sessionrepo.NewMemoryRepository(),
			audits:   auditrepo.NewMemoryRepository(),
			close:    func() {},
		}, nil
	}
	if cfg.MigrateOnStart {
		if err := migrate.Run(cfg.DatabaseURL, migrate.Up); err != nil {
			return nil, err
		}
		log.Info().Msg("migrations applied")
	}
	pool, err := db.Open(ctx, cfg.DatabaseURL, db.PoolOptions{})
	if err != nil {
		return nil, err
	}
	return &stores{
		users:    userrepo.NewPostgresRepository(pool),
		sessions: sessionrepo.NewPostgresRepository(pool),
		audits:   auditrepo.NewPostgresRepository(pool),
		pinger:   pool,
		close:    pool.Close,
	}, nil
}

// openEmitters returns the configured security event sinks and a func closing them.
func openEmitters(cfg *config.Config, providers *telemetryotel.Providers, log zerolog.Logger) (telemetry.EventEmitter, func()) {
	var emitters []telemetry.EventEmitter
	var closers []func() error

	if kp := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.KafkaTopic); kp != nil {
		emitters = append(emitters, kp)
		closers = append(closers, kp.Close)
		log.Info().Strs("brokers", cfg.KafkaBrokersList()).Str("topic", cfg.KafkaTopic).Msg("kafka event producer enabled")
	}
	np, err := producer.NewNATSProducer(cfg.NATSURL, cfg.NATSSubject, cfg.ServiceName)
	if err != nil {
		log.Warn().Err(err).Msg("nats event producer disabled")
	} else if np != nil {
		emitters = append(emitters, np)
		closers = append(closers, np.Close)
		log.Info().Str("subject", cfg.NATSSubject).Msg("nats event producer enabled")
	}
	if cfg.OTelEndpoint != "" {
		emitters = append(emitters, telemetryotel.NewEventEmitter(providers.LoggerProvider))
	}

	return telemetry.NewMultiEmitter(emitters...), func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn().Err(err).Msg("close event producer")
			}
		}
	}
}

func newLimiter(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ratelimit.Limiter, func(), error) {
	if cfg.RateLimitPerMinute <= 0 {
		return nil, func() {}, nil
	}
	if cfg.RedisURL == "" {
		return ratelimit.NewMemoryLimiter(cfg.RateLimitPerMinute, time.Minute), func() {}, nil
	}
	client, err := ratelimit.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Msg("redis rate limiter enabled")
	return ratelimit.NewRedisLimiter(client, rateLimitPrefix, cfg.RateLimitPerMinute, time.Minute), func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("close redis client")
		}
	}, nil
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	ctx = log.WithContext(ctx)

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Config{
		Endpoint:    cfg.OTelEndpoint,
		Insecure:    cfg.OTelInsecure,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
	})
	if err != nil {
		return err
	}
	providers.SetGlobal()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	tokens, err := security.NewTokenProvider(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer, cfg.AccessTTL(), cfg.RefreshTTL())
	if err != nil {
		return err
	}
	creds, err := identityservice.NewCredentialVerifier(security.NewHasher(cfg.BcryptCost))
	if err != nil {
		return err
	}
	authz, err := engine.NewOPAAuthorizer(ctx)
	if err != nil {
		return err
	}
	limiter, closeLimiter, err := newLimiter(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLimiter()

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg := metrics.New(promReg)

	events, closeEmitters := openEmitters(cfg, providers, log)
	auditLogger := audit.NewLogger(st.audits, middleware.ClientIP, log)

	authSvc := identityservice.NewAuthService(st.users, st.sessions, creds, tokens,
		identityservice.WithAuditLogger(auditLogger),
		identityservice.WithEventEmitter(events),
		identityservice.WithRecorder(reg),
	)
	adminSvc := userservice.NewAdminService(st.users, st.sessions,
		userservice.WithAuditLogger(auditLogger),
		userservice.WithEventEmitter(events),
		userservice.WithRecorder(reg),
	)

	errs := httpx.ErrorWriter{HideInternal: cfg.IsProduction()}
	sameSite := http.SameSiteStrictMode
	if cfg.CookieSameSite == "lax" {
		sameSite = http.SameSiteLaxMode
	}
	checker := healthhandler.NewChecker(st.pinger, authz)
	router := server.NewRouter(server.Deps{
		Log:    log,
		Errors: errs,
		Tokens: tokens,
		Auth: identityhandler.NewAuthHandler(authSvc, authz, identityhandler.CookieConfig{
			Secure:   cfg.IsProduction() || cfg.CookieSecure,
			SameSite: sameSite,
			MaxAge:   tokens.RefreshTTL(),
		}, errs, limiter),
		Admin:          userhandler.NewAdminHandler(adminSvc, authz, errs),
		Audit:          audithandler.NewHandler(st.audits, authz, errs),
		Health:         checker,
		Metrics:        reg,
		TrustProxy:     cfg.TrustProxy,
		TracerProvider: providers.TracerProvider,
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	serveErr := make(chan error, 2)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var grpcStop func()
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		grpcSrv := server.NewGRPCServer(server.GRPCDeps{Health: healthhandler.NewGRPCServer(checker, log)})
		grpcStop = grpcSrv.GracefulStop
		go func() {
			log.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC health server listening")
			if err := grpcSrv.Serve(lis); err != nil {
				serveErr <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case runErr = <-serveErr:
		log.Error().Err(runErr).Msg("server failed; shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	if grpcStop != nil {
		grpcStop()
	}
	// Let in-flight async event emits finish before closing their producers.
	select {
	case <-time.After(telemetry.ShutdownDrainDuration):
	case <-shutdownCtx.Done():
	}
	closeEmitters()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("otel shutdown")
	}
	log.Info().Msg("server stopped")
	return runErr
}
