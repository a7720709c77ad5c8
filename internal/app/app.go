// Package app wires configuration, storage, services and HTTP handlers into a
// runnable server.
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/dental-api/internal/config"
	"github.com/jwalitptl/dental-api/internal/handler"
	catalogHandler "github.com/jwalitptl/dental-api/internal/handler/catalog"
	clinicHandler "github.com/jwalitptl/dental-api/internal/handler/clinic"
	doctorHandler "github.com/jwalitptl/dental-api/internal/handler/doctor"
	fileHandler "github.com/jwalitptl/dental-api/internal/handler/file"
	patientHandler "github.com/jwalitptl/dental-api/internal/handler/patient"
	paymentHandler "github.com/jwalitptl/dental-api/internal/handler/payment"
	userHandler "github.com/jwalitptl/dental-api/internal/handler/user"
	visitHandler "github.com/jwalitptl/dental-api/internal/handler/visit"
	"github.com/jwalitptl/dental-api/internal/middleware"
	"github.com/jwalitptl/dental-api/internal/repository"
	sheetsrepo "github.com/jwalitptl/dental-api/internal/repository/sheets"
	"github.com/jwalitptl/dental-api/internal/repository/sqlite"
	"github.com/jwalitptl/dental-api/internal/router"
	catalogService "github.com/jwalitptl/dental-api/internal/service/catalog"
	clinicService "github.com/jwalitptl/dental-api/internal/service/clinic"
	doctorService "github.com/jwalitptl/dental-api/internal/service/doctor"
	fileService "github.com/jwalitptl/dental-api/internal/service/file"
	patientService "github.com/jwalitptl/dental-api/internal/service/patient"
	paymentService "github.com/jwalitptl/dental-api/internal/service/payment"
	userService "github.com/jwalitptl/dental-api/internal/service/user"
	visitService "github.com/jwalitptl/dental-api/internal/service/visit"
	storage "github.com/jwalitptl/dental-api/internal/storage/sheets"
	"github.com/jwalitptl/dental-api/pkg/auth"
	"github.com/jwalitptl/dental-api/pkg/event"
	"github.com/jwalitptl/dental-api/pkg/messaging/redis"
	"github.com/jwalitptl/dental-api/pkg/metrics"
	"github.com/jwalitptl/dental-api/pkg/otp"
	"github.com/jwalitptl/dental-api/pkg/security"
)

const metricsNamespace = "dental"

// Dependencies are the outer resources a server is built from.
type Dependencies struct {
	Repos     *repository.Repositories
	OTPStore  otp.Store
	Publisher event.Publisher
	Registry  *prometheus.Registry
	Metrics   *metrics.Metrics
}

type App struct {
	config  *config.Config
	repos   *repository.Repositories
	router  *router.Router
	server  *http.Server
	closers []func() error
}

// New opens storage and Redis as configured and builds the server.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(metricsNamespace, registry)

	repos, err := OpenRepositories(ctx, cfg, m)
	if err != nil {
		return nil, err
	}
	closers := []func() error{repos.Close}

	deps := Dependencies{
		Repos:     repos,
		OTPStore:  otp.NewMemoryStore(),
		Publisher: event.NewNopPublisher(),
		Registry:  registry,
		Metrics:   m,
	}

	if cfg.Redis.URL != "" {
		client, err := redis.NewClient(ctx, redis.Config{URL: cfg.Redis.URL, MaxRetries: 3})
		if err != nil {
			closeAll(closers)
			return nil, err
		}
		broker := redis.NewFromClient(client)
		deps.OTPStore = otp.NewRedisStore(client)
		deps.Publisher = event.NewPublisher(broker, event.DefaultChannel)
		closers = append(closers, broker.Close, client.Close)
		log.Info().Msg("redis connected, using redis otp store and event publisher")
	} else {
		log.Info().Msg("redis not configured, using in-memory otp store")
	}

	a, err := Build(cfg, deps)
	if err != nil {
		closeAll(closers)
		return nil, err
	}
	a.closers = closers
	return a, nil
}

// OpenRepositories opens the backend chosen by cfg.ResolvedBackend. The SQLite
// schema is migrated up before use.
func OpenRepositories(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*repository.Repositories, error) {
	switch backend := cfg.ResolvedBackend(); backend {
	case config.BackendSheets:
		api, err := storage.NewGoogleAPI(ctx, storage.Credentials{
			SpreadsheetID: cfg.Google.SheetsID,
			ClientEmail:   cfg.Google.ClientEmail,
			PrivateKey:    cfg.Google.PrivateKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to google sheets: %w", err)
		}
		log.Info().Str("spreadsheet", cfg.Google.SheetsID).Msg("using google sheets storage")
		return sheetsrepo.New(storage.NewClient(api, m), m), nil
	default:
		db, err := sqlite.NewDB(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, err
		}
		if err := sqlite.Migrate(db, sqlite.Up); err != nil {
			db.Close()
			return nil, err
		}
		log.Info().Str("path", cfg.Database.DSN()).Msg("using sqlite storage")
		return sqlite.New(db, m), nil
	}
}

// Build assembles services, handlers and the router on top of deps.
func Build(cfg *config.Config, deps Dependencies) (*App, error) {
	if deps.Repos == nil {
		return nil, errors.New("repositories are required")
	}
	if deps.OTPStore == nil {
		deps.OTPStore = otp.NewMemoryStore()
	}
	if deps.Publisher == nil {
		deps.Publisher = event.NewNopPublisher()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNop()
	}

	repos := deps.Repos
	secret, err := jwtSecret(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, err
	}
	jwtSvc := auth.NewJWTService(secret, time.Duration(cfg.Auth.ExpiryHours)*time.Hour)

	clinicSvc := clinicService.NewService(repos.Clinics, deps.Publisher)
	userSvc := userService.NewService(
		repos.Users,
		repos.Clinics,
		security.NewBcryptHasher(0),
		jwtSvc,
		deps.OTPStore,
		userService.OTPConfig{
			TTL:        cfg.OTP.TTL,
			Length:     cfg.OTP.Length,
			ExposeCode: cfg.OTP.ExposeCode,
		},
		deps.Publisher,
		deps.Metrics,
	)
	doctorSvc := doctorService.NewService(repos.Doctors, repos.Clinics, repos.Users, deps.Publisher)
	catalogSvc := catalogService.NewService(repos.Services, repos.Clinics, deps.Publisher)
	patientSvc := patientService.NewService(repos.Patients, repos.Clinics, deps.Publisher)
	visitSvc := visitService.NewService(repos, deps.Publisher)
	paymentSvc := paymentService.NewService(repos, deps.Publisher, deps.Metrics)
	fileSvc := fileService.NewService(repos, deps.Publisher)

	var gatherer prometheus.Gatherer
	var registerer prometheus.Registerer
	if deps.Registry != nil {
		gatherer, registerer = deps.Registry, deps.Registry
	}

	routerConfig := router.RouterConfig{
		Mode: cfg.Server.Mode,
		RateLimit: middleware.RateLimiterConfig{
			RPS:   cfg.RateLimit.RPS,
			Burst: cfg.RateLimit.Burst,
		},
		CORSConfig:    middleware.CORSConfig{AllowOrigins: cfg.CORS.AllowedOrigins},
		MetricsPrefix: metricsNamespace + "_http",
		Registerer:    registerer,
	}
	if cfg.Auth.Enabled {
		routerConfig.Auth = middleware.NewAuthMiddleware(jwtSvc)
	}

	r := router.NewRouter(router.Handlers{
		Health:   handler.NewHandler(repos.Health, repos.Backend, gatherer),
		Clinics:  clinicHandler.NewHandler(clinicSvc),
		Users:    userHandler.NewHandler(userSvc),
		Doctors:  doctorHandler.NewHandler(doctorSvc),
		Services: catalogHandler.NewHandler(catalogSvc),
		Patients: patientHandler.NewHandler(patientSvc),
		Visits:   visitHandler.NewHandler(visitSvc),
		Payments: paymentHandler.NewHandler(paymentSvc),
		Files:    fileHandler.NewHandler(fileSvc),
	}, routerConfig)
	r.Setup()

	return &App{
		config: cfg,
		repos:  repos,
		router: r,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      r.Engine(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}, nil
}

func (a *App) Handler() http.Handler {
	return a.router.Engine()
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", a.server.Addr).
			Str("backend", a.repos.Backend).
			Msg("starting server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info().Msg("server exited")
	return nil
}

func (a *App) Close() error {
	return closeAll(a.closers)
}

func closeAll(closers []func() error) error {
	var errs []error
	for _, c := range closers {
		if err := c(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// jwtSecret generates a throwaway secret when none is configured, so tokens do
// not survive a restart.
func jwtSecret(configured string) (string, error) {
	if s := strings.TrimSpace(configured); s != "" {
		return s, nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate jwt secret: %w", err)
	}
	log.Warn().Msg("auth.jwt_secret not set, using a random secret for this process")
	return hex.EncodeToString(buf), nil
}
