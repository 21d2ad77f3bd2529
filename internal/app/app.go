// Package app wires the offer API server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/offer-engine/internal/domain/auth"
	"github.com/xenking/offer-engine/internal/domain/pricing"
	"github.com/xenking/offer-engine/internal/handler"
	"github.com/xenking/offer-engine/internal/storage/cache"
	"github.com/xenking/offer-engine/internal/storage/postgres"
	"github.com/xenking/offer-engine/pkg/health"
	"github.com/xenking/offer-engine/pkg/httpmiddleware"
)

const meterName = "github.com/xenking/offer-engine"

// Run creates all dependencies, serves HTTP until ctx is cancelled and then
// drains gracefully.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.Duration("snapshot_ttl", cfg.Snapshot.TTL),
	)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	h, hc, err := newHandler(ctx, pool, cfg, m.TracerProvider(), m.MeterProvider())
	if err != nil {
		return err
	}
	hc.Start(ctx, 10*time.Second)
	hc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           h,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		hc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		hc.Stop()
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// newHandler builds the repositories, pricing service and HTTP stack on top
// of pool. Health checks are registered but not started.
func newHandler(
	ctx context.Context,
	pool *pgxpool.Pool,
	cfg *Config,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (http.Handler, *health.Health, error) {
	sampleUnitPrice, err := cfg.SampleUnitPrice()
	if err != nil {
		return nil, nil, err
	}

	offers := cache.NewOfferSnapshot(postgres.NewOfferRepository(pool), cfg.Snapshot.TTL)
	products := postgres.NewProductRepository(pool)
	authenticator := auth.NewAuthenticator(postgres.NewAPIKeyRepository(pool), []byte(cfg.APIKeyPepper))

	svc, err := pricing.NewService(
		offers,
		products,
		mp.Meter(meterName),
		pricing.WithSampleUnitPrice(sampleUnitPrice),
		pricing.WithTracerProvider(tp),
	)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create pricing service")
	}

	hc := health.New()
	hc.Register(health.Readiness, "postgres", health.PingCheck(pool), health.WithTimeout(5*time.Second))
	hc.Register(health.Readiness, "offers", health.NonEmptyCheck("offers", func(ctx context.Context) (int, error) {
		list, err := offers.List(ctx)
		return len(list), err
	}), health.WithTimeout(5*time.Second))
	hc.Register(health.Liveness, "goroutines", health.GoroutineCountCheck(10000))

	r := chi.NewRouter()
	r.Use(httpmiddleware.LogRequests(handler.RoutePattern))
	r.Get("/livez", hc.LiveEndpoint)
	r.Get("/readyz", hc.ReadyEndpoint)
	r.Mount("/api", handler.NewHandler(svc, authenticator).Routes())

	h := otelhttp.NewHandler(
		httpmiddleware.Wrap(r,
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Recovery(),
		),
		"offer-api",
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithMeterProvider(mp),
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/livez" && r.URL.Path != "/readyz"
		}),
	)
	return h, hc, nil
}
