package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/projectdash/dashboard-backend/config"
	"github.com/projectdash/dashboard-backend/internal/api/http/middleware"
	"github.com/projectdash/dashboard-backend/internal/bootstrap"
	"github.com/projectdash/dashboard-backend/internal/export"
	"github.com/projectdash/dashboard-backend/internal/jobs"
	"github.com/projectdash/dashboard-backend/internal/logger"
	"github.com/projectdash/dashboard-backend/internal/metrics"
)

const limiterIdle = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.App.LogLevel,
		Environment: cfg.App.Environment,
		ServiceName: cfg.App.Name,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	lg := logger.GetLogger()
	defer func() { _ = lg.Sync() }()

	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := bootstrap.OpenDB(ctx, &cfg.Database)
	if err != nil {
		lg.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	rdb, err := bootstrap.OpenRedis(ctx, &cfg.Redis)
	if err != nil {
		lg.Fatal("failed to connect to redis", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
	}

	m := metrics.New(metricsNamespace(cfg.App.Name))
	detector := bootstrap.BuildDetector(&cfg.Capability, db, rdb)
	exporter := export.New(cfg.Export.Dir, m)
	limiter := middleware.NewRateLimiter(float64(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst)
	ipLimiter := middleware.NewRateLimiter(float64(cfg.Security.IPRateLimitRPS), cfg.Security.IPRateLimitBurst)

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		Config:      cfg,
		Logger:      lg,
		Metrics:     m,
		DB:          db,
		Stores:      bootstrap.PostgresStores(db),
		Detector:    detector,
		Identity:    bootstrap.BuildIdentity(ctx, &cfg.Firebase, lg),
		Revocations: bootstrap.BuildRevocations(rdb, &cfg.Security, lg, m),
		Exporter:    exporter,
		Redis:       rdb,

		IPRateLimiter: ipLimiter,
		RateLimiter:   limiter,
	})

	sched := jobs.NewScheduler(lg)
	for _, job := range []jobs.Job{
		jobs.CapabilityRefresh(detector, cfg.Capability.RefreshSpec, lg),
		jobs.ExportSweep(exporter, cfg.Export.MaxAge, cfg.Export.SweepSpec, lg),
		jobs.RateLimiterCleanup(limiterIdle, "@every 5m", ipLimiter, limiter),
	} {
		if err := sched.Add(job); err != nil {
			lg.Fatal("failed to schedule job", zap.String("job", job.Name), zap.Error(err))
		}
	}
	sched.Start()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lg.Info("starting server",
			zap.String("port", cfg.Server.Port),
			zap.String("environment", cfg.App.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("graceful shutdown failed", zap.Error(err))
	}
	sched.Stop(shutdownCtx)
}

// metricsNamespace maps the app name onto the Prometheus name alphabet.
func metricsNamespace(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, name)
}
