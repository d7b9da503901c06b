package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brettulin/okdentalai/internal/api/router"
	"github.com/brettulin/okdentalai/internal/audit"
	appconfig "github.com/brettulin/okdentalai/internal/config"
	"github.com/brettulin/okdentalai/internal/http/handlers"
	"github.com/brettulin/okdentalai/internal/observability/metrics"
	"github.com/brettulin/okdentalai/internal/office"
	"github.com/brettulin/okdentalai/internal/pms"
	"github.com/brettulin/okdentalai/internal/pms/factory"
	"github.com/brettulin/okdentalai/internal/pms/transport"
	"github.com/brettulin/okdentalai/pkg/logging"
)

func main() {
	// Load .env in development; missing file is fine.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting okdentalai API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	// Metrics registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pmsMetrics := metrics.NewPMSMetrics(registry)

	// Audit trail: Postgres when configured, structured logs otherwise.
	var auditSink audit.Sink
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		db.SetMaxOpenConns(10)
		db.SetConnMaxIdleTime(5 * time.Minute)
		auditSink = audit.NewSQLSink(db)
		logger.Info("audit sink: postgres")
	} else {
		auditSink = audit.NewLogSink(logger)
		logger.Info("audit sink: log only")
	}

	var simulator *transport.Simulator
	if cfg.PMSMockSeed != 0 || cfg.PMSMockNoLatency {
		simulator = transport.NewSimulator(transport.SimulatorOptions{
			Seed:      cfg.PMSMockSeed,
			NoLatency: cfg.PMSMockNoLatency,
		})
	}

	factoryOpts := factory.Options{
		Overrides: pms.Overrides{
			ForceMock:  cfg.PMSUseMock,
			Timeout:    cfg.PMSTimeout,
			MaxRetries: cfg.PMSMaxRetries,
		},
		Logger:    logger,
		Metrics:   pmsMetrics,
		Audit:     auditSink,
		Simulator: simulator,
		CacheTTL:  cfg.PMSCacheTTL,
	}

	officeRepo := office.NewInMemoryRepository()
	seedDefaultOffice(officeRepo, cfg, logger)

	officesHandler := handlers.NewOfficesHandler(officeRepo, logger)
	pmsHandler := handlers.NewPMSHandler(officeRepo, factoryOpts, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		OfficesHandler:     officesHandler,
		PMSHandler:         pmsHandler,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// seedDefaultOffice registers one office from environment credentials so
// single-tenant deployments work without calling the registry API first.
func seedDefaultOffice(repo office.Repository, cfg *appconfig.Config, logger *logging.Logger) {
	if cfg.PMSDefaultType == "" {
		return
	}

	secrets := pms.Secrets{UseMock: cfg.PMSUseMock}
	switch cfg.PMSDefaultType {
	case "carestack":
		secrets.VendorKey = cfg.CareStackVendorKey
		secrets.AccountKey = cfg.CareStackAccountKey
		secrets.AccountID = cfg.CareStackAccountID
		secrets.LiveBaseURL = cfg.CareStackBaseURL
	case "dentrix":
		secrets.AccessToken = cfg.DentrixAccessToken
		secrets.LiveBaseURL = cfg.DentrixBaseURL
	case "eaglesoft":
		secrets.VendorKey = cfg.EaglesoftAPIKey
		secrets.AccountID = cfg.EaglesoftAccountID
		secrets.LiveBaseURL = cfg.EaglesoftBaseURL
	}

	o, err := repo.Create(context.Background(), &office.CreateOfficeRequest{
		Name:    "Default Office",
		PMSType: cfg.PMSDefaultType,
		Secrets: secrets,
	})
	if err != nil {
		logger.Warn("default office not seeded", "error", err)
		return
	}
	logger.Info("default office seeded", "office_id", o.ID, "pms_type", o.PMSType)
}
