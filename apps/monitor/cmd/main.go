package main

import (
	"context"
	"net/http"

	"github.com/pitabwire/frame"
	"github.com/pitabwire/frame/config"
	"github.com/pitabwire/frame/datastore"
	"github.com/pitabwire/util"

	appconfig "github.com/scenicworks/renderqa/apps/monitor/config"
	"github.com/scenicworks/renderqa/apps/monitor/service/handlers"
	"github.com/scenicworks/renderqa/apps/monitor/service/monitor"
	"github.com/scenicworks/renderqa/internal/records"
)

func main() {
	ctx := context.Background()

	// Initialize configuration
	cfg, err := config.LoadWithOIDC[appconfig.MonitorConfig](ctx)
	if err != nil {
		util.Log(ctx).With("err", err).Error("could not process configs")
		return
	}

	if cfg.Name() == "" {
		cfg.ServiceName = "render_monitor"
	}

	// Create service with Frame
	ctx, svc := frame.NewServiceWithContext(
		ctx,
		frame.WithConfig(&cfg),
		frame.WithDatastore(),
	)
	defer svc.Stop(ctx)
	log := svc.Log(ctx)

	// Get managers
	dbManager := svc.DatastoreManager()
	qMan := svc.QueueManager()

	// Handle database migration
	dbPool := dbManager.GetPool(ctx, datastore.DefaultPoolName)
	if cfg.DoDatabaseMigrate() {
		if migrateErr := records.Migrate(ctx, dbPool); migrateErr != nil {
			log.WithError(migrateErr).Fatal("could not migrate")
		}
		return
	}

	// ==========================================================================
	// Setup Repositories
	// ==========================================================================

	renderRepo := records.NewRenderRepository(ctx, dbPool)
	alertRepo := records.NewAlertRepository(ctx, dbPool)

	// ==========================================================================
	// Setup Services
	// ==========================================================================

	sink := monitor.MultiSink{
		monitor.NewTelemetrySink(),
		monitor.NewQueueSink(cfg.QueueAlertsName, qMan),
	}

	failureMonitor := monitor.New(monitor.DefaultPatterns(), renderRepo, alertRepo, sink)

	// ==========================================================================
	// Register Publishers
	// ==========================================================================

	alertsPublisher := frame.WithRegisterPublisher(
		cfg.QueueAlertsName,
		cfg.QueueAlertsURI,
	)

	// ==========================================================================
	// Setup HTTP API
	// ==========================================================================

	mux := http.NewServeMux()

	mux.Handle("/api/v1/alerts/active", handlers.NewActiveAlertsHandler(failureMonitor))
	mux.Handle("/api/v1/alerts/history", handlers.NewAlertHistoryHandler(failureMonitor))
	mux.Handle("/api/v1/alerts/{id}/acknowledge", handlers.NewAcknowledgeAlertHandler(
		failureMonitor,
		cfg.QueueAlertsName,
		qMan,
		cfg.MaxRequestBodyBytes,
	))
	mux.Handle("/api/v1/health", handlers.NewHealthHandler(failureMonitor))

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready","service":"monitor"}`))
	})

	// ==========================================================================
	// Initialize Service
	// ==========================================================================

	serviceOptions := []frame.Option{
		frame.WithHTTPHandler(mux),
		alertsPublisher,
	}

	svc.Init(ctx, serviceOptions...)

	// ==========================================================================
	// Start the Service
	// ==========================================================================

	go failureMonitor.Run(ctx, cfg.CheckInterval())

	log.Info("Starting failure monitor service...")
	err = svc.Run(ctx, "")
	if err != nil {
		log.WithError(err).Fatal("could not run server")
	}
}
