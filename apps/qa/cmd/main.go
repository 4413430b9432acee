package main

import (
	"context"
	"net/http"

	"github.com/pitabwire/frame"
	"github.com/pitabwire/frame/config"
	"github.com/pitabwire/frame/datastore"
	"github.com/pitabwire/util"

	appconfig "github.com/scenicworks/renderqa/apps/qa/config"
	"github.com/scenicworks/renderqa/apps/qa/middleware"
	qaevents "github.com/scenicworks/renderqa/apps/qa/service/events"
	"github.com/scenicworks/renderqa/apps/qa/service/handlers"
	"github.com/scenicworks/renderqa/apps/qa/service/queue"
	"github.com/scenicworks/renderqa/apps/qa/service/review"
	"github.com/scenicworks/renderqa/internal/assess"
	"github.com/scenicworks/renderqa/internal/hashcorpus"
	"github.com/scenicworks/renderqa/internal/records"
)

func main() {
	ctx := context.Background()

	// Initialize configuration
	cfg, err := config.LoadWithOIDC[appconfig.QAConfig](ctx)
	if err != nil {
		util.Log(ctx).With("err", err).Error("could not process configs")
		return
	}

	if cfg.Name() == "" {
		cfg.ServiceName = "render_qa"
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
	evtsMan := svc.EventsManager()
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

	reviewRepo := records.NewReviewRepository(ctx, dbPool)
	renderRepo := records.NewRenderRepository(ctx, dbPool)

	// ==========================================================================
	// Setup Services
	// ==========================================================================

	corpusStore, err := hashcorpus.New(ctx, cfg.CorpusConfig())
	if err != nil {
		log.WithError(err).Fatal("could not set up hash corpus")
	}
	defer corpusStore.Close()

	assessor := assess.New(cfg.QualityThresholds())

	criteria := review.Criteria{
		AutoApproveThreshold:   cfg.AutoApproveThreshold,
		AutoRejectThreshold:    cfg.AutoRejectThreshold,
		RequireManualReviewFor: cfg.ManualReviewCategories(),
	}
	reviewQueue := review.NewQueue(criteria, reviewRepo, renderRepo, evtsMan)

	// ==========================================================================
	// Register Publishers and Subscribers
	// ==========================================================================

	reviewEventsPublisher := frame.WithRegisterPublisher(
		cfg.QueueReviewEventsName,
		cfg.QueueReviewEventsURI,
	)

	renderOutputSubscriber := frame.WithRegisterSubscriber(
		cfg.QueueRenderOutputName,
		cfg.QueueRenderOutputURI,
		queue.NewRenderOutputHandler(
			assessor,
			corpusStore.Corpus,
			reviewQueue,
			criteria,
			cfg.DuplicateThreshold,
			cfg.HashCorpusSize,
		),
	)

	// ==========================================================================
	// Register Event Handlers
	// ==========================================================================

	eventHandlers := frame.WithRegisterEvents(
		qaevents.NewReviewCreatedForwarder(cfg.QueueReviewEventsName, qMan),
		qaevents.NewReviewAutoApprovedForwarder(cfg.QueueReviewEventsName, qMan),
		qaevents.NewReviewApprovedForwarder(cfg.QueueReviewEventsName, qMan),
		qaevents.NewReviewRejectedForwarder(cfg.QueueReviewEventsName, qMan),
	)

	// ==========================================================================
	// Setup HTTP API
	// ==========================================================================

	mux := http.NewServeMux()

	mux.Handle("/api/v1/reviews/pending", handlers.NewPendingReviewsHandler(reviewQueue))
	mux.Handle("/api/v1/reviews/stats", handlers.NewReviewStatsHandler(reviewQueue))
	mux.Handle("/api/v1/reviews/{id}/approve",
		handlers.NewApproveReviewHandler(reviewQueue, cfg.MaxRequestBodyBytes))
	mux.Handle("/api/v1/reviews/{id}/reject",
		handlers.NewRejectReviewHandler(reviewQueue, cfg.MaxRequestBodyBytes))
	mux.Handle("/api/v1/duplicates/check", handlers.NewDuplicateCheckHandler(
		corpusStore.Corpus,
		cfg.DuplicateThreshold,
		cfg.HashCorpusSize,
		cfg.MaxRequestBodyBytes,
	))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","service":"qa"}`))
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready","service":"qa"}`))
	})

	limiter := middleware.NewLimiter(cfg.APIRequestsPerMinute, cfg.APIBurstSize)
	defer limiter.Stop()

	// ==========================================================================
	// Initialize Service
	// ==========================================================================

	serviceOptions := []frame.Option{
		frame.WithHTTPHandler(limiter.Wrap(mux)),
		reviewEventsPublisher,
		renderOutputSubscriber,
		eventHandlers,
	}

	svc.Init(ctx, serviceOptions...)

	// ==========================================================================
	// Start the Service
	// ==========================================================================

	log.Info("Starting render QA service...")
	err = svc.Run(ctx, "")
	if err != nil {
		log.WithError(err).Fatal("could not run server")
	}
}
