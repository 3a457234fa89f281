package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dialndine/omnidesk/backend/internal/api"
	"github.com/dialndine/omnidesk/backend/internal/auth"
	"github.com/dialndine/omnidesk/backend/internal/cache"
	"github.com/dialndine/omnidesk/backend/internal/config"
	"github.com/dialndine/omnidesk/backend/internal/insights"
	"github.com/dialndine/omnidesk/backend/internal/reconcile"
	"github.com/dialndine/omnidesk/backend/internal/sheets"
	"github.com/dialndine/omnidesk/backend/internal/store"
	"github.com/dialndine/omnidesk/backend/internal/syncer"
	"github.com/dialndine/omnidesk/backend/internal/websocket"
	"github.com/dialndine/omnidesk/backend/pkg/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("sheet_id", cfg.SheetID).
		Dur("sync_interval", cfg.SyncInterval).
		Msg("starting OmniDesk backend server")

	// Create context for services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create status override store
	st, err := store.New(ctx, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize override store")
	}
	defer st.Close()

	// Create snapshot cache
	snapshots := cache.NewSnapshotCache()

	// Create WebSocket hub
	hub := websocket.NewHub(log.Logger)
	go hub.Run()
	wsHandler := websocket.NewHandler(hub, cfg, log.Logger)

	// Create the reconciliation pipeline
	client := sheets.NewClient(cfg, log.Logger)
	reconciler := reconcile.New(client, sheets.LayoutsFromEnv(), reconcile.Tabs{
		Activity:   cfg.ActivityTab,
		Evaluation: cfg.EvaluationTab,
		Metrics:    cfg.MetricsTab,
	}, log.Logger)

	// Create and start the syncer
	sync := syncer.New(reconciler, st, snapshots, hub, cfg.SyncInterval, log.Logger)
	go sync.Start(ctx)

	// Create the auth gate
	gate := auth.NewGate(cfg, snapshots, log.Logger)

	// Create the insights service
	insightsSvc, err := insights.NewService(ctx, cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize insights service")
	}

	// Create API handlers
	authHandler := api.NewAuthHandler(gate, st, snapshots, log.Logger)
	rosterHandler := api.NewRosterHandler(snapshots, st, log.Logger)
	historyHandler := api.NewHistoryHandler(snapshots, log.Logger)
	insightsHandler := api.NewInsightsHandler(insightsSvc, snapshots, log.Logger)
	adminHandler := api.NewAdminHandler(sync, snapshots, log.Logger)

	// Create router
	r := chi.NewRouter()

	// Add middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Register public routes (no auth required)
	r.Get("/health", healthHandler)
	r.Post("/api/login", authHandler.Login)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(gate.Middleware)

		r.Post("/api/logout", authHandler.Logout)
		r.Get("/api/agents", rosterHandler.ListAgents)
		r.Get("/api/agents/{agentId}", rosterHandler.GetAgent)
		r.Get("/api/agents/{agentId}/history", historyHandler.GetHistory)
		r.Get("/api/agents/{agentId}/evaluations", historyHandler.GetEvaluations)
		r.Get("/api/agents/{agentId}/coaching", insightsHandler.CoachingTips)
		r.Put("/api/agents/{agentId}/status", rosterHandler.UpdateStatus)
		r.Get("/api/dates", rosterHandler.GetDates)
		r.Get("/ws", wsHandler.ServeHTTP)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Get("/api/insights/team", insightsHandler.TeamAnalysis)
			r.Post("/api/admin/refresh", adminHandler.Refresh)
			r.Get("/api/admin/stats", adminHandler.Stats)
		})
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Msgf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Stop the syncer
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"omnidesk-backend"}`)
}
