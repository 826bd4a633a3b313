// recommend-service
//
// Builds personalized job recommendations for the Gateway:
//   - analyzes the candidate profile into search criteria (Gemini)
//   - searches the shared job catalog, topping it up from external job
//     boards when the yield is low
//   - scores and ranks the merged set per user preferences
//   - streams pipeline progress to the client over SSE
//
// A retention cron prunes stale catalog listings in the background.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"extendwork/recommend-service/internal/analyzer"
	"extendwork/recommend-service/internal/cache"
	"extendwork/recommend-service/internal/catalog"
	"extendwork/recommend-service/internal/config"
	"extendwork/recommend-service/internal/db"
	"extendwork/recommend-service/internal/entitlement"
	"extendwork/recommend-service/internal/location"
	"extendwork/recommend-service/internal/logger"
	"extendwork/recommend-service/internal/provider"
	"extendwork/recommend-service/internal/recommend"
	"extendwork/recommend-service/internal/scheduler"
	"extendwork/recommend-service/internal/server"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.JSONLogs, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pool.Close()
	log.Info("postgres connected")

	// ── Redis ────────────────────────────────────────────────────────────────
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	defer rdb.Close()
	log.Info("redis connected")

	// ── Gemini ───────────────────────────────────────────────────────────────
	profileAnalyzer, err := analyzer.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
	if err != nil {
		log.Fatal("gemini analyzer init failed", zap.Error(err))
	}
	locationResolver, err := location.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
	if err != nil {
		log.Fatal("gemini resolver init failed", zap.Error(err))
	}

	// ── Providers ────────────────────────────────────────────────────────────
	var providers []provider.Provider
	if cfg.AdzunaAppID != "" && cfg.AdzunaAppKey != "" {
		providers = append(providers, provider.NewAdzuna(cfg.AdzunaAppID, cfg.AdzunaAppKey, cfg.AdzunaCountry, log))
	}
	if cfg.JoobleAPIKey != "" {
		providers = append(providers, provider.NewJooble(cfg.JoobleAPIKey, log))
	}
	if len(providers) == 0 {
		log.Warn("no job board credentials configured, running catalog-only")
	}

	// ── Pipeline ─────────────────────────────────────────────────────────────
	store := catalog.NewStore(pool, log)
	pipeline := recommend.New(recommend.Deps{
		Store:     store,
		Cache:     cache.New(rdb, log),
		Analyzer:  profileAnalyzer,
		Resolver:  locationResolver,
		Providers: providers,
		Guard:     entitlement.NewQuotaGuard(rdb, cfg.DailyQuota, log),
		Logger:    log,
	}, recommend.DefaultOptions())

	// ── Retention cron ───────────────────────────────────────────────────────
	cron := scheduler.New(store, cfg.RetentionDays, cfg.PruneIntervalHours, log)
	if err := cron.Start(ctx); err != nil {
		log.Fatal("retention cron failed to start", zap.Error(err))
	}
	defer cron.Stop()

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	server.NewHandler(pipeline, log).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: the SSE stream stays open for the whole run.
	}

	go func() {
		log.Info("listening", zap.String("version", version), zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown error", zap.Error(err))
	}
	log.Info("stopped")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "recommend-service",
		"version": version,
	})
}
