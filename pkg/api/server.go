// Package api serves the wire type registry over HTTP: schema listings,
// validation and decoding of submitted payloads, and access to the corpus
// and capture journal.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter configures every route. Metrics are served from gatherer,
// or the default gatherer when it is nil.
func NewRouter(server *Server, gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	metrics := server.metrics

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(metrics.InstrumentAuthMiddleware(apiKeyMiddleware(server.config.APIKey)))

		r.Get("/health", metrics.InstrumentHandler("GET", "/api/v1/health", server.handleHealth))

		// Registry
		r.Get("/types", metrics.InstrumentHandler("GET", "/api/v1/types", server.handleListTypes))
		r.Get("/types/{type}", metrics.InstrumentHandler("GET", "/api/v1/types/{type}", server.handleGetType))
		r.Get("/types/{type}/sample", metrics.InstrumentHandler("GET", "/api/v1/types/{type}/sample", server.handleSample))

		// Codec
		r.Post("/validate/{type}", metrics.InstrumentHandler("POST", "/api/v1/validate/{type}", server.handleValidate))
		r.Post("/decode/{type}", metrics.InstrumentHandler("POST", "/api/v1/decode/{type}", server.handleDecode))

		// Storage
		r.Post("/corpus/{type}", metrics.InstrumentHandler("POST", "/api/v1/corpus/{type}", server.handleCorpusPut))
		r.Get("/corpus/{id}", metrics.InstrumentHandler("GET", "/api/v1/corpus/{id}", server.handleCorpusGet))
		r.Post("/journal/{type}", metrics.InstrumentHandler("POST", "/api/v1/journal/{type}", server.handleJournalAppend))
	})

	return r
}

// StartServer serves the API until ctx is cancelled, then shuts down
// gracefully.
func StartServer(ctx context.Context, corpus Corpus, journal Journal, config ServerConfig) error {
	metrics := NewMetrics(prometheus.DefaultRegisterer)
	server := NewServer(corpus, journal, config, metrics)

	addr := fmt.Sprintf("%s:%d", config.Bind, config.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(server, prometheus.DefaultGatherer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go server.startMetricsUpdater(ctx, 30*time.Second)

	errCh := make(chan error, 1)
	go func() {
		server.logger.Info().Str("addr", addr).Msg("starting wiredto API server")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	server.logger.Info().Msg("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// startMetricsUpdater refreshes storage gauges every interval until ctx
// is done.
func (s *Server) startMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.updateStorageStats()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.updateStorageStats()
		}
	}
}
