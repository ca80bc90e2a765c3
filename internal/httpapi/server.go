package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"parking-analytics/internal/parking"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// SnapshotSource serves per-facility snapshots.
type SnapshotSource interface {
	Get(ctx context.Context, facilityID string) (parking.Snapshot, error)
	Refresh(ctx context.Context, facilityID string) (parking.Snapshot, error)
}

// Config holds the server settings.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Location        *time.Location
	InsightLimit    int
	MermaidCharts   bool
}

// WebAPI is the REST surface over the report engine.
type WebAPI struct {
	router *chi.Mux
	logger *zerolog.Logger
	server *http.Server
	cfg    Config
}

// NewWebAPI wires routes and middleware.
func NewWebAPI(logger zerolog.Logger, cfg Config, src SnapshotSource) *WebAPI {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	h := &Handler{
		src:     src,
		loc:     cfg.Location,
		limit:   cfg.InsightLimit,
		charts:  cfg.MermaidCharts,
		nowFunc: time.Now,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(Logger(&logger))
	router.Use(Metrics)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/reports", h.ListReports)
		r.Route("/facilities/{facility}", func(r chi.Router) {
			r.Get("/reports", h.GetAllReports)
			r.Get("/reports/{kind}", h.GetReport)
			r.Get("/reports/{kind}/html", h.GetReportPage)
			r.Post("/refresh", h.Refresh)
		})
	})

	return &WebAPI{
		router: router,
		logger: &logger,
		cfg:    cfg,
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler exposes the router, mainly for tests.
func (w *WebAPI) Handler() http.Handler {
	return w.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (w *WebAPI) Start(ctx context.Context) error {
	serverErrors := make(chan error, 1)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		w.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), w.cfg.ShutdownTimeout)
		defer cancel()

		if err := w.server.Shutdown(shutdownCtx); err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			return w.server.Close()
		}
	}
	return nil
}
