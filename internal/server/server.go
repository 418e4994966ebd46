// Package server exposes recorded runs over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/internal/metrics"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/journal"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/portfolio"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/table"
)

// Store is the read side of a run journal. *journal.SQLite implements it.
type Store interface {
	ListRuns(ctx context.Context) ([]journal.Run, error)
	GetRun(ctx context.Context, runID string) (journal.Run, error)
	CrossSections(ctx context.Context, runID string) ([]string, error)
	LoadCrossSection(ctx context.Context, runID, name string) (*table.Table, error)
	LoadWeights(ctx context.Context, runID string) (*portfolio.Weights, error)
}

type Handler struct {
	store   Store
	metrics *metrics.Server
	logger  *slog.Logger
}

// New builds the API over store. Requests are recorded on m; with a nil m the
// /metrics route is not mounted.
func New(store Store, m *metrics.Server, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, metrics: m, logger: logger.With("component", "server")}
}

// Routes mounts the API.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLog)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.PlainText(w, r, "ok")
	})
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler())
	}

	r.Route("/runs", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/", h.ListRuns)
		r.Route("/{runID}", func(r chi.Router) {
			r.Get("/", h.GetRun)
			r.Get("/features/{feature}", h.GetCrossSection)
			r.Get("/weights", h.GetWeights)
		})
	})
	return r
}

// Serve runs the API on addr until ctx is done.
func (h *Handler) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		h.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}

func (h *Handler) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		done := h.metrics.Begin()
		next.ServeHTTP(ww, r)
		done()

		elapsed := time.Since(start)
		var route string
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		h.metrics.ObserveRequest(route, r.Method, ww.Status(), elapsed)
		h.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
			"elapsed", elapsed,
		)
	})
}
