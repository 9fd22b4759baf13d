package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qldwater/leaklocker/internal/domain"
	"github.com/qldwater/leaklocker/internal/pipeline"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// DatasetProvider hands out the current annotated dataset, or nil before the
// first load completes.
type DatasetProvider interface {
	Dataset() *pipeline.Dataset
}

// Server exposes the annotated dataset as a read-only JSON API alongside
// health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	datasets   DatasetProvider
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the /api routes plus /healthz,
// /readyz, and /metrics.
func NewServer(addr string, ready ReadinessChecker, datasets DatasetProvider, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		datasets: datasets,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/readings", s.handleReadings)
	mux.HandleFunc("GET /api/anomalies", s.handleAnomalies)
	mux.HandleFunc("GET /api/suburbs", s.handleSuburbs)
	mux.HandleFunc("GET /api/summary", s.handleSummary)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

type readingsResponse struct {
	Count    int              `json:"count"`
	Readings []domain.Reading `json:"readings"`
}

func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.currentDataset(w)
	if !ok {
		return
	}
	sel, err := parseSelection(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	readings := ds.Filter(sel)
	writeJSON(w, http.StatusOK, readingsResponse{Count: len(readings), Readings: readings})
}

func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.currentDataset(w)
	if !ok {
		return
	}
	sel, err := parseSelection(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	anomalies := ds.Anomalies(sel)
	writeJSON(w, http.StatusOK, readingsResponse{Count: len(anomalies), Readings: anomalies})
}

func (s *Server) handleSuburbs(w http.ResponseWriter, _ *http.Request) {
	ds, ok := s.currentDataset(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"suburbs": ds.Suburbs()})
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	ds, ok := s.currentDataset(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ds.Alert)
}

func (s *Server) currentDataset(w http.ResponseWriter) (*pipeline.Dataset, bool) {
	ds := s.datasets.Dataset()
	if ds == nil {
		writeError(w, http.StatusServiceUnavailable, "no dataset loaded yet")
		return nil, false
	}
	return ds, true
}

// parseSelection builds a dataset selection from the suburb, hour_from, and
// hour_to query parameters. Hours default to the full day.
func parseSelection(r *http.Request) (pipeline.Selection, error) {
	sel := pipeline.EverySelection()
	sel.Suburb = r.URL.Query().Get("suburb")

	var err error
	if sel.HourFrom, err = parseHour(r, "hour_from", sel.HourFrom); err != nil {
		return pipeline.Selection{}, err
	}
	if sel.HourTo, err = parseHour(r, "hour_to", sel.HourTo); err != nil {
		return pipeline.Selection{}, err
	}
	return sel, nil
}

func parseHour(r *http.Request, param string, fallback int) (int, error) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return fallback, nil
	}
	hour, err := strconv.Atoi(raw)
	if err != nil || hour < 0 || hour > 23 {
		return 0, &badParamError{param: param, value: raw}
	}
	return hour, nil
}

type badParamError struct {
	param string
	value string
}

func (e *badParamError) Error() string {
	return e.param + " must be an hour between 0 and 23, got " + strconv.Quote(e.value)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
