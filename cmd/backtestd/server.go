package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/optopsy/backtest-engine/internal/core"
	"github.com/optopsy/backtest-engine/internal/engine"
	"github.com/optopsy/backtest-engine/internal/models"
)

// Server is the thin HTTP front end over internal/core: it translates
// POST /v1/evaluate, /v1/backtest, /v1/compare, GET /v1/strategies, and
// POST /v1/load-data into core.Engine calls and marshals JSON. It stands in
// for the enclosing RPC layer a real tool-surface transport would sit
// behind; it does none of that layer's response enrichment itself.
type Server struct {
	router *chi.Mux
	server *http.Server
	engine *core.Engine
	logger *logrus.Logger
	port   int
	reqTTL time.Duration
}

// NewServer builds a Server listening on port, proxying every request to
// engine, with requestTimeout bounding each handler's execution.
func NewServer(port int, requestTimeout time.Duration, eng *core.Engine, logger *logrus.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		engine: eng,
		logger: logger,
		port:   port,
		reqTTL: requestTimeout,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLoggerMiddleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.reqTTL))
	s.router.Use(middleware.Compress(5))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/evaluate", s.handleEvaluate)
		r.Post("/backtest", s.handleBacktest)
		r.Post("/compare", s.handleCompare)
		r.Get("/strategies", s.handleListStrategies)
		r.Post("/load-data", s.handleLoadData)
	})
}

func (s *Server) requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(wrapped, r)
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   wrapped.Status(),
			"bytes":    wrapped.BytesWritten(),
			"duration": time.Since(start),
		}).Info("http request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var dto evaluateRequestDTO
	if !decodeBody(w, r, &dto) {
		return
	}
	result, err := s.engine.Evaluate(r.Context(), dto.toCore())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var dto backtestRequestDTO
	if !decodeBody(w, r, &dto) {
		return
	}
	req, err := dto.toCore()
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := s.engine.Backtest(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var dto compareRequestDTO
	if !decodeBody(w, r, &dto) {
		return
	}
	req, err := dto.toCore()
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := s.engine.Compare(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	strategies, err := s.engine.ListStrategies(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, strategies)
}

func (s *Server) handleLoadData(w http.ResponseWriter, r *http.Request) {
	var dto loadDataRequestDTO
	if !decodeBody(w, r, &dto) {
		return
	}
	summary, err := s.engine.LoadData(r.Context(), core.LoadDataRequest{
		Symbol: dto.Symbol, StartDate: dto.StartDate, EndDate: dto.EndDate,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Start blocks serving HTTP until the listener is closed.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.logger.Infof("backtestd listening on port %d", s.port)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server. It is nil-safe: calling it before
// Start has started the listener is a no-op.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body: " + err.Error(), Type: "bad_request"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

// writeError maps the engine's sentinel error taxonomy (§7) onto HTTP
// status codes.
func writeError(w http.ResponseWriter, err error) {
	var (
		schemaErr      *models.SchemaError
		dataErr        *models.DataUnavailableError
		notFoundErr    *models.StrategyNotFoundError
		validationErr  *models.ValidationError
		insufficientErr *models.InsufficientDataError
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &schemaErr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Type: "validation_error"})
	case errors.As(err, &notFoundErr), errors.As(err, &dataErr):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error(), Type: "not_found"})
	case errors.As(err, &insufficientErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Type: "insufficient_data"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error(), Type: "internal_error"})
	}
}

// selectorFromString maps the wire selector string onto engine.TradeSelector,
// defaulting to "nearest" when empty.
func selectorFromString(s string) (engine.TradeSelector, error) {
	switch engine.TradeSelector(s) {
	case "":
		return engine.SelectNearest, nil
	case engine.SelectNearest, engine.SelectHighestPremium, engine.SelectLowestPremium, engine.SelectFirst:
		return engine.TradeSelector(s), nil
	default:
		return "", models.NewValidationError("unknown selector %q", s)
	}
}
