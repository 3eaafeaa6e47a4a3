// Package server exposes the rating service over a small JSON HTTP API,
// alongside health and Prometheus metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/cybership/rating/internal/rating"
	"github.com/cybership/rating/pkg/carrier"
)

// QuoteReader queries previously persisted quotes for a lane.
type QuoteReader interface {
	RecentQuotes(ctx context.Context, originPostal, destPostal string, maxAge time.Duration) ([]carrier.RateQuote, error)
}

// Server is the HTTP server for the rating service.
type Server struct {
	port    int
	service *rating.Service
	quotes  QuoteReader // optional
	logger  *otelzap.Logger
}

// Config holds server configuration.
type Config struct {
	Port int
}

// New creates a server. quotes may be nil when no persistence sink is
// configured, which disables the recent-quotes endpoint.
func New(cfg Config, service *rating.Service, quotes QuoteReader, logger *otelzap.Logger) *Server {
	return &Server{
		port:    cfg.Port,
		service: service,
		quotes:  quotes,
		logger:  logger,
	}
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Handler builds the route mux. Exposed for handler tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/v1/rates", s.handleRates)
	mux.HandleFunc("/api/v1/rates/recent", s.handleRecentQuotes)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleRates quotes a shipment. The optional "carrier" query parameter
// targets one carrier; without it the request fans out across all.
func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.writeJSON(w, http.StatusMethodNotAllowed, errorEnvelope{Error: errorBody{
			Code:    carrier.CodeUnknown,
			Message: "Method not allowed, use POST",
			Carrier: "unknown",
		}})
		return
	}

	var req carrier.RateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, carrier.NewError("", carrier.CodeValidation,
			fmt.Sprintf("Invalid request body: %v", err)))
		return
	}

	resp, err := s.service.GetRates(r.Context(), &req, r.URL.Query().Get("carrier"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleRecentQuotes serves the lane analytics query over the persistence
// sink.
func (s *Server) handleRecentQuotes(w http.ResponseWriter, r *http.Request) {
	if s.quotes == nil {
		s.writeError(w, carrier.NewError("", carrier.CodeUnknown, "Quote storage is not configured"))
		return
	}

	q := r.URL.Query()
	origin, dest := q.Get("origin"), q.Get("dest")
	if origin == "" || dest == "" {
		s.writeError(w, carrier.NewError("", carrier.CodeValidation,
			"Query parameters origin and dest are required"))
		return
	}
	maxAgeMinutes := 30
	if raw := q.Get("max_age_minutes"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			maxAgeMinutes = v
		}
	}

	quotes, err := s.quotes.RecentQuotes(r.Context(), origin, dest, time.Duration(maxAgeMinutes)*time.Minute)
	if err != nil {
		s.logger.Error("Recent quotes query failed", zap.Error(err))
		s.writeError(w, carrier.NewError("", carrier.CodeUnknown, "Failed to query recent quotes").WithCause(err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"quotes": quotes})
}

// errorEnvelope is the stable failure shape consumers depend on.
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code       carrier.Code   `json:"code"`
	Message    string         `json:"message"`
	Carrier    string         `json:"carrier"`
	Retryable  bool           `json:"retryable"`
	StatusCode int            `json:"statusCode,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var cerr *carrier.Error
	if !errors.As(err, &cerr) {
		cerr = carrier.NewError("", carrier.CodeUnknown, err.Error())
	}
	s.writeJSON(w, httpStatusFor(cerr), errorEnvelope{Error: errorBody{
		Code:       cerr.Code,
		Message:    cerr.Message,
		Carrier:    cerr.Carrier,
		Retryable:  cerr.Retryable,
		StatusCode: cerr.StatusCode,
		Details:    cerr.Details,
	}})
}

func httpStatusFor(err *carrier.Error) int {
	switch err.Code {
	case carrier.CodeValidation:
		return http.StatusBadRequest
	case carrier.CodeCarrierNotFound:
		return http.StatusNotFound
	case carrier.CodeRateLimited:
		return http.StatusTooManyRequests
	case carrier.CodeTimeout:
		return http.StatusGatewayTimeout
	case carrier.CodeAuthFailed, carrier.CodeCarrierAPI, carrier.CodeNetwork, carrier.CodeParse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}
