// Package rating orchestrates rate quotation across registered carriers:
// validation, carrier resolution, concurrent fan-out with partial-failure
// tolerance, price-sorted aggregation, and best-effort persistence/audit.
package rating

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cybership/rating/internal/telemetry"
	"github.com/cybership/rating/pkg/carrier"
	"github.com/google/uuid"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// sinkTimeout bounds the detached persistence and audit writes.
const sinkTimeout = 10 * time.Second

// QuoteStore persists quotes for later lane analytics. Writes are
// best-effort: failures are logged, never surfaced to the caller.
type QuoteStore interface {
	SaveQuotes(ctx context.Context, requestID string, quotes []carrier.RateQuote, originPostal, destPostal string) error
}

// AuditEntry records one carrier call outcome.
type AuditEntry struct {
	RequestID  string
	Carrier    string
	Operation  string
	Status     string // "success" or "error"
	DurationMs int64
	ErrorCode  string
	ErrorMsg   string
}

// AuditLog records carrier call outcomes. Write-only, best-effort.
type AuditLog interface {
	LogOperation(ctx context.Context, entry AuditEntry) error
}

// Service is the rating orchestrator.
type Service struct {
	registry *carrier.Registry
	quotes   QuoteStore // optional
	audit    AuditLog   // optional
	logger   *otelzap.Logger
	tracer   trace.Tracer
	metrics  *telemetry.Metrics
}

// Options configures optional service collaborators.
type Options struct {
	Quotes  QuoteStore
	Audit   AuditLog
	Tracer  trace.Tracer
	Metrics *telemetry.Metrics
}

// New creates a rating service over the given registry.
func New(registry *carrier.Registry, logger *otelzap.Logger, opts Options) *Service {
	return &Service{
		registry: registry,
		quotes:   opts.Quotes,
		audit:    opts.Audit,
		logger:   logger,
		tracer:   opts.Tracer,
		metrics:  opts.Metrics,
	}
}

// GetRates validates the request and quotes it against one carrier (when
// carrierName is non-empty) or all registered carriers concurrently. In
// fan-out mode individual carrier failures are logged and discarded; zero
// successes yields an empty quote list, not an error. Quotes are sorted
// ascending by price with insertion order preserved for equal prices.
func (s *Service) GetRates(ctx context.Context, req *carrier.RateRequest, carrierName string) (*carrier.RateResponse, error) {
	requestID := newRequestID()

	if s.tracer != nil {
		var span trace.Span
		ctx, span = s.tracer.Start(ctx, "rating.GetRates")
		defer span.End()
	}

	if err := carrier.ValidateRateRequest(req); err != nil {
		return nil, err
	}

	var quotes []carrier.RateQuote
	if carrierName != "" {
		adapter, ok := s.registry.Get(carrierName)
		if !ok {
			return nil, carrier.NewError(carrierName, carrier.CodeCarrierNotFound,
				fmt.Sprintf("Carrier %q is not registered. Available carriers: %s",
					carrierName, strings.Join(s.registry.Names(), ", ")))
		}
		var err error
		quotes, err = s.fetchFromCarrier(ctx, adapter, req, requestID)
		if err != nil {
			return nil, err
		}
	} else {
		adapters := s.registry.All()
		if len(adapters) == 0 {
			return nil, carrier.NewError("", carrier.CodeCarrierNotFound,
				"No carriers registered. Did you forget to register a carrier adapter?")
		}
		quotes = s.shopAllCarriers(ctx, adapters, req, requestID)
	}

	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].TotalPrice < quotes[j].TotalPrice
	})

	if s.quotes != nil && len(quotes) > 0 {
		s.persistQuotes(ctx, requestID, quotes, req)
	}

	respCarrier := carrierName
	if respCarrier == "" {
		respCarrier = carrier.CarrierAll
	}
	return &carrier.RateResponse{
		RequestID:   requestID,
		Carrier:     respCarrier,
		Quotes:      quotes,
		RequestedAt: time.Now(),
	}, nil
}

// shopAllCarriers dispatches every adapter concurrently and waits for all
// outcomes. One carrier's failure never aborts the batch.
func (s *Service) shopAllCarriers(ctx context.Context, adapters []carrier.Adapter, req *carrier.RateRequest, requestID string) []carrier.RateQuote {
	results := make([][]carrier.RateQuote, len(adapters))

	var g errgroup.Group
	for i, adapter := range adapters {
		g.Go(func() error {
			quotes, err := s.fetchFromCarrier(ctx, adapter, req, requestID)
			if err != nil {
				s.logger.Warn("Carrier failed during rate shopping",
					zap.String("carrier", adapter.Name()),
					zap.String("request_id", requestID),
					zap.Error(err),
				)
				return nil // keep shopping the other carriers
			}
			results[i] = quotes
			return nil
		})
	}
	g.Wait()

	var merged []carrier.RateQuote
	for _, quotes := range results {
		merged = append(merged, quotes...)
	}
	return merged
}

// fetchFromCarrier calls one adapter, recording metrics and an audit entry
// for the outcome. Errors propagate to the caller untouched.
func (s *Service) fetchFromCarrier(ctx context.Context, adapter carrier.Adapter, req *carrier.RateRequest, requestID string) ([]carrier.RateQuote, error) {
	start := time.Now()
	quotes, err := adapter.GetRates(ctx, req)
	duration := time.Since(start)

	entry := AuditEntry{
		RequestID:  requestID,
		Carrier:    adapter.Name(),
		Operation:  "rate",
		Status:     "success",
		DurationMs: duration.Milliseconds(),
	}
	if err != nil {
		entry.Status = "error"
		entry.ErrorCode = string(carrier.CodeOf(err))
		entry.ErrorMsg = err.Error()
	}

	if s.metrics != nil {
		s.metrics.RecordRequest("rate", adapter.Name(), entry.Status, duration.Seconds())
		if err != nil {
			s.metrics.RecordError(adapter.Name(), entry.ErrorCode)
		}
	}
	s.writeAudit(ctx, entry)

	return quotes, err
}

// persistQuotes writes quotes to the store without blocking or failing the
// caller's response.
func (s *Service) persistQuotes(ctx context.Context, requestID string, quotes []carrier.RateQuote, req *carrier.RateRequest) {
	store := s.quotes
	origin, dest := req.Origin.PostalCode, req.Destination.PostalCode
	go func() {
		bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
		defer cancel()
		if err := store.SaveQuotes(bgCtx, requestID, quotes, origin, dest); err != nil {
			s.logger.Error("Failed to persist quotes",
				zap.String("request_id", requestID),
				zap.Error(err),
			)
		}
	}()
}

// writeAudit records a carrier call outcome without blocking the caller.
func (s *Service) writeAudit(ctx context.Context, entry AuditEntry) {
	if s.audit == nil {
		return
	}
	audit := s.audit
	go func() {
		bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
		defer cancel()
		if err := audit.LogOperation(bgCtx, entry); err != nil {
			s.logger.Warn("Failed to write audit entry",
				zap.String("request_id", entry.RequestID),
				zap.String("carrier", entry.Carrier),
				zap.Error(err),
			)
		}
	}()
}

// newRequestID builds a correlation token. Uniqueness is best-effort: it is
// a log/audit correlation key, not a primary key.
func newRequestID() string {
	return fmt.Sprintf("req_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:6])
}
