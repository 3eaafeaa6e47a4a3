// Package ups provides the UPS carrier adapter: OAuth2 client-credentials
// authentication with cached single-flight token refresh, translation
// between the normalized rating model and the UPS Rating API wire format,
// and a one-shot re-authentication retry on auth failures.
package ups

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cybership/rating/pkg/carrier"
	"github.com/cybership/rating/pkg/carrier/transport"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	carrierName = "ups"

	ratePath       = "/api/rating/v2403/Rate"
	transactionSrc = "cybership"
)

// Config holds UPS credentials and endpoints.
type Config struct {
	ClientID      string
	ClientSecret  string
	AccountNumber string
	BaseURL       string
	AuthURL       string
	Timeout       time.Duration
}

// Client is the UPS carrier adapter. It implements carrier.Adapter.
type Client struct {
	config Config
	auth   carrier.AuthProvider
	http   *transport.Client
	logger *otelzap.Logger
	tracer trace.Tracer
}

// New creates a UPS client. The rating calls and the token exchange use
// separate transport clients because the auth endpoint lives on its own URL.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	rateTransport := transport.New(carrierName, transport.Options{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		DefaultHeaders: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
	})
	authTransport := transport.New(carrierName+"-auth", transport.Options{
		Timeout: cfg.Timeout,
	})

	return &Client{
		config: cfg,
		auth:   newAuthProvider(cfg, authTransport, logger),
		http:   rateTransport,
		logger: logger,
		tracer: tracer,
	}
}

// NewWithDeps creates a UPS client with injected auth and transport,
// for tests.
func NewWithDeps(cfg Config, auth carrier.AuthProvider, http *transport.Client, logger *otelzap.Logger) *Client {
	return &Client{
		config: cfg,
		auth:   auth,
		http:   http,
		logger: logger,
	}
}

// Name returns the carrier identifier.
func (c *Client) Name() string {
	return carrierName
}

// SupportedServices returns the normalized levels UPS can quote.
func (c *Client) SupportedServices() []carrier.ServiceLevel {
	return supportedLevels()
}

// GetRates fetches normalized quotes from the UPS Rating API. On an auth
// failure (AUTH_FAILED or HTTP 401), the cached token is invalidated and the
// request retried exactly once with a fresh token; a second failure
// propagates unchanged.
func (c *Client) GetRates(ctx context.Context, req *carrier.RateRequest) ([]carrier.RateQuote, error) {
	if c.tracer != nil {
		var span trace.Span
		ctx, span = c.tracer.Start(ctx, "ups.GetRates",
			trace.WithAttributes(
				attribute.String("carrier", carrierName),
				attribute.Int("package_count", len(req.Packages)),
			))
		defer span.End()
	}

	c.logger.Info("Getting UPS rates",
		zap.String("origin_postal", req.Origin.PostalCode),
		zap.String("dest_postal", req.Destination.PostalCode),
		zap.Int("package_count", len(req.Packages)),
	)

	wireReq := buildRateRequest(req, c.config.AccountNumber)

	quotes, err := c.executeRateRequest(ctx, wireReq)
	if err != nil && carrier.IsAuthFailure(err) {
		c.logger.Warn("UPS auth failure, refreshing token and retrying", zap.Error(err))
		c.auth.Invalidate()
		return c.executeRateRequest(ctx, wireReq)
	}
	return quotes, err
}

func (c *Client) executeRateRequest(ctx context.Context, wireReq *rateRequestEnvelope) ([]carrier.RateQuote, error) {
	token, err := c.auth.Token(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, wrapParseError(err)
	}

	resp, err := c.http.Post(ctx, ratePath, body, map[string]string{
		"Authorization":  "Bearer " + token,
		"transId":        fmt.Sprintf("%s-%d", transactionSrc, time.Now().UnixMilli()),
		"transactionSrc": transactionSrc,
	})
	if err != nil {
		return nil, err
	}

	quotes, err := parseRateResponse(resp.Body)
	if err != nil {
		return nil, wrapParseError(err)
	}
	return quotes, nil
}

var _ carrier.Adapter = (*Client)(nil)
