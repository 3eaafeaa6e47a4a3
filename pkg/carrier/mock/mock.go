// Package mock provides a configurable in-memory carrier adapter for tests
// and for running the demo without live credentials.
package mock

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cybership/rating/pkg/carrier"
)

// Client is a mock carrier adapter.
type Client struct {
	name string

	// Quotes, when set, is returned verbatim from GetRates.
	Quotes []carrier.RateQuote

	// Err, when set, is returned from GetRates instead of quotes.
	Err error

	// Delay is slept before responding, to simulate carrier latency.
	Delay time.Duration

	calls atomic.Int64
}

// New creates a mock adapter with two default quotes.
func New(name string) *Client {
	return &Client{
		name: name,
		Quotes: []carrier.RateQuote{
			{
				Carrier:      name,
				ServiceName:  fmt.Sprintf("%s Ground", name),
				ServiceLevel: carrier.ServiceGround,
				TotalPrice:   12.50,
				Currency:     "USD",
				TransitDays:  5,
				Breakdown:    &carrier.ChargeBreakdown{BaseCharge: 11.00, FuelSurcharge: 1.50},
			},
			{
				Carrier:      name,
				ServiceName:  fmt.Sprintf("%s Express", name),
				ServiceLevel: carrier.ServiceExpress,
				TotalPrice:   29.95,
				Currency:     "USD",
				TransitDays:  2,
				Breakdown:    &carrier.ChargeBreakdown{BaseCharge: 27.45, FuelSurcharge: 2.50},
			},
		},
	}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return c.name
}

// SupportedServices returns the levels present in the configured quotes.
func (c *Client) SupportedServices() []carrier.ServiceLevel {
	seen := make(map[carrier.ServiceLevel]bool)
	var levels []carrier.ServiceLevel
	for _, q := range c.Quotes {
		if !seen[q.ServiceLevel] {
			seen[q.ServiceLevel] = true
			levels = append(levels, q.ServiceLevel)
		}
	}
	return levels
}

// GetRates returns the configured quotes or error.
func (c *Client) GetRates(ctx context.Context, req *carrier.RateRequest) ([]carrier.RateQuote, error) {
	c.calls.Add(1)
	if c.Delay > 0 {
		select {
		case <-time.After(c.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.Err != nil {
		return nil, c.Err
	}
	quotes := make([]carrier.RateQuote, len(c.Quotes))
	copy(quotes, c.Quotes)
	return quotes, nil
}

// Calls reports how many times GetRates was invoked.
func (c *Client) Calls() int {
	return int(c.calls.Load())
}

var _ carrier.Adapter = (*Client)(nil)
