// Package carrier provides an abstraction layer for shipping rate quotation
// across multiple carriers. It defines the normalized domain model that
// carrier-specific wire formats map to and from, the adapter contract every
// carrier integration implements, and the shared error taxonomy.
package carrier

import (
	"context"
)

// Adapter defines the interface that all carrier integrations must implement.
type Adapter interface {
	// Name returns the stable carrier identifier (e.g., "ups").
	Name() string

	// SupportedServices returns the normalized service levels this carrier
	// can quote. The list is static per adapter.
	SupportedServices() []ServiceLevel

	// GetRates returns normalized rate quotes for a validated rate request.
	GetRates(ctx context.Context, req *RateRequest) ([]RateQuote, error)
}

// AuthProvider manages a carrier's API token lifecycle: acquisition,
// caching, expiry-driven renewal, and forced invalidation.
type AuthProvider interface {
	// Token returns a valid access token, fetching a new one only when the
	// cached token is missing or about to expire. Concurrent callers during
	// a refresh share a single upstream fetch.
	Token(ctx context.Context) (string, error)

	// Invalidate drops the cached token and any in-flight refresh, forcing
	// the next Token call to fetch fresh credentials.
	Invalidate()
}
