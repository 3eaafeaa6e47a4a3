package rating_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/cybership/rating/internal/rating"
	"github.com/cybership/rating/pkg/carrier"
	"github.com/cybership/rating/pkg/carrier/mock"
)

func testLogger() *otelzap.Logger {
	return otelzap.New(zap.NewNop())
}

func validRequest() *carrier.RateRequest {
	return &carrier.RateRequest{
		Origin: carrier.Address{
			Street: "123 Warehouse Blvd", City: "San Francisco",
			State: "CA", PostalCode: "94105", CountryCode: "US",
		},
		Destination: carrier.Address{
			Street: "456 Delivery Lane", City: "New York",
			State: "NY", PostalCode: "10001", CountryCode: "US",
		},
		Packages: []carrier.PackageInfo{{Weight: 5.5, Length: 12, Width: 8, Height: 6}},
	}
}

func quote(carrierName string, price float64, level carrier.ServiceLevel) carrier.RateQuote {
	return carrier.RateQuote{
		Carrier:      carrierName,
		ServiceName:  carrierName + " " + string(level),
		ServiceLevel: level,
		TotalPrice:   price,
		Currency:     "USD",
	}
}

// fakeStore captures SaveQuotes calls and signals completion, so tests can
// wait on the detached persistence goroutine.
type fakeStore struct {
	mu       sync.Mutex
	requests []string
	saved    [][]carrier.RateQuote
	err      error
	done     chan struct{}
}

func newFakeStore(err error) *fakeStore {
	return &fakeStore{err: err, done: make(chan struct{}, 16)}
}

func (f *fakeStore) SaveQuotes(ctx context.Context, requestID string, quotes []carrier.RateQuote, originPostal, destPostal string) error {
	f.mu.Lock()
	f.requests = append(f.requests, requestID)
	f.saved = append(f.saved, quotes)
	f.mu.Unlock()
	f.done <- struct{}{}
	return f.err
}

func (f *fakeStore) waitForSave(t *testing.T) {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for quote persistence")
	}
}

// fakeAudit collects audit entries, signaling per entry.
type fakeAudit struct {
	mu      sync.Mutex
	entries []rating.AuditEntry
	done    chan struct{}
}

func newFakeAudit() *fakeAudit {
	return &fakeAudit{done: make(chan struct{}, 16)}
}

func (f *fakeAudit) LogOperation(ctx context.Context, entry rating.AuditEntry) error {
	f.mu.Lock()
	f.entries = append(f.entries, entry)
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

func (f *fakeAudit) waitForEntries(t *testing.T, n int) []rating.AuditEntry {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-f.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for audit entry %d of %d", i+1, n)
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]rating.AuditEntry, len(f.entries))
	copy(out, f.entries)
	return out
}

func TestGetRates_FanOutSortsAcrossCarriers(t *testing.T) {
	registry := carrier.NewRegistry()

	fast := mock.New("fastship")
	fast.Quotes = []carrier.RateQuote{
		quote("fastship", 20.00, carrier.ServiceExpress),
		quote("fastship", 45.00, carrier.ServiceOvernight),
	}
	cheap := mock.New("cheapship")
	cheap.Quotes = []carrier.RateQuote{
		quote("cheapship", 18.00, carrier.ServiceGround),
	}
	registry.Register(fast)
	registry.Register(cheap)

	svc := rating.New(registry, testLogger(), rating.Options{})

	resp, err := svc.GetRates(context.Background(), validRequest(), "")

	require.NoError(t, err)
	assert.Equal(t, carrier.CarrierAll, resp.Carrier)
	assert.NotEmpty(t, resp.RequestID)
	require.Len(t, resp.Quotes, 3)
	assert.Equal(t, 18.00, resp.Quotes[0].TotalPrice)
	assert.Equal(t, 20.00, resp.Quotes[1].TotalPrice)
	assert.Equal(t, 45.00, resp.Quotes[2].TotalPrice)
}

func TestGetRates_PartialFailureKeepsSurvivors(t *testing.T) {
	registry := carrier.NewRegistry()

	healthy := mock.New("healthy")
	healthy.Quotes = []carrier.RateQuote{quote("healthy", 15.00, carrier.ServiceGround)}
	broken := mock.New("broken")
	broken.Err = carrier.NewError("broken", carrier.CodeTimeout, "carrier timed out")
	registry.Register(healthy)
	registry.Register(broken)

	svc := rating.New(registry, testLogger(), rating.Options{})

	resp, err := svc.GetRates(context.Background(), validRequest(), "")

	require.NoError(t, err, "one failing carrier must not fail the batch")
	require.Len(t, resp.Quotes, 1)
	assert.Equal(t, "healthy", resp.Quotes[0].Carrier)
}

func TestGetRates_AllCarriersFailingYieldsEmptyQuotes(t *testing.T) {
	registry := carrier.NewRegistry()
	broken := mock.New("broken")
	broken.Err = carrier.NewError("broken", carrier.CodeNetwork, "connection refused")
	registry.Register(broken)

	svc := rating.New(registry, testLogger(), rating.Options{})

	resp, err := svc.GetRates(context.Background(), validRequest(), "")

	require.NoError(t, err)
	assert.Empty(t, resp.Quotes)
}

func TestGetRates_TargetedCarrier(t *testing.T) {
	registry := carrier.NewRegistry()
	ups := mock.New("ups")
	other := mock.New("other")
	registry.Register(ups)
	registry.Register(other)

	svc := rating.New(registry, testLogger(), rating.Options{})

	resp, err := svc.GetRates(context.Background(), validRequest(), "ups")

	require.NoError(t, err)
	assert.Equal(t, "ups", resp.Carrier)
	for _, q := range resp.Quotes {
		assert.Equal(t, "ups", q.Carrier)
	}
	assert.EqualValues(t, 0, other.Calls(), "non-targeted carrier must not be contacted")
}

func TestGetRates_TargetedCarrierErrorPropagates(t *testing.T) {
	registry := carrier.NewRegistry()
	broken := mock.New("broken")
	broken.Err = carrier.NewError("broken", carrier.CodeRateLimited, "slow down")
	registry.Register(broken)

	svc := rating.New(registry, testLogger(), rating.Options{})

	_, err := svc.GetRates(context.Background(), validRequest(), "broken")

	require.Error(t, err)
	assert.Equal(t, carrier.CodeRateLimited, carrier.CodeOf(err))
}

func TestGetRates_UnknownCarrierListsAvailable(t *testing.T) {
	registry := carrier.NewRegistry()
	registry.Register(mock.New("ups"))

	svc := rating.New(registry, testLogger(), rating.Options{})

	_, err := svc.GetRates(context.Background(), validRequest(), "fedex")

	require.Error(t, err)
	assert.Equal(t, carrier.CodeCarrierNotFound, carrier.CodeOf(err))
	assert.Contains(t, err.Error(), "ups")
}

func TestGetRates_EmptyRegistry(t *testing.T) {
	svc := rating.New(carrier.NewRegistry(), testLogger(), rating.Options{})

	_, err := svc.GetRates(context.Background(), validRequest(), "")

	require.Error(t, err)
	assert.Equal(t, carrier.CodeCarrierNotFound, carrier.CodeOf(err))
}

func TestGetRates_InvalidRequestSkipsCarriers(t *testing.T) {
	registry := carrier.NewRegistry()
	adapter := mock.New("ups")
	registry.Register(adapter)

	svc := rating.New(registry, testLogger(), rating.Options{})

	bad := validRequest()
	bad.Packages[0].Weight = 500

	_, err := svc.GetRates(context.Background(), bad, "")

	require.Error(t, err)
	assert.Equal(t, carrier.CodeValidation, carrier.CodeOf(err))
	assert.EqualValues(t, 0, adapter.Calls(), "invalid requests must never reach a carrier")
}

func TestGetRates_EqualPricesKeepCarrierOrder(t *testing.T) {
	registry := carrier.NewRegistry()

	// A single adapter returning equal-priced quotes in a known order: the
	// stable sort must preserve that order.
	adapter := mock.New("ups")
	adapter.Quotes = []carrier.RateQuote{
		quote("ups", 25.00, carrier.ServiceGround),
		quote("ups", 25.00, carrier.ServiceThreeDay),
		quote("ups", 25.00, carrier.ServiceTwoDay),
	}
	registry.Register(adapter)

	svc := rating.New(registry, testLogger(), rating.Options{})

	resp, err := svc.GetRates(context.Background(), validRequest(), "ups")

	require.NoError(t, err)
	require.Len(t, resp.Quotes, 3)
	assert.Equal(t, carrier.ServiceGround, resp.Quotes[0].ServiceLevel)
	assert.Equal(t, carrier.ServiceThreeDay, resp.Quotes[1].ServiceLevel)
	assert.Equal(t, carrier.ServiceTwoDay, resp.Quotes[2].ServiceLevel)
}

func TestGetRates_PersistsQuotesWithoutBlocking(t *testing.T) {
	registry := carrier.NewRegistry()
	registry.Register(mock.New("ups"))

	store := newFakeStore(nil)
	svc := rating.New(registry, testLogger(), rating.Options{Quotes: store})

	resp, err := svc.GetRates(context.Background(), validRequest(), "ups")
	require.NoError(t, err)

	store.waitForSave(t)
	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.requests, 1)
	assert.Equal(t, resp.RequestID, store.requests[0])
	assert.Equal(t, resp.Quotes, store.saved[0])
}

func TestGetRates_StoreFailureDoesNotFailResponse(t *testing.T) {
	registry := carrier.NewRegistry()
	registry.Register(mock.New("ups"))

	store := newFakeStore(errors.New("database is down"))
	svc := rating.New(registry, testLogger(), rating.Options{Quotes: store})

	resp, err := svc.GetRates(context.Background(), validRequest(), "ups")

	require.NoError(t, err, "persistence failures are invisible to the caller")
	assert.NotEmpty(t, resp.Quotes)
	store.waitForSave(t)
}

func TestGetRates_AuditsSuccessAndFailure(t *testing.T) {
	registry := carrier.NewRegistry()
	healthy := mock.New("healthy")
	healthy.Quotes = []carrier.RateQuote{quote("healthy", 10.00, carrier.ServiceGround)}
	broken := mock.New("broken")
	broken.Err = carrier.NewError("broken", carrier.CodeCarrierAPI, "boom").WithStatusCode(500)
	registry.Register(healthy)
	registry.Register(broken)

	audit := newFakeAudit()
	svc := rating.New(registry, testLogger(), rating.Options{Audit: audit})

	resp, err := svc.GetRates(context.Background(), validRequest(), "")
	require.NoError(t, err)

	entries := audit.waitForEntries(t, 2)
	require.Len(t, entries, 2)

	byCarrier := map[string]rating.AuditEntry{}
	for _, e := range entries {
		byCarrier[e.Carrier] = e
		assert.Equal(t, resp.RequestID, e.RequestID)
		assert.Equal(t, "rate", e.Operation)
	}
	assert.Equal(t, "success", byCarrier["healthy"].Status)
	assert.Equal(t, "error", byCarrier["broken"].Status)
	assert.Equal(t, string(carrier.CodeCarrierAPI), byCarrier["broken"].ErrorCode)
	assert.NotEmpty(t, byCarrier["broken"].ErrorMsg)
}

func TestGetRates_NoPersistenceForEmptyQuoteList(t *testing.T) {
	registry := carrier.NewRegistry()
	broken := mock.New("broken")
	broken.Err = carrier.NewError("broken", carrier.CodeTimeout, "timed out")
	registry.Register(broken)

	store := newFakeStore(nil)
	svc := rating.New(registry, testLogger(), rating.Options{Quotes: store})

	_, err := svc.GetRates(context.Background(), validRequest(), "")
	require.NoError(t, err)

	select {
	case <-store.done:
		t.Fatal("empty quote lists must not be persisted")
	case <-time.After(100 * time.Millisecond):
	}
}
