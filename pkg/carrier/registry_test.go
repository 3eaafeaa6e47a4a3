package carrier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybership/rating/pkg/carrier"
	"github.com/cybership/rating/pkg/carrier/mock"
)

func TestRegistry_Register(t *testing.T) {
	registry := carrier.NewRegistry()

	registry.Register(mock.New("test-carrier"))

	got, ok := registry.Get("test-carrier")
	require.True(t, ok, "carrier should be registered")
	assert.Equal(t, "test-carrier", got.Name())
}

func TestRegistry_Register_Override(t *testing.T) {
	registry := carrier.NewRegistry()

	registry.Register(mock.New("test-carrier"))
	registry.Register(mock.New("test-carrier"))

	assert.Equal(t, 1, registry.Count())
}

func TestRegistry_Get_NotFound(t *testing.T) {
	registry := carrier.NewRegistry()

	_, ok := registry.Get("nonexistent")
	assert.False(t, ok)
	assert.False(t, registry.Has("nonexistent"))
}

func TestRegistry_Names(t *testing.T) {
	registry := carrier.NewRegistry()

	registry.Register(mock.New("ups"))
	registry.Register(mock.New("fedex"))

	names := registry.Names()
	assert.Len(t, names, 2)
	assert.Contains(t, names, "ups")
	assert.Contains(t, names, "fedex")
}

func TestRegistry_All(t *testing.T) {
	registry := carrier.NewRegistry()

	registry.Register(mock.New("carrier-a"))
	registry.Register(mock.New("carrier-b"))
	registry.Register(mock.New("carrier-c"))

	assert.Len(t, registry.All(), 3)
	assert.Equal(t, 3, registry.Count())
}
