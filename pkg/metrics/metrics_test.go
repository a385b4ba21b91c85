package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/pkg/marketplace"
)

func TestCollectorCountsMarketplaceActivity(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)

	m, err := marketplace.New[string](1, marketplace.WithObserver(c))
	require.NoError(t, err)
	prod := m.RegisterProducer()
	cart := m.NewCart()

	_, _ = m.Publish(prod, "tea")
	_, _ = m.Publish(prod, "tea")
	_, _ = m.AddToCart(cart, "tea")
	_, _ = m.AddToCart(cart, "tea")
	require.NoError(t, m.RemoveFromCart(cart, "tea"))
	_, _ = m.AddToCart(cart, "tea")
	_, _ = m.PlaceOrder(cart)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Publishes.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Publishes.WithLabelValues("rejected")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Reservations.WithLabelValues("reserved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Reservations.WithLabelValues("unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Returns))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Orders))
	assert.Equal(t, 1, testutil.CollectAndCount(c.OrderUnits))
}

func TestNewRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}
