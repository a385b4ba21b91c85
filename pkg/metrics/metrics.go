// Package metrics exports marketplace activity as Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"marketplace/pkg/marketplace"
)

// Collector implements marketplace.Observer.
type Collector struct {
	Publishes    *prometheus.CounterVec
	Reservations *prometheus.CounterVec
	Returns      prometheus.Counter
	Orders       prometheus.Counter
	OrderUnits   prometheus.Histogram
}

var _ marketplace.Observer = (*Collector)(nil)

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		Publishes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketplace_publish_total",
				Help: "Publish attempts by result (accepted/rejected)",
			},
			[]string{"result"},
		),
		Reservations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketplace_reservations_total",
				Help: "Add-to-cart attempts by result (reserved/unavailable)",
			},
			[]string{"result"},
		),
		Returns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_returns_total",
			Help: "Units removed from carts and returned to their producer",
		}),
		Orders: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_orders_total",
			Help: "Orders placed",
		}),
		OrderUnits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "marketplace_order_units",
			Help:    "Units per placed order",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}
	for _, col := range []prometheus.Collector{c.Publishes, c.Reservations, c.Returns, c.Orders, c.OrderUnits} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Published counts a publish attempt by result.
func (c *Collector) Published(_ string, accepted bool) {
	if accepted {
		c.Publishes.WithLabelValues("accepted").Inc()
		return
	}
	c.Publishes.WithLabelValues("rejected").Inc()
}

// Reserved counts an add-to-cart attempt by result.
func (c *Collector) Reserved(_ int, _ string, ok bool) {
	if ok {
		c.Reservations.WithLabelValues("reserved").Inc()
		return
	}
	c.Reservations.WithLabelValues("unavailable").Inc()
}

// Returned counts a unit given back to its producer.
func (c *Collector) Returned(int, string) {
	c.Returns.Inc()
}

// OrderPlaced counts an order and records its size in units.
func (c *Collector) OrderPlaced(_ int, _ int, units int) {
	c.Orders.Inc()
	c.OrderUnits.Observe(float64(units))
}
