package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the planning engine's instrumentation. One collector is
// shared by every service; label cardinality stays small (order kind and
// target status only).
type Collector struct {
	registry *prometheus.Registry

	transitions   *prometheus.CounterVec
	ordersCreated *prometheus.CounterVec
	shortageLines prometheus.Gauge
	stockMoves    *prometheus.CounterVec
}

// NewCollector builds and registers the engine metrics on a private registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fabrica_order_transitions_total",
				Help: "Order state transitions by kind and target status",
			},
			[]string{"kind", "to"},
		),
		ordersCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fabrica_orders_created_total",
				Help: "Orders created by kind",
			},
			[]string{"kind"},
		),
		shortageLines: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fabrica_last_simulation_shortage_lines",
				Help: "Short lines in the most recent batch simulation",
			},
		),
		stockMoves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fabrica_stock_movements_total",
				Help: "Stock movements by direction",
			},
			[]string{"direction"},
		),
	}

	registry.MustRegister(c.transitions, c.ordersCreated, c.shortageLines, c.stockMoves)
	return c
}

// ObserveTransition records one state transition.
func (c *Collector) ObserveTransition(kind, to string) {
	c.transitions.WithLabelValues(kind, to).Inc()
}

// ObserveOrderCreated records one created order.
func (c *Collector) ObserveOrderCreated(kind string) {
	c.ordersCreated.WithLabelValues(kind).Inc()
}

// ObserveSimulation records the shortage width of a simulation run.
func (c *Collector) ObserveSimulation(shortLines int) {
	c.shortageLines.Set(float64(shortLines))
}

// ObserveStockMovement records one stock credit or debit.
func (c *Collector) ObserveStockMovement(direction string) {
	c.stockMoves.WithLabelValues(direction).Inc()
}

// Handler exposes the registry in Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
