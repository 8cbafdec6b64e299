package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ParcelMetrics counts parcel lifecycle transitions. Orders are hard deleted
// on pickup, so these counters are the only place aggregate throughput
// survives.
type ParcelMetrics struct {
	OrdersCreated  prometheus.Counter
	OrdersArrived  prometheus.Counter
	OrdersPickedUp prometheus.Counter
	LookupRejected prometheus.Counter
}

// NewParcelMetrics registers the lifecycle counters on the default
// registerer, which the prometheus endpoint serves.
func NewParcelMetrics() *ParcelMetrics {
	counter := func(name, help string) prometheus.Counter {
		return promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "stagelink",
			Subsystem: "parcels",
			Name:      name,
			Help:      help,
		})
	}
	return &ParcelMetrics{
		OrdersCreated:  counter("created_total", "Parcel orders registered for transit."),
		OrdersArrived:  counter("arrived_total", "Arrival confirmations stamped by receiving stages."),
		OrdersPickedUp: counter("picked_up_total", "Orders closed and purged after customer pickup."),
		LookupRejected: counter("lookup_rejected_total", "Customer lookups that matched no open order."),
	}
}
