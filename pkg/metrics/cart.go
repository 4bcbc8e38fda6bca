package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics counts the best-effort work done around device carts. All methods are safe
// on a nil receiver so the cart store can run without metrics.
type CartMetrics struct {
	remoteSync  *prometheus.CounterVec
	enrichSkips prometheus.Counter
	fallbacks   prometheus.Counter
	corrupt     prometheus.Counter
	queueDrops  prometheus.Counter
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	remoteSync := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_remote_sync_total",
		Help: "Remote cart mirror calls by operation and outcome.",
	}, []string{"op", "outcome"})
	enrichSkips := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_variant_enrichment_skipped_total",
		Help: "Cart lines whose variant details could not be fetched.",
	})
	fallbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_remote_load_fallback_total",
		Help: "Customer cart loads that fell back to the local snapshot.",
	})
	corrupt := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_snapshot_discarded_total",
		Help: "Persisted cart snapshots discarded because they could not be decoded.",
	})
	queueDrops := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_mirror_queue_dropped_total",
		Help: "Remote mirror tasks dropped because the queue was full.",
	})
	reg.MustRegister(remoteSync, enrichSkips, fallbacks, corrupt, queueDrops)
	return &CartMetrics{
		remoteSync:  remoteSync,
		enrichSkips: enrichSkips,
		fallbacks:   fallbacks,
		corrupt:     corrupt,
		queueDrops:  queueDrops,
	}
}

// ObserveRemoteSync records the outcome of one remote mirror call.
func (c *CartMetrics) ObserveRemoteSync(op string, err error) {
	if c == nil || c.remoteSync == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	c.remoteSync.WithLabelValues(normalizeLabel(op), outcome).Inc()
}

func (c *CartMetrics) IncEnrichmentSkipped() {
	if c == nil || c.enrichSkips == nil {
		return
	}
	c.enrichSkips.Inc()
}

func (c *CartMetrics) IncRemoteFallback() {
	if c == nil || c.fallbacks == nil {
		return
	}
	c.fallbacks.Inc()
}

func (c *CartMetrics) IncSnapshotDiscarded() {
	if c == nil || c.corrupt == nil {
		return
	}
	c.corrupt.Inc()
}

func (c *CartMetrics) IncQueueDropped() {
	if c == nil || c.queueDrops == nil {
		return
	}
	c.queueDrops.Inc()
}

func normalizeLabel(op string) string {
	if op == "" {
		return "unknown"
	}
	return op
}
