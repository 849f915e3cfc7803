package metrics

import "github.com/prometheus/client_golang/prometheus"

// SyncMetrics exposes counters/gauges for the message sync engine.
type SyncMetrics struct {
	loadsTotal      *prometheus.CounterVec
	pushEventsTotal *prometheus.CounterVec
	pollingActive   prometheus.Gauge
	mergeLatency    prometheus.Histogram
}

func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	m := &SyncMetrics{
		loadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "host",
			Subsystem: "sync",
			Name:      "loads_total",
			Help:      "Total merge/load cycles by remote fetch result",
		}, []string{"result"}),
		pushEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "host",
			Subsystem: "sync",
			Name:      "push_events_total",
			Help:      "Total push events by outcome",
		}, []string{"outcome"}),
		pollingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "host",
			Subsystem: "sync",
			Name:      "polling_active",
			Help:      "Number of conversations currently on fallback polling",
		}),
		mergeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "host",
			Subsystem: "sync",
			Name:      "merge_latency_seconds",
			Help:      "Latency of a full load/merge cycle",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.loadsTotal, m.pushEventsTotal, m.pollingActive, m.mergeLatency)
	return m
}

func (m *SyncMetrics) ObserveLoad(result string, seconds float64) {
	if m == nil {
		return
	}
	m.loadsTotal.WithLabelValues(result).Inc()
	m.mergeLatency.Observe(seconds)
}

func (m *SyncMetrics) ObservePushEvent(outcome string) {
	if m == nil {
		return
	}
	m.pushEventsTotal.WithLabelValues(outcome).Inc()
}

func (m *SyncMetrics) PollingStarted() {
	if m == nil {
		return
	}
	m.pollingActive.Inc()
}

func (m *SyncMetrics) PollingStopped() {
	if m == nil {
		return
	}
	m.pollingActive.Dec()
}

// ReplyMetrics exposes counters/histograms for AI reply generation.
type ReplyMetrics struct {
	generationsTotal  *prometheus.CounterVec
	generationLatency *prometheus.HistogramVec
}

func NewReplyMetrics(reg prometheus.Registerer) *ReplyMetrics {
	m := &ReplyMetrics{
		generationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "host",
			Subsystem: "reply",
			Name:      "generations_total",
			Help:      "Total reply generations by provider and status",
		}, []string{"provider", "status"}),
		generationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "host",
			Subsystem: "reply",
			Name:      "generation_latency_seconds",
			Help:      "Latency of completion provider calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.generationsTotal, m.generationLatency)
	return m
}

func (m *ReplyMetrics) ObserveGeneration(provider, status string, seconds float64) {
	if m == nil {
		return
	}
	m.generationsTotal.WithLabelValues(provider, status).Inc()
	m.generationLatency.WithLabelValues(provider).Observe(seconds)
}
