package metrics

import "github.com/prometheus/client_golang/prometheus"

// SessionCountFunc returns the number of live sessions without importing
// the session package.
type SessionCountFunc func() int

// sessionCollector implements prometheus.Collector for session store
// stats.
type sessionCollector struct {
	countFunc SessionCountFunc

	activeDesc *prometheus.Desc
}

// NewSessionCollector creates a collector that exposes a live-session
// gauge.
func NewSessionCollector(countFunc SessionCountFunc) prometheus.Collector {
	return &sessionCollector{
		countFunc: countFunc,
		activeDesc: prometheus.NewDesc(
			"ccapd_sessions_active",
			"Number of sessions currently held in the session store.",
			nil, nil,
		),
	}
}

// Describe sends the descriptors of each metric to the channel.
func (c *sessionCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.activeDesc
}

// Collect fetches the session count and sends it as a metric.
func (c *sessionCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.activeDesc, prometheus.GaugeValue, float64(c.countFunc()))
}
