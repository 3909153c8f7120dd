// Package prometheus exports tracker fixup statistics as Prometheus metrics.
//
//	stats := &tracking.Stats{}
//	tr := tracking.New(g, tracking.WithStats(stats))
//	prometheus.MustRegister(fixupprom.NewCollector(stats, fixupprom.WithConstLabels(prometheus.Labels{"unit": "orders"})))
//
// Counters are read atomically on every scrape, so the collector may run
// concurrently with the goroutine that owns the tracker.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/syssam/fixup/tracking"
)

// Namespace is the default metric namespace.
const Namespace = "fixup"

type counter struct {
	desc *prometheus.Desc
	read func(tracking.StatsSnapshot) int64
}

// Collector implements prometheus.Collector over a tracking.Stats.
type Collector struct {
	stats    *tracking.Stats
	counters []counter
}

type config struct {
	namespace string
	labels    prometheus.Labels
}

// Option configures a Collector.
type Option func(*config)

// WithNamespace overrides the metric namespace.
func WithNamespace(ns string) Option {
	return func(c *config) {
		c.namespace = ns
	}
}

// WithConstLabels attaches constant labels to every metric, e.g. to tell the
// trackers of several units of work apart.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *config) {
		c.labels = labels
	}
}

// NewCollector returns a collector reading stats.
func NewCollector(stats *tracking.Stats, opts ...Option) *Collector {
	cfg := config{namespace: Namespace}
	for _, opt := range opts {
		opt(&cfg)
	}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(cfg.namespace, "", name), help, nil, cfg.labels)
	}
	return &Collector{
		stats: stats,
		counters: []counter{
			{desc("foreign_key_writes_total", "Foreign-key values written by fixup."),
				func(s tracking.StatsSnapshot) int64 { return s.ForeignKeyWrites }},
			{desc("reference_writes_total", "Single-valued navigations set or cleared by fixup."),
				func(s tracking.StatsSnapshot) int64 { return s.ReferenceWrites }},
			{desc("collection_writes_total", "Collection additions and removals made by fixup."),
				func(s tracking.StatsSnapshot) int64 { return s.CollectionWrites }},
			{desc("orphans_total", "One-to-one dependents displaced from their principal."),
				func(s tracking.StatsSnapshot) int64 { return s.Orphans }},
			{desc("delayed_fixups_total", "Foreign keys left referencing an untracked principal."),
				func(s tracking.StatsSnapshot) int64 { return s.DelayedFixups }},
			{desc("conflicts_total", "Attach and reconcile calls rejected for conflicting linkage."),
				func(s tracking.StatsSnapshot) int64 { return s.Conflicts }},
			{desc("attached_total", "Entities that started being tracked."),
				func(s tracking.StatsSnapshot) int64 { return s.Attached }},
			{desc("detached_total", "Entities that stopped being tracked."),
				func(s tracking.StatsSnapshot) int64 { return s.Detached }},
		},
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.counters {
		ch <- m.desc
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.stats.Snapshot()
	for _, m := range c.counters {
		ch <- prometheus.MustNewConstMetric(m.desc, prometheus.CounterValue, float64(m.read(snap)))
	}
}
