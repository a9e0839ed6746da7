package metric

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// ShardCollector reports the entry count of every table shard.
type ShardCollector struct {
	counts func() []int
	desc   *prometheus.Desc
}

// NewShardCollector creates a collector reading counts on every scrape.
func NewShardCollector(counts func() []int) *ShardCollector {
	return &ShardCollector{
		counts: counts,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "store", "shard_keys"),
			"Live keys per table shard",
			[]string{"shard"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *ShardCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector.
func (c *ShardCollector) Collect(ch chan<- prometheus.Metric) {
	for i, n := range c.counts() {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(n), strconv.Itoa(i))
	}
}
