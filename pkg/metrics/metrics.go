// Package metrics exposes pool registry statistics as Prometheus metrics.
// It implements a prometheus.Collector over a mempool.Registry so that
// every pool's gauges and cumulative counters show up per-pool without
// manual instrumentation in allocation paths.
//
// Usage:
//
//	reg := mempool.NewRegistry()
//	prometheus.MustRegister(metrics.NewCollector(reg))
//
// Collection folds pending meter deltas first, so scraped counters are
// current as of the scrape.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ajitpratap0/mempool/pkg/mempool"
)

const namespace = "mempool"

// Collector exports one registry's pool statistics. It is safe to collect
// concurrently with allocation traffic: snapshots take each pool's lock
// only briefly.
type Collector struct {
	reg *mempool.Registry

	items     *prometheus.Desc
	bytes     *prometheus.Desc
	chunks    *prometheus.Desc
	calls     *prometheus.Desc
	overhead  *prometheus.Desc
	pools     *prometheus.Desc
	idleLimit *prometheus.Desc
	total     *prometheus.Desc
}

// NewCollector returns a Collector for the given registry.
func NewCollector(reg *mempool.Registry) *Collector {
	return &Collector{
		reg: reg,
		items: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "pool", "items"),
			"Objects per pool by state (allocated, in_use, idle).",
			[]string{"pool", "state"}, nil,
		),
		bytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "pool", "bytes"),
			"Bytes per pool by state (in_use, idle).",
			[]string{"pool", "state"}, nil,
		),
		chunks: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "pool", "chunks"),
			"Backing chunks per pool by occupancy (full, partial, free).",
			[]string{"pool", "state"}, nil,
		),
		calls: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "pool", "calls_total"),
			"Cumulative allocator calls per pool (alloc, saved, free).",
			[]string{"pool", "op"}, nil,
		),
		overhead: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "pool", "overhead_bytes"),
			"Estimated bookkeeping bytes per pool.",
			[]string{"pool"}, nil,
		),
		pools: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "pools"),
			"Number of pools owned by the registry.",
			nil, nil,
		),
		idleLimit: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "idle_limit_bytes"),
			"Configured soft ceiling on aggregate idle memory.",
			nil, nil,
		),
		total: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "allocated_bytes"),
			"Backing memory currently held across all pools.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.items
	ch <- c.bytes
	ch <- c.chunks
	ch <- c.calls
	ch <- c.overhead
	ch <- c.pools
	ch <- c.idleLimit
	ch <- c.total
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	var total int64
	poolCount := 0

	c.reg.Each(func(a mempool.Allocator) bool {
		var s mempool.PoolStats
		a.GetStats(&s, false)
		poolCount++
		total += s.ItemsAllocated * s.ObjectSize

		gauge := func(d *prometheus.Desc, v int64, labels ...string) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v), labels...)
		}
		counter := func(d *prometheus.Desc, v int64, labels ...string) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
		}

		gauge(c.items, s.ItemsAllocated, s.Label, "allocated")
		gauge(c.items, s.ItemsInUse, s.Label, "in_use")
		gauge(c.items, s.ItemsIdle, s.Label, "idle")

		gauge(c.bytes, s.InUseBytes, s.Label, "in_use")
		gauge(c.bytes, s.IdleBytes, s.Label, "idle")

		gauge(c.chunks, int64(s.ChunksFull), s.Label, "full")
		gauge(c.chunks, int64(s.ChunksPartial), s.Label, "partial")
		gauge(c.chunks, int64(s.ChunksFree), s.Label, "free")

		counter(c.calls, s.AllocCalls, s.Label, "alloc")
		counter(c.calls, s.SavedCalls, s.Label, "saved")
		counter(c.calls, s.FreeCalls, s.Label, "free")

		gauge(c.overhead, s.Overhead, s.Label)
		return true
	})

	ch <- prometheus.MustNewConstMetric(c.pools, prometheus.GaugeValue, float64(poolCount))
	ch <- prometheus.MustNewConstMetric(c.idleLimit, prometheus.GaugeValue, float64(c.reg.IdleLimit()))
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(total))
}
