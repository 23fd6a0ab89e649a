// Package metrics exposes the engine's runtime counters and gauges through a
// prometheus.Registry. This has no use for an EVM client's metric surface
// (counters, EWMAs, resettable timers pulled through an intermediate
// registry abstraction), so it registers ordinary prometheus.Collector
// values directly instead.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Set is the collection of metrics one partition engine exposes. Every field
// is safe for concurrent use, though the engine itself is single-threaded
// per partition (see spec §5) — concurrent use only matters for the
// Prometheus HTTP scrape goroutine reading gauges the engine goroutine is
// updating.
type Set struct {
	Registry *prometheus.Registry

	// LttBlockCache (§4.5)
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	CacheResidentB   prometheus.Gauge
	CacheGeneration  prometheus.Counter
	CacheEvictFailed prometheus.Counter

	// UndoLog (§4.8)
	UndoLogDepth     prometheus.Gauge
	UndoPoolsPooled  prometheus.Gauge
	UndoQuantaFreed  prometheus.Counter

	// TupleStream (§4.3)
	StreamBytesProduced   prometheus.Counter
	StreamBlocksPushed    prometheus.Counter
	StreamOverflowDropped prometheus.Counter

	// LargeTempTable sort (§4.6)
	SortRunsMerged prometheus.Counter
}

// New constructs a metric Set registered under the given partition label.
func New(namespace string, partition string) *Set {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"partition": partition}

	counter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
		reg.MustRegister(c)
		return c
	}
	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
		reg.MustRegister(g)
		return g
	}

	return &Set{
		Registry: reg,

		CacheHits:        counter("ltt_cache_hits_total", "LttBlockCache fetch() hits"),
		CacheMisses:      counter("ltt_cache_misses_total", "LttBlockCache fetch() misses"),
		CacheResidentB:   gauge("ltt_cache_resident_bytes", "bytes of resident LttBlocks"),
		CacheGeneration:  counter("ltt_cache_generation_total", "get_empty_block calls served"),
		CacheEvictFailed: counter("ltt_cache_evict_failed_total", "ensure_space_for_new_block failures"),

		UndoLogDepth:    gauge("undo_log_depth", "open UndoQuanta in the log"),
		UndoPoolsPooled: gauge("undo_pool_freelist_size", "Pools held in the UndoLog free-list"),
		UndoQuantaFreed: counter("undo_quanta_freed_total", "quanta released or undone"),

		StreamBytesProduced:   counter("stream_bytes_produced_total", "bytes appended across all TupleStreams"),
		StreamBlocksPushed:    counter("stream_blocks_pushed_total", "StreamBlocks handed to the top end"),
		StreamOverflowDropped: counter("stream_overflow_total", "appendTuple calls that overflowed maximum capacity"),

		SortRunsMerged: counter("ltt_sort_runs_merged_total", "runs consumed across all k-way merge passes"),
	}
}
