// Package metrics exposes Prometheus collectors for loads, graph size and
// selection activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Load results.
const (
	ResultOK         = "ok"
	ResultMalformed  = "malformed"
	ResultSuperseded = "superseded"
	ResultError      = "error"
)

var (
	loadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mutual_graph_load_duration_seconds",
		Help:    "Time from receiving input files to a committed graph",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15},
	}, []string{"kind"})

	loadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mutual_graph_loads_total",
		Help: "Loads and rebuilds by result",
	}, []string{"kind", "result"})

	graphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mutual_graph_nodes",
		Help: "Nodes in the current graph",
	})

	graphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mutual_graph_edges",
		Help: "Edges in the current graph",
	})

	danglingRefs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mutual_graph_dangling_references_total",
		Help: "Mutual references to identities without a record, dropped while building",
	})

	removedLeaves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mutual_graph_removed_leaves_total",
		Help: "Nodes hidden by the root leaf filter",
	})

	selectionOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mutual_graph_selection_operations_total",
		Help: "Selection engine operations by kind",
	}, []string{"op"})
)

// ObserveLoad records a finished load or rebuild ("load" or "rebuild").
func ObserveLoad(kind, result string, elapsed time.Duration) {
	loadsTotal.WithLabelValues(kind, result).Inc()
	if result == ResultOK {
		loadDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	}
}

// SetGraphSize records the size of the committed graph.
func SetGraphSize(nodes, edges int) {
	graphNodes.Set(float64(nodes))
	graphEdges.Set(float64(edges))
}

// AddDangling counts dropped dangling references.
func AddDangling(n int) {
	if n > 0 {
		danglingRefs.Add(float64(n))
	}
}

// AddRemovedLeaves counts nodes removed by the leaf filter.
func AddRemovedLeaves(n int) {
	if n > 0 {
		removedLeaves.Add(float64(n))
	}
}

// CountSelection records one selection operation (select, search, clear, avatars).
func CountSelection(op string) {
	selectionOps.WithLabelValues(op).Inc()
}
