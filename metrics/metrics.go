// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics wires the node's observable counters and latency
// averagers to a prometheus registry. Grounded on the teacher's
// metrics.Metrics (a thin struct wrapping prometheus.Registerer) and
// api/metrics's MultiGatherer, collapsed into one registration point and
// populated with this node's own counters (join attempts, aggregator
// hits, blob put/get latency, relay fan-out) instead of the teacher's
// generic "prisms" naming.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Node holds every metric a running node emits. Construct with
// NewNode. Package node owns the one *Node and records against it;
// routing, dispatch, and blob take no metrics argument.
type Node struct {
	Registry prometheus.Registerer

	JoinAttempts      prometheus.Counter
	JoinApprovals     prometheus.Counter
	JoinRejections    prometheus.Counter
	Bounces           prometheus.Counter
	AggregatorHits    prometheus.Counter
	AggregatorMisses  prometheus.Counter
	RelayFanout       prometheus.Histogram
	BlobPutLatency    prometheus.Histogram
	BlobGetLatency    prometheus.Histogram
	UnknownMessages   prometheus.Counter
}

// NewNode registers and returns a fresh Node metric set against reg.
func NewNode(namespace string, reg prometheus.Registerer) (*Node, error) {
	n := &Node{
		Registry: reg,
		JoinAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "join_attempts_total", Help: "Join requests sent.",
		}),
		JoinApprovals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "join_approvals_total", Help: "Join requests approved.",
		}),
		JoinRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "join_rejections_total", Help: "Join requests rejected.",
		}),
		Bounces: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "bounces_total", Help: "Bounce replies emitted.",
		}),
		AggregatorHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "aggregator_hits_total", Help: "Signature sessions that reached threshold.",
		}),
		AggregatorMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "aggregator_misses_total", Help: "Shares added that did not reach threshold.",
		}),
		RelayFanout: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "relay_fanout", Help: "Number of peers a relayed envelope was sent to.",
			Buckets: prometheus.LinearBuckets(1, 2, 8),
		}),
		BlobPutLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "blob_put_latency_seconds", Help: "Time to complete a blob Put.",
			Buckets: prometheus.DefBuckets,
		}),
		BlobGetLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "blob_get_latency_seconds", Help: "Time to complete a blob Get.",
			Buckets: prometheus.DefBuckets,
		}),
		UnknownMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "unknown_messages_total", Help: "Envelopes the duty classifier could not place.",
		}),
	}

	collectors := []prometheus.Collector{
		n.JoinAttempts, n.JoinApprovals, n.JoinRejections, n.Bounces,
		n.AggregatorHits, n.AggregatorMisses, n.RelayFanout,
		n.BlobPutLatency, n.BlobGetLatency, n.UnknownMessages,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return n, nil
}
