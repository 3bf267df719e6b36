package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chunksIndexedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atticus_chunks_indexed_total",
		Help: "Number of document chunks added to the retrieval index.",
	})
	embedFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atticus_embed_fallback_batches_total",
		Help: "Number of embedding batches that fell back to synthetic vectors.",
	})
	queriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atticus_queries_total",
		Help: "Number of grounded query requests served.",
	})
	streamSessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atticus_stream_sessions_total",
		Help: "Number of streaming analysis sessions opened.",
	})
)
