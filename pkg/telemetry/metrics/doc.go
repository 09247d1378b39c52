// Package metrics provides Prometheus metrics for the governance engine.
//
// The Collector tracks evaluation outcomes and latency, rule match counts,
// approval requests by priority, and rate-limit hits. It registers its
// metrics on a caller-supplied registry and serves them through Handler.
//
// Usage:
//
//	collector := metrics.NewCollector(prometheus.NewRegistry())
//
//	eng, err := engine.New(nil, set, engine.Deps{
//		Metrics: collector,
//	}, logger)
//
//	http.Handle("/metrics", collector.Handler())
//
// The Collector satisfies the engine's Recorder interface, so the engine
// records every evaluation without the metrics package leaking into its
// decision logic.
package metrics
