// Package health provides liveness and readiness probes for the governance
// service.
//
// Liveness only confirms the process is running. Readiness runs registered
// component probes (audit store, rule catalog) concurrently, each bounded by
// a probe timeout, and degrades the overall status when any component
// fails.
//
// Usage:
//
//	checker := health.New(0)
//	checker.Register("audit_store", func(ctx context.Context) error {
//	    _, err := store.Count(ctx)
//	    return err
//	})
//
//	mux.HandleFunc("/health/live", checker.LivenessHandler())
//	mux.HandleFunc("/health/ready", checker.ReadinessHandler())
package health
