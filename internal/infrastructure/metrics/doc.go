// Package metrics exposes bridge activity as Prometheus metrics.
//
// A Collector owns its own registry so tests and multiple instances never
// collide on the global default registry. It satisfies the facade's
// Metrics interface and serves the text exposition format through Handler.
//
//	m := metrics.New("caseta")
//	facade, _ := caseta.New(caseta.Options{Metrics: m, ...})
//	router.Handle("/metrics", m.Handler())
package metrics
