// Package metrics provides an observability framework for documentation run metrics.
//
// The package implements the Null Object pattern so components never need
// explicit nil checks. By default everything uses NoopRecorder, whose no-op
// methods inline to nothing at compile time.
//
// Components receive a Recorder through dependency injection. To enable
// metrics, swap in the Prometheus implementation:
//
//	reg := prometheus.NewRegistry()
//	runner.SetRecorder(metrics.NewPrometheusRecorder(reg))
//
// One-shot CLI runs keep the noop recorder; watch mode wires the Prometheus
// recorder and serves the registry over HTTP via HTTPHandler.
package metrics
