// Package metrics records pipeline observations: step durations and results,
// command durations, and the final pipeline outcome.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no nil checks are needed at call sites:
//
//	p := pipeline.New(steps, runner, pipeline.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// A PrometheusRecorder registers its collectors on the given registry. The
// CLI writes that registry to a node-exporter textfile when --metrics-file is
// set (see WriteTextfile).
package metrics
