// Package prometheus renders jwxt metrics in Prometheus text exposition
// format.
//
// [NewExporter] accepts a [jwxt.Engine] and exposes an [http.Handler]
// that serves every counter and the fetch latency histogram. Counter
// names are prefixed jwxt_*_total; the histogram is
// jwxt_fetch_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount
//     the Handler.
//   - Mutate engine state.
package prometheus
