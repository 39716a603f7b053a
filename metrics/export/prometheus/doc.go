// Package prometheus renders authkit counters for Prometheus scrapes.
//
// [NewPrometheusExporter] accepts an [authkit.Engine] and exposes an
// [http.Handler] that renders every engine counter in Prometheus text
// exposition format. Counter names are prefixed authkit_*_total.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
