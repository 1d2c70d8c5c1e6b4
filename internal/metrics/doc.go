// Package metrics exports the outcome of a batch run in the Prometheus text
// format, for pickup by node_exporter's textfile collector.
package metrics
