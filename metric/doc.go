// Package metric exports mapres load and unload metrics to Prometheus.
package metric
