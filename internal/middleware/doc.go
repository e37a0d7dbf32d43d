// Package middleware provides HTTP request logging, Prometheus
// instrumentation, and response compression for the API server.
package middleware
