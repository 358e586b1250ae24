// Package observability builds the process logger and the Prometheus
// metrics shared by the HTTP pipeline, the rate limiter and the event
// workers.
package observability
