// Package metrics aggregates recorded trace entries into latency and status
// summaries for reporting.
package metrics
