// Package stats aggregates test durations into HdrHistogram percentiles for
// run summaries.
package stats
