// Package stats aggregates execution statistics over finalized report nodes.
//
// A Collector is a report sink: it counts executions by status and records
// durations in an HDR histogram, overall and per category, so summaries can
// show percentiles without keeping every duration.
package stats
