// Package lifecycle turns test runner events into finalized report nodes.
//
// A Coordinator receives start and terminal events for each execution key,
// keeps the live node in a report.Store between them and hands the finished
// node to a Sink. Reporting is best effort: no method returns an error or
// panics into the caller, whatever happens to the store, the evidence capturer
// or the sink.
package lifecycle
