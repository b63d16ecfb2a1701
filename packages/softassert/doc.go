// Package softassert provides soft assertions: checks whose failures are recorded
// instead of stopping the test.
//
// A Session belongs to exactly one test execution. Every check appends an
// immutable Record (and a pass/fail line on the execution's report node);
// Finalize then surfaces all failures at once as a single AggregatedError, so a
// test author sees every violated expectation instead of only the first.
package softassert
