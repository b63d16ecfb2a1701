// Package output provides report sinks that render finalized test executions.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output, streamed as tests finish
//   - JSON: Machine-readable JSON output
//   - JUnit: JUnit XML format for CI integration
//   - TAP: Test Anything Protocol format
//   - HTML: Standalone report page with evidence images
//
// Every sink implements Sink. Accept may be called from many goroutines;
// Flush is called once after the run with its summary.
package output
