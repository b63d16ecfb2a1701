// Package runner executes tests in parallel and reports them.
//
// It provides functionality for:
//   - Running tests on a bounded pool of workers
//   - Pacing test starts with a rate limiter
//   - Filtering tests by name pattern and category
//   - Per-test soft assertion sessions finalized after the test body
//   - Before and after hooks around each test
//   - Waiting for a service such as a WebDriver endpoint before starting
//
// Every test invocation gets a unique execution key, so parallel invocations of
// the same test are reported independently.
package runner
