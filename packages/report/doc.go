// Package report holds the in-memory report records produced while tests execute.
//
// It provides:
//   - ExecutionKey, the correlation handle for one running test invocation
//   - Node, the mutable record of one execution (timing, description, status, evidence, log)
//   - Store, the concurrent table mapping execution keys to their live nodes
//
// A Node is owned by the goroutine executing its test until it is finalized and
// handed to a sink; the Store is the only structure shared between workers.
package report
