package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/abdul-hamid-achik/hitreport/packages/assertions"
	"github.com/abdul-hamid-achik/hitreport/packages/report"
	"github.com/abdul-hamid-achik/hitreport/packages/softassert"
)

// Execution is the handle a test body receives. It is used by the goroutine
// running the test.
type Execution struct {
	key        report.ExecutionKey
	ctx        context.Context
	node       *report.Node
	soft       *softassert.Session
	failure    error
	skipped    bool
	skipReason string
}

func (e *Execution) Key() report.ExecutionKey {
	return e.key
}

func (e *Execution) Context() context.Context {
	return e.ctx
}

// Node is the live report node, or nil when the execution is unreported.
func (e *Execution) Node() *report.Node {
	return e.node
}

// Soft returns the soft assertion session of this execution. Its failures are
// reported after the test body returns.
func (e *Execution) Soft() *softassert.Session {
	return e.soft
}

// Require evaluates c and stops the test if it fails.
func (e *Execution) Require(c assertions.Check) {
	result := assertions.Evaluate(c)
	if result.Passed {
		return
	}
	msg := result.Message
	if msg == "" {
		msg = string(result.Kind)
	}
	e.Fatalf("%s: %s", msg, result.Detail)
}

// Fatalf marks the execution failed and stops the test body.
func (e *Execution) Fatalf(format string, args ...any) {
	e.failure = fmt.Errorf(format, args...)
	panic(e)
}

// Fail marks the execution failed with err and stops the test body.
func (e *Execution) Fail(err error) {
	if err == nil {
		err = errors.New("test failed with no failure message")
	}
	e.failure = err
	panic(e)
}

// Skip stops the test body and reports the execution as skipped, unless soft
// assertions have already failed.
func (e *Execution) Skip(reason string) {
	e.skipped = true
	e.skipReason = reason
	panic(e)
}

func (e *Execution) run(action func(*Execution)) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(*Execution); ok {
				return
			}
			e.failure = fmt.Errorf("unexpected panic in test: %+v\n%s", r, string(debug.Stack()))
		}
	}()

	if action == nil {
		e.Skip("test has no body")
	}
	action(e)
}
