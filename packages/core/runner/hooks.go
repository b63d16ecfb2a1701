package runner

import (
	"fmt"
)

// Hook runs before or after each test body with the test's execution.
type Hook func(e *Execution) error

// executeHooks runs hooks in order and stops at the first error
func (r *Runner) executeHooks(e *Execution, hooks []Hook) error {
	for i, hook := range hooks {
		if err := r.executeHook(e, hook); err != nil {
			return fmt.Errorf("before hook %d failed: %w", i, err)
		}
		if e.skipped {
			return nil
		}
	}
	return nil
}

// executeAfterHooks runs every hook even if one fails, since after hooks are
// typically cleanup; the first error is returned
func (r *Runner) executeAfterHooks(e *Execution, hooks []Hook) error {
	var firstErr error
	for i, hook := range hooks {
		if err := r.executeHook(e, hook); err != nil {
			r.logger.Warn("after hook failed", "test", e.key.Test, "hook", i, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("after hook %d failed: %w", i, err)
			}
		}
	}
	return firstErr
}

// executeHook converts a panicking hook into an error. A hook that calls
// Skip returns nil with the execution marked skipped.
func (r *Runner) executeHook(e *Execution, hook Hook) (err error) {
	defer func() {
		if p := recover(); p != nil {
			if x, ok := p.(*Execution); ok {
				if x.failure != nil {
					err = x.failure
				}
				return
			}
			err = fmt.Errorf("hook panicked: %v", p)
		}
	}()
	return hook(e)
}
