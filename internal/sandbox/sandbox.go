// Package sandbox runs untrusted code with a hard wall-clock limit.
package sandbox

import (
	"context"
	"time"
)

// DefaultTimeout bounds every execution.
const DefaultTimeout = 5 * time.Second

// Result is the outcome of one execution.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
}

// OK reports whether the code exited cleanly within the time limit.
func (r Result) OK() bool {
	return !r.TimedOut && r.ExitCode == 0
}

// Runner executes a snippet of code and waits for it to finish. The
// execution is always terminated before Run returns.
type Runner interface {
	Name() string
	Run(ctx context.Context, code string) (Result, error)
}
