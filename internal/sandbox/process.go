package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// ProcessRunner executes code in a child process with a constrained
// environment. Only PYTHONPATH is passed through.
type ProcessRunner struct {
	// Interpreter is invoked as Interpreter... -c code.
	Interpreter []string
	Timeout     time.Duration
	Dir         string
}

// NewProcessRunner returns a python3 runner with the default timeout.
func NewProcessRunner() *ProcessRunner {
	return &ProcessRunner{
		Interpreter: []string{"python3"},
		Timeout:     DefaultTimeout,
	}
}

func (p *ProcessRunner) Name() string { return "process" }

func (p *ProcessRunner) Run(ctx context.Context, code string) (Result, error) {
	if len(p.Interpreter) == 0 {
		return Result{}, errors.New("no interpreter configured")
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	dir := p.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Result{}, fmt.Errorf("resolve working directory: %w", err)
		}
		dir = wd
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string{}, p.Interpreter[1:]...), "-c", code)
	cmd := exec.CommandContext(runCtx, p.Interpreter[0], args...)
	cmd.Dir = dir
	cmd.Env = []string{"PYTHONPATH=" + dir}
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		res.ExitCode = -1
		return res, nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return res, fmt.Errorf("start %s: %w", p.Interpreter[0], err)
	}
	return res, nil
}
