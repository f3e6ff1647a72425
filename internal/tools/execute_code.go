package tools

import (
	"context"

	"github.com/ashutoshrp06/reasonchain/internal/sandbox"
)

// ExecuteCodeTool runs Python code through a sandbox runner.
type ExecuteCodeTool struct {
	runner sandbox.Runner
}

func NewExecuteCodeTool(runner sandbox.Runner) *ExecuteCodeTool {
	if runner == nil {
		runner = sandbox.NewProcessRunner()
	}
	return &ExecuteCodeTool{runner: runner}
}

func (e *ExecuteCodeTool) Name() string { return "execute_code" }

func (e *ExecuteCodeTool) Description() string {
	return "Run a short Python 3 program and return what it prints to stdout. " +
		"Execution is limited to 5 seconds and has no access to your environment."
}

func (e *ExecuteCodeTool) Parameters() []Parameter {
	return []Parameter{
		{Name: "tool_input", Type: "string", Description: "Python source code to execute", Required: true},
	}
}

func (e *ExecuteCodeTool) Execute(ctx context.Context, call Call) (string, error) {
	res, err := e.runner.Run(ctx, call.Input.String())
	if err != nil {
		return "", err
	}
	if res.TimedOut {
		return "Error: Code execution timed out", nil
	}
	if res.ExitCode != 0 {
		return "Error: " + res.Stderr, nil
	}
	return res.Stdout, nil
}
