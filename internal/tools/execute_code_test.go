package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/ashutoshrp06/reasonchain/internal/sandbox"
	"github.com/ashutoshrp06/reasonchain/internal/types"
)

type stubRunner struct {
	res  sandbox.Result
	err  error
	code string
}

func (s *stubRunner) Name() string { return "stub" }

func (s *stubRunner) Run(_ context.Context, code string) (sandbox.Result, error) {
	s.code = code
	return s.res, s.err
}

func TestExecuteCodeTool(t *testing.T) {
	tests := []struct {
		name   string
		runner *stubRunner
		want   string
	}{
		{"stdout", &stubRunner{res: sandbox.Result{Stdout: "4\n"}}, "4\n"},
		{"failure", &stubRunner{res: sandbox.Result{ExitCode: 1, Stderr: "NameError: x"}}, "Error: NameError: x"},
		{"timeout", &stubRunner{res: sandbox.Result{TimedOut: true, ExitCode: -1}}, "Error: Code execution timed out"},
		{"runner error", &stubRunner{err: errors.New("exec: python3 not found")}, "Error: exec: python3 not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewDefaultRegistry(Options{Runner: tt.runner})
			got := registry.Invoke(context.Background(), "code_executor", Call{Input: types.SingleInput("print(2+2)")})
			if got != tt.want {
				t.Errorf("Invoke() = %q, want %q", got, tt.want)
			}
			if tt.runner.code != "print(2+2)" {
				t.Errorf("runner received %q", tt.runner.code)
			}
		})
	}
}
