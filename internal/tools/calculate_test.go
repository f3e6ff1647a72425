package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/ashutoshrp06/reasonchain/internal/types"
)

func TestCalculateTool(t *testing.T) {
	registry := NewDefaultRegistry(Options{})

	tests := []struct {
		expr string
		want string
	}{
		{"2+2", "4"},
		{"(3 + 4) * 2", "14"},
		{"7 / 2", "3.5"},
		{"2 ** 10", "1024"},
		{"math.sqrt(16)", "4"},
		{"math.floor(math.pi * 100) / 100", "3.14"},
		{"math.log(8, 2)", "3"},
		{"math.factorial(5)", "120"},
		{"10 % 3", "1"},
		{"math.floor(7 / 2)", "3"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got := registry.Invoke(context.Background(), "calculate", Call{Input: types.SingleInput(tt.expr)})
			if got != tt.want {
				t.Errorf("calculate(%q) = %q, want %q", tt.expr, got, tt.want)
			}
		})
	}
}

func TestCalculateTool_Rejects(t *testing.T) {
	calc := NewCalculateTool()

	for _, expression := range []string{
		"__import__('os')",
		"len('abc')",
		"os.getenv('HOME')",
		"2 +",
		"7 // 2",
		"7 /* 2 */ + 1",
		"2 ^ 3",
		"1/0",
		"10 ** 400",
		"math.sqrt(-1)",
		"math.log(-1)",
		"math.factorial(-3)",
	} {
		t.Run(expression, func(t *testing.T) {
			registry := NewRegistry(nil)
			registry.MustRegister(calc)
			got := registry.Invoke(context.Background(), "calculate", Call{Input: types.SingleInput(expression)})
			if !strings.HasPrefix(got, "Error: ") {
				t.Errorf("expected error for %q, got %q", expression, got)
			}
		})
	}
}

func TestCalculateTool_Alias(t *testing.T) {
	registry := NewDefaultRegistry(Options{})
	if got := registry.Invoke(context.Background(), "calculator", Call{Input: types.SingleInput("6*7")}); got != "42" {
		t.Errorf("calculator alias = %q, want 42", got)
	}
}

func TestCalculateTool_ErrorMessages(t *testing.T) {
	registry := NewDefaultRegistry(Options{})

	tests := []struct {
		expr string
		want string
	}{
		{"7 // 2", "floor division"},
		{"2 ^ 3", "'**'"},
		{"1/0", "division by zero"},
		{"math.sqrt(-1)", "math domain error"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got := registry.Invoke(context.Background(), "calculate", Call{Input: types.SingleInput(tt.expr)})
			if !strings.HasPrefix(got, "Error: ") || !strings.Contains(got, tt.want) {
				t.Errorf("calculate(%q) = %q, want an error mentioning %q", tt.expr, got, tt.want)
			}
		})
	}
}
