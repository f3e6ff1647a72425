package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ashutoshrp06/reasonchain/internal/types"
)

// MockTool for testing the framework
type MockTool struct {
	name        string
	description string
	params      []Parameter
	execFunc    func(ctx context.Context, call Call) (string, error)
}

func (m *MockTool) Name() string            { return m.name }
func (m *MockTool) Description() string     { return m.description }
func (m *MockTool) Parameters() []Parameter { return m.params }
func (m *MockTool) Execute(ctx context.Context, call Call) (string, error) {
	if m.execFunc != nil {
		return m.execFunc(ctx, call)
	}
	return "mock output", nil
}

func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry(nil)
	tool := &MockTool{name: "test-tool", description: "A test tool"}

	if err := registry.Register(tool); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := registry.Register(tool); err == nil {
		t.Fatal("expected error for duplicate registration")
	}
}

func TestRegistry_GetWithAlias(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Register(&MockTool{name: "calculate"})
	registry.Alias("calculator", "calculate")

	for _, name := range []string{"calculate", "calculator", " Calculator "} {
		found, ok := registry.Get(name)
		if !ok || found.Name() != "calculate" {
			t.Errorf("Get(%q) = %v, %v", name, found, ok)
		}
	}

	if _, ok := registry.Get("nonexistent"); ok {
		t.Fatal("expected not to find nonexistent tool")
	}
}

func TestRegistry_ListSorted(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Register(&MockTool{name: "tool-b"})
	registry.Register(&MockTool{name: "tool-a"})

	names := registry.List()
	if len(names) != 2 || names[0] != "tool-a" || names[1] != "tool-b" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestRegistry_Invoke(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Register(&MockTool{
		name:   "echo",
		params: []Parameter{{Name: "tool_input", Required: true}},
		execFunc: func(_ context.Context, call Call) (string, error) {
			return "Echoed: " + call.Input.String(), nil
		},
	})
	registry.Register(&MockTool{
		name: "fails",
		execFunc: func(context.Context, Call) (string, error) {
			return "", errors.New("boom")
		},
	})
	registry.Register(&MockTool{
		name: "panics",
		execFunc: func(context.Context, Call) (string, error) {
			panic("bad state")
		},
	})

	tests := []struct {
		name string
		tool string
		call Call
		want string
	}{
		{"success", "echo", Call{Input: types.SingleInput("hello")}, "Echoed: hello"},
		{"unknown", "teleport", Call{}, "Error: Unknown tool 'teleport'"},
		{"missing input", "echo", Call{}, "Error: missing required parameter: tool_input"},
		{"error", "fails", Call{}, "Error: boom"},
		{"panic", "panics", Call{}, "Error: bad state"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := registry.Invoke(context.Background(), tt.tool, tt.call)
			if got != tt.want {
				t.Errorf("Invoke() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultRegistry(t *testing.T) {
	registry := NewDefaultRegistry(Options{})

	expected := []string{"calculate", "execute_code", "fetch_page_content", "web_search", "wolfram_alpha"}
	names := registry.List()
	if strings.Join(names, ",") != strings.Join(expected, ",") {
		t.Fatalf("List() = %v, want %v", names, expected)
	}

	for _, alias := range []string{"calculator", "code_executor"} {
		if _, ok := registry.Get(alias); !ok {
			t.Errorf("expected alias %s to resolve", alias)
		}
	}

	got := registry.Invoke(context.Background(), "web_search", Call{Input: types.SingleInput("golang")})
	if !strings.HasPrefix(got, "Error: web search is not configured") {
		t.Errorf("unexpected unconfigured search output %q", got)
	}
}

func TestGenerateToolsPrompt(t *testing.T) {
	registry := NewDefaultRegistry(Options{})
	prompt := registry.GenerateToolsPrompt()

	for _, want := range []string{
		"'calculate', 'execute_code', 'fetch_page_content', 'web_search', 'wolfram_alpha'",
		"### web_search",
		"num_results",
		"Default: 5",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}

	if NewRegistry(nil).GenerateToolsPrompt() != "" {
		t.Error("expected empty prompt for empty registry")
	}
}
