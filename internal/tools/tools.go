// Package tools provides the tool registry a reasoning step can call into.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ashutoshrp06/reasonchain/internal/types"
	"go.uber.org/zap"
)

// Tool defines the interface that all tools must implement.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description for the LLM.
	Description() string

	// Parameters documents the step fields the tool reads.
	Parameters() []Parameter

	// Execute runs the tool. Errors are rendered as "Error: ..." by the
	// registry; tools with their own failure wording return it as output.
	Execute(ctx context.Context, call Call) (string, error)
}

// Call carries the tool fields of a step.
type Call struct {
	Input      types.ToolInput
	NumResults int
}

// CallFromStep extracts the tool fields of a step record.
func CallFromStep(step types.StepRecord) Call {
	return Call{Input: step.ToolInput, NumResults: step.NumResults}
}

// Parameter describes a step field a tool reads.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // "string", "int", "list"
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Default     string `json:"default,omitempty"`
}

// Registry manages tool registration and lookup. Invoke is total: every
// failure comes back as text.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	aliases map[string]string
	logger  *zap.Logger
}

// NewRegistry creates a new tool registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		tools:   make(map[string]Tool),
		aliases: make(map[string]string),
		logger:  logger,
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool already registered: %s", name)
	}

	r.tools[name] = tool
	return nil
}

// MustRegister adds a tool to the registry, panicking on error.
func (r *Registry) MustRegister(tool Tool) {
	if err := r.Register(tool); err != nil {
		panic(err)
	}
}

// Alias makes alias resolve to the registered tool name.
func (r *Registry) Alias(alias, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[alias] = name
}

// Get retrieves a tool by name or alias.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := strings.ToLower(strings.TrimSpace(name))
	if target, ok := r.aliases[key]; ok {
		key = target
	}
	tool, exists := r.tools[key]
	return tool, exists
}

// List returns all registered tool names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToolInfo contains metadata about a tool for the LLM prompt.
type ToolInfo struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
}

// ListTools returns all registered tools with their metadata, sorted by name.
func (r *Registry) ListTools() []ToolInfo {
	names := r.List()

	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ToolInfo, 0, len(names))
	for _, name := range names {
		tool := r.tools[name]
		infos = append(infos, ToolInfo{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		})
	}
	return infos
}

// Invoke runs a tool by name and always returns text.
func (r *Registry) Invoke(ctx context.Context, name string, call Call) (result string) {
	start := time.Now()

	tool, exists := r.Get(name)
	if !exists {
		r.logger.Warn("Unknown tool requested", zap.String("tool", name))
		return fmt.Sprintf("Error: Unknown tool '%s'", name)
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Tool panicked", zap.String("tool", tool.Name()), zap.Any("panic", rec))
			result = fmt.Sprintf("Error: %v", rec)
		}
	}()

	if err := validateCall(tool, call); err != nil {
		return "Error: " + err.Error()
	}

	output, err := tool.Execute(ctx, call)
	elapsed := time.Since(start)
	if err != nil {
		r.logger.Warn("Tool failed",
			zap.String("tool", tool.Name()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return "Error: " + err.Error()
	}

	r.logger.Debug("Tool executed",
		zap.String("tool", tool.Name()),
		zap.Duration("elapsed", elapsed),
		zap.Int("output_len", len(output)))
	return output
}

// validateCall checks that a required tool_input was supplied.
func validateCall(tool Tool, call Call) error {
	for _, def := range tool.Parameters() {
		if def.Name == "tool_input" && def.Required && call.Input.IsZero() {
			return fmt.Errorf("missing required parameter: %s", def.Name)
		}
	}
	return nil
}

// GenerateToolsPrompt creates the tools section of the system prompt.
func (r *Registry) GenerateToolsPrompt() string {
	tools := r.ListTools()
	if len(tools) == 0 {
		return ""
	}

	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = "'" + tool.Name + "'"
	}

	var b strings.Builder
	b.WriteString("You can also use tools by including:\n")
	fmt.Fprintf(&b, "- A 'tool' key with one of the following values: %s.\n", strings.Join(names, ", "))
	b.WriteString("- A 'tool_input' key with the expression, code to execute, search query, or list of IDs.\n\n")
	b.WriteString("Available tools:\n")

	for _, tool := range tools {
		fmt.Fprintf(&b, "### %s\n%s\n", tool.Name, tool.Description)
		for _, p := range tool.Parameters {
			req := ""
			if p.Required {
				req = " (required)"
			}
			fmt.Fprintf(&b, "  - %s: %s%s\n", p.Name, p.Description, req)
			if p.Default != "" {
				fmt.Fprintf(&b, "    Default: %s\n", p.Default)
			}
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}
