// Package types defines shared data structures for reasonchain.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Message roles understood by every backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Next actions a step may request.
const (
	ActionContinue    = "continue"
	ActionFinalAnswer = "final_answer"
)

// Well-known step titles.
const (
	TitleError       = "Error"
	TitleRawResponse = "Raw Response"
	TitleFinalAnswer = "Final Answer"
)

// Message represents a message in the conversation transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolInput holds the payload a step passes to a tool. The model may send
// either a single string or a list of strings; List records which one so the
// value serializes back in the same shape.
type ToolInput struct {
	Values []string
	List   bool
}

// SingleInput builds a scalar tool input.
func SingleInput(s string) ToolInput {
	return ToolInput{Values: []string{s}}
}

// ListInput builds a list tool input.
func ListInput(items ...string) ToolInput {
	return ToolInput{Values: items, List: true}
}

// IsZero reports whether no input was given.
func (in ToolInput) IsZero() bool {
	return len(in.Values) == 0 && !in.List
}

// String returns the scalar value, or the list joined by ", ".
func (in ToolInput) String() string {
	if !in.List && len(in.Values) == 1 {
		return in.Values[0]
	}
	return strings.Join(in.Values, ", ")
}

// MarshalJSON writes a string or an array depending on the original shape.
func (in ToolInput) MarshalJSON() ([]byte, error) {
	if in.List {
		if in.Values == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(in.Values)
	}
	if len(in.Values) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(in.Values[0])
}

// UnmarshalJSON accepts a string, an array of scalars, or any other scalar.
func (in *ToolInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*in = ToolInput{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*in = SingleInput(s)
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		values := make([]string, 0, len(raw))
		for _, r := range raw {
			values = append(values, flexibleString(r))
		}
		*in = ToolInput{Values: values, List: true}
	default:
		*in = SingleInput(flexibleString(data))
	}
	return nil
}

// StepRecord is the structured response produced for one reasoning step.
type StepRecord struct {
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	NextAction string    `json:"next_action,omitempty"`
	Tool       string    `json:"tool,omitempty"`
	ToolInput  ToolInput `json:"tool_input,omitzero"`
	NumResults int       `json:"num_results,omitempty"`
	ToolResult string    `json:"tool_result,omitempty"`

	// ThinkingTime is measured by the controller and never sent to a backend.
	ThinkingTime time.Duration `json:"-"`
}

// UnmarshalJSON tolerates the loose shapes models produce: content may be a
// structured value and num_results may arrive as a string.
func (s *StepRecord) UnmarshalJSON(data []byte) error {
	var wire struct {
		Title      json.RawMessage `json:"title"`
		Content    json.RawMessage `json:"content"`
		NextAction json.RawMessage `json:"next_action"`
		Tool       json.RawMessage `json:"tool"`
		ToolInput  ToolInput       `json:"tool_input"`
		NumResults json.RawMessage `json:"num_results"`
		ToolResult json.RawMessage `json:"tool_result"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*s = StepRecord{
		Title:      flexibleString(wire.Title),
		Content:    flexibleString(wire.Content),
		NextAction: flexibleString(wire.NextAction),
		Tool:       flexibleString(wire.Tool),
		ToolInput:  wire.ToolInput,
		ToolResult: flexibleString(wire.ToolResult),
	}
	if n := flexibleString(wire.NumResults); n != "" {
		var parsed int
		if _, err := fmt.Sscan(n, &parsed); err == nil {
			s.NumResults = parsed
		}
	}
	return nil
}

// IsFinal reports whether the step asks to stop reasoning.
func (s StepRecord) IsFinal() bool {
	return strings.ToLower(strings.TrimSpace(s.NextAction)) == ActionFinalAnswer
}

// IsError reports whether the record is an exhausted-retry error.
func (s StepRecord) IsError() bool {
	return s.Title == TitleError
}

// HasTool reports whether the step requests a tool invocation.
func (s StepRecord) HasTool() bool {
	return strings.TrimSpace(s.Tool) != ""
}

// Encode serializes the record the way it is echoed back into the transcript.
func (s StepRecord) Encode() string {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Sprintf(`{"title":%q,"content":%q,"next_action":%q}`, s.Title, s.Content, s.NextAction)
	}
	return string(data)
}

// NewErrorRecord builds the record surfaced after retries are exhausted.
func NewErrorRecord(content string) StepRecord {
	return StepRecord{
		Title:      TitleError,
		Content:    content,
		NextAction: ActionFinalAnswer,
	}
}

// StepView is what presentation layers render for one step.
type StepView struct {
	Label        string        `json:"label"`
	Content      string        `json:"content"`
	ThinkingTime time.Duration `json:"-"`
	Tool         string        `json:"tool,omitempty"`
	ToolInput    *ToolInput    `json:"tool_input,omitempty"`
	ToolResult   *string       `json:"tool_result,omitempty"`
}

// IsFinal reports whether the view is the terminal answer.
func (v StepView) IsFinal() bool {
	return v.Label == TitleFinalAnswer
}

// MarshalJSON adds thinking_time in seconds.
func (v StepView) MarshalJSON() ([]byte, error) {
	type alias StepView
	return json.Marshal(struct {
		alias
		ThinkingTime float64 `json:"thinking_time"`
	}{alias(v), v.ThinkingTime.Seconds()})
}

// Emission is one element of a run's output sequence: every step so far and,
// on the last element only, the total thinking time.
type Emission struct {
	RunID string
	Steps []StepView
	Total *time.Duration
}

// Done reports whether this is the final emission of a run.
func (e Emission) Done() bool {
	return e.Total != nil
}

// MarshalJSON writes total_time in seconds, or null while the run continues.
func (e Emission) MarshalJSON() ([]byte, error) {
	var total *float64
	if e.Total != nil {
		secs := e.Total.Seconds()
		total = &secs
	}
	return json.Marshal(struct {
		RunID     string     `json:"run_id,omitempty"`
		Steps     []StepView `json:"steps"`
		TotalTime *float64   `json:"total_time"`
	}{e.RunID, e.Steps, total})
}

// flexibleString renders a raw JSON value as text: strings are unquoted,
// anything else is kept as compact JSON.
func flexibleString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
