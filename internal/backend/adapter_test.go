package backend

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/ashutoshrp06/reasonchain/internal/types"
)

// scriptedProvider returns responses and errors in order.
type scriptedProvider struct {
	responses []string
	errs      []error
	calls     int
	requests  []Request
	seen      [][]types.Message
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(_ context.Context, msgs []types.Message, req Request) (string, error) {
	i := p.calls
	p.calls++
	p.requests = append(p.requests, req)
	p.seen = append(p.seen, msgs)
	if i < len(p.errs) && p.errs[i] != nil {
		return "", p.errs[i]
	}
	if i < len(p.responses) {
		return p.responses[i], nil
	}
	return "", errors.New("script exhausted")
}

func noSleep(sleeps *int) Option {
	return WithSleep(func(_ context.Context, d time.Duration) error {
		if d != time.Second {
			return errors.New("unexpected backoff")
		}
		*sleeps++
		return nil
	})
}

func TestAdapter_RetriesThenSucceeds(t *testing.T) {
	transport := errors.New("connection refused")
	p := &scriptedProvider{
		errs:      []error{transport, transport},
		responses: []string{"", "", `{"title":"Decompose","content":"split it","next_action":"continue"}`},
	}
	sleeps := 0
	a := NewAdapter(p, noSleep(&sleeps))

	step := a.Call(context.Background(), nil, 300, false)

	if p.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", p.calls)
	}
	if sleeps != 2 {
		t.Errorf("expected 2 pauses, got %d", sleeps)
	}
	if step.Title != "Decompose" || step.NextAction != types.ActionContinue {
		t.Errorf("unexpected step %+v", step)
	}
	if !p.requests[0].JSON || p.requests[0].MaxTokens != 300 {
		t.Errorf("expected JSON request with 300 tokens, got %+v", p.requests[0])
	}
}

func TestAdapter_ExhaustedRetries(t *testing.T) {
	transport := errors.New("connection refused")
	tests := []struct {
		name    string
		isFinal bool
		prefix  string
	}{
		{"step", false, "Failed to generate step after 3 attempts. Error: "},
		{"final", true, "Failed to generate final answer after 3 attempts. Error: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &scriptedProvider{errs: []error{transport, transport, transport}}
			sleeps := 0
			a := NewAdapter(p, noSleep(&sleeps))

			step := a.Call(context.Background(), nil, 300, tt.isFinal)

			if p.calls != 3 {
				t.Fatalf("expected 3 attempts, got %d", p.calls)
			}
			if sleeps != 2 {
				t.Errorf("expected 2 pauses, got %d", sleeps)
			}
			if !step.IsError() || step.NextAction != types.ActionFinalAnswer {
				t.Errorf("expected error record, got %+v", step)
			}
			if !strings.HasPrefix(step.Content, tt.prefix) || !strings.Contains(step.Content, "connection refused") {
				t.Errorf("unexpected content %q", step.Content)
			}
		})
	}
}

func TestAdapter_PermanentErrorNotRetried(t *testing.T) {
	p := &scriptedProvider{errs: []error{Permanent(errors.New("bad request"))}}
	sleeps := 0
	a := NewAdapter(p, noSleep(&sleeps))

	step := a.Call(context.Background(), nil, 300, false)

	if p.calls != 1 || sleeps != 0 {
		t.Fatalf("expected a single attempt, got calls=%d sleeps=%d", p.calls, sleeps)
	}
	if step.Content != "Failed to generate step. Error: bad request" {
		t.Errorf("unexpected content %q", step.Content)
	}
}

func TestAdapter_RawResponseRecovery(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		action string
	}{
		{"plain text", "I think the answer is 42", types.ActionContinue},
		{"marker", `{"title": "Done", "NEXT_ACTION": "Final_Answer"`, types.ActionFinalAnswer},
		{"broken json with marker", `{"title": "x", "next_action": "final_answer",}`, types.ActionFinalAnswer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &scriptedProvider{responses: []string{tt.raw}}
			a := NewAdapter(p)

			step := a.Call(context.Background(), nil, 300, false)

			if p.calls != 1 {
				t.Errorf("invalid JSON must not be retried, got %d calls", p.calls)
			}
			if step.Title != types.TitleRawResponse || step.Content != tt.raw {
				t.Errorf("unexpected step %+v", step)
			}
			if step.NextAction != tt.action {
				t.Errorf("next_action = %q, want %q", step.NextAction, tt.action)
			}
		})
	}
}

func TestAdapter_FinalCall(t *testing.T) {
	t.Run("free text", func(t *testing.T) {
		p := &scriptedProvider{responses: []string{"The answer is 4."}}
		a := NewAdapter(p)

		step := a.Call(context.Background(), nil, 1200, true)

		if p.requests[0].JSON {
			t.Error("free-text final must not request JSON")
		}
		if step.Title != types.TitleFinalAnswer || step.Content != "The answer is 4." || !step.IsFinal() {
			t.Errorf("unexpected step %+v", step)
		}
	})

	t.Run("structured", func(t *testing.T) {
		p := &scriptedProvider{responses: []string{`{"title":"Final Answer","content":"4","next_action":"continue"}`}}
		a := NewAdapter(p, WithStructuredFinal(true))

		step := a.Call(context.Background(), nil, 200, true)

		if !p.requests[0].JSON {
			t.Error("structured final must request JSON")
		}
		if step.Content != "4" || !step.IsFinal() {
			t.Errorf("unexpected step %+v", step)
		}
	})
}

func TestAdapter_FilterAppliedToCopy(t *testing.T) {
	p := &perplexityStub{scriptedProvider{responses: []string{`{"title":"t","content":"c","next_action":"continue"}`}}}
	a := NewAdapter(p)

	msgs := []types.Message{
		{Role: types.RoleSystem, Content: "sys"},
		{Role: types.RoleUser, Content: "q"},
		{Role: types.RoleAssistant, Content: "ack"},
	}
	a.Call(context.Background(), msgs, 300, false)

	if len(msgs) != 3 {
		t.Fatalf("caller transcript was modified: %v", msgs)
	}
	sent := p.seen[0]
	for _, m := range sent {
		if m.Role == types.RoleAssistant {
			t.Errorf("assistant turn was sent: %+v", sent)
		}
	}
}

func TestAdapter_ContextCancelledStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &scriptedProvider{errs: []error{context.Canceled, context.Canceled, context.Canceled}}
	a := NewAdapter(p)

	step := a.Call(ctx, nil, 300, false)
	if p.calls != 1 {
		t.Errorf("expected no retries after cancellation, got %d calls", p.calls)
	}
	if !step.IsError() {
		t.Errorf("expected error record, got %+v", step)
	}
}

type perplexityStub struct {
	scriptedProvider
}

func (p *perplexityStub) TranscriptFilter() TranscriptFilter {
	return Chain(StripAssistantTurns, AlternateRoles)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short", "abc", 5, "abc"},
		{"ascii", "abcdef", 3, "abc..."},
		{"splits rune", "abécd", 3, "ab..."},
		{"rune boundary", "abécd", 4, "abé..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.max)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate(%q, %d) produced invalid UTF-8", tt.in, tt.max)
			}
		})
	}
}
