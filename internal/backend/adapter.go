// Package backend wraps chat-completion providers behind a uniform step
// contract with bounded retries and permissive output recovery.
package backend

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/ashutoshrp06/reasonchain/internal/types"
	"github.com/ashutoshrp06/reasonchain/internal/validator"
	"go.uber.org/zap"
)

const (
	defaultAttempts = 3
	defaultBackoff  = 1 * time.Second
	temperature     = 0.2
)

// Request carries per-call generation settings to a provider.
type Request struct {
	MaxTokens int
	// JSON asks the provider for a JSON object instead of free text.
	JSON bool
}

// Provider performs one raw chat call against a concrete backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, msgs []types.Message, req Request) (string, error)
}

// Adapter turns provider output into step records. Call never returns an
// error: failures surface as error records after retries are exhausted.
type Adapter struct {
	provider        Provider
	filter          TranscriptFilter
	attempts        int
	backoff         time.Duration
	structuredFinal bool
	sleep           func(ctx context.Context, d time.Duration) error
	logger          *zap.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the adapter logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithRetry overrides the attempt count and the pause between attempts.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(a *Adapter) {
		if attempts > 0 {
			a.attempts = attempts
		}
		if backoff >= 0 {
			a.backoff = backoff
		}
	}
}

// WithSleep replaces the pause function, mainly for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(a *Adapter) {
		if sleep != nil {
			a.sleep = sleep
		}
	}
}

// WithStructuredFinal makes the final-answer call request JSON as well. The
// plain reasoning variant wants this; the tool variant wants free text.
func WithStructuredFinal(structured bool) Option {
	return func(a *Adapter) {
		a.structuredFinal = structured
	}
}

// WithFilter installs a pre-send transcript filter, replacing the provider's
// default.
func WithFilter(filter TranscriptFilter) Option {
	return func(a *Adapter) {
		a.filter = filter
	}
}

// NewAdapter wraps a provider. Providers implementing Filtered supply their
// own transcript filter.
func NewAdapter(p Provider, opts ...Option) *Adapter {
	a := &Adapter{
		provider: p,
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
		sleep:    sleepContext,
		logger:   zap.NewNop(),
	}
	if f, ok := p.(Filtered); ok {
		a.filter = f.TranscriptFilter()
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return a.provider.Name()
}

// Call sends the transcript and returns a step record. When isFinal is true
// the returned record's content is the final answer text.
func (a *Adapter) Call(ctx context.Context, msgs []types.Message, maxTokens int, isFinal bool) types.StepRecord {
	if a.filter != nil {
		msgs = a.filter(msgs, isFinal)
	}
	structured := !isFinal || a.structuredFinal
	req := Request{MaxTokens: maxTokens, JSON: structured}

	var lastErr error
	attempt := 0
	for attempt < a.attempts {
		attempt++

		raw, err := a.provider.Complete(ctx, msgs, req)
		if err == nil {
			return a.decode(raw, structured, isFinal)
		}
		lastErr = err

		a.logger.Warn("Backend call failed",
			zap.String("provider", a.provider.Name()),
			zap.Int("attempt", attempt),
			zap.Bool("final", isFinal),
			zap.Error(err))

		if IsPermanent(err) || ctx.Err() != nil || attempt >= a.attempts {
			break
		}
		if err := a.sleep(ctx, a.backoff); err != nil {
			lastErr = err
			break
		}
	}

	return errorRecord(lastErr, attempt, isFinal)
}

func (a *Adapter) decode(raw string, structured, isFinal bool) types.StepRecord {
	if !structured {
		return types.StepRecord{
			Title:      types.TitleFinalAnswer,
			Content:    raw,
			NextAction: types.ActionFinalAnswer,
		}
	}

	step, err := validator.ParseStep(raw)
	if err != nil {
		a.logger.Warn("Response is not valid step JSON, keeping raw text",
			zap.String("provider", a.provider.Name()),
			zap.Error(err),
			zap.String("raw_response", truncate(raw, 200)))
		return validator.RawResponse(raw, isFinal)
	}
	if isFinal {
		step.NextAction = types.ActionFinalAnswer
	}
	return step
}

func errorRecord(err error, attempts int, isFinal bool) types.StepRecord {
	what := "step"
	if isFinal {
		what = "final answer"
	}
	if IsPermanent(err) {
		return types.NewErrorRecord(fmt.Sprintf("Failed to generate %s. Error: %v", what, err))
	}
	return types.NewErrorRecord(fmt.Sprintf("Failed to generate %s after %d attempts. Error: %v", what, attempts, err))
}

// permanentError marks a failure that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the adapter does not retry it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
