// Package agent implements the step loop that drives a backend through
// self-generated reasoning steps and then asks for a final answer.
package agent

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/ashutoshrp06/reasonchain/internal/tools"
	"github.com/ashutoshrp06/reasonchain/internal/transcript"
	"github.com/ashutoshrp06/reasonchain/internal/types"
	"github.com/ashutoshrp06/reasonchain/internal/validator"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultMaxSteps is the number of intermediate steps after which the
	// run is forced into the final answer. It is also the upper bound for
	// Config.MaxSteps.
	DefaultMaxSteps = 25

	stepTokens       = 300
	finalTokensPlain = 200
	finalTokensTools = 1200
)

// Caller is the backend contract the loop depends on. backend.Adapter
// satisfies it.
type Caller interface {
	Name() string
	Call(ctx context.Context, msgs []types.Message, maxTokens int, isFinal bool) types.StepRecord
}

// Config holds controller configuration.
type Config struct {
	Backend Caller
	// NewBackend, when set, builds a private backend for every run and
	// Backend may be left nil.
	NewBackend func() (Caller, error)
	// Tools enables the tool-augmented variant when non-nil.
	Tools    *tools.Registry
	MaxSteps int
	Logger   *zap.Logger
	// Clock is used for thinking-time measurement. Defaults to time.Now.
	Clock func() time.Time
}

// Controller starts reasoning runs against one backend.
type Controller struct {
	backend        Caller
	newBackend     func() (Caller, error)
	tools          *tools.Registry
	maxSteps       int
	logger         *zap.Logger
	clock          func() time.Time
	inputValidator *validator.InputValidator
	systemPrompt   string
}

// New creates a controller.
func New(cfg Config) (*Controller, error) {
	if cfg.Backend == nil && cfg.NewBackend != nil {
		b, err := cfg.NewBackend()
		if err != nil {
			return nil, fmt.Errorf("create backend: %w", err)
		}
		cfg.Backend = b
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("agent requires a backend")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxSteps <= 0 || cfg.MaxSteps > DefaultMaxSteps {
		cfg.MaxSteps = DefaultMaxSteps
	}

	toolsSection := ""
	if cfg.Tools != nil {
		toolsSection = cfg.Tools.GenerateToolsPrompt()
	}

	return &Controller{
		backend:        cfg.Backend,
		newBackend:     cfg.NewBackend,
		tools:          cfg.Tools,
		maxSteps:       cfg.MaxSteps,
		logger:         cfg.Logger,
		clock:          cfg.Clock,
		inputValidator: validator.NewInputValidator(),
		systemPrompt:   SystemPrompt(toolsSection),
	}, nil
}

// ToolsEnabled reports whether runs may dispatch tools.
func (c *Controller) ToolsEnabled() bool {
	return c.tools != nil
}

// ToolNames lists the tools a run may dispatch, or nil when tools are off.
func (c *Controller) ToolNames() []string {
	if c.tools == nil {
		return nil
	}
	return c.tools.List()
}

// BackendName returns the backend name.
func (c *Controller) BackendName() string {
	return c.backend.Name()
}

// RunOption customizes a single run.
type RunOption func(*runOptions)

type runOptions struct {
	fileContent string
	runID       string
}

// WithFileContent attaches the text of a file to the prompt.
func WithFileContent(content string) RunOption {
	return func(o *runOptions) { o.fileContent = content }
}

// WithRunID overrides the generated run id.
func WithRunID(id string) RunOption {
	return func(o *runOptions) { o.runID = id }
}

// Start validates the prompt and seeds a new run. Nothing is sent to the
// backend until the first call to Next.
func (c *Controller) Start(prompt string, opts ...RunOption) (*Run, error) {
	if err := c.inputValidator.Validate(prompt); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}

	b := c.backend
	if c.newBackend != nil {
		var err error
		if b, err = c.newBackend(); err != nil {
			return nil, fmt.Errorf("create backend: %w", err)
		}
	}

	userPrompt := WithFileContext(c.inputValidator.Sanitize(prompt), o.fileContent)

	r := &Run{
		id:         o.runID,
		controller: c,
		backend:    b,
		transcript: transcript.New(
			types.Message{Role: types.RoleSystem, Content: c.systemPrompt},
			types.Message{Role: types.RoleUser, Content: userPrompt},
			types.Message{Role: types.RoleAssistant, Content: Acknowledgment},
		),
		state:     StateSeeded,
		stepCount: 1,
		timing:    NewAccumulator(c.clock),
		logger:    c.logger.With(zap.String("run_id", o.runID)),
	}
	r.logger.Info("Run seeded",
		zap.String("backend", b.Name()),
		zap.Bool("tools", c.tools != nil))
	return r, nil
}

// Generate starts a run and exposes it as a lazy sequence of emissions.
// Stopping the iteration early abandons the run.
func (c *Controller) Generate(ctx context.Context, prompt string, opts ...RunOption) (iter.Seq[types.Emission], error) {
	run, err := c.Start(prompt, opts...)
	if err != nil {
		return nil, err
	}
	return run.All(ctx), nil
}

// State is a position in the run state machine.
type State int

const (
	StateSeeded State = iota
	StateStepping
	StateToolDispatch
	StateDeciding
	StateFinalizing
	StateDone
)

func (s State) String() string {
	switch s {
	case StateSeeded:
		return "seeded"
	case StateStepping:
		return "stepping"
	case StateToolDispatch:
		return "tool_dispatch"
	case StateDeciding:
		return "deciding"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Run is one reasoning session. It owns its transcript and is driven by
// Next; it is not safe for concurrent use.
type Run struct {
	id         string
	controller *Controller
	backend    Caller
	transcript *transcript.Transcript
	state      State
	stepCount  int
	steps      []types.StepView
	timing     *Accumulator
	failure    *types.StepRecord
	logger     *zap.Logger
}

// ID returns the run id.
func (r *Run) ID() string { return r.id }

// State returns the current state.
func (r *Run) State() State { return r.state }

// Transcript returns a copy of the messages exchanged so far.
func (r *Run) Transcript() []types.Message { return r.transcript.Messages() }

// All drives the run to completion as a sequence.
func (r *Run) All(ctx context.Context) iter.Seq[types.Emission] {
	return func(yield func(types.Emission) bool) {
		for {
			e, ok := r.Next(ctx)
			if !ok || !yield(e) {
				return
			}
		}
	}
}

// Next advances the run by one step and returns the resulting emission.
// It returns false once the final emission has been produced.
func (r *Run) Next(ctx context.Context) (types.Emission, bool) {
	switch r.state {
	case StateDone:
		return types.Emission{}, false
	case StateSeeded:
		r.state = StateStepping
	}

	if r.state == StateStepping {
		return r.step(ctx), true
	}
	return r.finalize(ctx), true
}

// step performs one intermediate call, dispatches its tool and decides
// what comes next.
func (r *Run) step(ctx context.Context) types.Emission {
	c := r.controller

	var record types.StepRecord
	elapsed := r.timing.Measure(func() {
		record = r.backend.Call(ctx, r.transcript.Messages(), stepTokens, false)
	})
	record.ThinkingTime = elapsed

	r.logger.Debug("Step received",
		zap.Int("step", r.stepCount),
		zap.String("title", record.Title),
		zap.String("next_action", record.NextAction),
		zap.Duration("elapsed", record.ThinkingTime))

	dispatched := c.tools != nil && record.HasTool() && !record.IsError()
	if dispatched {
		r.state = StateToolDispatch
		record.ToolResult = c.tools.Invoke(ctx, record.Tool, tools.CallFromStep(record))
		r.logger.Info("Tool dispatched",
			zap.Int("step", r.stepCount),
			zap.String("tool", record.Tool))
	}

	r.transcript.Add(types.RoleAssistant, record.Encode())
	if dispatched {
		r.transcript.Add(types.RoleSystem, "Tool result: "+record.ToolResult)
	}

	r.steps = append(r.steps, r.view(record))

	r.state = StateDeciding
	switch {
	case record.IsError():
		r.logger.Warn("Backend failed, ending run", zap.Int("step", r.stepCount), zap.String("error", record.Content))
		r.failure = &record
		r.state = StateFinalizing
	case record.IsFinal():
		r.state = StateFinalizing
	case r.stepCount >= c.maxSteps:
		r.logger.Info("Step ceiling reached, forcing final answer", zap.Int("step", r.stepCount))
		r.state = StateFinalizing
	default:
		r.stepCount++
		r.state = StateStepping
	}

	return r.emit(nil)
}

// finalize requests the final answer, or reports the failure that ended
// stepping without another backend call.
func (r *Run) finalize(ctx context.Context) types.Emission {
	c := r.controller
	final := types.StepView{Label: types.TitleFinalAnswer}

	if r.failure != nil {
		final.Content = r.failure.Content
	} else {
		request, budget := finalRequestPlain, finalTokensPlain
		if c.tools != nil {
			request, budget = finalRequestTools, finalTokensTools
		}
		r.transcript.Add(types.RoleUser, request)

		var record types.StepRecord
		final.ThinkingTime = r.timing.Measure(func() {
			record = r.backend.Call(ctx, r.transcript.Messages(), budget, true)
		})
		final.Content = record.Content

		if record.IsError() {
			r.logger.Warn("Final answer failed", zap.String("error", record.Content))
		}
	}

	r.steps = append(r.steps, final)
	r.state = StateDone

	total := r.timing.Total()
	r.logger.Info("Run finished",
		zap.Int("steps", len(r.steps)-1),
		zap.Duration("total", total),
		zap.Bool("failed", r.failure != nil))
	return r.emit(&total)
}

func (r *Run) view(record types.StepRecord) types.StepView {
	v := types.StepView{
		Label:        fmt.Sprintf("Step %d: %s", r.stepCount, record.Title),
		Content:      record.Content,
		ThinkingTime: record.ThinkingTime,
	}
	if r.controller.tools != nil && record.HasTool() {
		input := record.ToolInput
		result := record.ToolResult
		v.Tool = record.Tool
		v.ToolInput = &input
		v.ToolResult = &result
	}
	return v
}

func (r *Run) emit(total *time.Duration) types.Emission {
	return types.Emission{
		RunID: r.id,
		Steps: slices.Clone(r.steps),
		Total: total,
	}
}
