package extraction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"desmoines-weekly-events/internal/models"
)

// State is a step of a generation run
type State int

const (
	StateIdle State = iota
	StatePrompting
	StateAwaitingResponse
	StateParsing
	StateValidating
	StateAccepted
	StateRetrying
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePrompting:
		return "prompting"
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateParsing:
		return "parsing"
	case StateValidating:
		return "validating"
	case StateAccepted:
		return "accepted"
	case StateRetrying:
		return "retrying"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no transition leaves the state
func (s State) Terminal() bool {
	return s == StateAccepted || s == StateFailed
}

var (
	// ErrGeneration wraps failures of the text generator itself
	ErrGeneration = errors.New("text generation failed")

	// ErrInsufficientYield means every attempt produced too few valid events
	ErrInsufficientYield = errors.New("insufficient valid events")
)

// Generator produces free text for a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Outcome is the result of an accepted run
type Outcome struct {
	Result      models.ExtractionResult
	Rejected    []Rejection
	Attempts    int
	Prompt      string
	RawResponse string
	Elapsed     time.Duration
}

// RunError describes a run that ended in StateFailed. Result holds the
// validated events of the last attempt, if it got that far.
type RunError struct {
	State       State
	Attempts    int
	ValidEvents int
	Result      models.ExtractionResult
	Prompt      string
	RawResponse string
	Rejected    []Rejection
	Err         error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("extraction failed after %d attempt(s) with %d valid event(s): %v", e.Attempts, e.ValidEvents, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// Defaults for a Controller
const (
	DefaultMaxRetries     = 2
	DefaultMinValidEvents = 3
	DefaultAttemptTimeout = 60 * time.Second
)

// Controller drives generate, parse, validate and retry until a response
// yields enough valid events or the retry budget is spent.
type Controller struct {
	generator      Generator
	parser         *Parser
	validator      *Validator
	prompts        PromptBuilder
	minValidEvents int
	attemptTimeout time.Duration
	observers      []Observer
}

// ControllerOption configures a Controller
type ControllerOption func(*Controller)

// WithConfig sets the parse and validation configuration
func WithConfig(cfg Config) ControllerOption {
	return func(c *Controller) {
		c.parser = NewParser(cfg)
		c.validator = NewValidator(cfg)
	}
}

// WithPromptBuilder sets the prompt renderer
func WithPromptBuilder(b PromptBuilder) ControllerOption {
	return func(c *Controller) { c.prompts = b }
}

// WithMinValidEvents sets the acceptance threshold
func WithMinValidEvents(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.minValidEvents = n
		}
	}
}

// WithAttemptTimeout bounds each generator call. Zero disables the bound.
func WithAttemptTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) { c.attemptTimeout = d }
}

// WithObserver adds a transition observer
func WithObserver(o Observer) ControllerOption {
	return func(c *Controller) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// NewController creates a controller around a generator
func NewController(gen Generator, opts ...ControllerOption) *Controller {
	cfg := DefaultConfig()
	c := &Controller{
		generator:      gen,
		parser:         NewParser(cfg),
		validator:      NewValidator(cfg),
		prompts:        DefaultPromptBuilder(),
		minValidEvents: DefaultMinValidEvents,
		attemptTimeout: DefaultAttemptTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// run holds the mutable state of one RunWithRetry call
type run struct {
	state       State
	attempt     int
	prompt      string
	raw         string
	parsed      Parsed
	result      models.ExtractionResult
	rejected    []Rejection
	validEvents int
	err         error
	started     time.Time
	sent        time.Time // current attempt's prompt sent
}

// RunWithRetry performs up to maxRetries+1 generation attempts for week.
// A response is accepted once it yields at least the minimum number of valid
// events. Generator errors end the run immediately without retrying.
func (c *Controller) RunWithRetry(ctx context.Context, week models.WeekRange, maxRetries int) (*Outcome, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}
	r := &run{state: StateIdle, started: time.Now()}

	for {
		switch r.state {
		case StateIdle:
			c.move(r, StatePrompting)

		case StatePrompting:
			if err := ctx.Err(); err != nil {
				r.err = err
				c.move(r, StateFailed)
				continue
			}
			r.prompt = c.prompts.Build(week, r.attempt)
			r.sent = time.Now()
			c.move(r, StateAwaitingResponse)

		case StateAwaitingResponse:
			raw, err := c.generate(ctx, r.prompt)
			if err != nil {
				r.err = fmt.Errorf("%w: %w", ErrGeneration, err)
				c.move(r, StateFailed)
				continue
			}
			r.raw = raw
			c.move(r, StateParsing)

		case StateParsing:
			r.parsed = c.parser.Parse(r.raw)
			c.move(r, StateValidating)

		case StateValidating:
			r.result, r.rejected = c.validator.Validate(r.parsed.Result)
			r.validEvents = r.result.TotalEvents()
			switch {
			case r.validEvents >= c.minValidEvents:
				c.move(r, StateAccepted)
			case r.attempt < maxRetries:
				c.move(r, StateRetrying)
			default:
				r.err = fmt.Errorf("%w: found %d, need %d", ErrInsufficientYield, r.validEvents, c.minValidEvents)
				c.move(r, StateFailed)
			}

		case StateRetrying:
			r.attempt++
			c.move(r, StatePrompting)

		case StateAccepted:
			return &Outcome{
				Result:      r.result,
				Rejected:    r.rejected,
				Attempts:    r.attempt + 1,
				Prompt:      r.prompt,
				RawResponse: r.raw,
				Elapsed:     time.Since(r.started),
			}, nil

		case StateFailed:
			return nil, &RunError{
				State:       r.state,
				Attempts:    r.attempt + 1,
				ValidEvents: r.validEvents,
				Result:      r.result,
				Prompt:      r.prompt,
				RawResponse: r.raw,
				Rejected:    r.rejected,
				Err:         r.err,
			}
		}
	}
}

func (c *Controller) generate(ctx context.Context, prompt string) (string, error) {
	if c.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.attemptTimeout)
		defer cancel()
	}
	return c.generator.Generate(ctx, prompt)
}

func (c *Controller) move(r *run, to State) {
	now := time.Now()
	t := Transition{
		From:        r.state,
		To:          to,
		Attempt:     r.attempt + 1,
		Prompt:      r.prompt,
		RawResponse: r.raw,
		ValidEvents: r.validEvents,
		Rejected:    r.rejected,
		Err:         r.err,
		Elapsed:     now.Sub(r.started),
	}
	if !r.sent.IsZero() {
		t.AttemptElapsed = now.Sub(r.sent)
	}
	if to == StateValidating {
		t.UsedFallback = r.parsed.UsedFallback
		t.Unclassified = r.parsed.Unclassified
	}
	r.state = to
	for _, o := range c.observers {
		o.OnTransition(t)
	}
}
