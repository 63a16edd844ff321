// Package botprobe verifies automated responders: it posts a trigger
// message into a channel, waits for the responder's reply under a
// bounded timeout, validates the reply against a composable set of
// named predicates, and retries the whole cycle with cleanup on
// failure.
//
// The channel is any implementation of Channel; botprobe ships an
// in-memory one for tests and a directory-of-YAML-files one for local
// integration runs.
package botprobe

import (
	"context"
	"log"

	"github.com/msageha/botprobe/internal/channel"
	"github.com/msageha/botprobe/internal/model"
	"github.com/msageha/botprobe/internal/runner"
	"github.com/msageha/botprobe/internal/validate"
)

// Re-exported core types. Aliases keep the internal packages as the
// single definition while giving callers importable names.
type (
	Config        = model.ProbeConfig
	Response      = model.Response
	AttemptRecord = model.AttemptRecord
	Channel       = channel.Channel
	RawMessage    = channel.RawMessage
	Validator     = validate.Validator
)

// ErrChannelUnavailable is the transient channel failure sentinel.
var ErrChannelUnavailable = channel.ErrUnavailable

// DefaultConfig returns the standard probe settings: 120s wait, 5s
// polls, 3 retries, 60s between them, cleanup on failure.
func DefaultConfig() Config {
	return model.DefaultProbeConfig()
}

// LoadConfig reads a YAML probe config over the defaults.
func LoadConfig(path string) (Config, error) {
	return model.LoadProbeConfig(path)
}

// Built-in validators.

func Contains(substr string) Validator { return validate.Contains(substr) }

func NoErrorKeywords() Validator { return validate.NoErrorKeywords() }

func HasSuccessIndicators() Validator { return validate.HasSuccessIndicators() }

func ValidatorFunc(name string, fn func(body string) bool) Validator {
	return validate.Func(name, fn)
}

// Probe runs verifications for one responder/channel pair.
type Probe struct {
	r *runner.Runner
}

// Option adjusts how a Probe is constructed.
type Option func(*options)

type options struct {
	logger   *log.Logger
	logLevel runner.LogLevel
	wake     <-chan struct{}
}

// WithLogger routes probe logging to the given logger instead of
// stderr.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithLogLevel sets the minimum level ("debug", "info", "warn",
// "error"); unknown strings mean info.
func WithLogLevel(level string) Option {
	return func(o *options) { o.logLevel = runner.ParseLogLevel(level) }
}

// WithWake installs a wake signal source that shortens poll sleeps,
// e.g. a file channel watcher's Wake().
func WithWake(wake <-chan struct{}) Option {
	return func(o *options) { o.wake = wake }
}

// New validates cfg and builds a probe. Configuration faults are the
// only errors; runtime failures surface through the Response.
func New(cfg Config, ch Channel, opts ...Option) (*Probe, error) {
	o := options{logLevel: runner.LogLevelInfo}
	for _, opt := range opts {
		opt(&o)
	}
	r, err := runner.New(cfg, ch, o.logger, o.logLevel)
	if err != nil {
		return nil, err
	}
	if o.wake != nil {
		r.SetWake(o.wake)
	}
	return &Probe{r: r}, nil
}

// NewFileProbe opens (creating if needed) a file channel at dir and
// builds a probe watching responder with default settings.
func NewFileProbe(dir, responder string, opts ...Option) (*Probe, error) {
	cfg := DefaultConfig()
	cfg.ResponderID = responder
	cfg.ChannelID = dir

	ch, err := channel.OpenFile(dir, "botprobe")
	if err != nil {
		return nil, err
	}
	return New(cfg, ch, opts...)
}

// RunWithRetry drives up to MaxRetries post→wait→validate cycles and
// returns the first passing Response, or a failing one after
// exhaustion. The error is non-nil only for context cancellation.
func (p *Probe) RunWithRetry(ctx context.Context, triggerBody string, validators ...Validator) (*Response, error) {
	return p.r.RunWithRetry(ctx, triggerBody, validators)
}

// RunSimple posts the trigger and reports only pass/fail: the reply
// must carry no error keywords, plus at least one success indicator
// when expectSuccess.
func (p *Probe) RunSimple(ctx context.Context, triggerBody string, expectSuccess bool) (bool, error) {
	return p.r.RunSimple(ctx, triggerBody, expectSuccess)
}

// Attempts returns the per-cycle records of the most recent run.
func (p *Probe) Attempts() []AttemptRecord {
	return p.r.Attempts()
}
