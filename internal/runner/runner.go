// Package runner drives verification runs against an automated
// responder: post a trigger message, wait for the reply, validate it,
// and retry with cleanup until it passes or attempts run out.
package runner

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/msageha/botprobe/internal/channel"
	"github.com/msageha/botprobe/internal/model"
	"github.com/msageha/botprobe/internal/validate"
)

// Runner executes post→wait→validate attempt cycles. Attempts are
// strictly sequential; a new trigger is never posted while a previous
// wait is outstanding.
type Runner struct {
	ch         channel.Channel
	cfg        model.ProbeConfig
	poller     *Poller
	retryDelay time.Duration
	logger     *log.Logger
	logLevel   LogLevel

	attempts []model.AttemptRecord
}

// New validates cfg and builds a runner. Configuration faults are the
// only errors raised here; everything at run time is absorbed into the
// response model.
func New(cfg model.ProbeConfig, ch channel.Channel, logger *log.Logger, level LogLevel) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid probe config: %w", err)
	}
	if logger == nil {
		logger = log.New(os.Stderr, "botprobe ", log.LstdFlags)
	}
	return &Runner{
		ch:         ch,
		cfg:        cfg,
		poller:     NewPoller(ch, cfg, logger, level),
		retryDelay: cfg.RetryDelay(),
		logger:     logger,
		logLevel:   level,
	}, nil
}

// SetWake forwards a wake signal source to the poller.
func (r *Runner) SetWake(wake <-chan struct{}) {
	r.poller.SetWake(wake)
}

// RunWithRetry drives up to MaxRetries attempts and returns the first
// passing response, or a failing response after exhaustion. The error
// is non-nil only for context cancellation.
func (r *Runner) RunWithRetry(ctx context.Context, triggerBody string, validators []validate.Validator) (*model.Response, error) {
	r.attempts = r.attempts[:0]

	var last *model.Response
	lastPostFailed := false

	for attempt := 1; attempt <= r.cfg.MaxRetries; attempt++ {
		r.log(LogLevelInfo, "attempt %d/%d", attempt, r.cfg.MaxRetries)
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		triggerID, err := r.ch.Post(ctx, triggerBody)
		if err != nil {
			r.log(LogLevelError, "post trigger: %v", err)
			r.record(attempt, 0, nil, model.OutcomePostFailed)
			lastPostFailed = true
			if err := r.delayBeforeNext(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}
		lastPostFailed = false
		r.log(LogLevelInfo, "posted trigger id=%d", triggerID)

		resp, err := r.poller.Wait(ctx, triggerID)
		if err != nil {
			return nil, err
		}
		if resp == nil {
			r.log(LogLevelWarn, "no response from %s", r.cfg.ResponderID)
			r.record(attempt, triggerID, nil, model.OutcomeTimedOut)
			if r.cfg.AutoDeleteOnFailure {
				r.cleanup(ctx, triggerID)
			}
			if err := r.delayBeforeNext(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}

		validate.Apply(resp, validators...)
		if resp.Passed {
			r.log(LogLevelInfo, "attempt %d passed", attempt)
			r.record(attempt, triggerID, resp, model.OutcomePassed)
			return resp, nil
		}

		r.log(LogLevelWarn, "attempt %d failed: %s", attempt, resp.FailureDetail)
		r.record(attempt, triggerID, resp, model.OutcomeValidationFailed)
		last = resp
		if r.cfg.AutoDeleteOnFailure {
			r.cleanup(ctx, triggerID, resp.ID)
		}
		if err := r.delayBeforeNext(ctx, attempt); err != nil {
			return nil, err
		}
	}

	r.log(LogLevelError, "probe failed after %d attempts", r.cfg.MaxRetries)
	if last != nil {
		return last, nil
	}

	detail := "all retry attempts exhausted"
	if lastPostFailed {
		detail = "trigger post failed"
	}
	return &model.Response{
		CreatedAt:     time.Now().UTC(),
		Passed:        false,
		FailureDetail: detail,
	}, nil
}

// RunSimple composes the standard validators and returns only the pass
// flag: no error keywords, plus success indicators when expectSuccess.
func (r *Runner) RunSimple(ctx context.Context, triggerBody string, expectSuccess bool) (bool, error) {
	validators := []validate.Validator{validate.NoErrorKeywords()}
	if expectSuccess {
		validators = append(validators, validate.HasSuccessIndicators())
	}
	resp, err := r.RunWithRetry(ctx, triggerBody, validators)
	if err != nil {
		return false, err
	}
	return resp.Passed, nil
}

// Attempts returns the records for the most recent run, one per cycle.
func (r *Runner) Attempts() []model.AttemptRecord {
	out := make([]model.AttemptRecord, len(r.attempts))
	copy(out, r.attempts)
	return out
}

func (r *Runner) record(attempt int, triggerID int64, resp *model.Response, outcome model.AttemptOutcome) {
	r.attempts = append(r.attempts, model.AttemptRecord{
		Attempt:   attempt,
		TriggerID: triggerID,
		Response:  resp,
		Outcome:   outcome,
	})
}

// cleanup deletes failed-attempt artifacts best-effort. Delete failures
// are logged and never fail the run.
func (r *Runner) cleanup(ctx context.Context, ids ...int64) {
	for _, id := range ids {
		removed, err := r.ch.Delete(ctx, id)
		if err != nil {
			r.log(LogLevelWarn, "delete message %d: %v", id, err)
			continue
		}
		if removed {
			r.log(LogLevelDebug, "deleted message %d", id)
		}
	}
}

// delayBeforeNext sleeps between attempts when more remain.
func (r *Runner) delayBeforeNext(ctx context.Context, attempt int) error {
	if attempt >= r.cfg.MaxRetries || r.retryDelay <= 0 {
		return ctx.Err()
	}
	r.log(LogLevelInfo, "retrying in %s", r.retryDelay)

	timer := time.NewTimer(r.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *Runner) log(level LogLevel, format string, args ...interface{}) {
	if r.logLevel <= level {
		r.logger.Printf("["+level.String()+"] "+format, args...)
	}
}
