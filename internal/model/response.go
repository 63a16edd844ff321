package model

import "time"

// Response is one observed reply from the responder under watch.
// The poller creates it, validation finalizes Passed and FailureDetail
// exactly once, and the runner reads it after that.
type Response struct {
	ID            int64
	Body          string
	CreatedAt     time.Time
	Author        string
	Passed        bool
	FailureDetail string
	Elapsed       time.Duration
}

// AttemptOutcome classifies how a single post→wait→validate cycle ended.
type AttemptOutcome string

const (
	OutcomePostFailed       AttemptOutcome = "post_failed"
	OutcomeTimedOut         AttemptOutcome = "timed_out"
	OutcomeValidationFailed AttemptOutcome = "validation_failed"
	OutcomePassed           AttemptOutcome = "passed"
)

// Retryable reports whether the outcome leaves the retry loop running.
func (o AttemptOutcome) Retryable() bool {
	return o != OutcomePassed
}

// AttemptRecord captures one cycle of the retry loop.
type AttemptRecord struct {
	Attempt   int
	TriggerID int64 // 0 when the post itself failed
	Response  *Response
	Outcome   AttemptOutcome
}
