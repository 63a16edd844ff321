// Package channel defines the trigger channel contract the verification
// core consumes, plus the two implementations shipped with botprobe:
// an in-memory channel for tests and a directory-backed channel of YAML
// message files.
package channel

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable signals a transient failure talking to the channel.
// The poller treats it as "not yet"; the runner treats it as an
// attempt-level failure when posting.
var ErrUnavailable = errors.New("channel unavailable")

// RawMessage is one message as stored in a channel, before the poller
// interprets it.
type RawMessage struct {
	ID        int64     `yaml:"id"`
	Author    string    `yaml:"author"`
	Body      string    `yaml:"body"`
	CreatedAt time.Time `yaml:"created_at"`
}

// Channel is the capability set the core needs from a message board.
// IDs are channel-assigned and monotonically increasing.
type Channel interface {
	// Post appends a new message and returns its ID.
	Post(ctx context.Context, body string) (int64, error)

	// ListSince returns messages with ID strictly greater than
	// watermark. Ordering is not guaranteed to callers.
	ListSince(ctx context.Context, watermark int64) ([]RawMessage, error)

	// Delete removes a message by ID. A missing message is (false, nil),
	// never an error.
	Delete(ctx context.Context, id int64) (bool, error)
}
