package runner

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/msageha/botprobe/internal/channel"
	"github.com/msageha/botprobe/internal/model"
)

// Poller waits for the responder's next message after a watermark.
// Only messages authored by the configured responder qualify; other
// tenants writing to the same channel are ignored.
type Poller struct {
	ch           channel.Channel
	responderID  string
	maxWait      time.Duration
	pollInterval time.Duration
	wake         <-chan struct{}
	logger       *log.Logger
	logLevel     LogLevel
}

// NewPoller creates a poller for one responder/channel pair.
func NewPoller(ch channel.Channel, cfg model.ProbeConfig, logger *log.Logger, level LogLevel) *Poller {
	return &Poller{
		ch:           ch,
		responderID:  cfg.ResponderID,
		maxWait:      cfg.MaxWait(),
		pollInterval: cfg.PollInterval(),
		logger:       logger,
		logLevel:     level,
	}
}

// SetWake installs an optional signal that shortens the sleep between
// ticks. Correctness never depends on it: the periodic poll is the
// fallback when signals are dropped.
func (p *Poller) SetWake(wake <-chan struct{}) {
	p.wake = wake
}

// Wait blocks until a qualifying message with ID greater than watermark
// appears, the configured timeout elapses, or ctx is cancelled.
// A (nil, nil) return means timeout; it is an outcome, not an error.
// Transient channel failures are logged and treated as "not yet".
func (p *Poller) Wait(ctx context.Context, watermark int64) (*model.Response, error) {
	start := time.Now()
	deadline := start.Add(p.maxWait)

	p.log(LogLevelInfo, "waiting up to %s for %s after id=%d", p.maxWait, p.responderID, watermark)

	for time.Now().Before(deadline) {
		msgs, err := p.ch.ListSince(ctx, watermark)
		switch {
		case err == nil:
			if resp := p.earliestMatch(msgs, watermark, start); resp != nil {
				p.log(LogLevelInfo, "responder replied after %.1fs id=%d", resp.Elapsed.Seconds(), resp.ID)
				return resp, nil
			}
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, err
		case errors.Is(err, channel.ErrUnavailable):
			p.log(LogLevelWarn, "channel unavailable while polling: %v", err)
		default:
			p.log(LogLevelWarn, "list messages: %v", err)
		}

		if err := p.sleep(ctx, deadline); err != nil {
			return nil, err
		}
	}

	p.log(LogLevelWarn, "timeout after %s waiting for %s", p.maxWait, p.responderID)
	return nil, nil
}

// sleep pauses for one poll interval, capped to the remaining wait,
// ending early on a wake signal or context cancellation.
func (p *Poller) sleep(ctx context.Context, deadline time.Time) error {
	d := p.pollInterval
	if remain := time.Until(deadline); remain < d {
		d = remain
	}
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case _, ok := <-p.wake:
		if !ok {
			// Watcher stopped; fall back to plain ticking.
			p.wake = nil
		}
		return nil
	case <-timer.C:
		return nil
	}
}

// earliestMatch picks the lowest qualifying ID as the canonical
// response. First match wins; later replies belong to later waits.
func (p *Poller) earliestMatch(msgs []channel.RawMessage, watermark int64, start time.Time) *model.Response {
	var best *channel.RawMessage
	for i := range msgs {
		m := &msgs[i]
		if m.ID <= watermark || m.Author != p.responderID {
			continue
		}
		if best == nil || m.ID < best.ID {
			best = m
		}
	}
	if best == nil {
		return nil
	}
	return &model.Response{
		ID:        best.ID,
		Body:      best.Body,
		CreatedAt: best.CreatedAt,
		Author:    best.Author,
		Elapsed:   time.Since(start),
	}
}

func (p *Poller) log(level LogLevel, format string, args ...interface{}) {
	if p.logLevel <= level {
		p.logger.Printf("["+level.String()+"] "+format, args...)
	}
}
