// Package suite runs independent verification probes concurrently.
// Runs share no mutable state, so concurrency needs no coordination
// beyond a parallelism cap; identical concurrent probes are collapsed
// into one underlying run.
package suite

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/msageha/botprobe/internal/channel"
	"github.com/msageha/botprobe/internal/model"
	"github.com/msageha/botprobe/internal/runner"
	"github.com/msageha/botprobe/internal/validate"
)

// ChannelFactory opens the trigger channel for one probe's config.
// Each probe gets its own channel scope.
type ChannelFactory func(cfg model.ProbeConfig) (channel.Channel, error)

// Probe is one named verification to run.
type Probe struct {
	Name        string
	Config      model.ProbeConfig
	TriggerBody string
	Validators  []validate.Validator
}

// Result pairs a probe with its final response. Err is set only for
// configuration or channel-opening faults; run-time failures live in
// Response.Passed and Response.FailureDetail.
type Result struct {
	Name     string
	Response *model.Response
	Err      error
}

const defaultParallelism = 4

// Suite executes probes against channels produced by a factory.
type Suite struct {
	factory     ChannelFactory
	logger      *log.Logger
	logLevel    runner.LogLevel
	parallelism int
	sf          singleflight.Group
}

func New(factory ChannelFactory, logger *log.Logger, level runner.LogLevel) *Suite {
	return &Suite{
		factory:     factory,
		logger:      logger,
		logLevel:    level,
		parallelism: defaultParallelism,
	}
}

// SetParallelism caps concurrent probe runs. Values below 1 are ignored.
func (s *Suite) SetParallelism(n int) {
	if n >= 1 {
		s.parallelism = n
	}
}

// Run executes all probes and returns one result per probe, in input
// order. Probe failures are outcomes, not errors; Run itself only
// stops early if ctx is cancelled.
func (s *Suite) Run(ctx context.Context, probes []Probe) []Result {
	results := make([]Result, len(probes))

	g := &errgroup.Group{}
	g.SetLimit(s.parallelism)

	for i, p := range probes {
		i, p := i, p
		g.Go(func() error {
			resp, err := s.runOne(ctx, p)
			results[i] = Result{Name: p.Name, Response: resp, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Passed reports whether every result has a passing response.
func Passed(results []Result) bool {
	for _, r := range results {
		if r.Err != nil || r.Response == nil || !r.Response.Passed {
			return false
		}
	}
	return len(results) > 0
}

// runOne executes a probe, collapsing concurrent duplicates (same
// channel, responder, and trigger body) into a single run whose
// response is shared.
func (s *Suite) runOne(ctx context.Context, p Probe) (*model.Response, error) {
	key := fmt.Sprintf("%s|%s|%s", p.Config.ChannelID, p.Config.ResponderID, p.TriggerBody)
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		ch, err := s.factory(p.Config)
		if err != nil {
			return nil, fmt.Errorf("open channel %s: %w", p.Config.ChannelID, err)
		}
		r, err := runner.New(p.Config, ch, s.logger, s.logLevel)
		if err != nil {
			return nil, err
		}
		return r.RunWithRetry(ctx, p.TriggerBody, p.Validators)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Response), nil
}
