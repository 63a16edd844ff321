package runner

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msageha/botprobe/internal/channel"
	"github.com/msageha/botprobe/internal/model"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func testConfig() model.ProbeConfig {
	cfg := model.DefaultProbeConfig()
	cfg.ResponderID = "bot"
	cfg.ChannelID = "test-channel"
	return cfg
}

func newTestPoller(ch channel.Channel) *Poller {
	p := NewPoller(ch, testConfig(), discardLogger(), LogLevelError)
	p.maxWait = 300 * time.Millisecond
	p.pollInterval = 10 * time.Millisecond
	return p
}

func TestWaitReturnsEarliestQualifyingMessage(t *testing.T) {
	ctx := context.Background()
	m := channel.NewMemory("tester")
	watermark := m.Append("tester", "trigger")
	m.Append("someone-else", "me first")
	first := m.Append("bot", "first reply")
	m.Append("bot", "second reply")

	resp, err := newTestPoller(m).Wait(ctx, watermark)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, first, resp.ID)
	assert.Equal(t, "first reply", resp.Body)
	assert.Equal(t, "bot", resp.Author)
	assert.Greater(t, resp.Elapsed, time.Duration(0))
}

func TestWaitIgnoresOtherAuthors(t *testing.T) {
	ctx := context.Background()
	m := channel.NewMemory("tester")
	watermark := m.Append("tester", "trigger")
	m.Append("impostor", "Task complete")
	m.Append("another", "also done")

	resp, err := newTestPoller(m).Wait(ctx, watermark)
	require.NoError(t, err)
	assert.Nil(t, resp, "messages from other authors must never qualify")
}

func TestWaitHonorsWatermark(t *testing.T) {
	ctx := context.Background()
	m := channel.NewMemory("tester")
	m.Append("bot", "old reply")
	watermark := m.Append("tester", "trigger")

	resp, err := newTestPoller(m).Wait(ctx, watermark)
	require.NoError(t, err)
	assert.Nil(t, resp, "messages at or before the watermark must not qualify")
}

func TestWaitTimesOutOnEmptyChannel(t *testing.T) {
	ctx := context.Background()
	m := channel.NewMemory("tester")

	start := time.Now()
	resp, err := newTestPoller(m).Wait(ctx, 0)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Less(t, elapsed, time.Second, "timeout must fire near maxWait, not spin past it")
}

func TestWaitToleratesTransientUnavailability(t *testing.T) {
	ctx := context.Background()
	m := channel.NewMemory("tester")
	watermark := m.Append("tester", "trigger")
	m.Append("bot", "Task complete")
	m.FailLists(2, channel.ErrUnavailable)

	resp, err := newTestPoller(m).Wait(ctx, watermark)
	require.NoError(t, err)
	require.NotNil(t, resp, "transient list failures must not abort the wait")
	assert.Equal(t, "Task complete", resp.Body)
}

func TestWaitContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := channel.NewMemory("tester")

	p := newTestPoller(m)
	p.maxWait = 5 * time.Second

	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, err := p.Wait(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaitWakeShortensSleep(t *testing.T) {
	ctx := context.Background()
	m := channel.NewMemory("tester")
	watermark := m.Append("tester", "trigger")

	wake := make(chan struct{}, 1)
	p := newTestPoller(m)
	p.maxWait = 10 * time.Second
	p.pollInterval = 2 * time.Second
	p.SetWake(wake)

	go func() {
		time.Sleep(50 * time.Millisecond)
		m.Append("bot", "done early")
		wake <- struct{}{}
	}()

	start := time.Now()
	resp, err := p.Wait(ctx, watermark)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Less(t, time.Since(start), time.Second, "wake signal should cut the 2s poll sleep short")
}
