package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherWakesOnNewMessage(t *testing.T) {
	ctx := context.Background()
	c, err := OpenFile(t.TempDir(), "tester")
	require.NoError(t, err)

	w, err := c.Watch()
	require.NoError(t, err)
	defer w.Close()

	_, err = c.PostAs(ctx, "bot", "Task complete")
	require.NoError(t, err)

	select {
	case <-w.Wake():
	case <-time.After(2 * time.Second):
		t.Fatal("no wake signal after a message was posted")
	}
}

func TestWatcherCloseClosesWake(t *testing.T) {
	c, err := OpenFile(t.TempDir(), "tester")
	require.NoError(t, err)

	w, err := c.Watch()
	require.NoError(t, err)
	require.NoError(t, w.Close())

	select {
	case _, ok := <-w.Wake():
		if ok {
			// A buffered wake from startup noise may arrive first; the
			// channel must still close afterwards.
			select {
			case _, ok := <-w.Wake():
				require.False(t, ok)
			case <-time.After(2 * time.Second):
				t.Fatal("wake channel not closed after Close")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("wake channel not closed after Close")
	}
}
