package channel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileChannelPostAndList(t *testing.T) {
	ctx := context.Background()
	c, err := OpenFile(t.TempDir(), "tester")
	require.NoError(t, err)

	id1, err := c.Post(ctx, "trigger")
	require.NoError(t, err)
	id2, err := c.PostAs(ctx, "bot", "Task complete")
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	msgs, err := c.ListSince(ctx, id1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, id2, msgs[0].ID)
	assert.Equal(t, "bot", msgs[0].Author)
	assert.Equal(t, "Task complete", msgs[0].Body)
	assert.False(t, msgs[0].CreatedAt.IsZero())
}

func TestFileChannelIDsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	c1, err := OpenFile(dir, "tester")
	require.NoError(t, err)
	id1, err := c1.Post(ctx, "first")
	require.NoError(t, err)

	// A second handle on the same directory continues the sequence.
	c2, err := OpenFile(dir, "bot")
	require.NoError(t, err)
	id2, err := c2.Post(ctx, "second")
	require.NoError(t, err)

	assert.Equal(t, id1+1, id2)
}

func TestFileChannelDelete(t *testing.T) {
	ctx := context.Background()
	c, err := OpenFile(t.TempDir(), "tester")
	require.NoError(t, err)

	id, err := c.Post(ctx, "trigger")
	require.NoError(t, err)

	removed, err := c.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = c.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, removed, "second delete of the same ID must be (false, nil)")

	msgs, err := c.ListSince(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestFileChannelSkipsForeignFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, err := OpenFile(dir, "tester")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("not a message"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "msg-0000000007.yaml"), []byte("id: [broken"), 0644))

	id, err := c.Post(ctx, "trigger")
	require.NoError(t, err)
	// The corrupt file still reserves its ID slot.
	assert.Equal(t, int64(8), id)

	msgs, err := c.ListSince(ctx, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, id, msgs[0].ID)
}

func TestFileChannelListOnMissingDir(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "channel")
	c, err := OpenFile(dir, "tester")
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(dir))

	_, err = c.ListSince(ctx, 0)
	assert.ErrorIs(t, err, ErrUnavailable)
}
