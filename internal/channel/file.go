package channel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/msageha/botprobe/internal/lock"
	"github.com/msageha/botprobe/internal/yamlio"
)

const msgPrefix = "msg-"

// FileChannel is a Channel backed by a directory of YAML message files,
// one file per message, named msg-<10-digit-id>.yaml. Any process that
// can write the directory can act as a responder, which makes it the
// integration surface for local testing without a platform API.
//
// Message IDs are assigned under an flock held only for the duration of
// one append, so concurrent writers from other processes interleave
// safely.
type FileChannel struct {
	dir    string
	author string
	locks  *lock.MutexMap
}

// OpenFile opens (creating if needed) a file channel rooted at dir.
// Messages posted through Post are recorded under the given author.
func OpenFile(dir, author string) (*FileChannel, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create channel dir: %w", err)
	}
	return &FileChannel{
		dir:    dir,
		author: author,
		locks:  lock.NewMutexMap(),
	}, nil
}

// Dir returns the directory backing the channel.
func (c *FileChannel) Dir() string {
	return c.dir
}

func (c *FileChannel) Post(ctx context.Context, body string) (int64, error) {
	return c.PostAs(ctx, c.author, body)
}

// PostAs appends a message under an arbitrary author. The CLI uses it
// to play the responder role in manual tests.
func (c *FileChannel) PostAs(ctx context.Context, author, body string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.locks.Lock(c.dir)
	defer c.locks.Unlock(c.dir)

	fl := lock.NewFileLock(filepath.Join(c.dir, ".lock"))
	if err := c.acquire(fl); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer fl.Unlock()

	maxID, err := c.maxID()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	id := maxID + 1
	msg := RawMessage{
		ID:        id,
		Author:    author,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if err := yamlio.AtomicWrite(c.path(id), msg); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return id, nil
}

// acquire retries the non-blocking flock a few times so two writers
// racing on the same directory don't spuriously fail a post.
func (c *FileChannel) acquire(fl *lock.FileLock) error {
	var err error
	for attempt := 0; attempt < 5; attempt++ {
		if err = fl.TryLock(); err == nil {
			return nil
		}
		time.Sleep(20 * time.Millisecond)
	}
	return err
}

func (c *FileChannel) ListSince(ctx context.Context, watermark int64) ([]RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read channel dir: %v", ErrUnavailable, err)
	}

	var out []RawMessage
	for _, entry := range entries {
		id, ok := parseMsgName(entry.Name())
		if !ok || id <= watermark {
			continue
		}
		var msg RawMessage
		if err := yamlio.ReadInto(filepath.Join(c.dir, entry.Name()), &msg); err != nil {
			// A writer may still be renaming, or the file is corrupt.
			// Either way it is invisible until a later poll.
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (c *FileChannel) Delete(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	err := os.Remove(c.path(id))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("%w: delete message %d: %v", ErrUnavailable, id, err)
}

func (c *FileChannel) path(id int64) string {
	return filepath.Join(c.dir, fmt.Sprintf("%s%010d.yaml", msgPrefix, id))
}

func (c *FileChannel) maxID() (int64, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, err
	}
	var max int64
	for _, entry := range entries {
		if id, ok := parseMsgName(entry.Name()); ok && id > max {
			max = id
		}
	}
	return max, nil
}

func parseMsgName(name string) (int64, bool) {
	if !strings.HasPrefix(name, msgPrefix) || !strings.HasSuffix(name, ".yaml") {
		return 0, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(name, msgPrefix), ".yaml")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
