package channel

import (
	"context"
	"sync"
	"time"
)

// AutoReply scripts one reply from the fake responder. The reply is
// appended on the AfterTicks-th ListSince call following the Post that
// consumed it; AfterTicks 0 means the very next list sees it.
type AutoReply struct {
	Author     string
	Body       string
	AfterTicks int
}

type pendingReply struct {
	reply     AutoReply
	remaining int
}

// Memory is a deterministic in-memory Channel. Tests script responder
// behavior with auto-replies and inject Post/List failures; the runner
// and poller cannot tell it from a live board.
type Memory struct {
	mu     sync.Mutex
	author string
	nextID int64

	messages []RawMessage
	deleted  []int64

	replies []AutoReply
	cursor  int
	pending *pendingReply

	postErr      error
	listFailures int
	listErr      error

	posts int
}

// NewMemory creates an empty channel. Posted messages are recorded
// under the given author identity.
func NewMemory(author string) *Memory {
	return &Memory{author: author}
}

// Script installs the responder's replies, consumed one per Post.
func (m *Memory) Script(replies ...AutoReply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = replies
	m.cursor = 0
}

// FailPosts makes every subsequent Post return err (nil to clear).
func (m *Memory) FailPosts(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.postErr = err
}

// FailLists makes the next n ListSince calls return err.
func (m *Memory) FailLists(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listFailures = n
	m.listErr = err
}

func (m *Memory) Post(ctx context.Context, body string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.posts++
	if m.postErr != nil {
		return 0, m.postErr
	}

	id := m.append(m.author, body)

	if m.cursor < len(m.replies) {
		m.pending = &pendingReply{
			reply:     m.replies[m.cursor],
			remaining: m.replies[m.cursor].AfterTicks,
		}
		m.cursor++
	}
	return id, nil
}

func (m *Memory) ListSince(ctx context.Context, watermark int64) ([]RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listFailures > 0 {
		m.listFailures--
		return nil, m.listErr
	}

	if m.pending != nil {
		if m.pending.remaining <= 0 {
			m.append(m.pending.reply.Author, m.pending.reply.Body)
			m.pending = nil
		} else {
			m.pending.remaining--
		}
	}

	var out []RawMessage
	for _, msg := range m.messages {
		if msg.ID > watermark {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, msg := range m.messages {
		if msg.ID == id {
			m.messages = append(m.messages[:i], m.messages[i+1:]...)
			m.deleted = append(m.deleted, id)
			return true, nil
		}
	}
	return false, nil
}

// Append adds a message under an arbitrary author, bypassing the
// auto-reply script. Used to simulate other tenants on the board.
func (m *Memory) Append(author, body string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.append(author, body)
}

func (m *Memory) append(author, body string) int64 {
	m.nextID++
	m.messages = append(m.messages, RawMessage{
		ID:        m.nextID,
		Author:    author,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	})
	return m.nextID
}

// Posts returns how many times Post was called, failures included.
func (m *Memory) Posts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.posts
}

// Deleted returns the IDs removed so far, in deletion order.
func (m *Memory) Deleted() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, len(m.deleted))
	copy(out, m.deleted)
	return out
}

// Messages returns a snapshot of the surviving messages.
func (m *Memory) Messages() []RawMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RawMessage, len(m.messages))
	copy(out, m.messages)
	return out
}
