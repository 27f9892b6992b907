package ws

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeConn struct {
	mu       sync.Mutex
	messages []string
	closed   bool
	failing  bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errors.New("broken pipe")
	}
	c.messages = append(c.messages, string(data))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) snapshot() ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.messages...), c.closed
}

func TestHub_DeliversPerUserAndBroadcast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)

	userA, userB := uuid.New(), uuid.New()
	a1, a2, b1, broken := &fakeConn{}, &fakeConn{}, &fakeConn{}, &fakeConn{failing: true}
	hub.Register(&Client{UserID: userA, Conn: a1})
	hub.Register(&Client{UserID: userA, Conn: a2})
	hub.Register(&Client{UserID: userB, Conn: b1})
	hub.Register(&Client{UserID: userB, Conn: broken})

	hub.SendToUser(userA, []byte("for-a"))
	hub.Broadcast([]byte("for-all"))
	hub.SendToUser(userB, []byte("for-b"))

	assert.Eventually(t, func() bool {
		msgs, _ := b1.snapshot()
		return len(msgs) == 2
	}, time.Second, 5*time.Millisecond)

	msgs, _ := a1.snapshot()
	assert.Equal(t, []string{"for-a", "for-all"}, msgs)
	msgs, _ = a2.snapshot()
	assert.Equal(t, []string{"for-a", "for-all"}, msgs)
	msgs, _ = b1.snapshot()
	assert.Equal(t, []string{"for-all", "for-b"}, msgs)

	_, closed := broken.snapshot()
	assert.True(t, closed, "a failed write drops the connection")

	cancel()
	assert.Eventually(t, func() bool {
		_, closed := a1.snapshot()
		return closed
	}, time.Second, 5*time.Millisecond)

	// After shutdown registration does not block and the connection is closed.
	late := &fakeConn{}
	hub.Register(&Client{UserID: userA, Conn: late})
	_, closed = late.snapshot()
	assert.True(t, closed)
	hub.Unregister(&Client{UserID: userA, Conn: late})
}

func TestHub_SendNeverBlocks(t *testing.T) {
	hub := NewHub(nil)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.SendJSON(uuid.New(), map[string]int{"n": i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("send blocked without a running hub")
	}
}

func TestHub_SendJSONRoutesByUser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)

	student, librarian := uuid.New(), uuid.New()
	s1, l1 := &fakeConn{}, &fakeConn{}
	hub.Register(&Client{UserID: student, Conn: s1})
	hub.Register(&Client{UserID: librarian, Conn: l1})

	hub.SendJSON(student, map[string]string{"type": "notification"})
	hub.SendJSON(uuid.Nil, map[string]string{"type": "catalog_update"})

	assert.Eventually(t, func() bool {
		msgs, _ := l1.snapshot()
		return len(msgs) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		msgs, _ := s1.snapshot()
		return len(msgs) == 2
	}, time.Second, 5*time.Millisecond)

	msgs, _ := s1.snapshot()
	assert.Equal(t, []string{`{"type":"notification"}`, `{"type":"catalog_update"}`}, msgs)
	msgs, _ = l1.snapshot()
	assert.Equal(t, []string{`{"type":"catalog_update"}`}, msgs)
}
