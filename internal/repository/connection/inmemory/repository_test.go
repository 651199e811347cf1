package inmemory

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/maps"
)

func (r *repo) roomConnections(roomId string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return maps.Keys(r.rooms[roomId])
}

type fakeConn struct {
	mu       sync.Mutex
	messages []string
	writeErr error
	closed   bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writeErr != nil {
		return c.writeErr
	}

	c.messages = append(c.messages, string(data))
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error {
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	return nil
}

func (c *fakeConn) received() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.messages...)
}

func TestSubscribeAndPublish(t *testing.T) {
	r := NewRepo(slog.Default())
	a, b, other := &fakeConn{}, &fakeConn{}, &fakeConn{}

	require.NoError(t, r.Subscribe("a", "room1", "alice", a))
	require.NoError(t, r.Subscribe("b", "room1", "bob", b))
	require.NoError(t, r.Subscribe("o", "room2", "carol", other))
	assert.ErrorIs(t, r.Subscribe("a", "room1", "alice", a), connection.ErrAlreadyExists)

	delivered := r.Publish("room1", []byte("hello"))
	assert.Equal(t, 2, delivered)
	assert.Equal(t, []string{"hello"}, a.received())
	assert.Equal(t, []string{"hello"}, b.received())
	assert.Empty(t, other.received(), "publish must stay inside the room")

	assert.ElementsMatch(t, []string{"a", "b"}, r.roomConnections("room1"))
	assert.Equal(t, 3, r.Len())
}

func TestSend(t *testing.T) {
	r := NewRepo(slog.Default())
	a, b := &fakeConn{}, &fakeConn{}
	require.NoError(t, r.Subscribe("a", "room1", "alice", a))
	require.NoError(t, r.Subscribe("b", "room1", "bob", b))

	require.NoError(t, r.Send("a", []byte("welcome")))
	assert.Equal(t, []string{"welcome"}, a.received())
	assert.Empty(t, b.received())

	assert.ErrorIs(t, r.Send("missing", []byte("x")), connection.ErrNotFound)
}

func TestUnsubscribe(t *testing.T) {
	r := NewRepo(slog.Default())
	a := &fakeConn{}
	require.NoError(t, r.Subscribe("a", "room1", "alice", a))

	require.NoError(t, r.Unsubscribe("a"))
	assert.ErrorIs(t, r.Unsubscribe("a"), connection.ErrNotFound)
	assert.False(t, a.closed, "unsubscribe must not close the connection")

	assert.Zero(t, r.Publish("room1", []byte("hello")))
	assert.Empty(t, r.roomConnections("room1"))
	assert.Zero(t, r.Len())
}

func TestPublishDropsFailingConnection(t *testing.T) {
	r := NewRepo(slog.Default())
	healthy := &fakeConn{}
	broken := &fakeConn{writeErr: errors.New("broken pipe")}
	require.NoError(t, r.Subscribe("healthy", "room1", "alice", healthy))
	require.NoError(t, r.Subscribe("broken", "room1", "bob", broken))

	delivered := r.Publish("room1", []byte("hello"))
	assert.Equal(t, 1, delivered)
	assert.Equal(t, []string{"hello"}, healthy.received())
	assert.True(t, broken.closed)
	assert.Equal(t, []string{"healthy"}, r.roomConnections("room1"))
}

func TestConcurrentPublish(t *testing.T) {
	r := NewRepo(slog.Default())
	conn := &fakeConn{}
	require.NoError(t, r.Subscribe("a", "room1", "alice", conn))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Publish("room1", []byte("x"))
		}()
	}
	wg.Wait()

	assert.Len(t, conn.received(), 50)
}
