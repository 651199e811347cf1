package inmemory

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/repository/connection"
	"golang.org/x/exp/maps"
)

const writeWait = 10 * time.Second

type client struct {
	conn   connection.Conn
	roomId string
	userId string
	// gorilla connections support one concurrent writer
	mu sync.Mutex
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// repo keeps the live connections of this process grouped by room.
type repo struct {
	clients map[string]*client
	rooms   map[string]map[string]*client
	mu      sync.RWMutex
	logger  *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		clients: make(map[string]*client),
		rooms:   make(map[string]map[string]*client),
		logger:  logger,
	}
}

// Subscribe adds the connection to the room's broadcast group.
func (r *repo) Subscribe(connectionId, roomId, userId string, conn connection.Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[connectionId]; ok {
		return connection.ErrAlreadyExists
	}

	c := &client{conn: conn, roomId: roomId, userId: userId}
	r.clients[connectionId] = c

	group, ok := r.rooms[roomId]
	if !ok {
		group = make(map[string]*client)
		r.rooms[roomId] = group
	}
	group[connectionId] = c

	r.logger.Debug("connection subscribed", "conn_id", connectionId, "room_id", roomId, "user_id", userId)
	return nil
}

// Unsubscribe removes the connection from its room group. It does not close it.
func (r *repo) Unsubscribe(connectionId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[connectionId]
	if !ok {
		return connection.ErrNotFound
	}

	r.remove(connectionId, c)

	r.logger.Debug("connection unsubscribed", "conn_id", connectionId, "room_id", c.roomId)
	return nil
}

func (r *repo) remove(connectionId string, c *client) {
	delete(r.clients, connectionId)

	group := r.rooms[c.roomId]
	delete(group, connectionId)
	if len(group) == 0 {
		delete(r.rooms, c.roomId)
	}
}

// Send writes data to a single connection.
func (r *repo) Send(connectionId string, data []byte) error {
	r.mu.RLock()
	c, ok := r.clients[connectionId]
	r.mu.RUnlock()

	if !ok {
		return connection.ErrNotFound
	}

	if err := c.write(data); err != nil {
		r.drop(connectionId, c, err)
		return err
	}

	return nil
}

// Publish writes data to every connection of the room. A connection whose
// write fails is dropped and closed; the others are unaffected.
func (r *repo) Publish(roomId string, data []byte) int {
	r.mu.RLock()
	group := make(map[string]*client, len(r.rooms[roomId]))
	maps.Copy(group, r.rooms[roomId])
	r.mu.RUnlock()

	delivered := 0
	for connectionId, c := range group {
		if err := c.write(data); err != nil {
			r.drop(connectionId, c, err)
			continue
		}

		delivered++
	}

	return delivered
}

func (r *repo) drop(connectionId string, c *client, cause error) {
	r.logger.Warn("dropping connection after failed write",
		"conn_id", connectionId,
		"room_id", c.roomId,
		"user_id", c.userId,
		"error", cause,
	)

	r.mu.Lock()
	if current, ok := r.clients[connectionId]; ok && current == c {
		r.remove(connectionId, c)
	}
	r.mu.Unlock()

	c.conn.Close()
}

// Len is the number of subscribed connections.
func (r *repo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.clients)
}
