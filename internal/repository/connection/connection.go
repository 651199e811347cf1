package connection

import "time"

// Conn is the part of *websocket.Conn used to push messages to a client.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}
