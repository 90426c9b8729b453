package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// Connection is what the read and write pumps need from a socket. Hub
// tests drive clients through an in-memory fake.
type Connection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error

	// RemoteAddr is empty when the peer address is unknown.
	RemoteAddr() string
}

type gorillaConn struct {
	*websocket.Conn
}

// wrapConn exposes an upgraded gorilla connection as a Connection.
func wrapConn(conn *websocket.Conn) Connection {
	return gorillaConn{Conn: conn}
}

func (c gorillaConn) RemoteAddr() string {
	if addr := c.Conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
