package relay

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
)

// Conn is the subset of *websocket.Conn the relay needs from an upstream
// recognizer connection. Write calls are serialized by the upstream socket.
type Conn interface {
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Dialer opens upstream recognizer connections. Production code uses the
// gorilla dialer; tests substitute scripted connections.
type Dialer interface {
	DialContext(ctx context.Context, url string, header http.Header) (Conn, error)
}

type websocketDialer struct {
	dialer *websocket.Dialer
}

// NewDialer returns a Dialer backed by the default gorilla websocket dialer.
func NewDialer() Dialer {
	return &websocketDialer{dialer: websocket.DefaultDialer}
}

func (d *websocketDialer) DialContext(ctx context.Context, url string, header http.Header) (Conn, error) {
	conn, _, err := d.dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
