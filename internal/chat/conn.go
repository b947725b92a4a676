package chat

import "io"

// Conn abstracts a client connection as an ordered byte stream so the
// same session code serves raw TCP and WebSocket clients.
type Conn interface {
	io.Reader
	io.Writer

	// Close closes the connection. A read blocked on the connection
	// returns with an error.
	Close() error

	// RemoteAddr returns the peer address for logging.
	RemoteAddr() string
}
