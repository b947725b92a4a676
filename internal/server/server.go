// Package server implements the TCP chat server: the accept loop, the
// per-connection session state machine, and the single-port WebSocket
// upgrade path.
package server

import (
	"bufio"
	"bytes"
	"fmt"
	"log"
	"net"
	"sync"

	"lanchat/internal/chat"
)

// Server accepts chat connections and hands them to the session
// registry. Raw TCP clients and WebSocket clients share one port.
type Server struct {
	address  string
	listener net.Listener
	registry *chat.Registry
	quit     chan struct{}
	wg       sync.WaitGroup
}

// New creates a server that will listen on address.
func New(address string) *Server {
	return &Server{
		address:  address,
		registry: chat.NewRegistry(),
		quit:     make(chan struct{}),
	}
}

// Start listens and accepts connections until Stop is called.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener

	log.Printf("Server started on %s", listener.Addr().String())

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return nil
			default:
				log.Printf("Failed to accept connection: %v", err)
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// Stop closes the listener and waits for live sessions to finish their
// cleanup.
func (s *Server) Stop() {
	close(s.quit)
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// ClientCount returns the number of joined clients.
func (s *Server) ClientCount() int {
	return s.registry.ClientCount()
}

// HistoryLen returns the current history length.
func (s *Server) HistoryLen() int {
	return len(s.registry.HistorySnapshot())
}

// handleConn peeks at the first bytes to tell a WebSocket upgrade from
// a raw protocol stream, then runs the session over either.
func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()

	reader := bufio.NewReader(conn)
	prefix, err := reader.Peek(4)
	if err != nil {
		log.Printf("Failed to peek connection from %s: %v", conn.RemoteAddr(), err)
		conn.Close()
		return
	}

	if isHTTPPrefix(prefix) {
		wc, err := upgradeWebSocket(conn, reader)
		if err != nil {
			log.Printf("WebSocket upgrade failed for %s: %v", conn.RemoteAddr(), err)
			conn.Close()
			return
		}
		s.session(wc)
		return
	}

	s.session(&tcpConn{conn: conn, reader: reader})
}

// isHTTPPrefix reports whether the first bytes look like an HTTP
// request line. Protocol frames begin with a little-endian tag whose
// high bytes are zero, so the two never collide.
func isHTTPPrefix(prefix []byte) bool {
	for _, method := range [][]byte{
		[]byte("GET "), []byte("POST"), []byte("PUT "), []byte("HEAD"),
		[]byte("OPTI"), []byte("PATC"), []byte("DELE"), []byte("CONN"),
	} {
		if bytes.HasPrefix(prefix, method) {
			return true
		}
	}
	return false
}

// tcpConn adapts a raw net.Conn, reading through the peeked buffered
// reader.
type tcpConn struct {
	conn   net.Conn
	reader *bufio.Reader
}

func (c *tcpConn) Read(p []byte) (int, error) {
	return c.reader.Read(p)
}

func (c *tcpConn) Write(p []byte) (int, error) {
	return c.conn.Write(p)
}

func (c *tcpConn) Close() error {
	return c.conn.Close()
}

func (c *tcpConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
