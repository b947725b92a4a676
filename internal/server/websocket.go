package server

import (
	"bufio"
	"io"
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// upgradeWebSocket completes the HTTP upgrade handshake on a peeked
// connection and returns it as a chat byte stream.
func upgradeWebSocket(conn net.Conn, reader *bufio.Reader) (*wsConn, error) {
	rw := &bufferedConn{Conn: conn, reader: reader}
	if _, err := ws.Upgrade(rw); err != nil {
		return nil, err
	}
	return &wsConn{conn: conn, rw: rw}, nil
}

// bufferedConn reads through the bufio.Reader used for the protocol
// peek so no handshake bytes are lost.
type bufferedConn struct {
	net.Conn
	reader *bufio.Reader
}

func (bc *bufferedConn) Read(p []byte) (int, error) {
	return bc.reader.Read(p)
}

// wsConn presents a WebSocket connection as an ordered byte stream:
// binary frames are concatenated, with partial consumption buffered,
// so the shared wire codec can read protocol frames across WS message
// boundaries.
type wsConn struct {
	conn net.Conn
	rw   io.ReadWriter

	mu  sync.Mutex
	buf []byte
	pos int
}

func (wc *wsConn) Read(p []byte) (int, error) {
	wc.mu.Lock()
	defer wc.mu.Unlock()

	if wc.pos < len(wc.buf) {
		n := copy(p, wc.buf[wc.pos:])
		wc.pos += n
		if wc.pos >= len(wc.buf) {
			wc.buf = nil
			wc.pos = 0
		}
		return n, nil
	}

	data, err := wsutil.ReadClientBinary(wc.rw)
	if err != nil {
		return 0, err
	}

	n := copy(p, data)
	if n < len(data) {
		wc.buf = data[n:]
		wc.pos = 0
	}
	return n, nil
}

func (wc *wsConn) Write(p []byte) (int, error) {
	if err := wsutil.WriteServerBinary(wc.rw, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (wc *wsConn) Close() error {
	_ = wsutil.WriteServerMessage(wc.rw, ws.OpClose, nil)
	return wc.conn.Close()
}

func (wc *wsConn) RemoteAddr() string {
	return wc.conn.RemoteAddr().String()
}
