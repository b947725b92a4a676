// Package client implements the TCP chat client state machine:
// username negotiation, history replay, then concurrent send and
// receive loops.
package client

import (
	"fmt"
	"net"
	"sync"

	"lanchat/pkg/protocol"
)

// Client is a connection to the chat server.
type Client struct {
	address  string
	username string
	conn     net.Conn
	reader   *protocol.Reader
	writer   *protocol.Writer
	messages chan protocol.Message
	done     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

// New creates a client for the server at address.
func New(address string) *Client {
	return &Client{
		address:  address,
		messages: make(chan protocol.Message, 10),
		done:     make(chan struct{}),
	}
}

// Connect dials the server.
func (c *Client) Connect() error {
	conn, err := net.Dial("tcp", c.address)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	c.conn = conn
	c.reader = protocol.NewReader(conn)
	c.writer = protocol.NewWriter(conn)
	return nil
}

// Join negotiates the username. When the server accepts it consumes
// the history reply and returns the entries oldest first; when the
// server rejects, accepted is false and the session is over.
func (c *Client) Join(username string) (history []protocol.Message, accepted bool, err error) {
	if err := c.writer.WriteTag(protocol.TagJoin); err != nil {
		return nil, false, err
	}
	if err := c.writer.WriteString(username); err != nil {
		return nil, false, err
	}

	accepted, err = c.reader.ReadBool()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read join reply: %w", err)
	}
	if !accepted {
		return nil, false, nil
	}

	tag, err := c.reader.ReadTag()
	if err != nil {
		return nil, false, err
	}
	if tag != protocol.TagHistory {
		return nil, false, fmt.Errorf("expected history reply, got tag %s", tag)
	}
	count, err := c.reader.ReadInt32()
	if err != nil {
		return nil, false, err
	}
	history = make([]protocol.Message, 0, count)
	for i := int32(0); i < count; i++ {
		m, err := c.reader.ReadMessage()
		if err != nil {
			return nil, false, err
		}
		history = append(history, m)
	}

	c.username = username
	return history, true, nil
}

// Start launches the inbound loop. Broadcasts arrive on Messages();
// the channel closes when the stream ends or the client is closed.
func (c *Client) Start() {
	c.wg.Add(1)
	go c.receive()
}

// Messages returns the channel of received broadcasts.
func (c *Client) Messages() <-chan protocol.Message {
	return c.messages
}

// Send stamps text with the local clock and posts it to the room.
func (c *Client) Send(text string) error {
	msg := protocol.NewMessage(c.username, text)
	if err := c.writer.WriteTag(protocol.TagPost); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	if err := c.writer.WriteMessage(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Close ends the session. Closing the connection unblocks the inbound
// loop within one pending receive; that exit is the expected shutdown
// path, not an error.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
	c.wg.Wait()
}

func (c *Client) receive() {
	defer c.wg.Done()
	defer close(c.messages)

	for {
		tag, err := c.reader.ReadTag()
		if err != nil {
			// Stream ended, or Close cut the connection under us.
			return
		}
		switch tag {
		case protocol.TagBroadcast:
			msg, err := c.reader.ReadMessage()
			if err != nil {
				return
			}
			select {
			case c.messages <- msg:
			case <-c.done:
				return
			}
		default:
			// Ignored; keep waiting for the next tag.
		}
	}
}
