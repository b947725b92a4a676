package chat

import (
	"bytes"
	"sync"

	"lanchat/pkg/protocol"
)

// Client is one joined connection: the writer handle, the username it
// negotiated, and the outgoing frame queue drained by its write loop.
type Client struct {
	Conn     Conn
	Username string
	Outgoing chan []byte
}

// Registry is the authoritative store of live connections, usernames
// and recent history. It is the single owner of that state: every
// operation is atomic with respect to the others, so connection
// handlers never lock anything themselves.
type Registry struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	history *History
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[*Client]struct{}),
		history: NewHistory(),
	}
}

// TryJoin registers the client if its username is unique among live
// connections and returns the history snapshot the joiner must replay.
// A rejected join mutates nothing.
func (r *Registry) TryJoin(c *Client) ([]protocol.Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for other := range r.clients {
		if other.Username == c.Username {
			return nil, false
		}
	}
	r.clients[c] = struct{}{}
	return r.history.Snapshot(), true
}

// Leave removes the client's record. It only touches that client's own
// entry, so a disconnect never disturbs state observed by others.
func (r *Registry) Leave(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, c)
}

// PostAndBroadcast fans the message out to every registered client,
// the poster included, then appends it to the history. The frame is
// encoded once; a client whose queue is full is skipped so one slow
// peer never blocks delivery to the rest.
func (r *Registry) PostAndBroadcast(m protocol.Message) error {
	frame, err := broadcastFrame(m)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for c := range r.clients {
		select {
		case c.Outgoing <- frame:
		default:
			// Queue full. The write loop is stuck or gone; its own
			// read failure will clean the record up.
		}
	}
	r.history.Append(m)
	return nil
}

// ClientCount returns the number of joined clients.
func (r *Registry) ClientCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// HistorySnapshot returns a copy of the current history, oldest first.
func (r *Registry) HistorySnapshot() []protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.Snapshot()
}

func broadcastFrame(m protocol.Message) ([]byte, error) {
	var buf bytes.Buffer
	w := protocol.NewWriter(&buf)
	if err := w.WriteTag(protocol.TagBroadcast); err != nil {
		return nil, err
	}
	if err := w.WriteMessage(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
