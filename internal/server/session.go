package server

import (
	"log"

	"lanchat/internal/chat"
	"lanchat/internal/metrics"
	"lanchat/pkg/protocol"
)

// outgoingQueueSize bounds each client's pending broadcast queue.
const outgoingQueueSize = 16

// session runs one connection's protocol state machine:
// Connecting -> Joined -> (PostMessage)* -> Disconnected.
func (s *Server) session(c chat.Conn) {
	defer c.Close()

	r := protocol.NewReader(c)
	w := protocol.NewWriter(c)

	tag, err := r.ReadTag()
	if err != nil {
		return
	}
	if tag != protocol.TagJoin {
		log.Printf("Connection from %s opened with tag %s, closing", c.RemoteAddr(), tag)
		return
	}
	username, err := r.ReadString()
	if err != nil {
		return
	}

	client := &chat.Client{
		Conn:     c,
		Username: username,
		Outgoing: make(chan []byte, outgoingQueueSize),
	}

	snapshot, ok := s.registry.TryJoin(client)
	if !ok {
		metrics.JoinsRejected.Inc()
		log.Printf("Rejected join from %s: username %q taken", c.RemoteAddr(), username)
		_ = w.WriteBool(false)
		return
	}

	accepted := false
	defer func() {
		// Leave before closing Outgoing: the registry serializes
		// fan-out, so after Leave returns no broadcast can touch the
		// closed channel.
		s.registry.Leave(client)
		close(client.Outgoing)
		if accepted {
			metrics.ConnectedClients.Dec()
			log.Printf("User %s disconnected", username)
		}
	}()

	if err := w.WriteBool(true); err != nil {
		return
	}
	if err := writeHistory(w, snapshot); err != nil {
		return
	}

	accepted = true
	metrics.ConnectedClients.Inc()
	log.Printf("User %s joined from %s", username, c.RemoteAddr())

	// Drain the outgoing queue on its own goroutine so a stalled peer
	// never blocks the registry's fan-out.
	go func() {
		for frame := range client.Outgoing {
			if _, err := c.Write(frame); err != nil {
				log.Printf("Failed to write to %s: %v", username, err)
				return
			}
		}
	}()

	for {
		tag, err := r.ReadTag()
		if err != nil {
			return
		}
		switch tag {
		case protocol.TagPost:
			msg, err := r.ReadMessage()
			if err != nil {
				return
			}
			if err := s.registry.PostAndBroadcast(msg); err != nil {
				log.Printf("Failed to broadcast from %s: %v", username, err)
				return
			}
			metrics.MessagesTotal.Inc()
		default:
			log.Printf("User %s sent unexpected tag %s, closing", username, tag)
			return
		}
	}
}

// writeHistory sends the HistoryReply: tag, count, then each message.
func writeHistory(w *protocol.Writer, history []protocol.Message) error {
	if err := w.WriteTag(protocol.TagHistory); err != nil {
		return err
	}
	if err := w.WriteInt32(int32(len(history))); err != nil {
		return err
	}
	for _, m := range history {
		if err := w.WriteMessage(m); err != nil {
			return err
		}
	}
	return nil
}
