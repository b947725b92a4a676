package protocol

import (
	"fmt"
	"time"
)

// TimeLayout is the wall-clock format stamped on every chat message.
const TimeLayout = "15:04:05"

// Message is a single chat message. Immutable once created; produced
// locally from console input or received from a peer or the server.
type Message struct {
	Timestamp string
	Username  string
	Text      string
}

// NewMessage stamps text from username with the current local time.
func NewMessage(username, text string) Message {
	return Message{
		Timestamp: time.Now().Format(TimeLayout),
		Username:  username,
		Text:      text,
	}
}

// Display renders the message as a terminal line.
func (m Message) Display() string {
	return fmt.Sprintf("%s %s: %s", m.Timestamp, m.Username, m.Text)
}
