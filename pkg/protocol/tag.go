// Package protocol defines the chat wire vocabulary shared by the TCP
// client/server and the UDP peer transport: the message tags, the chat
// message triple, the length-prefixed stream codec, and the UDP envelope.
package protocol

// Tag identifies a protocol message kind. The same numeric values are
// carried on both transports but interpreted independently.
type Tag int32

const (
	// TagNameTaken rejects a peer announcement whose username collides
	// with the responder's (UDP only).
	TagNameTaken Tag = 370

	// TagHistory carries a history snapshot: the server's reply to an
	// accepted join (TCP) or a peer's reply to an announcement (UDP).
	TagHistory Tag = 371

	// TagBroadcast is a chat message fanned out by the server (TCP only).
	TagBroadcast Tag = 372

	// TagJoin announces a username: a join request (TCP) or a new-peer
	// broadcast (UDP).
	TagJoin Tag = 471

	// TagPost carries a user-entered chat line toward the room.
	TagPost Tag = 472
)

// String returns the string representation of the tag.
func (t Tag) String() string {
	switch t {
	case TagNameTaken:
		return "NAME_TAKEN"
	case TagHistory:
		return "HISTORY"
	case TagBroadcast:
		return "BROADCAST"
	case TagJoin:
		return "JOIN"
	case TagPost:
		return "POST"
	default:
		return "UNKNOWN"
	}
}
