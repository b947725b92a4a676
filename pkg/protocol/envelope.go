package protocol

//go:generate protoc --go_out=pb --go_opt=paths=source_relative --proto_path=../../proto ../../proto/envelope.proto

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"

	"lanchat/pkg/protocol/pb"
)

// ErrUnknownTag reports a datagram whose tag is not part of the peer
// protocol.
var ErrUnknownTag = errors.New("protocol: unknown envelope tag")

// Envelope is one self-describing UDP datagram. Each kind carries only
// the payload fields that kind defines, so an invalid shape (say, an
// announcement with a history list) is not representable.
type Envelope interface {
	// Tag identifies the envelope kind on the wire.
	Tag() Tag
}

// Announce is broadcast by a starting node to claim a username.
type Announce struct {
	Username string
}

// Tag implements Envelope.
func (Announce) Tag() Tag { return TagJoin }

// NameTaken is the unicast rejection of an Announce whose username
// collides with the responder's.
type NameTaken struct{}

// Tag implements Envelope.
func (NameTaken) Tag() Tag { return TagNameTaken }

// HistorySync is the unicast reply to an Announce, carrying the
// responder's username and full history snapshot.
type HistorySync struct {
	Username string
	History  []Message
}

// Tag implements Envelope.
func (HistorySync) Tag() Tag { return TagHistory }

// ChatBroadcast is a user-entered chat line broadcast to all peers.
type ChatBroadcast struct {
	Username string
	Text     string
}

// Tag implements Envelope.
func (ChatBroadcast) Tag() Tag { return TagPost }

// EncodeEnvelope serializes an envelope into datagram bytes using
// protobuf.
func EncodeEnvelope(e Envelope) ([]byte, error) {
	data, err := proto.Marshal(envelopeToProto(e))
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return data, nil
}

// DecodeEnvelope deserializes datagram bytes into a typed envelope.
// A tag outside the protocol yields ErrUnknownTag.
func DecodeEnvelope(data []byte) (Envelope, error) {
	pbEnv := &pb.Envelope{}
	if err := proto.Unmarshal(data, pbEnv); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	return envelopeFromProto(pbEnv)
}

// envelopeToProto converts a typed envelope to its protobuf form.
// This conversion isolates protobuf implementation details from the
// public API.
func envelopeToProto(e Envelope) *pb.Envelope {
	pbEnv := &pb.Envelope{Kind: int32(e.Tag())}
	switch e := e.(type) {
	case Announce:
		pbEnv.Username = e.Username
	case NameTaken:
	case HistorySync:
		pbEnv.Username = e.Username
		pbEnv.History = make([]*pb.ChatMessage, 0, len(e.History))
		for _, m := range e.History {
			pbEnv.History = append(pbEnv.History, &pb.ChatMessage{
				Timestamp: m.Timestamp,
				Username:  m.Username,
				Text:      m.Text,
			})
		}
	case ChatBroadcast:
		pbEnv.Username = e.Username
		pbEnv.Message = e.Text
	}
	return pbEnv
}

// envelopeFromProto converts the protobuf form back to a typed
// envelope, switching exhaustively on the wire tag.
func envelopeFromProto(pbEnv *pb.Envelope) (Envelope, error) {
	switch Tag(pbEnv.Kind) {
	case TagJoin:
		return Announce{Username: pbEnv.Username}, nil
	case TagNameTaken:
		return NameTaken{}, nil
	case TagHistory:
		history := make([]Message, 0, len(pbEnv.History))
		for _, m := range pbEnv.History {
			history = append(history, Message{
				Timestamp: m.Timestamp,
				Username:  m.Username,
				Text:      m.Text,
			})
		}
		return HistorySync{Username: pbEnv.Username, History: history}, nil
	case TagPost:
		return ChatBroadcast{Username: pbEnv.Username, Text: pbEnv.Message}, nil
	case TagBroadcast:
		// 372 belongs to the TCP fan-out path and is never sent as a
		// datagram.
		return nil, fmt.Errorf("%w: %d", ErrUnknownTag, pbEnv.Kind)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownTag, pbEnv.Kind)
	}
}
