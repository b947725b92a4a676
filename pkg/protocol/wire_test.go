package protocol_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"testing"

	"lanchat/pkg/protocol"
)

func TestWire_StringRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"plain ascii", "hello"},
		{"empty string", ""},
		{"multi-byte content", "héllo wörld 日本語"},
		{"embedded spaces and colon", "10:00:00 b: hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := protocol.NewWriter(&buf).WriteString(tt.in); err != nil {
				t.Fatalf("WriteString() error = %v", err)
			}
			got, err := protocol.NewReader(&buf).ReadString()
			if err != nil {
				t.Fatalf("ReadString() error = %v", err)
			}
			if got != tt.in {
				t.Errorf("round trip = %q, want %q", got, tt.in)
			}
		})
	}
}

func TestWire_StringEncoding(t *testing.T) {
	var buf bytes.Buffer
	if err := protocol.NewWriter(&buf).WriteString("hi"); err != nil {
		t.Fatalf("WriteString() error = %v", err)
	}

	want := []byte{2, 0, 0, 0, 'h', 'i'}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("encoded bytes = %v, want %v", buf.Bytes(), want)
	}
}

func TestWire_StringListRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   []string
	}{
		{"empty list", []string{}},
		{"single element", []string{"one"}},
		{"message triple", []string{"10:00:00", "bob", "hi there"}},
		{"contains empty strings", []string{"", "x", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := protocol.NewWriter(&buf).WriteStringList(tt.in); err != nil {
				t.Fatalf("WriteStringList() error = %v", err)
			}
			got, err := protocol.NewReader(&buf).ReadStringList()
			if err != nil {
				t.Fatalf("ReadStringList() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.in) {
				t.Errorf("round trip = %v, want %v", got, tt.in)
			}
		})
	}
}

func TestWire_TagAndBoolRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := protocol.NewWriter(&buf)
	if err := w.WriteTag(protocol.TagJoin); err != nil {
		t.Fatalf("WriteTag() error = %v", err)
	}
	if err := w.WriteBool(true); err != nil {
		t.Fatalf("WriteBool() error = %v", err)
	}
	if err := w.WriteBool(false); err != nil {
		t.Fatalf("WriteBool() error = %v", err)
	}

	r := protocol.NewReader(&buf)
	tag, err := r.ReadTag()
	if err != nil {
		t.Fatalf("ReadTag() error = %v", err)
	}
	if tag != protocol.TagJoin {
		t.Errorf("ReadTag() = %v, want %v", tag, protocol.TagJoin)
	}
	for _, want := range []bool{true, false} {
		got, err := r.ReadBool()
		if err != nil {
			t.Fatalf("ReadBool() error = %v", err)
		}
		if got != want {
			t.Errorf("ReadBool() = %v, want %v", got, want)
		}
	}
}

func TestWire_MessageRoundTrip(t *testing.T) {
	in := protocol.Message{Timestamp: "10:00:00", Username: "bob", Text: "hi"}

	var buf bytes.Buffer
	if err := protocol.NewWriter(&buf).WriteMessage(in); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	got, err := protocol.NewReader(&buf).ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	if got != in {
		t.Errorf("round trip = %+v, want %+v", got, in)
	}
}

func TestWire_TruncatedReads(t *testing.T) {
	full := func() []byte {
		var buf bytes.Buffer
		w := protocol.NewWriter(&buf)
		_ = w.WriteString("hello world")
		return buf.Bytes()
	}()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty stream", nil},
		{"partial length prefix", full[:2]},
		{"length without body", full[:4]},
		{"partial body", full[:7]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := protocol.NewReader(bytes.NewReader(tt.data)).ReadString()
			if err == nil {
				t.Fatal("ReadString() on truncated stream succeeded, want error")
			}
			if !errors.Is(err, protocol.ErrTruncated) {
				t.Errorf("error = %v, want ErrTruncated", err)
			}
		})
	}
}

func TestWire_NegativeLengthRejected(t *testing.T) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, int32(-5)); err != nil {
		t.Fatal(err)
	}

	if _, err := protocol.NewReader(bytes.NewReader(buf.Bytes())).ReadString(); err == nil {
		t.Error("ReadString() accepted a negative length prefix")
	}
	if _, err := protocol.NewReader(bytes.NewReader(buf.Bytes())).ReadStringList(); err == nil {
		t.Error("ReadStringList() accepted a negative count prefix")
	}
}

func TestWire_MessageWrongFieldCount(t *testing.T) {
	var buf bytes.Buffer
	if err := protocol.NewWriter(&buf).WriteStringList([]string{"only", "two"}); err != nil {
		t.Fatal(err)
	}

	if _, err := protocol.NewReader(&buf).ReadMessage(); err == nil {
		t.Error("ReadMessage() accepted a 2-element list")
	}
}
