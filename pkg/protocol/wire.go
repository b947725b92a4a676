package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrTruncated reports a read that could not obtain the expected byte
// count: the stream closed or was cut mid-frame.
var ErrTruncated = errors.New("protocol: truncated frame")

// maxStringLen bounds a single length prefix so a corrupt frame cannot
// drive a huge allocation.
const maxStringLen = 1 << 20

// Writer encodes protocol values onto a byte stream.
// All integers are 4-byte little-endian.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer encoding onto w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteTag writes a 4-byte message tag.
func (w *Writer) WriteTag(t Tag) error {
	return w.WriteInt32(int32(t))
}

// WriteBool writes a single boolean byte.
func (w *Writer) WriteBool(v bool) error {
	b := [1]byte{0}
	if v {
		b[0] = 1
	}
	if _, err := w.w.Write(b[:]); err != nil {
		return fmt.Errorf("failed to write bool: %w", err)
	}
	return nil
}

// WriteString writes the string's byte length followed by its bytes.
func (w *Writer) WriteString(s string) error {
	if err := w.WriteInt32(int32(len(s))); err != nil {
		return err
	}
	if _, err := io.WriteString(w.w, s); err != nil {
		return fmt.Errorf("failed to write string: %w", err)
	}
	return nil
}

// WriteStringList writes the element count followed by each string.
func (w *Writer) WriteStringList(list []string) error {
	if err := w.WriteInt32(int32(len(list))); err != nil {
		return err
	}
	for _, s := range list {
		if err := w.WriteString(s); err != nil {
			return err
		}
	}
	return nil
}

// WriteMessage writes a chat message as its three-string list.
func (w *Writer) WriteMessage(m Message) error {
	return w.WriteStringList([]string{m.Timestamp, m.Username, m.Text})
}

// WriteInt32 writes a 4-byte little-endian signed integer.
func (w *Writer) WriteInt32(v int32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	if _, err := w.w.Write(b[:]); err != nil {
		return fmt.Errorf("failed to write int32: %w", err)
	}
	return nil
}

// Reader decodes protocol values from a byte stream. Reads block until
// the expected bytes arrive; a short read is never silently accepted.
type Reader struct {
	r io.Reader
}

// NewReader returns a Reader decoding from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadTag reads a 4-byte message tag.
func (r *Reader) ReadTag() (Tag, error) {
	v, err := r.ReadInt32()
	return Tag(v), err
}

// ReadBool reads a single boolean byte.
func (r *Reader) ReadBool() (bool, error) {
	var b [1]byte
	if _, err := io.ReadFull(r.r, b[:]); err != nil {
		return false, truncated(err)
	}
	return b[0] != 0, nil
}

// ReadString reads a length-prefixed string.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return "", err
	}
	if n < 0 || n > maxStringLen {
		return "", fmt.Errorf("protocol: invalid string length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return "", truncated(err)
	}
	return string(buf), nil
}

// ReadStringList reads a count-prefixed list of strings.
func (r *Reader) ReadStringList() ([]string, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 || n > maxStringLen {
		return nil, fmt.Errorf("protocol: invalid list length %d", n)
	}
	list := make([]string, 0, n)
	for i := int32(0); i < n; i++ {
		s, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, nil
}

// ReadMessage reads a chat message encoded as a three-string list.
func (r *Reader) ReadMessage() (Message, error) {
	list, err := r.ReadStringList()
	if err != nil {
		return Message{}, err
	}
	if len(list) != 3 {
		return Message{}, fmt.Errorf("protocol: message wants 3 fields, got %d", len(list))
	}
	return Message{Timestamp: list[0], Username: list[1], Text: list[2]}, nil
}

// ReadInt32 reads a 4-byte little-endian signed integer.
func (r *Reader) ReadInt32() (int32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r.r, b[:]); err != nil {
		return 0, truncated(err)
	}
	return int32(binary.LittleEndian.Uint32(b[:])), nil
}

// truncated maps short-read errors onto ErrTruncated while keeping the
// underlying cause visible.
func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return err
}
