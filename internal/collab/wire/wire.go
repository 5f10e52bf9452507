// Package wire implements the compact binary encoding for gossip
// messages. Every message is a single discriminant byte followed by its
// fields; variable-length fields carry a big-endian length prefix.
// There is no self-describing schema: both ends agree on the layout per
// discriminant.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dshills/inkwell/internal/collab/crdt"
)

// Decode errors. A decode failure means the payload is dropped; it
// never terminates the receiving session.
var (
	ErrTruncated     = errors.New("wire: truncated message")
	ErrUnknownKind   = errors.New("wire: unknown message kind")
	ErrFieldTooLarge = errors.New("wire: field exceeds size limit")
)

// maxFieldLen bounds any one variable-length field. Gossip payloads are
// small; anything near this size is hostile or corrupt.
const maxFieldLen = 1 << 24

// Kind is the outer discriminant of a message.
type Kind byte

const (
	KindUpdate Kind = iota + 1
	KindCursor
	KindJoin
	KindLeave
	KindSyncRequest
	KindSyncResponse
)

// String returns the kind's name for logging.
func (k Kind) String() string {
	switch k {
	case KindUpdate:
		return "update"
	case KindCursor:
		return "cursor"
	case KindJoin:
		return "join"
	case KindLeave:
		return "leave"
	case KindSyncRequest:
		return "sync-request"
	case KindSyncResponse:
		return "sync-response"
	default:
		return fmt.Sprintf("kind(%d)", byte(k))
	}
}

// Message is one member of the gossip message union.
type Message interface {
	Kind() Kind
}

// Span is a half-open character range carried on the wire.
type Span struct {
	Start int
	End   int
}

// Update carries CRDT delta bytes plus the sender's version vector.
type Update struct {
	Delta   []byte
	Version crdt.VersionVector
}

// Cursor announces a peer's caret position, optional selection, and
// display color.
type Cursor struct {
	Position  int
	Selection *Span
	Color     string
}

// Join announces a peer entering the session.
type Join struct {
	Identity    string
	DisplayName string
}

// Leave announces a peer exiting the session.
type Leave struct {
	Identity string
}

// SyncRequest asks peers for the changes a newly joined peer is
// missing relative to its version vector.
type SyncRequest struct {
	HaveVersion crdt.VersionVector
}

// SyncResponse answers a SyncRequest with either an incremental delta
// or a full snapshot.
type SyncResponse struct {
	Data       []byte
	IsSnapshot bool
}

func (Update) Kind() Kind       { return KindUpdate }
func (Cursor) Kind() Kind       { return KindCursor }
func (Join) Kind() Kind         { return KindJoin }
func (Leave) Kind() Kind        { return KindLeave }
func (SyncRequest) Kind() Kind  { return KindSyncRequest }
func (SyncResponse) Kind() Kind { return KindSyncResponse }

// Encode serializes a message to its wire form.
func Encode(msg Message) ([]byte, error) {
	w := &writer{buf: []byte{byte(msg.Kind())}}
	switch m := msg.(type) {
	case Update:
		w.bytes(m.Delta)
		w.versionVector(m.Version)
	case Cursor:
		w.uint32(uint32(m.Position))
		if m.Selection != nil {
			w.byte(1)
			w.uint32(uint32(m.Selection.Start))
			w.uint32(uint32(m.Selection.End))
		} else {
			w.byte(0)
		}
		w.string(m.Color)
	case Join:
		w.string(m.Identity)
		w.string(m.DisplayName)
	case Leave:
		w.string(m.Identity)
	case SyncRequest:
		w.versionVector(m.HaveVersion)
	case SyncResponse:
		w.bytes(m.Data)
		if m.IsSnapshot {
			w.byte(1)
		} else {
			w.byte(0)
		}
	default:
		return nil, fmt.Errorf("wire: cannot encode %T", msg)
	}
	return w.buf, nil
}

// Decode parses one wire message. All bounds are checked; malformed
// input yields an error and never panics.
func Decode(data []byte) (Message, error) {
	if len(data) == 0 {
		return nil, ErrTruncated
	}
	r := &reader{buf: data[1:]}

	var msg Message
	switch Kind(data[0]) {
	case KindUpdate:
		m := Update{}
		m.Delta = r.bytes()
		m.Version = r.versionVector()
		msg = m
	case KindCursor:
		m := Cursor{}
		m.Position = int(r.uint32())
		if r.byte() == 1 {
			sel := Span{Start: int(r.uint32()), End: int(r.uint32())}
			m.Selection = &sel
		}
		m.Color = r.string()
		msg = m
	case KindJoin:
		msg = Join{Identity: r.string(), DisplayName: r.string()}
	case KindLeave:
		msg = Leave{Identity: r.string()}
	case KindSyncRequest:
		msg = SyncRequest{HaveVersion: r.versionVector()}
	case KindSyncResponse:
		m := SyncResponse{}
		m.Data = r.bytes()
		m.IsSnapshot = r.byte() == 1
		msg = m
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, data[0])
	}

	if r.err != nil {
		return nil, r.err
	}
	if len(r.buf) != 0 {
		return nil, fmt.Errorf("wire: %d trailing bytes", len(r.buf))
	}
	return msg, nil
}

type writer struct {
	buf []byte
}

func (w *writer) byte(b byte) { w.buf = append(w.buf, b) }

func (w *writer) uint32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *writer) bytes(b []byte) {
	w.uint32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *writer) string(s string) { w.bytes([]byte(s)) }

func (w *writer) versionVector(v crdt.VersionVector) {
	w.uint32(uint32(len(v)))
	for _, head := range v {
		w.string(head)
	}
}

type reader struct {
	buf []byte
	err error
}

func (r *reader) byte() byte {
	if r.err != nil {
		return 0
	}
	if len(r.buf) < 1 {
		r.err = ErrTruncated
		return 0
	}
	b := r.buf[0]
	r.buf = r.buf[1:]
	return b
}

func (r *reader) uint32() uint32 {
	if r.err != nil {
		return 0
	}
	if len(r.buf) < 4 {
		r.err = ErrTruncated
		return 0
	}
	v := binary.BigEndian.Uint32(r.buf)
	r.buf = r.buf[4:]
	return v
}

func (r *reader) bytes() []byte {
	n := r.uint32()
	if r.err != nil {
		return nil
	}
	if n > maxFieldLen {
		r.err = ErrFieldTooLarge
		return nil
	}
	if uint32(len(r.buf)) < n {
		r.err = ErrTruncated
		return nil
	}
	out := make([]byte, n)
	copy(out, r.buf[:n])
	r.buf = r.buf[n:]
	return out
}

func (r *reader) string() string { return string(r.bytes()) }

func (r *reader) versionVector() crdt.VersionVector {
	n := r.uint32()
	if r.err != nil {
		return nil
	}
	if n > maxFieldLen {
		r.err = ErrFieldTooLarge
		return nil
	}
	// Each head carries at least its own 4-byte length prefix, so a
	// count the remaining bytes cannot satisfy is rejected before it
	// sizes an allocation.
	if uint32(len(r.buf))/4 < n {
		r.err = ErrTruncated
		return nil
	}
	heads := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		heads = append(heads, r.string())
		if r.err != nil {
			return nil
		}
	}
	return crdt.NewVersionVector(heads)
}
