// Package frame implements the fixed 54-byte binary protocol exchanged
// between the gateway and worker roles over Unix-domain IPC sockets.
package frame

import (
	"encoding/binary"
	"errors"
)

// Size is the wire size of every frame, regardless of variant.
const Size = 54

// Marker identifies which of the three frame variants a byte sequence
// encodes; it is always byte 0 of the wire form.
type Marker byte

const (
	MarkerSummary Marker = '@'
	MarkerPayment Marker = '$'
	MarkerAck     Marker = 0x06
)

// Kind is the in-memory discriminant for a decoded Message.
type Kind int

const (
	KindSummary Kind = iota
	KindPayment
	KindAck
)

// Message is the decoded form of a frame. Only the fields relevant to
// Kind are meaningful.
type Message struct {
	Kind          Kind
	From          uint32
	To            uint32
	AmountCents   uint64
	CorrelationID [36]byte
}

// Summary builds a Summary message from the opaque ordinal timestamps
// produced by the HTTP classifier.
func Summary(from, to uint32) Message {
	return Message{Kind: KindSummary, From: from, To: to}
}

// Payment builds a Payment message. amountCents is the integer number
// of cents; correlationID is carried verbatim.
func Payment(amountCents uint64, correlationID [36]byte) Message {
	return Message{Kind: KindPayment, AmountCents: amountCents, CorrelationID: correlationID}
}

// Ack builds the handshake/keepalive message.
func Ack() Message {
	return Message{Kind: KindAck}
}

// Errors returned by Decode. EmptyInput and UnknownMarker mirror the
// two unconditional failure modes; WrongSize applies only to the
// Summary and Payment variants — an Ack is recognized from byte 0
// alone.
var (
	ErrEmptyInput    = errors.New("frame: empty input")
	ErrWrongSize     = errors.New("frame: wrong size for marker")
	ErrUnknownMarker = errors.New("frame: unknown marker")
)

// Encode is total: every Message value produces a well-formed 54-byte
// frame whose final byte is always 0x06.
func Encode(m Message) [Size]byte {
	var b [Size]byte
	switch m.Kind {
	case KindSummary:
		b[0] = byte(MarkerSummary)
		binary.BigEndian.PutUint32(b[1:5], m.From)
		binary.BigEndian.PutUint32(b[5:9], m.To)
		b[Size-1] = byte(MarkerAck)
	case KindPayment:
		b[0] = byte(MarkerPayment)
		binary.BigEndian.PutUint64(b[1:9], m.AmountCents)
		copy(b[9:45], m.CorrelationID[:])
		b[Size-1] = byte(MarkerAck)
	default: // KindAck
		for i := range b {
			b[i] = byte(MarkerAck)
		}
	}
	return b
}

// Decode parses a frame. For Summary and Payment the input must be
// exactly Size bytes; for Ack, any non-empty input whose first byte is
// 0x06 decodes successfully regardless of length or the remaining
// bytes' contents — this matches the wire layout used for the
// handshake frame and is not a gap to close.
func Decode(b []byte) (Message, error) {
	if len(b) == 0 {
		return Message{}, ErrEmptyInput
	}

	switch Marker(b[0]) {
	case MarkerSummary:
		if len(b) != Size {
			return Message{}, ErrWrongSize
		}
		from := binary.BigEndian.Uint32(b[1:5])
		to := binary.BigEndian.Uint32(b[5:9])
		return Summary(from, to), nil
	case MarkerPayment:
		if len(b) != Size {
			return Message{}, ErrWrongSize
		}
		amount := binary.BigEndian.Uint64(b[1:9])
		var corr [36]byte
		copy(corr[:], b[9:45])
		return Payment(amount, corr), nil
	case MarkerAck:
		return Ack(), nil
	default:
		return Message{}, ErrUnknownMarker
	}
}
