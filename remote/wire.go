// Package remote is the pluggable transport seam referenced by spec §1/§6:
// a RemoteProcess that looks exactly like any other ensemble.Process to the
// core, delegating actual delivery to a gRPC endpoint writer. The core
// itself never imports this package, and its registry resolves every
// address whose system field does not match the local System to DeadLetter;
// a RemoteProcess from EndpointManager.ProcessFor is sent through directly.
package remote

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// MessageKind distinguishes a wire envelope's user/system lane, mirroring
// the two queues a local Mailbox keeps (spec §3).
type MessageKind uint8

const (
	KindUser MessageKind = iota
	KindSystem
)

// Envelope is the wire format for one message crossing a remote boundary.
// Payload is an opaque, already-serialized message body — this package
// never needs to know the concrete Go type, only the MessageCodec a caller
// supplies (see codec_message.go) does.
type Envelope struct {
	TargetSystem string
	TargetID     string
	SenderSystem string
	SenderID     string
	Kind         MessageKind
	Payload      []byte
}

// field tags for the hand-rolled protobuf wire encoding below. There is no
// .proto file and no generated code: the message shape is simple enough
// that encoding it directly with protowire's low-level tag/varint/bytes
// primitives (spec §6's "protobuf's low-level protowire package encodes the
// wire envelope") avoids a protoc build step for a seam the core itself
// never calls.
const (
	fieldTargetSystem protowire.Number = 1
	fieldTargetID     protowire.Number = 2
	fieldSenderSystem protowire.Number = 3
	fieldSenderID     protowire.Number = 4
	fieldKind         protowire.Number = 5
	fieldPayload      protowire.Number = 6
)

// Marshal encodes e using the standard protobuf wire format: each field as
// a (tag, varint|length-delimited) pair, fields omitted when zero-valued
// (proto3 semantics).
func (e Envelope) Marshal() []byte {
	var buf []byte
	if e.TargetSystem != "" {
		buf = protowire.AppendTag(buf, fieldTargetSystem, protowire.BytesType)
		buf = protowire.AppendString(buf, e.TargetSystem)
	}
	if e.TargetID != "" {
		buf = protowire.AppendTag(buf, fieldTargetID, protowire.BytesType)
		buf = protowire.AppendString(buf, e.TargetID)
	}
	if e.SenderSystem != "" {
		buf = protowire.AppendTag(buf, fieldSenderSystem, protowire.BytesType)
		buf = protowire.AppendString(buf, e.SenderSystem)
	}
	if e.SenderID != "" {
		buf = protowire.AppendTag(buf, fieldSenderID, protowire.BytesType)
		buf = protowire.AppendString(buf, e.SenderID)
	}
	if e.Kind != KindUser {
		buf = protowire.AppendTag(buf, fieldKind, protowire.VarintType)
		buf = protowire.AppendVarint(buf, uint64(e.Kind))
	}
	if len(e.Payload) > 0 {
		buf = protowire.AppendTag(buf, fieldPayload, protowire.BytesType)
		buf = protowire.AppendBytes(buf, e.Payload)
	}
	return buf
}

// Unmarshal decodes buf produced by Marshal. Unknown fields are skipped so
// the wire format can grow without breaking older readers.
func Unmarshal(buf []byte) (Envelope, error) {
	var e Envelope
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return Envelope{}, fmt.Errorf("remote: invalid envelope tag: %w", protowire.ParseError(n))
		}
		buf = buf[n:]
		switch num {
		case fieldTargetSystem:
			v, n := protowire.ConsumeString(buf)
			if n < 0 {
				return Envelope{}, fmt.Errorf("remote: invalid target_system: %w", protowire.ParseError(n))
			}
			e.TargetSystem = v
			buf = buf[n:]
		case fieldTargetID:
			v, n := protowire.ConsumeString(buf)
			if n < 0 {
				return Envelope{}, fmt.Errorf("remote: invalid target_id: %w", protowire.ParseError(n))
			}
			e.TargetID = v
			buf = buf[n:]
		case fieldSenderSystem:
			v, n := protowire.ConsumeString(buf)
			if n < 0 {
				return Envelope{}, fmt.Errorf("remote: invalid sender_system: %w", protowire.ParseError(n))
			}
			e.SenderSystem = v
			buf = buf[n:]
		case fieldSenderID:
			v, n := protowire.ConsumeString(buf)
			if n < 0 {
				return Envelope{}, fmt.Errorf("remote: invalid sender_id: %w", protowire.ParseError(n))
			}
			e.SenderID = v
			buf = buf[n:]
		case fieldKind:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return Envelope{}, fmt.Errorf("remote: invalid kind: %w", protowire.ParseError(n))
			}
			e.Kind = MessageKind(v)
			buf = buf[n:]
		case fieldPayload:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return Envelope{}, fmt.Errorf("remote: invalid payload: %w", protowire.ParseError(n))
			}
			e.Payload = append([]byte(nil), v...)
			buf = buf[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return Envelope{}, fmt.Errorf("remote: invalid unknown field %d: %w", num, protowire.ParseError(n))
			}
			buf = buf[n:]
		}
	}
	return e, nil
}
