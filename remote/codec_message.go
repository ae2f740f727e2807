package remote

import (
	"bytes"
	"encoding/gob"
)

// MessageCodec (de)serializes an actor message into the Envelope's opaque
// Payload. The envelope framing itself is protobuf (wire.go); what goes
// inside it is a separate concern — this module ships a gob-based default
// since gob needs no schema registration beyond gob.Register and no
// third-party (de)serializer appears anywhere in the pack for per-message
// payloads (only for the envelope, which protobuf already covers). A
// project with cross-language remote peers would supply its own MessageCodec.
type MessageCodec interface {
	Encode(message any) ([]byte, error)
	Decode(data []byte) (any, error)
}

// GobCodec is the default MessageCodec. Concrete message types must be
// registered with gob.Register before they cross the wire in either
// direction.
type GobCodec struct{}

func (GobCodec) Encode(message any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&message); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (GobCodec) Decode(data []byte) (any, error) {
	var message any
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&message); err != nil {
		return nil, err
	}
	return message, nil
}
