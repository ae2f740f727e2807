package remote

import "fmt"

// wireMarshaler lets rawCodec stay agnostic of which message type it is
// serializing — Envelope and ack both implement it. Unmarshal handles the
// same two types by a type switch.
type wireMarshaler interface {
	Marshal() []byte
}

// rawCodec is a grpc encoding.Codec that defers entirely to a message's own
// Marshal method instead of reflecting over generated proto descriptors.
// Registered under a content-subtype so it never shadows the default
// "proto" codec for other services sharing a process.
type rawCodec struct{}

const codecName = "ensemble-raw"

func (rawCodec) Name() string { return codecName }

func (rawCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(wireMarshaler)
	if !ok {
		return nil, fmt.Errorf("remote: %T does not implement wireMarshaler", v)
	}
	return m.Marshal(), nil
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	switch t := v.(type) {
	case *Envelope:
		e, err := Unmarshal(data)
		if err != nil {
			return err
		}
		*t = e
		return nil
	case *ack:
		return nil
	default:
		return fmt.Errorf("remote: cannot unmarshal into %T", v)
	}
}

// ack is the empty final response the Tell stream sends on clean close.
type ack struct{}

func (ack) Marshal() []byte { return nil }
