package remote

import (
	"encoding/gob"
	"testing"
)

type greeting struct {
	Text string
}

func init() {
	gob.Register(greeting{})
}

func TestGobCodec_EncodeDecodeRoundTrip(t *testing.T) {
	var codec GobCodec

	data, err := codec.Encode(greeting{Text: "hello"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	g, ok := decoded.(greeting)
	if !ok || g.Text != "hello" {
		t.Fatalf("decoded = %#v, want greeting{hello}", decoded)
	}
}
