package remote

import (
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestEnvelope_MarshalUnmarshalRoundTrip(t *testing.T) {
	in := Envelope{
		TargetSystem: "node-b",
		TargetID:     "root/worker",
		SenderSystem: "node-a",
		SenderID:     "future-123",
		Kind:         KindSystem,
		Payload:      []byte("hello"),
	}

	out, err := Unmarshal(in.Marshal())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.TargetSystem != in.TargetSystem || out.TargetID != in.TargetID ||
		out.SenderSystem != in.SenderSystem || out.SenderID != in.SenderID ||
		out.Kind != in.Kind || string(out.Payload) != string(in.Payload) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestEnvelope_ZeroValueFieldsOmitted(t *testing.T) {
	in := Envelope{TargetID: "a"}
	out, err := Unmarshal(in.Marshal())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.TargetID != "a" {
		t.Fatalf("TargetID = %q, want %q", out.TargetID, "a")
	}
	if out.Kind != KindUser || len(out.Payload) != 0 {
		t.Fatalf("unset fields must decode to their zero value, got %+v", out)
	}
}

func TestEnvelope_UnknownFieldsAreSkipped(t *testing.T) {
	// A future field (tag 99) appended after a known one must not break
	// decoding of the fields this version understands.
	in := Envelope{TargetID: "a"}
	buf := in.Marshal()
	buf = protowire.AppendTag(buf, 99, protowire.BytesType)
	buf = protowire.AppendString(buf, "from a future version")

	out, err := Unmarshal(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.TargetID != "a" {
		t.Fatalf("TargetID = %q, want %q", out.TargetID, "a")
	}
}
