package relay

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodeFragmentWireShape(t *testing.T) {
	payload := []byte(`{"type":"completion","completion":"Once upon a time","stop_reason":null,"stop":null}`)

	fragment, err := DecodeFragment(payload)
	if err != nil {
		t.Fatalf("DecodeFragment error: %v", err)
	}

	if fragment.Kind != "completion" {
		t.Fatalf("kind = %q, want %q", fragment.Kind, "completion")
	}
	if fragment.Text != "Once upon a time" {
		t.Fatalf("text = %q, want %q", fragment.Text, "Once upon a time")
	}
	if fragment.StopReason != nil {
		t.Fatalf("stop_reason = %v, want nil", *fragment.StopReason)
	}
}

func TestDecodeFragmentMalformed(t *testing.T) {
	if _, err := DecodeFragment([]byte(`{"type":`)); err == nil {
		t.Fatal("expected error for malformed payload")
	} else if got := CategoryFromError(err); got != ErrorProtocol {
		t.Fatalf("category = %q, want %q", got, ErrorProtocol)
	}
}

func TestEncodeFragmentRoundTrip(t *testing.T) {
	stopReason := "stop_sequence"
	in := Fragment{
		Kind:       "completion",
		Text:       " the end.",
		StopReason: &stopReason,
		Stop:       json.RawMessage(`"\n\nHuman:"`),
	}

	payload, err := EncodeFragment(in)
	if err != nil {
		t.Fatalf("EncodeFragment error: %v", err)
	}

	out, err := DecodeFragment(payload)
	if err != nil {
		t.Fatalf("DecodeFragment error: %v", err)
	}

	if out.Kind != in.Kind || out.Text != in.Text {
		t.Fatalf("round trip = %+v, want %+v", out, in)
	}
	if out.StopReason == nil || *out.StopReason != stopReason {
		t.Fatalf("stop_reason = %v, want %q", out.StopReason, stopReason)
	}
	if string(out.Stop) != string(in.Stop) {
		t.Fatalf("stop = %s, want %s", out.Stop, in.Stop)
	}
}

func TestEncodeFragmentEmitsNullStopFields(t *testing.T) {
	payload, err := EncodeFragment(Fragment{Kind: "completion", Text: "hi"})
	if err != nil {
		t.Fatalf("EncodeFragment error: %v", err)
	}

	wire := string(payload)
	if !strings.Contains(wire, `"stop_reason":null`) {
		t.Fatalf("wire = %s, want explicit null stop_reason", wire)
	}
	if !strings.Contains(wire, `"stop":null`) {
		t.Fatalf("wire = %s, want explicit null stop", wire)
	}
}
