package relay

import (
	"encoding/json"
)

// Fragment is one incremental unit of generated story text plus optional
// stop metadata, as produced by the inference stream.
type Fragment struct {
	Kind       string          `json:"type"`
	Text       string          `json:"completion"`
	StopReason *string         `json:"stop_reason"`
	Stop       json.RawMessage `json:"stop"`
}

// DecodeFragment deserializes one raw frame payload into a Fragment.
//
// Malformed payloads are protocol violations; the caller is expected to
// abort the pipeline rather than skip the frame.
func DecodeFragment(payload []byte) (Fragment, error) {
	var fragment Fragment
	if err := json.Unmarshal(payload, &fragment); err != nil {
		return Fragment{}, WrapError(ErrorProtocol, "decode fragment", err)
	}

	return fragment, nil
}

// EncodeFragment serializes a Fragment into the wire form pushed to the
// client connection. Round-tripping through DecodeFragment is lossless.
func EncodeFragment(fragment Fragment) ([]byte, error) {
	payload, err := json.Marshal(fragment)
	if err != nil {
		return nil, WrapError(ErrorWorkerFault, "encode fragment", err)
	}

	return payload, nil
}
