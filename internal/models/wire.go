package models

import (
	"encoding/json"
	"fmt"
)

// WireVersion is the current cached-payload schema version. Decoders reject
// versions they do not know rather than guessing at field meanings.
const WireVersion = 1

// Envelope wraps every record stored in the cache so that malformed or
// foreign payloads surface as a typed decode error instead of silently
// unmarshaling into zero values.
type Envelope struct {
	Version int             `json:"v"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
}

// WireError reports a payload that could not be decoded.
type WireError struct {
	Type   string
	Reason string
}

func (e *WireError) Error() string {
	return fmt.Sprintf("wire decode %s: %s", e.Type, e.Reason)
}

// EncodeWire wraps v in a versioned envelope and marshals it.
func EncodeWire(payloadType string, v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", payloadType, err)
	}
	return json.Marshal(Envelope{Version: WireVersion, Type: payloadType, Data: data})
}

// DecodeWire unwraps an envelope of the expected type into v.
func DecodeWire(raw []byte, payloadType string, v interface{}) error {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &WireError{Type: payloadType, Reason: "malformed envelope"}
	}
	if env.Version != WireVersion {
		return &WireError{Type: payloadType, Reason: fmt.Sprintf("unsupported version %d", env.Version)}
	}
	if env.Type != payloadType {
		return &WireError{Type: payloadType, Reason: fmt.Sprintf("unexpected payload type %q", env.Type)}
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return &WireError{Type: payloadType, Reason: "malformed payload"}
	}
	return nil
}

// IsWireError reports whether err is a payload decode failure; drains treat
// these as skip-and-continue, never fatal.
func IsWireError(err error) bool {
	_, ok := err.(*WireError)
	return ok
}
