package protocol

import (
	"encoding/json"
	"fmt"
)

// rawEnvelope mirrors Message but keeps Payload as raw JSON so it can be
// decoded a second time once Type is known.
type rawEnvelope struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Encode serializes a message to a single JSON line, without the
// trailing newline (the framing writer appends that).
func Encode(m *Message) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode message: %w", err)
	}
	return b, nil
}

// Decode parses one JSON line into a Message whose Payload field holds
// the concrete, type-specific payload struct (never a bare map). Decode
// fails if the payload's shape does not match the schema for m.Type, so
// that a caller never has to separately validate the result.
func Decode(line []byte) (*Message, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("protocol: decode envelope: %w", err)
	}
	payload, err := decodePayload(raw.Type, raw.Payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		ID:        raw.ID,
		Type:      raw.Type,
		Timestamp: raw.Timestamp,
		Payload:   payload,
	}, nil
}

func decodePayload(t Type, raw json.RawMessage) (any, error) {
	// Payload is optional for ping/pong(-less) types; treat a missing or
	// null payload as an empty object so strict fields below still parse.
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	decodeStrict := func(v any) error {
		dec := json.NewDecoder(bytesReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			return &ErrSchemaMismatch{Type: t}
		}
		return nil
	}

	switch t {
	case TypeAuthRequest:
		var p AuthRequestPayload
		if err := decodeStrict(&p); err != nil {
			return nil, err
		}
		switch p.AuthType {
		case AuthNone, AuthBasic, AuthToken:
		default:
			return nil, &ErrSchemaMismatch{Type: t}
		}
		return p, nil
	case TypeAuthResponse:
		var p AuthResponsePayload
		if err := decodeStrict(&p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeInput:
		var p InputPayload
		if err := decodeStrict(&p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeOutput:
		var p OutputPayload
		if err := decodeStrict(&p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeError:
		var p ErrorPayload
		if err := decodeStrict(&p); err != nil {
			return nil, err
		}
		return p, nil
	case TypePing:
		var p struct{}
		if err := decodeStrict(&p); err != nil {
			return nil, err
		}
		return p, nil
	case TypePong:
		var p PongPayload
		if err := decodeStrict(&p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeDisconnect:
		var p DisconnectPayload
		if err := decodeStrict(&p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeCommandRequest, TypeCommandResponse:
		// Reserved for forward compatibility; payload shape is
		// unspecified, so accept any JSON object verbatim.
		var p map[string]any
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, &ErrSchemaMismatch{Type: t}
		}
		return p, nil
	default:
		return nil, &ErrSchemaMismatch{Type: t}
	}
}
