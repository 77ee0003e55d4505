// Package protocol defines the JSON frames exchanged between duel clients
// through the relay. Every frame is a JSON object with a numeric "type".
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies a frame kind
type MessageType int

const (
	TypeSlotAssignment  MessageType = 0 // relay -> client
	TypeOpponentOnline  MessageType = 1 // relay -> client
	TypeStatePatch      MessageType = 2 // client -> relay -> client
	TypeOpponentOffline MessageType = 3 // relay -> client
)

// MaxMessageSize caps a single frame. Patches are well under 1KB.
const MaxMessageSize = 16 * 1024

var (
	// ErrMalformed is returned for frames that are not valid JSON objects
	// or that fail schema validation
	ErrMalformed = errors.New("malformed message")
	// ErrUnknownType is returned for a well-formed frame with an unsupported type
	ErrUnknownType = errors.New("unknown message type")
)

// Message is implemented by every frame kind. The set is closed.
type Message interface {
	Type() MessageType
	isMessage()
}

// SlotAssignment tells a client which slot it holds
type SlotAssignment struct {
	PlayerNo int `json:"playerNo"`
}

// OpponentOnline tells a client the other slot is occupied
type OpponentOnline struct{}

// OpponentOffline tells a client the other slot was released
type OpponentOffline struct{}

func (SlotAssignment) Type() MessageType  { return TypeSlotAssignment }
func (OpponentOnline) Type() MessageType  { return TypeOpponentOnline }
func (OpponentOffline) Type() MessageType { return TypeOpponentOffline }
func (*StatePatch) Type() MessageType     { return TypeStatePatch }

func (SlotAssignment) isMessage()  {}
func (OpponentOnline) isMessage()  {}
func (OpponentOffline) isMessage() {}
func (*StatePatch) isMessage()     {}

// envelope reads just the type discriminator
type envelope struct {
	Type *MessageType `json:"type"`
}

// PeekType returns the frame type without decoding the body.
// The relay uses it to route frames it forwards verbatim.
func PeekType(data []byte) (MessageType, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == nil {
		return 0, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return *env.Type, nil
}

// Decode parses and validates a frame
func Decode(data []byte) (Message, error) {
	if len(data) > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit", ErrMalformed, len(data))
	}

	t, err := PeekType(data)
	if err != nil {
		return nil, err
	}

	switch t {
	case TypeSlotAssignment:
		var m SlotAssignment
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: slot assignment: %v", ErrMalformed, err)
		}
		if m.PlayerNo != 1 && m.PlayerNo != 2 {
			return nil, fmt.Errorf("%w: playerNo %d out of range", ErrMalformed, m.PlayerNo)
		}
		return m, nil

	case TypeOpponentOnline:
		return OpponentOnline{}, nil

	case TypeOpponentOffline:
		return OpponentOffline{}, nil

	case TypeStatePatch:
		var p StatePatch
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: state patch: %v", ErrMalformed, err)
		}
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return &p, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, t)
	}
}

// Encode serializes a message with its type discriminator
func Encode(m Message) ([]byte, error) {
	switch msg := m.(type) {
	case SlotAssignment:
		return json.Marshal(struct {
			Type     MessageType `json:"type"`
			PlayerNo int         `json:"playerNo"`
		}{TypeSlotAssignment, msg.PlayerNo})
	case OpponentOnline, OpponentOffline:
		return json.Marshal(struct {
			Type MessageType `json:"type"`
		}{msg.Type()})
	case *StatePatch:
		return json.Marshal(struct {
			Type MessageType `json:"type"`
			*StatePatch
		}{TypeStatePatch, msg})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, m)
	}
}

// MustEncode is Encode for the fixed relay control frames, which cannot fail
func MustEncode(m Message) []byte {
	data, err := Encode(m)
	if err != nil {
		panic(err)
	}
	return data
}
