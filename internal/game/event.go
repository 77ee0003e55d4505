package game

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeFire
	EventTypeDamage
	EventTypeKill
	EventTypeDeath
	EventTypeRespawn
	EventTypeConnect
	EventTypeOpponentJoin
	EventTypeOpponentLeave
)

// EventVersion for backwards compatibility of trace files
const EventVersion uint8 = 1

// Event is one entry in the combat trace
type Event struct {
	Version   uint8           `json:"version"`
	Type      EventType       `json:"type"`
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`  // Assigned by the EventLog
	TickNum   uint64          `json:"tickNum"`
	Slot      int             `json:"slot"`    // Tank the event is about
	Session   string          `json:"session"` // Client session that observed it
	Payload   json.RawMessage `json:"payload"`
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeFire:
		return "fire"
	case EventTypeDamage:
		return "damage"
	case EventTypeKill:
		return "kill"
	case EventTypeDeath:
		return "death"
	case EventTypeRespawn:
		return "respawn"
	case EventTypeConnect:
		return "connect"
	case EventTypeOpponentJoin:
		return "opponent_join"
	case EventTypeOpponentLeave:
		return "opponent_leave"
	default:
		return "unknown"
	}
}

// MarshalText lets trace files carry readable type names
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// FirePayload describes a launched projectile
type FirePayload struct {
	ProjectileID uint64  `json:"projectileId"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Heading      float64 `json:"heading"`
}

// DamagePayload contains hit details
type DamagePayload struct {
	AttackerSlot int `json:"attackerSlot"`
	VictimSlot   int `json:"victimSlot"`
	Damage       int `json:"damage"`
	VictimHP     int `json:"victimHp"`
}

// KillPayload contains kill details
type KillPayload struct {
	KillerSlot   int `json:"killerSlot"`
	VictimSlot   int `json:"victimSlot"`
	KillerScore  int `json:"killerScore"`
	VictimDeaths int `json:"victimDeaths"`
}

// RespawnPayload contains the chosen spawn point
type RespawnPayload struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
}

// ConnectPayload records the slot the relay assigned
type ConnectPayload struct {
	Callsign string `json:"callsign"`
	Slot     int    `json:"slot"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) json.RawMessage {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, tickNum uint64, slot int, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		Slot:      slot,
		Payload:   EncodePayload(payload),
	}
}
