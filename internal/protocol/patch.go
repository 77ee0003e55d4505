package protocol

import (
	"fmt"

	"tank-duel/internal/game"
)

// Keys is the held-control map. Names match browser key codes.
// A nil field means the sender did not mention that key.
type Keys struct {
	KeyW  *bool `json:"KeyW,omitempty"`  // forward
	KeyS  *bool `json:"KeyS,omitempty"`  // backward
	KeyA  *bool `json:"KeyA,omitempty"`  // left
	KeyD  *bool `json:"KeyD,omitempty"`  // right
	KeyQ  *bool `json:"KeyQ,omitempty"`  // turn left
	KeyE  *bool `json:"KeyE,omitempty"`  // turn right
	Space *bool `json:"Space,omitempty"` // fire
}

// StatePatch is a partial update of the sender's tank.
// Pointer fields are optional; commands are one-shot flags.
type StatePatch struct {
	Key *Keys `json:"key,omitempty"`

	Health       *int     `json:"health,omitempty"`
	Deaths       *int     `json:"deaths,omitempty"`
	X            *float64 `json:"x,omitempty"`
	Y            *float64 `json:"y,omitempty"`
	Direction    *float64 `json:"direction,omitempty"`
	IsAlive      *bool    `json:"isAlive,omitempty"`
	IsInvincible *bool    `json:"isInvincible,omitempty"`

	Shoot      bool `json:"shoot,omitempty"`
	Die        bool `json:"die,omitempty"`
	Respawn    bool `json:"respawn,omitempty"`
	TakeDamage bool `json:"takeDamage,omitempty"`
}

func (p *StatePatch) validate() error {
	if p.Health != nil && *p.Health < 0 {
		return fmt.Errorf("negative health %d", *p.Health)
	}
	if p.Deaths != nil && *p.Deaths < 0 {
		return fmt.Errorf("negative deaths %d", *p.Deaths)
	}
	if p.Respawn && (p.X == nil || p.Y == nil) {
		return fmt.Errorf("respawn without position")
	}
	return nil
}

// KeysFromIntents builds a complete key map
func KeysFromIntents(in game.Intents) *Keys {
	return &Keys{
		KeyW:  Bool(in.Forward),
		KeyS:  Bool(in.Backward),
		KeyA:  Bool(in.Left),
		KeyD:  Bool(in.Right),
		KeyQ:  Bool(in.TurnLeft),
		KeyE:  Bool(in.TurnRight),
		Space: Bool(in.Fire),
	}
}

// Merge overlays the keys present in k onto in
func (k *Keys) Merge(in game.Intents) game.Intents {
	if k == nil {
		return in
	}
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&in.Forward, k.KeyW)
	set(&in.Backward, k.KeyS)
	set(&in.Left, k.KeyA)
	set(&in.Right, k.KeyD)
	set(&in.TurnLeft, k.KeyQ)
	set(&in.TurnRight, k.KeyE)
	set(&in.Fire, k.Space)
	return in
}

// Bool returns a pointer to v
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v
func Int(v int) *int { return &v }

// Float returns a pointer to v
func Float(v float64) *float64 { return &v }

// FirePatch announces a shot from the current pose
func FirePatch(t game.TankState) *StatePatch {
	return &StatePatch{
		Key:       KeysFromIntents(t.Intents),
		Shoot:     true,
		X:         Float(t.X),
		Y:         Float(t.Y),
		Direction: Float(t.Heading),
	}
}

// DamagePatch announces a hit on the sender's tank
func DamagePatch(t game.TankState) *StatePatch {
	return &StatePatch{
		Key:        KeysFromIntents(t.Intents),
		Health:     Int(t.Health),
		TakeDamage: true,
		X:          Float(t.X),
		Y:          Float(t.Y),
	}
}

// DiePatch announces the sender's death
func DiePatch(t game.TankState) *StatePatch {
	return &StatePatch{
		Key:    KeysFromIntents(t.Intents),
		Die:    true,
		Deaths: Int(t.Deaths),
		X:      Float(t.X),
		Y:      Float(t.Y),
	}
}

// RespawnPatch announces a respawn at the new position
func RespawnPatch(t game.TankState) *StatePatch {
	return &StatePatch{
		Key:          KeysFromIntents(t.Intents),
		Respawn:      true,
		Health:       Int(t.Health),
		Deaths:       Int(t.Deaths),
		X:            Float(t.X),
		Y:            Float(t.Y),
		Direction:    Float(t.Heading),
		IsAlive:      Bool(t.Alive),
		IsInvincible: Bool(t.Invincible),
	}
}

// SyncPatch carries the full continuous state
func SyncPatch(t game.TankState) *StatePatch {
	return &StatePatch{
		Key:          KeysFromIntents(t.Intents),
		Health:       Int(t.Health),
		Deaths:       Int(t.Deaths),
		X:            Float(t.X),
		Y:            Float(t.Y),
		Direction:    Float(t.Heading),
		IsAlive:      Bool(t.Alive),
		IsInvincible: Bool(t.Invincible),
	}
}
