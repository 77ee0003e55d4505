package session

import (
	"tank-duel/internal/game"
	"tank-duel/internal/protocol"
)

// Outbox turns one step's local changes into patches.
// Event patches go out in lifecycle order so the replica replays them the
// way they happened; quiet movement ticks send one full sync.
func Outbox(current game.TankState, res game.StepResult) []*protocol.StatePatch {
	var patches []*protocol.StatePatch
	c := res.Changes

	// Damage and death describe the tank before any respawn in the same step
	before := current
	if res.Death != nil {
		before = *res.Death
	}

	if c.Has(game.ChangeFired) {
		patches = append(patches, protocol.FirePatch(before))
	}
	if c.Has(game.ChangeDamaged) {
		patches = append(patches, protocol.DamagePatch(before))
	}
	if c.Has(game.ChangeDied) {
		patches = append(patches, protocol.DiePatch(before))
	}
	if c.Has(game.ChangeRespawned) {
		patches = append(patches, protocol.RespawnPatch(current))
	}

	if len(patches) == 0 && (c.Has(game.ChangeMoved) || c.Has(game.ChangeIntents)) {
		patches = append(patches, protocol.SyncPatch(current))
	}
	return patches
}
