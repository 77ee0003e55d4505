package session

import (
	"testing"

	"tank-duel/internal/config"
	"tank-duel/internal/game"
	"tank-duel/internal/protocol"
)

func newPair() (replica, local *game.Tank) {
	combat := config.DefaultCombat()
	return game.NewTank(game.Slot2, false, combat), game.NewTank(game.Slot1, true, combat)
}

func decodePatch(t *testing.T, raw string) *protocol.StatePatch {
	t.Helper()
	msg, err := protocol.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode %s: %v", raw, err)
	}
	return msg.(*protocol.StatePatch)
}

// TestDiePatchOnAliveReplica is the die/deaths:3 scenario
func TestDiePatchOnAliveReplica(t *testing.T) {
	replica, local := newPair()
	p := decodePatch(t, `{"type":2,"die":true,"deaths":3,"x":10,"y":20}`)

	ApplyPatch(replica, local, p, 20)

	if replica.Alive {
		t.Error("Expected replica dead")
	}
	if replica.Deaths != 3 {
		t.Errorf("Expected deaths 3, got %d", replica.Deaths)
	}
	if replica.Position != game.Vec(10, 20) {
		t.Errorf("Expected position (10,20), got %v", replica.Position)
	}
	if local.Score != 1 {
		t.Errorf("Expected local credited with the kill, got score %d", local.Score)
	}
}

func TestDuplicateDieScoresOnce(t *testing.T) {
	replica, local := newPair()
	p := decodePatch(t, `{"type":2,"key":{},"die":true,"deaths":1,"x":10,"y":20}`)

	ApplyPatch(replica, local, p, 20)
	ApplyPatch(replica, local, p, 20)

	if replica.Deaths != 1 || local.Score != 1 {
		t.Errorf("Expected deaths=1 score=1, got deaths=%d score=%d", replica.Deaths, local.Score)
	}
}

func TestAbsentFieldsKeepValues(t *testing.T) {
	replica, local := newPair()
	replica.Health = 60
	replica.Heading = 1.5

	ApplyPatch(replica, local, decodePatch(t, `{"type":2,"key":{"KeyW":true},"x":300}`), 20)

	if replica.Health != 60 || replica.Heading != 1.5 {
		t.Errorf("Absent fields changed: health=%d heading=%f", replica.Health, replica.Heading)
	}
	if replica.Position.X != 300 || replica.Position.Y != 400 {
		t.Errorf("Expected x overwritten only, got %v", replica.Position)
	}
	if !replica.Intents.Forward {
		t.Error("Expected forward key applied")
	}
}

// TestDamagePatchUsesSenderHealth replays the hit then lets the reported health win
func TestDamagePatchUsesSenderHealth(t *testing.T) {
	replica, local := newPair()

	ApplyPatch(replica, local, decodePatch(t, `{"type":2,"key":{},"takeDamage":true,"health":60,"x":1,"y":2}`), 20)

	if replica.Health != 60 {
		t.Errorf("Expected sender health 60, got %d", replica.Health)
	}
	if !replica.Alive {
		t.Error("Non-lethal hit killed the replica")
	}
}

func TestLethalDamageThenDieCountsOnce(t *testing.T) {
	replica, local := newPair()
	replica.Health = 20

	ApplyPatch(replica, local, decodePatch(t, `{"type":2,"key":{},"takeDamage":true,"health":0,"x":1,"y":2}`), 20)
	ApplyPatch(replica, local, decodePatch(t, `{"type":2,"key":{},"die":true,"deaths":1,"x":1,"y":2}`), 20)

	if replica.Alive || replica.Deaths != 1 || local.Score != 1 {
		t.Errorf("Expected one death and one point, got alive=%v deaths=%d score=%d", replica.Alive, replica.Deaths, local.Score)
	}
}

// TestHealthZeroWithoutDieStillKills covers a lost die patch
func TestHealthZeroWithoutDieStillKills(t *testing.T) {
	replica, local := newPair()
	replica.Health = 60

	ApplyPatch(replica, local, decodePatch(t, `{"type":2,"key":{},"takeDamage":true,"health":0,"x":1,"y":2}`), 20)

	if replica.Alive {
		t.Error("Expected replica dead when the sender reports zero health")
	}
}

func TestRespawnPatchRevivesAtPosition(t *testing.T) {
	replica, local := newPair()
	replica.Die(nil)

	ApplyPatch(replica, local, decodePatch(t,
		`{"type":2,"key":{},"respawn":true,"health":100,"deaths":1,"x":700,"y":150,"direction":2,"isAlive":true,"isInvincible":true}`), 20)

	if !replica.Alive || !replica.Invincible {
		t.Fatalf("Expected alive invincible replica, got %+v", replica.State())
	}
	if replica.Position != game.Vec(700, 150) || replica.Heading != 2 {
		t.Errorf("Expected respawn at (700,150) heading 2, got %v heading %f", replica.Position, replica.Heading)
	}
	if replica.Health != 100 || replica.Deaths != 1 {
		t.Errorf("Unexpected counters health=%d deaths=%d", replica.Health, replica.Deaths)
	}
	if replica.RespawnDue() {
		t.Error("Replica respawn lock should be clear")
	}
}

func TestShootPatchAddsProjectile(t *testing.T) {
	replica, local := newPair()

	ApplyPatch(replica, local, decodePatch(t, `{"type":2,"key":{"Space":true},"shoot":true,"x":500,"y":500,"direction":0}`), 20)
	ApplyPatch(replica, local, decodePatch(t, `{"type":2,"key":{"Space":true},"shoot":true,"x":500,"y":500,"direction":0}`), 20)

	if len(replica.Projectiles) != 2 {
		t.Fatalf("Expected 2 projectiles without cooldown, got %d", len(replica.Projectiles))
	}
	if got := replica.Projectiles[0].Position; got != game.Vec(510, 500) {
		t.Errorf("Expected muzzle (510,500), got %v", got)
	}
}

func TestIsAliveFlags(t *testing.T) {
	replica, local := newPair()

	ApplyPatch(replica, local, decodePatch(t, `{"type":2,"key":{},"isAlive":false,"deaths":4}`), 20)
	if replica.Alive || replica.Deaths != 4 {
		t.Fatalf("Expected dead replica with 4 deaths, got alive=%v deaths=%d", replica.Alive, replica.Deaths)
	}
	if local.Score != 0 {
		t.Error("isAlive:false must not credit a kill")
	}

	ApplyPatch(replica, local, decodePatch(t, `{"type":2,"key":{},"isAlive":true,"health":100}`), 20)
	if !replica.Alive || replica.Health != 100 {
		t.Errorf("Expected revived replica, got alive=%v health=%d", replica.Alive, replica.Health)
	}
}

func TestInvincibleReplicaIgnoresReplayedDamage(t *testing.T) {
	replica, local := newPair()

	ApplyPatch(replica, local, decodePatch(t, `{"type":2,"key":{},"isInvincible":true,"takeDamage":true}`), 20)

	if replica.Health != 100 {
		t.Errorf("Expected no damage while invincible, got %d", replica.Health)
	}
}
