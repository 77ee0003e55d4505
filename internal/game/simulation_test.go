package game

import (
	"math"
	"math/rand"
	"testing"

	"tank-duel/internal/config"
)

const frame = 1.0 / 60

func newTestSimulation(t *testing.T, slot int) *Simulation {
	t.Helper()
	sim, err := NewSimulation(config.Default(), slot, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("NewSimulation failed: %v", err)
	}
	sim.OpponentOnline = true
	return sim
}

func TestStepFireEmitsChange(t *testing.T) {
	sim := newTestSimulation(t, Slot1)
	sim.SetIntents(Intents{Fire: true})

	res := sim.Step(frame)

	if !res.Changes.Has(ChangeFired) || !res.Changes.Has(ChangeIntents) {
		t.Errorf("Expected fired+intents flags, got %b", res.Changes)
	}
	if len(sim.Local.Projectiles) != 1 {
		t.Fatalf("Expected 1 projectile, got %d", len(sim.Local.Projectiles))
	}
	if len(res.Events) != 1 || res.Events[0].Type != EventTypeFire {
		t.Errorf("Expected a single fire event, got %+v", res.Events)
	}

	// Holding fire inside the cooldown does not shoot again
	res = sim.Step(frame)
	if res.Changes.Has(ChangeFired) {
		t.Error("Fired inside cooldown")
	}
}

// TestReplicaProjectileDamagesLocal verifies hits on the authoritative tank
func TestReplicaProjectileDamagesLocal(t *testing.T) {
	sim := newTestSimulation(t, Slot1)
	sim.Remote.Position = Vec(sim.Local.Position.X+30, sim.Local.Position.Y)
	sim.Remote.Heading = math.Pi
	sim.Remote.Launch()

	res := sim.Step(frame)

	if !res.Changes.Has(ChangeDamaged) {
		t.Fatalf("Expected damage flag, got %b", res.Changes)
	}
	if sim.Local.Health != 80 {
		t.Errorf("Expected health 80, got %d", sim.Local.Health)
	}
	if len(sim.Remote.Projectiles) != 0 {
		t.Error("Projectile should be consumed by the hit")
	}
}

// TestLethalHitRespawnsLocalOnce kills the local tank and checks the lifecycle
func TestLethalHitRespawnsLocalOnce(t *testing.T) {
	sim := newTestSimulation(t, Slot1)
	sim.Local.Health = 20
	sim.Remote.Position = Vec(sim.Local.Position.X+30, sim.Local.Position.Y)
	sim.Remote.Heading = math.Pi
	sim.Remote.Launch()

	res := sim.Step(frame)

	if !res.Changes.Has(ChangeDied) || !res.Changes.Has(ChangeRespawned) {
		t.Fatalf("Expected died+respawned flags, got %b", res.Changes)
	}
	if sim.Local.Deaths != 1 || sim.Remote.Score != 1 {
		t.Errorf("Expected deaths=1 score=1, got deaths=%d score=%d", sim.Local.Deaths, sim.Remote.Score)
	}
	if !sim.Local.Alive || !sim.Local.Invincible || sim.Local.Health != 100 {
		t.Errorf("Expected alive invincible full-health tank, got %+v", sim.Local.State())
	}

	res = sim.Step(frame)
	if res.Changes.Has(ChangeRespawned) {
		t.Error("Respawned twice")
	}
}

func TestLocalProjectileStopsAtWall(t *testing.T) {
	sim := newTestSimulation(t, Slot1)
	sim.Local.Position = Vec(450, 280)
	sim.Local.Heading = math.Pi / 2
	sim.Local.Launch()

	for i := 0; i < 10; i++ {
		sim.Step(frame)
	}

	if len(sim.Local.Projectiles) != 0 {
		t.Errorf("Expected projectile removed by centre wall, still at %v", sim.Local.Projectiles[0].Position)
	}
}

func TestReplicaProjectilesFrozenWhileOffline(t *testing.T) {
	sim := newTestSimulation(t, Slot1)
	sim.OpponentOnline = false
	p := sim.Remote.Launch()
	start := p.Position

	sim.Step(frame)

	if p.Position != start {
		t.Errorf("Replica projectile moved while opponent offline: %v -> %v", start, p.Position)
	}
}

func TestProjectileExpires(t *testing.T) {
	sim := newTestSimulation(t, Slot1)
	sim.Local.Position = Vec(50, 50)
	sim.Local.Heading = 0
	p := sim.Local.Launch()
	p.Age = 2.99

	sim.Step(frame)

	if len(sim.Local.Projectiles) != 0 {
		t.Error("Expected projectile to expire")
	}
}

func TestMovementFlag(t *testing.T) {
	sim := newTestSimulation(t, Slot2)

	res := sim.Step(frame)
	if res.Changes != 0 {
		t.Errorf("Idle tank reported changes %b", res.Changes)
	}

	sim.SetIntents(Intents{TurnLeft: true})
	res = sim.Step(frame)
	if !res.Changes.Has(ChangeMoved) || !res.Changes.Has(ChangeIntents) {
		t.Errorf("Expected moved+intents flags, got %b", res.Changes)
	}
}

func TestSnapshotPublishedEachStep(t *testing.T) {
	sim := newTestSimulation(t, Slot1)
	sim.Step(frame)
	sim.Step(frame)

	snap := sim.Snapshot()
	if snap == nil {
		t.Fatal("Expected a snapshot")
	}
	if snap.TickNumber != 2 {
		t.Errorf("Expected tick 2, got %d", snap.TickNumber)
	}
	if len(snap.Walls) != 12 {
		t.Errorf("Expected 12 walls, got %d", len(snap.Walls))
	}
	if snap.Local.Slot != Slot1 || snap.Remote.Slot != Slot2 {
		t.Errorf("Unexpected slots %d/%d", snap.Local.Slot, snap.Remote.Slot)
	}
}

// TestLocalProjectileDoesNotDamageReplica leaves replica health to its owner
func TestLocalProjectileDoesNotDamageReplica(t *testing.T) {
	sim := newTestSimulation(t, Slot1)
	sim.Remote.Position = Vec(sim.Local.Position.X+30, sim.Local.Position.Y)
	sim.Local.Launch()

	res := sim.Step(frame)

	if len(sim.Local.Projectiles) != 0 {
		t.Error("Expected projectile consumed by the replica")
	}
	if sim.Remote.Health != 100 || res.Changes.Has(ChangeDamaged) {
		t.Errorf("Replica health changed locally: %d", sim.Remote.Health)
	}
}
