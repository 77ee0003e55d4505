package session

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"tank-duel/internal/config"
	"tank-duel/internal/game"
	"tank-duel/internal/protocol"
)

// recordingSender captures every frame sent to the relay
type recordingSender struct {
	mu     sync.Mutex
	frames [][]byte
	full   bool
}

func (r *recordingSender) Send(data []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return false
	}
	r.frames = append(r.frames, data)
	return true
}

func (r *recordingSender) patches(t *testing.T) []*protocol.StatePatch {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*protocol.StatePatch
	for _, f := range r.frames {
		msg, err := protocol.Decode(f)
		if err != nil {
			t.Fatalf("Session sent invalid frame %s: %v", f, err)
		}
		out = append(out, msg.(*protocol.StatePatch))
	}
	return out
}

// fireController holds the trigger down
type fireController struct{}

func (fireController) Intents(game.TankState, game.TankState, bool) game.Intents {
	return game.Intents{Fire: true}
}

func newTestSession(t *testing.T, sender Sender, ctrl Controller, maxFrames uint64) *Session {
	t.Helper()
	cfg := config.Default()
	cfg.Client.TickRate = 1000
	s, err := New(Options{
		Config:     cfg,
		Sender:     sender,
		Controller: ctrl,
		Rand:       rand.New(rand.NewSource(3)),
		Name:       "test",
		MaxFrames:  maxFrames,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func frame(m protocol.Message) Inbound {
	return Inbound{Frame: protocol.MustEncode(m)}
}

func TestSlotAssignmentResetsPose(t *testing.T) {
	s := newTestSession(t, nil, nil, 0)

	s.Handle(frame(protocol.SlotAssignment{PlayerNo: 2}))

	if s.Slot() != 2 {
		t.Fatalf("Expected slot 2, got %d", s.Slot())
	}
	local := s.Simulation().Local
	if local.Slot != game.Slot2 || local.Position != game.Vec(800, 400) {
		t.Errorf("Expected slot 2 tank at (800,400), got slot %d at %v", local.Slot, local.Position)
	}
	if s.Simulation().Remote.Slot != game.Slot1 {
		t.Error("Replica should hold slot 1")
	}
}

func TestReassignSameSlotKeepsState(t *testing.T) {
	s := newTestSession(t, nil, nil, 0)
	s.Handle(frame(protocol.SlotAssignment{PlayerNo: 1}))
	s.Simulation().Local.Deaths = 4

	s.Handle(Inbound{Disconnected: true})
	s.Handle(frame(protocol.SlotAssignment{PlayerNo: 1}))

	if s.Simulation().Local.Deaths != 4 {
		t.Error("Same-slot reconnect should keep the local tank")
	}
}

func TestFramePausedBeforeAssignment(t *testing.T) {
	sender := &recordingSender{}
	s := newTestSession(t, sender, fireController{}, 0)

	s.Frame(1.0 / 60)

	if s.Simulation().Tick() != 0 {
		t.Error("Simulation stepped without a slot")
	}
	if len(sender.frames) != 0 {
		t.Error("Sent frames without a slot")
	}
}

func TestOpponentOnlineTriggersSync(t *testing.T) {
	sender := &recordingSender{}
	s := newTestSession(t, sender, nil, 0)
	s.Handle(frame(protocol.SlotAssignment{PlayerNo: 1}))

	s.Handle(frame(protocol.OpponentOnline{}))

	if !s.OpponentOnline() || !s.Simulation().OpponentOnline {
		t.Fatal("Expected opponent online")
	}
	patches := sender.patches(t)
	if len(patches) != 1 || patches[0].IsAlive == nil || patches[0].X == nil {
		t.Fatalf("Expected one full sync patch, got %d", len(patches))
	}

	s.Handle(frame(protocol.OpponentOffline{}))
	if s.OpponentOnline() {
		t.Error("Expected opponent offline after type 3")
	}
}

func TestMalformedFramesAreDropped(t *testing.T) {
	s := newTestSession(t, nil, nil, 0)
	s.Handle(frame(protocol.SlotAssignment{PlayerNo: 1}))
	before := s.Simulation().Remote.State()

	s.Handle(Inbound{Frame: []byte(`{"type":2}`)})
	s.Handle(Inbound{Frame: []byte(`not json`)})
	s.Handle(Inbound{Frame: []byte(`{"type":7}`)})

	if s.Simulation().Remote.State() != before {
		t.Error("Invalid frames changed the replica")
	}
	if s.Slot() != 1 {
		t.Error("Invalid frames changed the slot")
	}
}

func TestPatchReachesReplica(t *testing.T) {
	s := newTestSession(t, nil, nil, 0)
	s.Handle(frame(protocol.SlotAssignment{PlayerNo: 1}))
	s.Handle(frame(protocol.OpponentOnline{}))

	s.Handle(Inbound{Frame: []byte(`{"type":2,"key":{},"die":true,"deaths":3,"x":10,"y":20}`)})

	remote := s.Simulation().Remote
	if remote.Alive || remote.Deaths != 3 {
		t.Errorf("Expected dead replica with 3 deaths, got alive=%v deaths=%d", remote.Alive, remote.Deaths)
	}
}

func TestKeylessDiePatchKillsReplica(t *testing.T) {
	s := newTestSession(t, nil, nil, 0)
	s.Handle(frame(protocol.SlotAssignment{PlayerNo: 1}))
	s.Handle(frame(protocol.OpponentOnline{}))
	s.Simulation().Remote.Intents.Forward = true

	s.Handle(Inbound{Frame: []byte(`{"type":2,"die":true,"deaths":3,"x":10,"y":20}`)})

	remote := s.Simulation().Remote
	if remote.Alive || remote.Deaths != 3 {
		t.Errorf("Expected dead replica with 3 deaths, got alive=%v deaths=%d", remote.Alive, remote.Deaths)
	}
	if remote.Position != game.Vec(10, 20) {
		t.Errorf("Expected replica at (10,20), got %v", remote.Position)
	}
	if !remote.Intents.Forward {
		t.Error("Expected held intents to survive a patch without a key map")
	}
	if s.Simulation().Local.Score != 1 {
		t.Errorf("Expected the kill credited locally, got score %d", s.Simulation().Local.Score)
	}
}

func TestFireSendsShootPatch(t *testing.T) {
	sender := &recordingSender{}
	s := newTestSession(t, sender, fireController{}, 0)
	s.Handle(frame(protocol.SlotAssignment{PlayerNo: 1}))
	s.Handle(frame(protocol.OpponentOnline{}))
	sender.frames = nil

	s.Frame(1.0 / 60)

	patches := sender.patches(t)
	if len(patches) != 1 {
		t.Fatalf("Expected 1 patch, got %d", len(patches))
	}
	if !patches[0].Shoot || patches[0].Direction == nil {
		t.Errorf("Expected shoot patch with direction, got %+v", patches[0])
	}
	if patches[0].Key.Space == nil || !*patches[0].Key.Space {
		t.Error("Expected Space held in key map")
	}
}

func TestOfflineOpponentGetsNoPatches(t *testing.T) {
	sender := &recordingSender{}
	s := newTestSession(t, sender, fireController{}, 0)
	s.Handle(frame(protocol.SlotAssignment{PlayerNo: 1}))

	s.Frame(1.0 / 60)

	if len(sender.frames) != 0 {
		t.Errorf("Expected no patches while alone, got %d", len(sender.frames))
	}
	if len(s.Simulation().Local.Projectiles) != 1 {
		t.Error("Local simulation should keep running while alone")
	}
}

// TestOutboxDeathAndRespawnOrder checks a lethal step narrates damage, death
// and respawn in order, with the pre-respawn state
func TestOutboxDeathAndRespawnOrder(t *testing.T) {
	sim, err := game.NewSimulation(config.Default(), game.Slot1, rand.New(rand.NewSource(5)))
	if err != nil {
		t.Fatal(err)
	}
	sim.OpponentOnline = true
	sim.Local.Health = 20
	sim.Remote.Position = game.Vec(230, 400)
	sim.Remote.Heading = 3.141592653589793
	sim.Remote.Launch()

	res := sim.Step(1.0 / 60)
	patches := Outbox(sim.Local.State(), res)

	if len(patches) != 3 {
		t.Fatalf("Expected damage, die, respawn patches, got %d", len(patches))
	}
	if !patches[0].TakeDamage || *patches[0].Health != 0 {
		t.Errorf("Expected lethal damage patch with health 0, got %+v", patches[0])
	}
	if !patches[1].Die || *patches[1].Deaths != 1 || *patches[1].X != 200 {
		t.Errorf("Expected die patch at the death position, got %+v", patches[1])
	}
	if !patches[2].Respawn || !*patches[2].IsAlive || !*patches[2].IsInvincible || *patches[2].Health != 100 {
		t.Errorf("Expected respawn patch, got %+v", patches[2])
	}
}

func TestOutboxQuietStepSendsNothing(t *testing.T) {
	tank := game.NewTank(game.Slot1, true, config.DefaultCombat())
	if got := Outbox(tank.State(), game.StepResult{}); len(got) != 0 {
		t.Errorf("Expected no patches, got %d", len(got))
	}
	if got := Outbox(tank.State(), game.StepResult{Changes: game.ChangeMoved}); len(got) != 1 || got[0].IsAlive == nil {
		t.Error("Expected a single full sync for movement")
	}
}

func TestRunStopsAtMaxFrames(t *testing.T) {
	s := newTestSession(t, &recordingSender{}, nil, 5)
	inbound := make(chan Inbound, 1)
	inbound <- frame(protocol.SlotAssignment{PlayerNo: 2})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.Run(ctx, inbound); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if s.Frames() != 5 {
		t.Errorf("Expected 5 frames, got %d", s.Frames())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s := newTestSession(t, nil, nil, 0)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, nil) }()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestKeepaliveSync(t *testing.T) {
	sender := &recordingSender{}
	cfg := config.Default()
	cfg.Client.TickRate = 200
	cfg.Combat.SyncInterval = 20 * time.Millisecond
	s, err := New(Options{Config: cfg, Sender: sender, MaxFrames: 40})
	if err != nil {
		t.Fatal(err)
	}

	inbound := make(chan Inbound, 2)
	inbound <- frame(protocol.SlotAssignment{PlayerNo: 1})
	inbound <- frame(protocol.OpponentOnline{})

	if err := s.Run(context.Background(), inbound); err != nil {
		t.Fatal(err)
	}

	// One sync on join plus keepalives while idle
	if got := len(sender.patches(t)); got < 2 {
		t.Errorf("Expected keepalive syncs, got %d patches", got)
	}
}
