// Package session runs one side of a duel: it owns the simulation, applies
// the opponent's patches to the replica and publishes local changes.
package session

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"time"

	"tank-duel/internal/config"
	"tank-duel/internal/game"
	"tank-duel/internal/protocol"
)

// maxFrameDelta caps dt after a stall so tanks cannot tunnel through the arena
const maxFrameDelta = 0.1

// Inbound is one item delivered by the transport
type Inbound struct {
	Frame        []byte // Raw relay frame, nil for status changes
	Connected    bool   // Transport (re)connected
	Disconnected bool   // Transport lost the relay
}

// Sender delivers frames to the relay without blocking.
// Returns false when the frame was dropped.
type Sender interface {
	Send(data []byte) bool
}

// Controller produces the local tank's intents each frame
type Controller interface {
	Intents(local, remote game.TankState, opponentOnline bool) game.Intents
}

// Metrics receives per-frame counters. All methods must be cheap.
type Metrics interface {
	RecordFrame(d time.Duration)
	RecordPatchSent(dropped bool)
	RecordInbound(kind string)
	UpdateDuel(local, remote game.TankState, opponentOnline bool)
}

// Idle is a Controller that never presses anything
type Idle struct{}

// Intents implements Controller
func (Idle) Intents(game.TankState, game.TankState, bool) game.Intents { return game.Intents{} }

type nopMetrics struct{}

func (nopMetrics) RecordFrame(time.Duration)                       {}
func (nopMetrics) RecordPatchSent(bool)                            {}
func (nopMetrics) RecordInbound(string)                            {}
func (nopMetrics) UpdateDuel(game.TankState, game.TankState, bool) {}

// Options configures a Session
type Options struct {
	Config     config.AppConfig
	Sender     Sender
	Controller Controller     // nil means Idle
	Metrics    Metrics        // nil disables metrics
	EventLog   *game.EventLog // nil disables the combat trace
	Rand       *rand.Rand     // spawn randomness, nil for a random seed
	Name       string         // callsign used in logs

	// MaxFrames stops Run after this many frames (0 = run until cancelled)
	MaxFrames uint64
}

// Session is the single goroutine that owns all duel state
type Session struct {
	cfg        config.AppConfig
	sim        *game.Simulation
	sender     Sender
	controller Controller
	metrics    Metrics
	events     *game.EventLog
	name       string
	maxFrames  uint64

	slot     int
	online   bool
	frames   uint64
	lastSent time.Time
}

// New creates a session. The simulation starts as slot 1 until the relay
// assigns a slot.
func New(opts Options) (*Session, error) {
	sim, err := game.NewSimulation(opts.Config, game.Slot1, opts.Rand)
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:        opts.Config,
		sim:        sim,
		sender:     opts.Sender,
		controller: opts.Controller,
		metrics:    opts.Metrics,
		events:     opts.EventLog,
		name:       opts.Name,
		maxFrames:  opts.MaxFrames,
	}
	if s.controller == nil {
		s.controller = Idle{}
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	return s, nil
}

// Simulation exposes the simulation for read-only inspection after Run
func (s *Session) Simulation() *game.Simulation {
	return s.sim
}

// Slot returns the assigned slot, 0 before assignment
func (s *Session) Slot() int {
	return s.slot
}

// OpponentOnline reports whether the other slot is occupied
func (s *Session) OpponentOnline() bool {
	return s.online
}

// Frames returns the number of frames processed
func (s *Session) Frames() uint64 {
	return s.frames
}

// Run drives the frame loop until ctx is cancelled or MaxFrames is reached.
// Inbound items are handled between frames so a patch always lands before
// the next step.
func (s *Session) Run(ctx context.Context, inbound <-chan Inbound) error {
	tickRate := s.cfg.Client.TickRate
	if tickRate <= 0 {
		tickRate = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()

	keepalive := s.cfg.Combat.SyncInterval
	if keepalive <= 0 {
		keepalive = time.Second
	}

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case in, ok := <-inbound:
			if !ok {
				inbound = nil
				continue
			}
			s.Handle(in)

		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			s.Frame(dt)

			if s.online && now.Sub(s.lastSent) >= keepalive {
				s.sendPatch(protocol.SyncPatch(s.sim.Local.State()))
			}

			if s.maxFrames > 0 && s.frames >= s.maxFrames {
				return nil
			}
		}
	}
}

// Frame runs one simulation step and publishes the resulting patches.
// Before a slot is assigned the duel is paused.
func (s *Session) Frame(dt float64) {
	s.frames++
	if s.slot == 0 {
		return
	}
	if dt > maxFrameDelta {
		dt = maxFrameDelta
	}
	if dt <= 0 {
		return
	}

	start := time.Now()
	local, remote := s.sim.Local.State(), s.sim.Remote.State()
	s.sim.SetIntents(s.controller.Intents(local, remote, s.online))

	res := s.sim.Step(dt)
	s.events.EmitAll(res.Events)

	if s.online {
		for _, p := range Outbox(s.sim.Local.State(), res) {
			s.sendPatch(p)
		}
	}

	if res.Changes.Has(game.ChangeDied) {
		log.Printf("💀 [%s] Destroyed (deaths: %d)", s.name, s.sim.Local.Deaths)
	}
	if res.Changes.Has(game.ChangeRespawned) {
		log.Printf("✨ [%s] Respawned at (%.0f, %.0f)", s.name, s.sim.Local.Position.X, s.sim.Local.Position.Y)
	}

	s.metrics.RecordFrame(time.Since(start))
	s.metrics.UpdateDuel(s.sim.Local.State(), s.sim.Remote.State(), s.online)
}

// Handle processes one transport item
func (s *Session) Handle(in Inbound) {
	switch {
	case in.Disconnected:
		s.metrics.RecordInbound("disconnect")
		if s.online {
			s.emit(game.EventTypeOpponentLeave, nil)
		}
		s.setOnline(false)
		log.Printf("⏳ [%s] Relay connection lost, waiting for opponent", s.name)
		return
	case in.Connected:
		s.metrics.RecordInbound("connect")
		log.Printf("🔌 [%s] Connected to relay", s.name)
		return
	}

	msg, err := protocol.Decode(in.Frame)
	if err != nil {
		s.metrics.RecordInbound("invalid")
		if errors.Is(err, protocol.ErrUnknownType) {
			log.Printf("⚠️ [%s] Ignoring frame: %v", s.name, err)
		} else {
			log.Printf("⚠️ [%s] Dropping malformed frame: %v", s.name, err)
		}
		return
	}

	switch m := msg.(type) {
	case protocol.SlotAssignment:
		s.metrics.RecordInbound("slot")
		s.assign(m.PlayerNo)

	case protocol.OpponentOnline:
		s.metrics.RecordInbound("opponent_online")
		if !s.online {
			log.Printf("⚔️ [%s] Opponent joined", s.name)
			s.emit(game.EventTypeOpponentJoin, nil)
		}
		s.setOnline(true)
		// Let the newcomer see us immediately
		s.sendPatch(protocol.SyncPatch(s.sim.Local.State()))

	case protocol.OpponentOffline:
		s.metrics.RecordInbound("opponent_offline")
		if s.online {
			log.Printf("👋 [%s] Opponent left", s.name)
			s.emit(game.EventTypeOpponentLeave, nil)
		}
		s.setOnline(false)

	case *protocol.StatePatch:
		s.metrics.RecordInbound("patch")
		ApplyPatch(s.sim.Remote, s.sim.Local, m, s.cfg.Combat.Damage)
	}
}

// assign adopts the slot the relay gave us. A different slot than before
// means a fresh duel; the same slot keeps the local tank as it was.
func (s *Session) assign(slot int) {
	if slot != s.slot {
		s.sim.Reset(slot)
	}
	s.slot = slot
	log.Printf("🎫 [%s] Assigned slot %d", s.name, slot)
	s.emit(game.EventTypeConnect, game.ConnectPayload{Callsign: s.name, Slot: slot})
}

func (s *Session) setOnline(on bool) {
	s.online = on
	s.sim.OpponentOnline = on
}

func (s *Session) sendPatch(p *protocol.StatePatch) {
	if s.sender == nil || s.slot == 0 {
		return
	}
	data, err := protocol.Encode(p)
	if err != nil {
		log.Printf("⚠️ [%s] Encode patch: %v", s.name, err)
		return
	}
	ok := s.sender.Send(data)
	s.metrics.RecordPatchSent(!ok)
	s.lastSent = time.Now()
}

func (s *Session) emit(t game.EventType, payload interface{}) {
	s.events.Emit(game.NewEvent(t, s.sim.Tick(), s.slot, payload))
}
