package game

import (
	"fmt"
	"math/rand"

	"tank-duel/internal/config"
)

// Change flags describe what the local tank did during one step
type Change uint16

const (
	ChangeIntents   Change = 1 << iota // Held controls differ from the previous step
	ChangeMoved                        // Position or heading moved
	ChangeFired                        // A projectile was launched
	ChangeDamaged                      // A replica projectile hit the local tank
	ChangeDied                         // The local tank died
	ChangeRespawned                    // The local tank respawned
)

// Has reports whether all flags in c are set
func (f Change) Has(c Change) bool {
	return f&c == c
}

// StepResult is what the session needs to build outgoing patches
type StepResult struct {
	Changes Change
	Events  []Event

	// Death is the local tank as it was when it died, captured before the
	// respawn in the same step overwrites it
	Death *TankState
}

// moveEpsilon ignores sub-pixel drift from friction when deciding to sync
const moveEpsilon = 0.01

// Simulation owns both tanks and the terrain for one endpoint.
// It is not safe for concurrent use; the session goroutine drives it.
type Simulation struct {
	Physics *Physics
	Terrain *Terrain
	Spawner *Spawner

	Local  *Tank
	Remote *Tank

	// OpponentOnline gates replica projectile updates
	OpponentOnline bool

	combat config.CombatConfig
	arena  config.ArenaConfig

	clock       float64
	tick        uint64
	lastIntents Intents
	snapshots   SnapshotStore
}

// NewSimulation creates a simulation where this endpoint controls slot.
// rng seeds spawn placement; nil uses a random seed.
func NewSimulation(cfg config.AppConfig, slot int, rng *rand.Rand) (*Simulation, error) {
	terrain, err := NewTerrain(DefaultWalls())
	if err != nil {
		return nil, fmt.Errorf("build terrain: %w", err)
	}

	s := &Simulation{
		Physics: NewPhysics(cfg.Physics, cfg.Arena),
		Terrain: terrain,
		Spawner: NewSpawner(cfg.Spawn, cfg.Arena, rng),
		combat:  cfg.Combat,
		arena:   cfg.Arena,
	}
	s.Reset(slot)
	return s, nil
}

// Reset rebuilds both tanks at their initial poses for the given local slot.
// Called whenever the relay (re)assigns a slot.
func (s *Simulation) Reset(slot int) {
	s.Local = NewTank(slot, true, s.combat)
	s.Remote = NewTank(Opponent(slot), false, s.combat)
	s.lastIntents = Intents{}
	s.publish()
}

// Clock returns simulated seconds since start
func (s *Simulation) Clock() float64 {
	return s.clock
}

// Tick returns the number of completed steps
func (s *Simulation) Tick() uint64 {
	return s.tick
}

// SetIntents replaces the local tank's held controls
func (s *Simulation) SetIntents(in Intents) {
	s.Local.Intents = in
}

// Step advances the simulation by dt seconds
func (s *Simulation) Step(dt float64) StepResult {
	var res StepResult
	s.clock += dt
	s.tick++

	local, remote := s.Local, s.Remote

	// 1. Spawn protection
	local.UpdateInvincibility(dt)
	remote.UpdateInvincibility(dt)

	if local.Intents != s.lastIntents {
		res.Changes |= ChangeIntents
		s.lastIntents = local.Intents
	}

	// 2. Local movement
	if local.Alive {
		before, heading := local.Position, local.Heading
		s.Physics.Rotate(local, dt)
		s.Physics.UpdateTank(local, dt)
		if local.Position.Dist(before) > moveEpsilon || local.Heading != heading {
			res.Changes |= ChangeMoved
		}
	}

	// 3. Local fire
	if local.Intents.Fire {
		if p := local.Fire(s.clock); p != nil {
			res.Changes |= ChangeFired
			res.Events = append(res.Events, NewEvent(EventTypeFire, s.tick, local.Slot, FirePayload{
				ProjectileID: p.ID,
				X:            p.Position.X,
				Y:            p.Position.Y,
				Heading:      p.Heading,
			}))
		}
	}

	// 4. Projectile flight
	s.advanceProjectiles(local, dt)
	if s.OpponentOnline {
		s.advanceProjectiles(remote, dt)
	}

	// 5. Tank-tank contact
	if TanksCollide(local, remote) {
		ResolveTankCollision(local, remote)
	}

	// 6. Hits
	res.Events = s.resolveHits(local, remote, &res, res.Events)
	if s.OpponentOnline {
		res.Events = s.resolveHits(remote, local, &res, res.Events)
	}

	// 7. Respawn
	if local.RespawnDue() {
		var avoid *Vector
		if s.OpponentOnline && remote.Alive {
			pos := remote.Position
			avoid = &pos
		}
		local.Respawn(s.Spawner.Point(avoid), s.Spawner.Heading())
		res.Changes |= ChangeRespawned
		res.Events = append(res.Events, NewEvent(EventTypeRespawn, s.tick, local.Slot, RespawnPayload{
			X:       local.Position.X,
			Y:       local.Position.Y,
			Heading: local.Heading,
		}))
	}

	s.publish()
	return res
}

// advanceProjectiles moves every projectile of owner, removing those that
// hit a wall, left the arena or expired
func (s *Simulation) advanceProjectiles(owner *Tank, dt float64) {
	kept := owner.Projectiles[:0]
	for _, p := range owner.Projectiles {
		from := p.Position
		to := from.Add(s.Physics.ProjectileStep(p, dt))
		if s.Terrain.SegmentBlocked(from, to) {
			continue
		}
		if s.Physics.UpdateProjectile(p, dt) {
			continue
		}
		if p.Expired(s.combat.BulletLifetime) {
			continue
		}
		kept = append(kept, p)
	}
	// Release references held past the new length
	for i := len(kept); i < len(owner.Projectiles); i++ {
		owner.Projectiles[i] = nil
	}
	owner.Projectiles = kept
}

// resolveHits tests shooter's projectiles against target. Only the local
// tank takes damage here; the replica's owner is authoritative over its
// health and reports hits back in a patch.
func (s *Simulation) resolveHits(shooter, target *Tank, res *StepResult, events []Event) []Event {
	for i := len(shooter.Projectiles) - 1; i >= 0; i-- {
		p := shooter.Projectiles[i]
		if !ProjectileHits(p, target) {
			continue
		}
		shooter.RemoveProjectile(p)
		if !target.Local {
			continue
		}

		_, killed := target.TakeDamage(s.combat.Damage, shooter)
		res.Changes |= ChangeDamaged
		events = append(events, NewEvent(EventTypeDamage, s.tick, target.Slot, DamagePayload{
			AttackerSlot: shooter.Slot,
			VictimSlot:   target.Slot,
			Damage:       s.combat.Damage,
			VictimHP:     target.Health,
		}))

		if killed {
			res.Changes |= ChangeDied
			death := target.State()
			res.Death = &death
			events = append(events, NewEvent(EventTypeKill, s.tick, shooter.Slot, KillPayload{
				KillerSlot:   shooter.Slot,
				VictimSlot:   target.Slot,
				KillerScore:  shooter.Score,
				VictimDeaths: target.Deaths,
			}))
			return events
		}
	}
	return events
}

// Snapshot returns the latest published state
func (s *Simulation) Snapshot() *Snapshot {
	return s.snapshots.Load()
}

// Snapshots exposes the store so other goroutines can read state safely
func (s *Simulation) Snapshots() *SnapshotStore {
	return &s.snapshots
}

func (s *Simulation) publish() {
	snap := &Snapshot{
		TickNumber:     s.tick,
		Clock:          s.clock,
		OpponentOnline: s.OpponentOnline,
		Local:          s.Local.State(),
		Remote:         s.Remote.State(),
		Arena:          Vec(s.arena.Width, s.arena.Height),
	}
	for _, t := range []*Tank{s.Local, s.Remote} {
		for _, p := range t.Projectiles {
			snap.Projectiles = append(snap.Projectiles, ProjectileSnapshot{
				Owner: p.Owner,
				X:     p.Position.X,
				Y:     p.Position.Y,
			})
		}
	}
	for _, w := range s.Terrain.Walls() {
		snap.Walls = append(snap.Walls, *w)
	}
	s.snapshots.Publish(snap)
}
