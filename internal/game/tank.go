package game

import (
	"math"

	"tank-duel/internal/config"
)

// Slot numbers assigned by the relay
const (
	Slot1 = 1
	Slot2 = 2
)

// Opponent returns the other slot number
func Opponent(slot int) int {
	if slot == Slot1 {
		return Slot2
	}
	return Slot1
}

// InitialPose returns the fixed start position and heading for a slot
func InitialPose(slot int) (Vector, float64) {
	if slot == Slot2 {
		return Vec(800, 400), math.Pi
	}
	return Vec(200, 400), 0
}

// Intents is the set of held controls for one tank.
// Field order follows the wire key map (W S A D Q E Space).
type Intents struct {
	Forward   bool `json:"forward"`
	Backward  bool `json:"backward"`
	Left      bool `json:"left"`
	Right     bool `json:"right"`
	TurnLeft  bool `json:"turnLeft"`
	TurnRight bool `json:"turnRight"`
	Fire      bool `json:"fire"`
}

// Tank is one participant's vehicle. A Local tank is integrated by this
// process; a replica is only mutated by patches from its owner.
type Tank struct {
	Slot  int  `json:"slot"`
	Local bool `json:"local"`

	Position Vector  `json:"position"`
	Velocity Vector  `json:"velocity"`
	Heading  float64 `json:"heading"`
	Radius   float64 `json:"radius"`

	Health    int  `json:"health"`
	MaxHealth int  `json:"maxHealth"`
	Alive     bool `json:"alive"`

	Invincible      bool    `json:"invincible"`
	InvincibleTimer float64 `json:"-"`

	Deaths int `json:"deaths"`
	Score  int `json:"score"`

	Projectiles []*Projectile `json:"-"`
	Intents     Intents       `json:"intents"`

	lastFire       float64
	hasFired       bool
	respawnPending bool
	nextShotID     uint64

	combat config.CombatConfig
}

// NewTank creates a tank at its slot's initial pose
func NewTank(slot int, local bool, combat config.CombatConfig) *Tank {
	pos, heading := InitialPose(slot)
	return &Tank{
		Slot:      slot,
		Local:     local,
		Position:  pos,
		Heading:   heading,
		Radius:    combat.TankRadius,
		Health:    combat.MaxHealth,
		MaxHealth: combat.MaxHealth,
		Alive:     true,
		combat:    combat,
	}
}

// TakeDamage applies a hit. Returns true when the hit landed and true again
// when it was the killing blow. Invincible and dead tanks ignore damage.
func (t *Tank) TakeDamage(amount int, attacker *Tank) (hit, killed bool) {
	if !t.Alive || t.Invincible {
		return false, false
	}

	t.Health -= amount
	if t.Health < 0 {
		t.Health = 0
	}

	if t.Health == 0 {
		return true, t.Die(attacker)
	}
	return true, false
}

// Die moves the tank to Dead. Calling Die on a dead tank is a no-op, so a
// death can never be counted twice. The killer, if any, scores once.
func (t *Tank) Die(killer *Tank) bool {
	if !t.Alive {
		return false
	}

	t.Alive = false
	t.Health = 0
	t.Velocity = Vector{}
	t.Projectiles = nil
	t.Invincible = false
	t.InvincibleTimer = 0
	t.Deaths++
	t.respawnPending = true

	if killer != nil && killer != t {
		killer.Score++
	}
	return true
}

// Respawn revives the tank at pos with full health and spawn protection
func (t *Tank) Respawn(pos Vector, heading float64) {
	t.Alive = true
	t.Health = t.MaxHealth
	t.Position = pos
	t.Heading = heading
	t.Velocity = Vector{}
	t.Projectiles = nil
	t.Invincible = true
	t.InvincibleTimer = t.combat.InvincibleDuration
	t.respawnPending = false
}

// Revive marks a dead replica alive in place without touching its counters
func (t *Tank) Revive() {
	if t.Alive {
		return
	}
	t.Alive = true
	t.respawnPending = false
	if t.Health <= 0 {
		t.Health = t.MaxHealth
	}
}

// SetInvincible overwrites the invincibility flag from a patch
func (t *Tank) SetInvincible(on bool) {
	if on && !t.Invincible {
		t.InvincibleTimer = t.combat.InvincibleDuration
	}
	if !on {
		t.InvincibleTimer = 0
	}
	t.Invincible = on
}

// UpdateInvincibility counts down spawn protection
func (t *Tank) UpdateInvincibility(dt float64) {
	if !t.Invincible {
		return
	}
	t.InvincibleTimer -= dt
	if t.InvincibleTimer <= 0 {
		t.Invincible = false
		t.InvincibleTimer = 0
	}
}

// RespawnDue consumes the one-shot respawn lock.
// Only locally owned dead tanks ever respawn on their own.
func (t *Tank) RespawnDue() bool {
	if !t.Local || t.Alive || !t.respawnPending {
		return false
	}
	t.respawnPending = false
	return true
}

// CanFire reports whether the cooldown has elapsed at simulation time now
func (t *Tank) CanFire(now float64) bool {
	if !t.Alive {
		return false
	}
	return !t.hasFired || now-t.lastFire >= t.combat.ShootCooldown
}

// Fire launches a projectile if the cooldown allows it
func (t *Tank) Fire(now float64) *Projectile {
	if !t.CanFire(now) {
		return nil
	}
	t.lastFire = now
	t.hasFired = true
	return t.Launch()
}

// Launch appends a projectile at the muzzle without checking the cooldown.
// Replicas use it to replay shots their owner already validated.
func (t *Tank) Launch() *Projectile {
	if !t.Alive {
		return nil
	}

	t.nextShotID++
	muzzle := t.Position.Add(FromAngle(t.Heading).Scale(t.Radius))
	p := NewProjectile(t, t.nextShotID, muzzle, t.Heading, t.combat.BulletRadius)

	if limit := t.combat.MaxProjectiles; limit > 0 && len(t.Projectiles) >= limit {
		// Oldest shot goes first
		t.Projectiles = append(t.Projectiles[:0], t.Projectiles[1:]...)
	}
	t.Projectiles = append(t.Projectiles, p)
	return p
}

// RemoveProjectile drops a projectile by identity
func (t *Tank) RemoveProjectile(p *Projectile) {
	for i, other := range t.Projectiles {
		if other == p {
			t.Projectiles = append(t.Projectiles[:i], t.Projectiles[i+1:]...)
			return
		}
	}
}

// TankState is a read-only view of a tank used by snapshots and patches
type TankState struct {
	Slot        int     `json:"slot"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Heading     float64 `json:"direction"`
	Health      int     `json:"health"`
	Deaths      int     `json:"deaths"`
	Score       int     `json:"score"`
	Alive       bool    `json:"isAlive"`
	Invincible  bool    `json:"isInvincible"`
	Projectiles int     `json:"projectiles"`
	Intents     Intents `json:"intents"`
}

// State returns a copy of the observable fields
func (t *Tank) State() TankState {
	return TankState{
		Slot:        t.Slot,
		X:           t.Position.X,
		Y:           t.Position.Y,
		Heading:     t.Heading,
		Health:      t.Health,
		Deaths:      t.Deaths,
		Score:       t.Score,
		Alive:       t.Alive,
		Invincible:  t.Invincible,
		Projectiles: len(t.Projectiles),
		Intents:     t.Intents,
	}
}
