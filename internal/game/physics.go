package game

import (
	"math"

	"tank-duel/internal/config"
)

// Physics integrates tank and projectile motion.
// All rates are per second so results are frame-rate independent.
type Physics struct {
	Acceleration  float64
	MaxSpeed      float64
	RotationSpeed float64 // degrees per second
	Friction      float64
	BulletSpeed   float64

	ArenaWidth  float64
	ArenaHeight float64
}

// NewPhysics builds the integrator from the centralized config
func NewPhysics(p config.PhysicsConfig, arena config.ArenaConfig) *Physics {
	return &Physics{
		Acceleration:  p.Acceleration,
		MaxSpeed:      p.MaxSpeed,
		RotationSpeed: p.RotationSpeed,
		Friction:      p.Friction,
		BulletSpeed:   p.BulletSpeed,
		ArenaWidth:    arena.Width,
		ArenaHeight:   arena.Height,
	}
}

// Rotate applies rotation intents to the tank heading.
// Rotation is independent of linear motion.
func (ph *Physics) Rotate(t *Tank, dt float64) {
	step := ph.RotationSpeed * (math.Pi / 180) * dt
	in := t.Intents
	if in.Left {
		t.Heading -= step
	}
	if in.Right {
		t.Heading += step
	}
	if in.TurnLeft {
		t.Heading -= step
	}
	if in.TurnRight {
		t.Heading += step
	}
}

// UpdateTank applies thrust, friction, the speed cap, and integrates position
func (ph *Physics) UpdateTank(t *Tank, dt float64) {
	heading := FromAngle(t.Heading)

	if t.Intents.Forward {
		t.Velocity = t.Velocity.Add(heading.Scale(ph.Acceleration * dt))
	}
	if t.Intents.Backward {
		t.Velocity = t.Velocity.Sub(heading.Scale(ph.Acceleration * dt))
	}

	t.Velocity = ph.ApplyFriction(t.Velocity)
	t.Velocity = ph.ClampSpeed(t.Velocity)

	t.Position = t.Position.Add(t.Velocity.Scale(dt))

	ph.sanitize(t)
	t.Position = ph.ClampToArena(t.Position, t.Radius)
}

// ApplyFriction damps the velocity once. Friction never increases speed.
func (ph *Physics) ApplyFriction(v Vector) Vector {
	return v.Scale(ph.Friction)
}

// ClampSpeed rescales v so its magnitude does not exceed MaxSpeed
func (ph *Physics) ClampSpeed(v Vector) Vector {
	if v.Len() > ph.MaxSpeed {
		return v.SetLength(ph.MaxSpeed)
	}
	return v
}

// ClampToArena hard-clamps a circle centre inside the arena (no bounce)
func (ph *Physics) ClampToArena(p Vector, radius float64) Vector {
	return Vector{
		X: math.Max(radius, math.Min(ph.ArenaWidth-radius, p.X)),
		Y: math.Max(radius, math.Min(ph.ArenaHeight-radius, p.Y)),
	}
}

// ProjectileStep returns the displacement of a projectile over dt.
// Projectiles never inherit the firer's velocity.
func (ph *Physics) ProjectileStep(p *Projectile, dt float64) Vector {
	return FromAngle(p.Heading).Scale(ph.BulletSpeed * dt)
}

// UpdateProjectile advances a projectile and returns true when it left the arena
func (ph *Physics) UpdateProjectile(p *Projectile, dt float64) bool {
	p.Position = p.Position.Add(ph.ProjectileStep(p, dt))
	p.Age += dt
	return ph.OutOfBounds(p.Position)
}

// OutOfBounds reports whether a point lies outside [0,W]x[0,H]
func (ph *Physics) OutOfBounds(p Vector) bool {
	return p.X < 0 || p.X > ph.ArenaWidth || p.Y < 0 || p.Y > ph.ArenaHeight
}

// sanitize resets runaway state so a bad patch or dt cannot poison the simulation
func (ph *Physics) sanitize(t *Tank) {
	if !t.Velocity.IsFinite() {
		t.Velocity = Vector{}
	}
	if !t.Position.IsFinite() {
		t.Position = Vec(ph.ArenaWidth/2, ph.ArenaHeight/2)
	}
	if math.IsNaN(t.Heading) || math.IsInf(t.Heading, 0) {
		t.Heading = 0
	}
}
