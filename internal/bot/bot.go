// Package bot drives a tank without a keyboard. It stands in for the human
// player so two headless clients can duel through the relay.
package bot

import (
	"math"
	"math/rand"
	"time"

	"tank-duel/internal/game"
)

// Config tunes the bot's behaviour
type Config struct {
	PreferredRange float64 // Distance the bot tries to hold from the opponent
	MinRange       float64 // Closer than this the bot backs off
	FireRange      float64 // Maximum distance at which it shoots
	AimTolerance   float64 // Radians off target still counted as aimed
	TurnDeadband   float64 // Heading error ignored when steering
	WanderChance   float64 // Per-frame chance of picking a new wander heading
}

// DefaultConfig returns a bot that closes in and fires when aligned
func DefaultConfig() Config {
	return Config{
		PreferredRange: 250,
		MinRange:       80,
		FireRange:      600,
		AimTolerance:   0.08,
		TurnDeadband:   0.03,
		WanderChance:   0.02,
	}
}

// Bot implements session.Controller
type Bot struct {
	cfg    Config
	rng    *rand.Rand
	arena  game.Vector
	wander float64 // Heading picked while there is nobody to fight
}

// New creates a bot for an arena of the given size. rng may be nil.
func New(cfg Config, arena game.Vector, rng *rand.Rand) *Bot {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Bot{
		cfg:    cfg,
		rng:    rng,
		arena:  arena,
		wander: rng.Float64() * 2 * math.Pi,
	}
}

// Intents decides the controls for this frame
func (b *Bot) Intents(local, remote game.TankState, opponentOnline bool) game.Intents {
	if !local.Alive {
		return game.Intents{}
	}
	if !opponentOnline || !remote.Alive {
		return b.roam(local)
	}
	return b.engage(local, remote)
}

// engage faces the opponent, holds the preferred range and fires when aimed
func (b *Bot) engage(local, remote game.TankState) game.Intents {
	var in game.Intents

	pos := game.Vec(local.X, local.Y)
	to := game.Vec(remote.X, remote.Y).Sub(pos)
	dist := to.Len()
	diff := game.NormalizeAngle(to.Angle() - local.Heading)

	b.steer(&in, diff)

	switch {
	case dist < b.cfg.MinRange:
		// Too close - back up while turning
		in.Backward = true
	case dist > b.cfg.PreferredRange && math.Abs(diff) < math.Pi/2:
		// Out of range - close in once roughly facing the target
		in.Forward = true
	}

	aimed := math.Abs(diff) <= b.cfg.AimTolerance
	in.Fire = aimed && dist <= b.cfg.FireRange && !remote.Invincible
	return in
}

// roam drifts around the arena, pulled back toward the centre near the edges
func (b *Bot) roam(local game.TankState) game.Intents {
	var in game.Intents

	centre := b.arena.Scale(0.5)
	home := centre.Sub(game.Vec(local.X, local.Y))
	if home.Len() > math.Min(centre.X, centre.Y)*0.75 {
		b.wander = home.Angle()
	} else if b.rng.Float64() < b.cfg.WanderChance {
		b.wander = b.rng.Float64() * 2 * math.Pi
	}

	diff := game.NormalizeAngle(b.wander - local.Heading)
	b.steer(&in, diff)
	in.Forward = math.Abs(diff) < math.Pi/3
	return in
}

// steer turns toward a heading error; positive errors turn clockwise
func (b *Bot) steer(in *game.Intents, diff float64) {
	switch {
	case diff > b.cfg.TurnDeadband:
		in.TurnRight = true
	case diff < -b.cfg.TurnDeadband:
		in.TurnLeft = true
	}
}
