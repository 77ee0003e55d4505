package game

import (
	"math"
	"math/rand"

	"tank-duel/internal/config"
)

// Spawner picks respawn points away from the opponent
type Spawner struct {
	cfg    config.SpawnConfig
	width  float64
	height float64
	rng    *rand.Rand
}

// NewSpawner creates a spawner. rng may be nil, in which case a
// time-seeded source is used; tests pass a fixed seed.
func NewSpawner(cfg config.SpawnConfig, arena config.ArenaConfig, rng *rand.Rand) *Spawner {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Spawner{
		cfg:    cfg,
		width:  arena.Width,
		height: arena.Height,
		rng:    rng,
	}
}

// Point samples up to MaxAttempts positions inside the margin and returns the
// first at least MinDistance from avoid. With no opponent the first sample
// wins. After exhausting attempts it falls back to the arena centre.
func (s *Spawner) Point(avoid *Vector) Vector {
	for i := 0; i < s.cfg.MaxAttempts; i++ {
		p := Vec(
			s.cfg.Margin+s.rng.Float64()*(s.width-2*s.cfg.Margin),
			s.cfg.Margin+s.rng.Float64()*(s.height-2*s.cfg.Margin),
		)
		if avoid == nil || p.Dist(*avoid) >= s.cfg.MinDistance {
			return p
		}
	}
	return Vec(s.width/2, s.height/2)
}

// Heading returns a uniformly random heading in [0, 2π)
func (s *Spawner) Heading() float64 {
	return s.rng.Float64() * 2 * math.Pi
}
