package game

import (
	"sync/atomic"
	"time"
)

// ProjectileSnapshot is an immutable projectile position
type ProjectileSnapshot struct {
	Owner int     `json:"owner"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Snapshot is an immutable copy of the duel taken after a step.
// Uses value types so readers never see the simulation mutate.
type Snapshot struct {
	Sequence       uint64    `json:"sequence"`
	Timestamp      time.Time `json:"timestamp"`
	TickNumber     uint64    `json:"tickNumber"`
	Clock          float64   `json:"clock"`
	OpponentOnline bool      `json:"opponentOnline"`

	Arena       Vector               `json:"arena"`
	Local       TankState            `json:"local"`
	Remote      TankState            `json:"remote"`
	Projectiles []ProjectileSnapshot `json:"projectiles"`
	Walls       []Wall               `json:"walls"`
}

// SnapshotStore publishes snapshots from the simulation goroutine to
// any number of readers (renderer, debug handlers) without locking
type SnapshotStore struct {
	latest   atomic.Pointer[Snapshot]
	sequence atomic.Uint64
}

// Publish stamps and stores snap as the latest state
func (st *SnapshotStore) Publish(snap *Snapshot) {
	snap.Sequence = st.sequence.Add(1)
	snap.Timestamp = time.Now()
	st.latest.Store(snap)
}

// Load returns the latest snapshot, or nil before the first publish
func (st *SnapshotStore) Load() *Snapshot {
	return st.latest.Load()
}
