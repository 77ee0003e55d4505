// Package relay pairs two duel endpoints and forwards state patches between
// them. The relay never interprets game state.
package relay

import (
	"errors"
	"sync"

	"tank-duel/internal/game"
)

// SlotCount is the number of participants a relay pairs
const SlotCount = 2

// ErrFull is returned when both slots are taken
var ErrFull = errors.New("relay full")

// Peer is a connected participant that can receive frames
type Peer interface {
	// Send queues a frame without blocking; false means it was dropped
	Send(data []byte) bool
}

// Occupancy summarizes which slots are held
type Occupancy int

const (
	OccupancyEmpty Occupancy = iota
	OccupancyPlayer1
	OccupancyPlayer2
	OccupancyFull
)

// String returns the name used by /api/slots
func (o Occupancy) String() string {
	switch o {
	case OccupancyPlayer1:
		return "player1"
	case OccupancyPlayer2:
		return "player2"
	case OccupancyFull:
		return "full"
	default:
		return "empty"
	}
}

// SlotTable maps slot 1 and 2 to their current peer.
// Assign and Release are atomic with respect to each other.
type SlotTable struct {
	mu    sync.Mutex
	peers [SlotCount + 1]Peer // index 0 unused
}

// NewSlotTable returns an empty table
func NewSlotTable() *SlotTable {
	return &SlotTable{}
}

// Assign gives p the lowest free slot. other is the peer already holding the
// opposite slot, or nil.
func (t *SlotTable) Assign(p Peer) (slot int, other Peer, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for s := game.Slot1; s <= game.Slot2; s++ {
		if t.peers[s] == nil {
			t.peers[s] = p
			return s, t.peers[game.Opponent(s)], nil
		}
	}
	return 0, nil, ErrFull
}

// Release frees slot if p still holds it. other is the remaining peer.
func (t *SlotTable) Release(slot int, p Peer) (released bool, other Peer) {
	if slot != game.Slot1 && slot != game.Slot2 {
		return false, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.peers[slot] != p {
		return false, nil
	}
	t.peers[slot] = nil
	return true, t.peers[game.Opponent(slot)]
}

// Peer returns the peer holding slot, or nil
func (t *SlotTable) Peer(slot int) Peer {
	if slot != game.Slot1 && slot != game.Slot2 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peers[slot]
}

// Occupied reports which slots are held
func (t *SlotTable) Occupied() (one, two bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peers[game.Slot1] != nil, t.peers[game.Slot2] != nil
}

// Occupancy returns the table summary
func (t *SlotTable) Occupancy() Occupancy {
	one, two := t.Occupied()
	switch {
	case one && two:
		return OccupancyFull
	case one:
		return OccupancyPlayer1
	case two:
		return OccupancyPlayer2
	default:
		return OccupancyEmpty
	}
}

// Count returns the number of held slots
func (t *SlotTable) Count() int {
	one, two := t.Occupied()
	n := 0
	if one {
		n++
	}
	if two {
		n++
	}
	return n
}
