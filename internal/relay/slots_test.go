package relay

import (
	"errors"
	"sync"
	"testing"
)

type stubPeer struct{ name string }

func (stubPeer) Send([]byte) bool { return true }

func TestSlotTableAssignsLowestFree(t *testing.T) {
	table := NewSlotTable()
	a, b, c := &stubPeer{"a"}, &stubPeer{"b"}, &stubPeer{"c"}

	slot, other, err := table.Assign(a)
	if err != nil || slot != 1 || other != nil {
		t.Fatalf("Expected slot 1 alone, got slot=%d other=%v err=%v", slot, other, err)
	}
	slot, other, err = table.Assign(b)
	if err != nil || slot != 2 || other != a {
		t.Fatalf("Expected slot 2 paired with a, got slot=%d other=%v err=%v", slot, other, err)
	}
	if _, _, err := table.Assign(c); !errors.Is(err, ErrFull) {
		t.Fatalf("Expected ErrFull, got %v", err)
	}

	// Freeing slot 1 makes it the next assignment
	released, remaining := table.Release(1, a)
	if !released || remaining != b {
		t.Fatalf("Expected release with b remaining, got %v %v", released, remaining)
	}
	slot, other, _ = table.Assign(c)
	if slot != 1 || other != b {
		t.Errorf("Expected c in slot 1 paired with b, got slot=%d other=%v", slot, other)
	}
}

func TestSlotTableReleaseRequiresOwner(t *testing.T) {
	table := NewSlotTable()
	a, b := &stubPeer{"a"}, &stubPeer{"b"}
	table.Assign(a)

	if released, _ := table.Release(1, b); released {
		t.Error("Release by a non-owner should fail")
	}
	if released, _ := table.Release(3, a); released {
		t.Error("Release of an invalid slot should fail")
	}
	if table.Peer(1) != a {
		t.Error("Slot 1 should still hold a")
	}
}

func TestOccupancy(t *testing.T) {
	table := NewSlotTable()
	a, b := &stubPeer{"a"}, &stubPeer{"b"}

	steps := []struct {
		name string
		do   func()
		want Occupancy
	}{
		{"empty", func() {}, OccupancyEmpty},
		{"first", func() { table.Assign(a) }, OccupancyPlayer1},
		{"second", func() { table.Assign(b) }, OccupancyFull},
		{"first leaves", func() { table.Release(1, a) }, OccupancyPlayer2},
		{"second leaves", func() { table.Release(2, b) }, OccupancyEmpty},
	}
	for _, s := range steps {
		t.Run(s.name, func(t *testing.T) {
			s.do()
			if got := table.Occupancy(); got != s.want {
				t.Errorf("Expected %s, got %s", s.want, got)
			}
		})
	}
}

func TestConcurrentAssignNeverExceedsTwo(t *testing.T) {
	table := NewSlotTable()

	var wg sync.WaitGroup
	var mu sync.Mutex
	assigned := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := table.Assign(&stubPeer{}); err == nil {
				mu.Lock()
				assigned++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if assigned != 2 {
		t.Errorf("Expected exactly 2 assignments, got %d", assigned)
	}
	if table.Count() != 2 {
		t.Errorf("Expected count 2, got %d", table.Count())
	}
}
