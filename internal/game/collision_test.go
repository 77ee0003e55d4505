package game

import (
	"math"
	"testing"
)

// TestTankCollisionDistances covers the distance 5 / distance 25 scenario
func TestTankCollisionDistances(t *testing.T) {
	cases := []struct {
		name     string
		distance float64
		collide  bool
	}{
		{"overlapping", 5, true},
		{"touching", 20, false},
		{"apart", 25, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := testTank(Slot1, true)
			b := testTank(Slot2, false)
			a.Position = Vec(500, 400)
			b.Position = Vec(500+tc.distance, 400)

			if got := TanksCollide(a, b); got != tc.collide {
				t.Errorf("Expected collide=%v at distance %.0f, got %v", tc.collide, tc.distance, got)
			}
		})
	}
}

// TestDeadTanksDoNotCollide verifies dead tanks are inert
func TestDeadTanksDoNotCollide(t *testing.T) {
	a := testTank(Slot1, true)
	b := testTank(Slot2, false)
	b.Position = a.Position
	b.Die(nil)

	if TanksCollide(a, b) {
		t.Error("Dead tank should not collide")
	}
}

// TestProjectileHitRules verifies owner, invincible and dead targets are skipped
func TestProjectileHitRules(t *testing.T) {
	shooter := testTank(Slot1, true)
	target := testTank(Slot2, false)
	target.Position = Vec(300, 400)
	shooter.Position = Vec(290, 400)
	p := shooter.Launch()
	p.Position = target.Position

	if !ProjectileHits(p, target) {
		t.Fatal("Expected projectile to hit overlapping target")
	}
	if ProjectileHits(p, shooter) {
		t.Error("Projectile should never hit its owner")
	}

	target.Invincible = true
	if ProjectileHits(p, target) {
		t.Error("Invincible target should not be hit")
	}

	target.Invincible = false
	target.Die(nil)
	if ProjectileHits(p, target) {
		t.Error("Dead target should not be hit")
	}
}

// TestSegmentsIntersect covers crossing, disjoint and parallel segments
func TestSegmentsIntersect(t *testing.T) {
	cases := []struct {
		name           string
		p1, p2, p3, p4 Vector
		want           bool
	}{
		{"crossing", Vec(0, 0), Vec(10, 10), Vec(0, 10), Vec(10, 0), true},
		{"disjoint", Vec(0, 0), Vec(1, 1), Vec(5, 0), Vec(6, 1), false},
		{"parallel", Vec(0, 0), Vec(10, 0), Vec(0, 1), Vec(10, 1), false},
		{"collinear", Vec(0, 0), Vec(10, 0), Vec(5, 0), Vec(15, 0), false},
		{"touching endpoint", Vec(0, 0), Vec(5, 5), Vec(5, 5), Vec(10, 0), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SegmentsIntersect(tc.p1, tc.p2, tc.p3, tc.p4); got != tc.want {
				t.Errorf("Expected %v, got %v", tc.want, got)
			}
		})
	}
}

// TestSegmentHitsRect verifies a segment crossing a wall edge
func TestSegmentHitsRect(t *testing.T) {
	w := &Wall{X: 400, Y: 300, W: 200, H: 20}

	if !SegmentHitsRect(Vec(450, 290), Vec(450, 305), w) {
		t.Error("Segment entering the top edge should hit")
	}
	if SegmentHitsRect(Vec(450, 200), Vec(450, 290), w) {
		t.Error("Segment above the wall should miss")
	}
}

// TestResolveTankCollisionHeadOn exchanges half the closing speed
func TestResolveTankCollisionHeadOn(t *testing.T) {
	a := testTank(Slot1, true)
	b := testTank(Slot2, false)
	a.Position, b.Position = Vec(500, 400), Vec(515, 400)
	a.Velocity, b.Velocity = Vec(100, 0), Vec(-100, 0)

	ResolveTankCollision(a, b)

	// relV·n = 200, impulse 100
	if math.Abs(a.Velocity.X) > 1e-9 || math.Abs(b.Velocity.X) > 1e-9 {
		t.Errorf("Expected both stopped, got a=%v b=%v", a.Velocity, b.Velocity)
	}
}
