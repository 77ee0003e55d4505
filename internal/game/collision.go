package game

// CirclesOverlap reports whether two circles intersect (strictly closer than r1+r2)
func CirclesOverlap(a Vector, ra float64, b Vector, rb float64) bool {
	return a.Dist(b) < ra+rb
}

// TanksCollide reports whether two living tanks overlap
func TanksCollide(a, b *Tank) bool {
	if a == nil || b == nil || !a.Alive || !b.Alive {
		return false
	}
	return CirclesOverlap(a.Position, a.Radius, b.Position, b.Radius)
}

// ProjectileHits reports whether p strikes target.
// Shots never hit their owner, a dead tank, or an invincible one.
func ProjectileHits(p *Projectile, target *Tank) bool {
	if target == nil || !target.Alive || target.Invincible {
		return false
	}
	if p.owner == target || p.Owner == target.Slot {
		return false
	}
	return CirclesOverlap(p.Position, p.Radius, target.Position, target.Radius)
}

// SegmentsIntersect tests p1→p2 against p3→p4 using the parametric form.
// Parallel segments (zero denominator) never intersect.
func SegmentsIntersect(p1, p2, p3, p4 Vector) bool {
	den := (p4.Y-p3.Y)*(p2.X-p1.X) - (p4.X-p3.X)*(p2.Y-p1.Y)
	if den == 0 {
		return false
	}

	ua := ((p4.X-p3.X)*(p1.Y-p3.Y) - (p4.Y-p3.Y)*(p1.X-p3.X)) / den
	ub := ((p2.X-p1.X)*(p1.Y-p3.Y) - (p2.Y-p1.Y)*(p1.X-p3.X)) / den

	return ua >= 0 && ua <= 1 && ub >= 0 && ub <= 1
}

// SegmentHitsRect reports whether a→b crosses any edge of w
func SegmentHitsRect(a, b Vector, w *Wall) bool {
	for _, e := range w.Edges() {
		if SegmentsIntersect(a, b, e[0], e[1]) {
			return true
		}
	}
	return false
}

// ResolveTankCollision exchanges momentum along the line between centres.
// Positions are left to the integrator.
func ResolveTankCollision(a, b *Tank) {
	n := FromAngle(b.Position.Sub(a.Position).Angle())

	rel := a.Velocity.Sub(b.Velocity)
	impulse := rel.Dot(n) * 0.5

	a.Velocity = a.Velocity.Sub(n.Scale(impulse))
	b.Velocity = b.Velocity.Add(n.Scale(impulse))
}
