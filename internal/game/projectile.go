package game

// Projectile is a shot travelling along a fixed heading.
// Projectiles are owned by the tank that fired them and live in its list.
type Projectile struct {
	ID       uint64  `json:"id"`
	Owner    int     `json:"owner"` // Slot of the firing tank
	Position Vector  `json:"position"`
	Heading  float64 `json:"heading"`
	Radius   float64 `json:"radius"`
	Age      float64 `json:"age"` // Seconds since launch

	owner *Tank
}

// NewProjectile creates a projectile owned by t
func NewProjectile(t *Tank, id uint64, pos Vector, heading, radius float64) *Projectile {
	return &Projectile{
		ID:       id,
		Owner:    t.Slot,
		Position: pos,
		Heading:  heading,
		Radius:   radius,
		owner:    t,
	}
}

// Shooter returns the tank that fired the projectile
func (p *Projectile) Shooter() *Tank {
	return p.owner
}

// Expired reports whether the projectile outlived lifetime seconds.
// A non-positive lifetime disables expiry.
func (p *Projectile) Expired(lifetime float64) bool {
	return lifetime > 0 && p.Age >= lifetime
}
