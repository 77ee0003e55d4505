package game

import "math"

// Vector is an immutable 2D vector. All operations return a new value.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vec is shorthand for Vector{x, y}
func Vec(x, y float64) Vector {
	return Vector{X: x, Y: y}
}

// FromAngle returns the unit vector pointing along angle (radians)
func FromAngle(angle float64) Vector {
	return Vector{X: math.Cos(angle), Y: math.Sin(angle)}
}

func (v Vector) Add(o Vector) Vector {
	return Vector{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vector) Sub(o Vector) Vector {
	return Vector{X: v.X - o.X, Y: v.Y - o.Y}
}

func (v Vector) Scale(f float64) Vector {
	return Vector{X: v.X * f, Y: v.Y * f}
}

func (v Vector) Dot(o Vector) float64 {
	return v.X*o.X + v.Y*o.Y
}

// Len returns the magnitude
func (v Vector) Len() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// Dist returns the distance between two points
func (v Vector) Dist(o Vector) float64 {
	return v.Sub(o).Len()
}

// SetLength rescales v to the given magnitude.
// A zero vector has no direction, so both components are set to length.
func (v Vector) SetLength(length float64) Vector {
	l := v.Len()
	if l == 0 {
		return Vector{X: length, Y: length}
	}
	return v.Scale(length / l)
}

// Angle returns the heading of v in radians
func (v Vector) Angle() float64 {
	return math.Atan2(v.Y, v.X)
}

// IsFinite reports whether both components are real numbers
func (v Vector) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

// NormalizeAngle normalizes an angle to the range [-π, π].
// Uses O(1) modulo arithmetic instead of while loops.
func NormalizeAngle(angle float64) float64 {
	const twoPi = 2 * math.Pi
	angle = math.Mod(angle, twoPi)
	if angle < 0 {
		angle += twoPi
	}
	if angle > math.Pi {
		angle -= twoPi
	}
	return angle
}
