package game

import (
	"math"
	"testing"
)

func TestVectorAngle(t *testing.T) {
	tests := []struct {
		name string
		v    Vector
		want float64
	}{
		{"east", Vec(1, 0), 0},
		{"south on screen", Vec(0, 5), math.Pi / 2},
		{"west", Vec(-2, 0), math.Pi},
		{"north on screen", Vec(0, -3), -math.Pi / 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Angle(); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Expected %f, got %f", tt.want, got)
			}
			// FromAngle inverts Angle for unit vectors
			back := FromAngle(tt.v.Angle()).Scale(tt.v.Len())
			if back.Dist(tt.v) > 1e-9 {
				t.Errorf("Expected %v back, got %v", tt.v, back)
			}
		})
	}
}
