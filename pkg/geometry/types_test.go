package geometry

import (
	"math"
	"testing"
)

func TestPointDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b Point2D
		want float64
	}{
		{"same point", Point2D{1, 1}, Point2D{1, 1}, 0},
		{"horizontal", Point2D{0, 0}, Point2D{3, 0}, 3},
		{"vertical", Point2D{0, 0}, Point2D{0, 4}, 4},
		{"diagonal 3-4-5", Point2D{0, 0}, Point2D{3, 4}, 5},
		{"negative coords", Point2D{-1, -1}, Point2D{2, 3}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.Distance(tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Distance(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDistanceToSegment(t *testing.T) {
	tests := []struct {
		name    string
		p, a, b Point2D
		want    float64
	}{
		{"on segment", Point2D{5, 0}, Point2D{0, 0}, Point2D{10, 0}, 0},
		{"perpendicular above midpoint", Point2D{5, 3}, Point2D{0, 0}, Point2D{10, 0}, 3},
		{"beyond start clamps to endpoint", Point2D{-3, 4}, Point2D{0, 0}, Point2D{10, 0}, 5},
		{"beyond end clamps to endpoint", Point2D{13, 4}, Point2D{0, 0}, Point2D{10, 0}, 5},
		{"degenerate segment", Point2D{3, 4}, Point2D{0, 0}, Point2D{0, 0}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceToSegment(tt.p, tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("DistanceToSegment(%v, %v, %v) = %v, want %v", tt.p, tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestMidpoint(t *testing.T) {
	a := Point2D{0, 0}
	b := Point2D{10, 4}
	mid := a.Midpoint(b)
	if mid.X != 5 || mid.Y != 2 {
		t.Errorf("Midpoint = %v, want {5 2}", mid)
	}
}
