package systems

import (
	"math"
	"math/rand"
	"testing"
)

const eps = 1e-9

func TestAngularDifference(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		want float64
	}{
		{"same", 1.2, 1.2, 0},
		{"quarter", 0, math.Pi / 2, math.Pi / 2},
		{"opposite", 0, math.Pi, math.Pi},
		{"across seam", -math.Pi + 0.01, math.Pi - 0.01, 0.02},
		{"multiple turns", 0.5, 0.5 + 6*math.Pi, 0},
		{"negative", -0.25, 0.25, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AngularDifference(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("AngularDifference(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestAngularDifferenceProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10000; i++ {
		a := (rng.Float64() - 0.5) * 20
		b := (rng.Float64() - 0.5) * 20

		ab := AngularDifference(a, b)
		ba := AngularDifference(b, a)
		if ab < 0 || ab > math.Pi {
			t.Fatalf("AngularDifference(%v, %v) = %v outside [0, π]", a, b, ab)
		}
		if math.Abs(ab-ba) > eps {
			t.Fatalf("not symmetric: %v vs %v", ab, ba)
		}
		if AngularDifference(a, a) != 0 {
			t.Fatalf("AngularDifference(%v, %v) != 0", a, a)
		}
	}
}

func TestWrapAngle(t *testing.T) {
	for _, phi := range []float64{-7, -math.Pi, -1e-18, 0, 1, 2 * math.Pi, 13} {
		got := WrapAngle(phi)
		if got < 0 || got >= 2*math.Pi {
			t.Errorf("WrapAngle(%v) = %v outside [0, 2π)", phi, got)
		}
		if AngularDifference(got, phi) > eps {
			t.Errorf("WrapAngle(%v) = %v changed the direction", phi, got)
		}
	}
}

func TestPolarRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 1000; i++ {
		x := (rng.Float64() - 0.5) * 200
		y := (rng.Float64() - 0.5) * 200
		if x == 0 && y == 0 {
			continue
		}
		rho, phi := CartesianToPolar(x, y)
		if phi <= -math.Pi || phi > math.Pi {
			t.Fatalf("phi = %v outside (-π, π]", phi)
		}
		gx, gy := PolarToCartesian(rho, phi)
		if math.Abs(gx-x) > 1e-9 || math.Abs(gy-y) > 1e-9 {
			t.Fatalf("round trip (%v, %v) -> (%v, %v)", x, y, gx, gy)
		}
	}
}

func TestRelativeBearing(t *testing.T) {
	if got := RelativeBearing(1, 1, 1, 5); math.Abs(got-math.Pi/2) > eps {
		t.Errorf("bearing north = %v, want π/2", got)
	}
	if got := Distance(0, 0, 3, 4); got != 5 {
		t.Errorf("Distance = %v, want 5", got)
	}
	rho, phi := RelativePolar(2, 2, 0, 2)
	if rho != 2 || math.Abs(phi-math.Pi) > eps {
		t.Errorf("RelativePolar = (%v, %v), want (2, π)", rho, phi)
	}
}
