package components

import (
	"math"
	"testing"
)

func TestFoodBite(t *testing.T) {
	tests := []struct {
		name      string
		amount    float64
		bite      float64
		wantTaken float64
		wantLeft  float64
	}{
		{"partial", 10, 4, 4, 6},
		{"exact", 10, 10, 10, 0},
		{"more than left", 3, 25, 3, 0},
		{"negative bite", 5, -1, 0, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Food{Amount: tt.amount, Original: tt.amount}
			got := f.Bite(tt.bite)
			if got != tt.wantTaken {
				t.Errorf("Bite() = %v, want %v", got, tt.wantTaken)
			}
			if f.Amount != tt.wantLeft {
				t.Errorf("Amount = %v, want %v", f.Amount, tt.wantLeft)
			}
			if f.Amount < 0 {
				t.Error("Amount went negative")
			}
		})
	}
}

func TestFoodDecay(t *testing.T) {
	f := Food{Amount: 10, Original: 20, Expiration: 10, DecayRemaining: 0.02, DecayOriginal: 0.001}
	if got, want := f.Decay(), 0.2+0.02; math.Abs(got-want) > 1e-12 {
		t.Errorf("Decay() = %v, want %v", got, want)
	}
	if f.Expired(5) {
		t.Error("fresh food reported expired")
	}
	f.Expiration = 5
	if !f.Expired(5) {
		t.Error("food past expiration not reported expired")
	}
}

func TestVitalsClamp(t *testing.T) {
	v := Vitals{MaxEnergy: 15}

	v.SetEnergy(100)
	if v.Energy != 15 {
		t.Errorf("Energy = %v, want clamp to 15", v.Energy)
	}
	v.AddEnergy(-20)
	if v.Energy != 0 {
		t.Errorf("Energy = %v, want clamp to 0", v.Energy)
	}
	v.SetEnergy(5)
	if got := v.Hunger(); math.Abs(got-2.0/3) > 1e-12 {
		t.Errorf("Hunger() = %v, want 2/3", got)
	}
	if got := v.Deficit(); got != 10 {
		t.Errorf("Deficit() = %v, want 10", got)
	}
}

func TestVitalsInfiniteEnergy(t *testing.T) {
	v := Vitals{Energy: math.Inf(1), MaxEnergy: math.Inf(1)}
	v.AddEnergy(-3)
	if !math.IsInf(v.Energy, 1) {
		t.Errorf("Energy = %v, want +Inf", v.Energy)
	}
	if v.Hunger() != 0 || v.Deficit() != 0 {
		t.Errorf("infinite store should have no hunger: %v %v", v.Hunger(), v.Deficit())
	}
}

func TestActionNames(t *testing.T) {
	if ActionCount() != NumActions {
		t.Fatalf("ActionNames has %d entries, want %d", ActionCount(), NumActions)
	}
	if ActionFlee.String() != "flee" {
		t.Errorf("ActionFlee.String() = %q", ActionFlee.String())
	}
	if Action(200).String() != "unknown" {
		t.Error("out of range action should be unknown")
	}
}
