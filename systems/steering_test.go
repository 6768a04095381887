package systems

import (
	"math"
	"math/rand"
	"testing"
)

func TestFleeHeadingSingleThreat(t *testing.T) {
	heading, fallback, ok := FleeHeading([]Threat{{Dist: 3, Bearing: 0.3, Danger: 1}})
	if !ok || fallback {
		t.Fatalf("ok = %v, fallback = %v", ok, fallback)
	}
	if d := AngularDifference(heading, 0.3+math.Pi); d > 1e-6 {
		t.Errorf("heading = %v, want directly away from threat (off by %v)", heading, d)
	}
}

func TestFleeHeadingNoThreats(t *testing.T) {
	if _, _, ok := FleeHeading(nil); ok {
		t.Error("flee with no threats should fail")
	}
}

func TestFleeHeadingBetweenThreats(t *testing.T) {
	threats := []Threat{
		{Dist: 4, Bearing: 0, Danger: 1},
		{Dist: 4, Bearing: math.Pi, Danger: 1},
	}
	heading, _, ok := FleeHeading(threats)
	if !ok {
		t.Fatal("flee failed")
	}
	if AngularDifference(heading, math.Pi/2) > 1e-6 && AngularDifference(heading, 3*math.Pi/2) > 1e-6 {
		t.Errorf("heading = %v, want perpendicular to both threats", heading)
	}
}

func TestFleeHeadingSurroundedShrinks(t *testing.T) {
	var threats []Threat
	for k := 0; k < 8; k++ {
		threats = append(threats, Threat{Dist: 0.1, Bearing: float64(k) * math.Pi / 4, Danger: 1})
	}
	heading, fallback, ok := FleeHeading(threats)
	if !ok || fallback {
		t.Fatalf("ok = %v, fallback = %v; shrinking should open a gap", ok, fallback)
	}
	for _, th := range threats {
		if AngularDifference(heading, th.Bearing) < 0.1 {
			t.Errorf("heading %v runs toward threat at %v", heading, th.Bearing)
		}
	}
}

func TestFleeHeadingFallback(t *testing.T) {
	threats := []Threat{
		{Dist: 5, Bearing: 1, Danger: 1},
		{Dist: 0.5, Bearing: 2, Danger: 1},
	}
	heading, fallback, ok := fleeHeading(threats, 0)
	if !ok || !fallback {
		t.Fatalf("ok = %v, fallback = %v, want fallback", ok, fallback)
	}
	if d := AngularDifference(heading, 2+math.Pi); d > 1e-9 {
		t.Errorf("heading = %v, want away from nearest threat", heading)
	}
}

func TestFleeHeadingZeroDistance(t *testing.T) {
	heading, _, ok := FleeHeading([]Threat{{Dist: 0, Bearing: 0, Danger: 5}})
	if !ok || math.IsNaN(heading) {
		t.Fatalf("heading = %v, ok = %v", heading, ok)
	}
}

func TestDesirabilityField(t *testing.T) {
	nav := Nav{Angle: 1, Distance: 10}
	food := []Attractor{
		{Dist: 10, Bearing: 0, Value: 10, Nav: nav},
		{Dist: 5, Bearing: math.Pi, Value: 10, Nav: nav},
	}

	best, score := BestCandidate(food, food)
	if best != 1 {
		t.Errorf("best = %d, want nearer item", best)
	}
	if score <= 0 {
		t.Errorf("score = %v, want positive", score)
	}

	// A predator sitting behind the nearer item flips the choice.
	field := append([]Attractor{}, food...)
	field = append(field, Attractor{Dist: 6, Bearing: math.Pi, Value: -10, Nav: nav})
	if best, _ := BestCandidate(food, field); best != 0 {
		t.Errorf("best = %d, want the item away from the predator", best)
	}
}

func TestDesirabilityAllNegative(t *testing.T) {
	nav := Nav{Angle: 1, Distance: 1}
	food := []Attractor{{Dist: 2, Bearing: 0, Value: 1, Nav: nav}}
	field := append(food, Attractor{Dist: 1, Bearing: 0, Value: -50, Nav: nav})
	if best, _ := BestCandidate(food, field); best != -1 {
		t.Errorf("best = %d, want -1 when nothing is desirable", best)
	}
	if best, _ := BestCandidate(nil, nil); best != -1 {
		t.Errorf("best = %d with no candidates", best)
	}
}

func TestAttractorPullDecays(t *testing.T) {
	a := Attractor{Dist: 4, Bearing: 0, Value: 8, Nav: Nav{Angle: 0.5, Distance: 2}}
	if got := a.Pull(0); math.Abs(got-4) > eps {
		t.Errorf("Pull on bearing = %v, want 8 / (4/2) = 4", got)
	}
	if a.Pull(1) >= a.Pull(0) {
		t.Error("pull should fall off with angular offset")
	}
	if !(Nav{Angle: 1, Distance: 1}).Valid() || (Nav{Angle: 0, Distance: 1}).Valid() {
		t.Error("Nav.Valid wrong")
	}
}

func TestApproachSpeed(t *testing.T) {
	tests := []struct {
		dist, reach, max, want float64
	}{
		{10, 1, 5, 5},
		{3, 1, 5, 2},
		{0.5, 1, 5, 0},
	}
	for _, tt := range tests {
		if got := ApproachSpeed(tt.dist, tt.reach, tt.max); got != tt.want {
			t.Errorf("ApproachSpeed(%v, %v, %v) = %v, want %v", tt.dist, tt.reach, tt.max, got, tt.want)
		}
	}
}

func TestVonMisesConcentration(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	spread := func(kappa float64) float64 {
		var sum float64
		const n = 4000
		for i := 0; i < n; i++ {
			v := VonMises(rng, 1, kappa)
			if v < -math.Pi || v > math.Pi {
				t.Fatalf("VonMises returned %v outside [-π, π]", v)
			}
			d := AngularDifference(v, 1)
			sum += d * d
		}
		return sum / n
	}

	loose, tight := spread(0.5), spread(40)
	if tight >= loose {
		t.Errorf("higher kappa should concentrate: var(0.5) = %v, var(40) = %v", loose, tight)
	}
	// For large kappa the variance approaches 1/kappa.
	if math.Abs(tight-1.0/40) > 0.01 {
		t.Errorf("var(40) = %v, want ~%v", tight, 1.0/40)
	}
	// Zero concentration is uniform: E[d²] = π²/3.
	if u := spread(0); math.Abs(u-math.Pi*math.Pi/3) > 0.25 {
		t.Errorf("var(0) = %v, want ~%v", u, math.Pi*math.Pi/3)
	}
}

func TestPrioritize(t *testing.T) {
	tests := []struct {
		name    string
		desires Desires
		want    []Behavior
	}{
		{
			name:    "hungry",
			desires: Desires{Hunger: 0.9, FoodWeight: 10, Wander: 1, Flee: 0.5},
			want:    []Behavior{SeekFood, Wander, Flee},
		},
		{
			name:    "sated wanders",
			desires: Desires{Hunger: 0, FoodWeight: 10, Wander: 1, Flee: 0.5},
			want:    []Behavior{Wander, Flee, SeekFood},
		},
		{
			name:    "ties keep declaration order",
			desires: Desires{Hunger: 0.1, FoodWeight: 10, Wander: 1, Flee: 1, CanMate: true, AgeRatio: 0.5, MateWeight: 2},
			want:    []Behavior{SeekFood, Wander, Flee, SeekMate},
		},
		{
			name:    "mate only when eligible",
			desires: Desires{Wander: 1, AgeRatio: 1, MateWeight: 100},
			want:    []Behavior{Wander, SeekFood, Flee},
		},
		{
			name:    "old adult seeks mate",
			desires: Desires{Hunger: 0.2, FoodWeight: 1, Wander: 0.1, CanMate: true, AgeRatio: 0.8, MateWeight: 2},
			want:    []Behavior{SeekMate, SeekFood, Wander, Flee},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Prioritize(tt.desires.Score())
			if len(got) != len(tt.want) {
				t.Fatalf("Prioritize() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Prioritize() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}
