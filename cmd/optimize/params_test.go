package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/critters/config"
	"github.com/pthm-cable/critters/telemetry"
)

func TestParamVectorRoundTrip(t *testing.T) {
	pv := NewParamVector()
	def := pv.DefaultVector()

	back := pv.Denormalize(pv.Normalize(def))
	for i := range def {
		if math.Abs(back[i]-def[i]) > 1e-9 {
			t.Errorf("%s: %v -> %v", pv.Specs[i].Name, def[i], back[i])
		}
	}

	for _, spec := range pv.Specs {
		if spec.Default < spec.Min || spec.Default > spec.Max {
			t.Errorf("%s default %v outside [%v, %v]", spec.Name, spec.Default, spec.Min, spec.Max)
		}
	}
}

func TestApplyToConfig(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	pv := NewParamVector()

	// Defaults match the shipped config.
	got := pv.ExtractFromConfig(cfg)
	for i, v := range pv.DefaultVector() {
		if math.Abs(got[i]-v) > 1e-9 {
			t.Errorf("%s: config has %v, default %v", pv.Specs[i].Name, got[i], v)
		}
	}

	values := make([]float64, pv.Dim())
	for i, spec := range pv.Specs {
		values[i] = spec.Max * 10 // clamped to Max
	}
	pv.ApplyToConfig(cfg, values)

	got = pv.ExtractFromConfig(cfg)
	for i, spec := range pv.Specs {
		if got[i] != spec.Max {
			t.Errorf("%s = %v, want clamped to %v", spec.Name, got[i], spec.Max)
		}
	}
	for _, f := range cfg.Food {
		if f.DropRate != 40 {
			t.Errorf("food %s drop_rate = %v, want 40", f.Name, f.DropRate)
		}
	}
}

func TestComputeQuality(t *testing.T) {
	steady := make([]telemetry.WindowStats, 10)
	swings := make([]telemetry.WindowStats, 10)
	for i := range steady {
		steady[i] = telemetry.WindowStats{Population: 50, EnergyP50: 0.5, Births: 5}
		pop := 10
		if i%2 == 0 {
			pop = 90
		}
		swings[i] = telemetry.WindowStats{Population: pop, EnergyP50: 0.5, Births: 5}
	}

	qs, qw := computeQuality(steady), computeQuality(swings)
	if qs <= qw {
		t.Errorf("steady quality %v should beat swinging %v", qs, qw)
	}
	if qs < 0 || qs > 1 || qw < 0 || qw > 1 {
		t.Errorf("quality outside [0, 1]: %v %v", qs, qw)
	}
	if q := computeQuality(steady[:2]); q != 0 {
		t.Errorf("warmup-only quality = %v, want 0", q)
	}
}
