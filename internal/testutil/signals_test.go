package testutil

import (
	"math"
	"testing"
)

func TestDeterministicSine(t *testing.T) {
	s := DeterministicSine(1000, 48000, 0.5, 96)

	if len(s) != 96 {
		t.Fatalf("length = %d, want 96", len(s))
	}

	if s[0] != 0 {
		t.Fatalf("sine should start at zero, got %v", s[0])
	}

	if peak := MaxAbs(s); math.Abs(peak-0.5) > 1e-3 {
		t.Fatalf("peak = %v, want ~0.5", peak)
	}
}

func TestDeterministicNoiseReproducible(t *testing.T) {
	a := DeterministicNoise(42, 1.0, 128)
	b := DeterministicNoise(42, 1.0, 128)

	diff, err := MaxAbsDiff(a, b)
	if err != nil {
		t.Fatal(err)
	}

	if diff != 0 {
		t.Fatalf("same seed produced different noise, max diff %v", diff)
	}
}

func TestImpulse(t *testing.T) {
	s := Impulse(8, 3, 0.25)

	for i, v := range s {
		want := 0.0
		if i == 3 {
			want = 0.25
		}

		if v != want {
			t.Fatalf("index %d = %v, want %v", i, v, want)
		}
	}
}

func TestSineBurstRegions(t *testing.T) {
	s := SineBurst(1000, 48000, 1.0, 10, 48, 10)

	if len(s) != 68 {
		t.Fatalf("length = %d, want 68", len(s))
	}

	for i := 0; i < 10; i++ {
		if s[i] != 0 {
			t.Fatalf("lead sample %d not silent: %v", i, s[i])
		}
	}

	for i := 58; i < 68; i++ {
		if s[i] != 0 {
			t.Fatalf("tail sample %d not silent: %v", i, s[i])
		}
	}

	if MaxAbs(s[10:58]) == 0 {
		t.Fatal("burst region is silent")
	}
}
