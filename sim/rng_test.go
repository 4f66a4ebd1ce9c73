package sim

import (
	"testing"
)

// TestStream_Deterministic verifies two streams with the same key produce
// identical draw sequences.
func TestStream_Deterministic(t *testing.T) {
	a := NewStream(NewSimulationKey(42))
	b := NewStream(NewSimulationKey(42))

	for i := 0; i < 1000; i++ {
		if av, bv := a.Float64(), b.Float64(); av != bv {
			t.Fatalf("draw %d diverged: %v vs %v", i, av, bv)
		}
	}
}

// TestStream_DifferentKeysDiverge verifies different seeds give different
// sequences.
func TestStream_DifferentKeysDiverge(t *testing.T) {
	a := NewStream(NewSimulationKey(1))
	b := NewStream(NewSimulationKey(2))

	same := 0
	for i := 0; i < 100; i++ {
		if a.Float64() == b.Float64() {
			same++
		}
	}
	if same == 100 {
		t.Fatal("streams with different keys produced identical sequences")
	}
}

// TestIntBetween_Inclusive verifies both endpoints are reachable and nothing
// outside the range ever comes back.
func TestIntBetween_Inclusive(t *testing.T) {
	s := NewStream(NewSimulationKey(7))
	seen := map[int]bool{}
	for i := 0; i < 10000; i++ {
		v := s.IntBetween(1, 3)
		if v < 1 || v > 3 {
			t.Fatalf("IntBetween(1,3) returned %d", v)
		}
		seen[v] = true
	}
	for want := 1; want <= 3; want++ {
		if !seen[want] {
			t.Errorf("IntBetween(1,3) never returned %d", want)
		}
	}
}

func TestIntBetween_DegenerateRange(t *testing.T) {
	s := NewStream(NewSimulationKey(7))
	if v := s.IntBetween(5, 5); v != 5 {
		t.Errorf("IntBetween(5,5) = %d, want 5", v)
	}
	if v := s.IntBetween(5, 3); v != 5 {
		t.Errorf("IntBetween(5,3) = %d, want lo", v)
	}
}

// TestTriangular_Bounds verifies draws stay inside [lo, hi] and the mode is
// clamped into the range.
func TestTriangular_Bounds(t *testing.T) {
	s := NewStream(NewSimulationKey(11))
	for i := 0; i < 10000; i++ {
		v := s.Triangular(2, 10, 3)
		if v < 2 || v > 10 {
			t.Fatalf("Triangular(2,10,3) returned %v", v)
		}
	}
	// mode outside the range must not panic or escape the bounds
	for i := 0; i < 1000; i++ {
		v := s.Triangular(2, 10, 50)
		if v < 2 || v > 10 {
			t.Fatalf("Triangular with clamped mode returned %v", v)
		}
	}
}

func TestChance_Extremes(t *testing.T) {
	s := NewStream(NewSimulationKey(3))
	for i := 0; i < 100; i++ {
		if s.Chance(0) {
			t.Fatal("Chance(0) returned true")
		}
		if !s.Chance(1.0) {
			t.Fatal("Chance(1) returned false")
		}
	}
}

// TestWeightedIndex verifies sampling respects the weight masses.
func TestWeightedIndex(t *testing.T) {
	s := NewStream(NewSimulationKey(13))
	counts := make([]int, 3)
	n := 30000
	for i := 0; i < n; i++ {
		idx := s.WeightedIndex([]float64{0.1, 0.3, 0.6})
		counts[idx]++
	}
	if counts[0] > counts[1] || counts[1] > counts[2] {
		t.Errorf("weighted sampling out of order: %v", counts)
	}
	if counts[2] < n/2 {
		t.Errorf("heaviest weight drew only %d of %d", counts[2], n)
	}
}

func TestWeightedIndex_ZeroTotal(t *testing.T) {
	s := NewStream(NewSimulationKey(13))
	if idx := s.WeightedIndex([]float64{0, 0, 0}); idx != 2 {
		t.Errorf("zero-weight sampling = %d, want last index", idx)
	}
}

func TestPick_PanicsOnEmpty(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Pick on an empty slice did not panic")
		}
	}()
	s := NewStream(NewSimulationKey(1))
	Pick(s, []string{})
}
