package agent

import "testing"

func TestExplorationRateEndpoints(t *testing.T) {
	if got := ExplorationRate(0.90, 0.01, 0, 20000); got != 0.90 {
		t.Fatalf("rate at step 0 = %g, want 0.90", got)
	}
	if got := ExplorationRate(0.90, 0.01, 20000, 20000); got != 0.01 {
		t.Fatalf("rate at budget = %g, want 0.01", got)
	}
	if got := ExplorationRate(0.90, 0.01, 30000, 20000); got != 0.01 {
		t.Fatalf("rate past budget = %g, want 0.01", got)
	}
}

func TestExplorationRateMonotonic(t *testing.T) {
	prev := ExplorationRate(0.90, 0.01, 0, 20000)
	for step := 1; step <= 20000; step += 100 {
		eps := ExplorationRate(0.90, 0.01, step, 20000)
		if eps > prev {
			t.Fatalf("rate increased at step %d: %g > %g", step, eps, prev)
		}
		if eps < 0.01 {
			t.Fatalf("rate fell below floor at step %d: %g", step, eps)
		}
		prev = eps
	}
}

func TestExplorationRateMidpoint(t *testing.T) {
	got := ExplorationRate(0.90, 0.10, 5000, 10000)
	want := 0.50
	if diff := got - want; diff > 1e-12 || diff < -1e-12 {
		t.Fatalf("rate at midpoint = %g, want %g", got, want)
	}
}
