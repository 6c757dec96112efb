package agent

// ExplorationRate returns the epsilon value after elapsed of total
// planned training steps: a linear slide from initial down to floor.
// It is a pure function so the schedule can be tested in isolation;
// it is non-increasing in elapsed and pins to the floor once the
// budget is spent.
func ExplorationRate(initial, floor float64, elapsed, total int) float64 {
	if total <= 0 || elapsed >= total {
		return floor
	}
	if elapsed < 0 {
		elapsed = 0
	}
	progress := float64(elapsed) / float64(total)
	eps := initial - (initial-floor)*progress
	if eps < floor {
		return floor
	}
	return eps
}
