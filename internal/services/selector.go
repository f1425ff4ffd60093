package services

import "math/rand"

// Selector picks one response out of a candidate list. Candidates are never empty.
type Selector func(candidates []string) string

// Roller returns a value in [0,1) used for probabilistic decisions
type Roller func() float64

// RandomSelector picks uniformly at random
func RandomSelector(candidates []string) string {
	return candidates[rand.Intn(len(candidates))]
}

// RandomRoller draws from the shared math/rand source
func RandomRoller() float64 {
	return rand.Float64()
}

// IndexSelector always picks the candidate at i (clamped), for reproducible runs
func IndexSelector(i int) Selector {
	return func(candidates []string) string {
		if i < 0 {
			return candidates[0]
		}
		if i >= len(candidates) {
			return candidates[len(candidates)-1]
		}
		return candidates[i]
	}
}

// FixedRoller always returns v
func FixedRoller(v float64) Roller {
	return func() float64 { return v }
}
