package upstream

import "math/rand/v2"

// MaxSeed is the exclusive upper bound of generated seeds.
const MaxSeed = 100000

// SeedSource draws sampling seeds. *rand.Rand from math/rand/v2 satisfies it.
type SeedSource interface {
	IntN(n int) int
}

// globalSeeds draws from the process-wide generator, which is safe for
// concurrent use.
type globalSeeds struct{}

func (globalSeeds) IntN(n int) int {
	return rand.IntN(n)
}
