// Package genetics computes an offspring's stat potentials and temperament
// from its two parents and the items they hold.
package genetics

import "math/rand/v2"

const (
	NumStats = 6
	MaxIV    = 31

	baseInherited = 3
	bondInherited = 5
)

// NoStat marks a parent without an affinity item.
const NoStat = -1

type Parent struct {
	IVs         [NumStats]int
	Temperament string

	// Held item effects.
	Bond         bool
	Fixation     bool
	AffinityStat int
}

type Source int

const (
	FromRandom Source = iota
	FromA
	FromB
)

func (s Source) String() string {
	switch s {
	case FromA:
		return "a"
	case FromB:
		return "b"
	default:
		return "random"
	}
}

type Offspring struct {
	IVs         [NumStats]int
	Source      [NumStats]Source
	Temperament string
}

// InheritedCount is how many potentials come from the parents.
func InheritedCount(a, b Parent) int {
	if a.Bond || b.Bond {
		return bondInherited
	}
	return baseInherited
}

// Inherit draws an offspring. Affinity items claim their stat from the
// holder first; the remaining inherited slots go to random unclaimed stats
// with a coin flip per stat for the parent; everything else is rolled fresh.
func Inherit(a, b Parent, temperaments []string, rng *rand.Rand) Offspring {
	var out Offspring
	var claimed [NumStats]bool
	count := InheritedCount(a, b)
	n := 0

	claim := func(stat int, src Source) {
		if stat < 0 || stat >= NumStats || n >= count {
			return
		}
		if claimed[stat] {
			// Both parents want the same stat.
			if rng.IntN(2) == 1 {
				out.Source[stat] = src
			}
			return
		}
		claimed[stat] = true
		out.Source[stat] = src
		n++
	}
	claim(a.AffinityStat, FromA)
	claim(b.AffinityStat, FromB)

	for _, stat := range rng.Perm(NumStats) {
		if n >= count {
			break
		}
		if claimed[stat] {
			continue
		}
		claimed[stat] = true
		out.Source[stat] = FromA
		if rng.IntN(2) == 1 {
			out.Source[stat] = FromB
		}
		n++
	}

	for i := range out.IVs {
		switch {
		case !claimed[i]:
			out.Source[i] = FromRandom
			out.IVs[i] = rng.IntN(MaxIV + 1)
		case out.Source[i] == FromA:
			out.IVs[i] = clampIV(a.IVs[i])
		default:
			out.IVs[i] = clampIV(b.IVs[i])
		}
	}

	out.Temperament = inheritTemperament(a, b, temperaments, rng)
	return out
}

func inheritTemperament(a, b Parent, temperaments []string, rng *rand.Rand) string {
	switch {
	case a.Fixation && b.Fixation:
		if rng.IntN(2) == 0 {
			return a.Temperament
		}
		return b.Temperament
	case a.Fixation:
		return a.Temperament
	case b.Fixation:
		return b.Temperament
	}
	if len(temperaments) == 0 {
		return a.Temperament
	}
	return temperaments[rng.IntN(len(temperaments))]
}

func clampIV(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxIV {
		return MaxIV
	}
	return v
}
