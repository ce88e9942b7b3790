// Package habitat scores the blocks around an enclosure against a creature's
// elemental affinities and turns the score into a courtship duration.
package habitat

import (
	"math"

	"breedcraft.ai/internal/sim/catalogs"
	"breedcraft.ai/internal/sim/tuning"
)

// BlockGetter returns the block id at a world position.
type BlockGetter func(x, y, z int) string

type Tiers struct {
	Tier3Percent    int
	Tier2Percent    int
	Tier3Multiplier float64
	Tier2Multiplier float64
	Tier1Multiplier float64
}

func TiersFromTuning(h tuning.Habitat) Tiers {
	return Tiers{
		Tier3Percent:    h.Tier3Percent,
		Tier2Percent:    h.Tier2Percent,
		Tier3Multiplier: h.Tier3Multiplier,
		Tier2Multiplier: h.Tier2Multiplier,
		Tier1Multiplier: h.Tier1Multiplier,
	}
}

// Score counts favorable cells in the (2r+1)² grid around center on two
// layers: the ground layer one block below and the decoration layer at the
// center's own height. The center cell of the decoration layer always counts.
// A cell is favorable if any of the affinities lists its block.
func Score(get BlockGetter, center [3]int, radius int, affinities []string, cat catalogs.HabitatCatalog) (favorable, total int) {
	if radius < 0 {
		radius = 0
	}
	defs := make([]catalogs.HabitatDef, 0, len(affinities))
	for _, a := range affinities {
		if d, ok := cat.ByAffinity[a]; ok {
			defs = append(defs, d)
		}
	}
	cx, cy, cz := center[0], center[1], center[2]
	for dx := -radius; dx <= radius; dx++ {
		for dz := -radius; dz <= radius; dz++ {
			x, z := cx+dx, cz+dz
			total += 2

			ground := get(x, cy-1, z)
			for _, d := range defs {
				if d.IsBase(ground) {
					favorable++
					break
				}
			}

			if dx == 0 && dz == 0 {
				favorable++
				continue
			}
			decor := get(x, cy, z)
			for _, d := range defs {
				if d.IsDecor(decor) {
					favorable++
					break
				}
			}
		}
	}
	return favorable, total
}

// TierFor maps a favorable count onto 1..3. Thresholds are inclusive.
func TierFor(favorable, total int, t Tiers) int {
	if total <= 0 {
		return 1
	}
	switch {
	case favorable*100 >= t.Tier3Percent*total:
		return 3
	case favorable*100 >= t.Tier2Percent*total:
		return 2
	default:
		return 1
	}
}

func Multiplier(tier int, t Tiers) float64 {
	switch tier {
	case 3:
		return t.Tier3Multiplier
	case 2:
		return t.Tier2Multiplier
	default:
		return t.Tier1Multiplier
	}
}

// Duration scales the base duration for a tier, never below one tick.
func Duration(base, tier int, t Tiers) int {
	d := int(math.Round(float64(base) * Multiplier(tier, t)))
	if d < 1 {
		return 1
	}
	return d
}
