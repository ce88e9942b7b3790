package breeding

import (
	"breedcraft.ai/internal/sim/breeding/logic/habitat"
	"breedcraft.ai/internal/sim/tuning"
	"breedcraft.ai/internal/sim/world"
)

// ComputeDuration scores the enclosure's surroundings against the reference
// parent's affinities and returns the ambient phase length and quality tier.
func ComputeDuration(w *world.World, encPos world.Vec3i, ref *world.Creature, baseTicks int, h tuning.Habitat) (durationTicks, tier int) {
	tiers := habitat.TiersFromTuning(h)
	var affinities []string
	if ref != nil {
		if def, ok := w.Catalogs().Species.Lookup(ref.Species); ok {
			affinities = def.Types
		}
	}
	get := func(x, y, z int) string { return w.BlockID(world.Vec3i{X: x, Y: y, Z: z}) }
	fav, total := habitat.Score(get, encPos.ToArray(), h.Radius, affinities, w.Catalogs().Habitats)
	tier = habitat.TierFor(fav, total, tiers)
	return habitat.Duration(baseTicks, tier, tiers), tier
}
