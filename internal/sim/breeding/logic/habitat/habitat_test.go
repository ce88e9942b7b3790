package habitat

import (
	"testing"

	"breedcraft.ai/internal/sim/catalogs"
	"breedcraft.ai/internal/sim/tuning"
)

func loadHabitats(t *testing.T) catalogs.HabitatCatalog {
	t.Helper()
	c, err := catalogs.Load("../../../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return c.Habitats
}

func TestTierFor_InclusiveBoundaries(t *testing.T) {
	tiers := TiersFromTuning(tuning.Defaults().Habitat)
	cases := []struct {
		fav, total, want int
	}{
		{75, 100, 3},
		{74, 100, 2},
		{50, 100, 2},
		{49, 100, 1},
		{6, 8, 3},
		{4, 8, 2},
		{3, 8, 1},
		{0, 0, 1},
	}
	for _, tc := range cases {
		if got := TierFor(tc.fav, tc.total, tiers); got != tc.want {
			t.Fatalf("TierFor(%d,%d)=%d want %d", tc.fav, tc.total, got, tc.want)
		}
	}
}

func TestDuration(t *testing.T) {
	tiers := TiersFromTuning(tuning.Defaults().Habitat)
	cases := []struct {
		base, tier, want int
	}{
		{2400, 3, 1200},
		{2400, 2, 1800},
		{2400, 1, 2400},
		{3, 3, 2},
		{1, 3, 1},
		{0, 1, 1},
	}
	for _, tc := range cases {
		if got := Duration(tc.base, tc.tier, tiers); got != tc.want {
			t.Fatalf("Duration(%d,%d)=%d want %d", tc.base, tc.tier, got, tc.want)
		}
	}
}

func TestScore_CountsBothLayers(t *testing.T) {
	cat := loadHabitats(t)
	center := [3]int{10, 64, 10}
	grid := map[[3]int]string{}
	get := func(x, y, z int) string {
		if b, ok := grid[[3]int{x, y, z}]; ok {
			return b
		}
		if y < 64 {
			return "STONE"
		}
		return "AIR"
	}

	fav, total := Score(get, center, 1, []string{"grass"}, cat)
	if total != 18 || fav != 1 {
		t.Fatalf("bare pen: fav=%d total=%d", fav, total)
	}

	for dx := -1; dx <= 1; dx++ {
		for dz := -1; dz <= 1; dz++ {
			grid[[3]int{10 + dx, 63, 10 + dz}] = "GRASS"
		}
	}
	grid[[3]int{11, 64, 10}] = "FERN"
	grid[[3]int{9, 64, 10}] = "FERN"
	fav, _ = Score(get, center, 1, []string{"grass"}, cat)
	if fav != 12 {
		t.Fatalf("grassy pen: fav=%d want 12", fav)
	}
	if tier := TierFor(fav, total, TiersFromTuning(tuning.Defaults().Habitat)); tier != 2 {
		t.Fatalf("tier=%d want 2", tier)
	}

	// A second affinity widens the favorable set; a cell still counts once.
	grid[[3]int{10, 64, 11}] = "CAMPFIRE"
	fav2, _ := Score(get, center, 1, []string{"grass", "fire"}, cat)
	fav1, _ := Score(get, center, 1, []string{"grass"}, cat)
	if fav2 <= fav1 {
		t.Fatalf("second affinity did not add favorable cells: %d <= %d", fav2, fav1)
	}

	if fav, _ := Score(get, center, 1, []string{"unknown"}, cat); fav != 1 {
		t.Fatalf("unknown affinity should only count the enclosure cell, got %d", fav)
	}
}
