package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_RepoTuningMatchesDefaults(t *testing.T) {
	got, err := Load("../../../configs/tuning.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Defaults()
	if got != want {
		t.Fatalf("configs/tuning.yaml drifted from Defaults():\n got=%+v\nwant=%+v", got, want)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	raw := []byte("courtship:\n  walk_to_meet_ticks: 40\n  affection_max_distance: 6\n")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Courtship.WalkToMeetTicks != 40 || got.Courtship.AffectionMaxDistance != 6 {
		t.Fatalf("overrides not applied: %+v", got.Courtship)
	}
	if got.Courtship.TickThrottle != 5 || got.Habitat.Radius != 4 {
		t.Fatalf("defaults lost: throttle=%d radius=%d", got.Courtship.TickThrottle, got.Habitat.Radius)
	}
}

func TestNormalize_RepairsInvalidValues(t *testing.T) {
	tu := Defaults()
	tu.Courtship.TickThrottle = 0
	tu.Habitat.Tier2Percent = 90
	tu.Egg.MinScale = 2
	tu.Egg.MaxScale = 1
	tu.World.MinY, tu.World.MaxY = 10, 5
	tu.Normalize()

	d := Defaults()
	if tu.Courtship.TickThrottle != d.Courtship.TickThrottle {
		t.Fatalf("throttle=%d", tu.Courtship.TickThrottle)
	}
	if tu.Habitat.Tier2Percent != d.Habitat.Tier2Percent {
		t.Fatalf("tier2=%d", tu.Habitat.Tier2Percent)
	}
	if tu.Egg.MinScale != d.Egg.MinScale || tu.Egg.MaxScale != d.Egg.MaxScale {
		t.Fatalf("scale=[%v,%v]", tu.Egg.MinScale, tu.Egg.MaxScale)
	}
	if tu.World.MinY != d.World.MinY || tu.World.MaxY != d.World.MaxY {
		t.Fatalf("y range=[%d,%d]", tu.World.MinY, tu.World.MaxY)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(path, []byte("courtship: [1, 2"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
