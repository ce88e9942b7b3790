package snapshot

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestWriteRead_RoundTrip(t *testing.T) {
	start := uint64(120)
	snap := SnapshotV1{
		Header: Header{Version: Version, WorldID: "pasture", Tick: 4000},
		Seed:   7,
		Players: []PlayerV1{{
			ID:         "6f1c2d7e-0000-4000-8000-000000000001",
			Name:       "ash",
			DistanceCm: []int64{100, 0, 0, 0, 0},
			Creatures: []CreatureV1{{
				ID: "6f1c2d7e-0000-4000-8000-000000000002", Slot: -1, Species: "sproutle",
				Level: 12, Gender: "female", IVs: [6]int{1, 2, 3, 4, 5, 6}, Scale: 1,
				Tags: map[string]string{"is_egg": "true"},
			}},
		}},
		Enclosures: []EnclosureV1{{Pos: [3]int{0, 64, 0}, MaxOccupants: 6}},
		Breeding: BreedingV1{
			Courtships: []CourtshipV1{{Pos: [3]int{0, 64, 0}, ParentA: "a", ParentB: "b", StartTick: &start, DurationTicks: 1800}},
			Baselines:  []DistanceBaseline{{PlayerID: "p", TotalCm: 512}},
		},
	}
	path := filepath.Join(t.TempDir(), "snap", FileName(4000))
	if err := WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(got, snap) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, snap)
	}
}

func TestReadSnapshot_RejectsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName(1))
	if err := WriteSnapshot(path, SnapshotV1{Header: Header{Version: 99, Tick: 1}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	if got := Latest(dir); got != "" {
		t.Fatalf("empty dir: got %q", got)
	}
	for _, name := range []string{FileName(90), FileName(1000), FileName(200), "junk.snap.zst", "1200.snap.zst.tmp"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if got, want := Latest(dir), filepath.Join(dir, "1000.snap.zst"); got != want {
		t.Fatalf("Latest=%q want %q", got, want)
	}
	if got := Latest(filepath.Join(dir, "missing")); got != "" {
		t.Fatalf("missing dir: got %q", got)
	}
}
