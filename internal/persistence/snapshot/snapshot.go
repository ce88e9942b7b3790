package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

// SnapshotV1 captures the host world plus breeding state, enough to resume a
// server where it stopped.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed int64 `json:"seed"`

	Blocks     []BlockV1     `json:"blocks,omitempty"`
	Players    []PlayerV1    `json:"players"`
	Enclosures []EnclosureV1 `json:"enclosures"`

	Breeding BreedingV1 `json:"breeding"`
}

type BlockV1 struct {
	Pos   [3]int `json:"pos"`
	Block string `json:"block"`
}

type CreatureV1 struct {
	ID          string            `json:"id"`
	Slot        int               `json:"slot"` // party slot, -1 for PC
	Species     string            `json:"species"`
	Level       int               `json:"level"`
	Gender      string            `json:"gender"`
	HeldItem    string            `json:"held_item,omitempty"`
	IVs         [6]int            `json:"ivs"`
	Temperament string            `json:"temperament,omitempty"`
	Scale       float64           `json:"scale"`
	TrainerID   string            `json:"trainer_id,omitempty"`
	TrainerName string            `json:"trainer_name,omitempty"`
	Nickname    string            `json:"nickname,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
}

type PlayerV1 struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Pos        [3]float64   `json:"pos"`
	Creatures  []CreatureV1 `json:"creatures"`
	DistanceCm []int64      `json:"distance_cm"`
}

type OccupancyV1 struct {
	RecordID string     `json:"record_id"`
	OwnerID  string     `json:"owner_id"`
	Pos      [3]float64 `json:"pos"`
}

type EnclosureV1 struct {
	Pos          [3]int        `json:"pos"`
	MinRoam      [3]int        `json:"min_roam"`
	MaxRoam      [3]int        `json:"max_roam"`
	MaxOccupants int           `json:"max_occupants"`
	Occupants    []OccupancyV1 `json:"occupants"`
}

type BreedingV1 struct {
	Courtships []CourtshipV1      `json:"courtships"`
	Baselines  []DistanceBaseline `json:"distance_baselines,omitempty"`
}

type CourtshipV1 struct {
	Pos                 [3]int      `json:"pos"`
	ParentA             string      `json:"parent_a,omitempty"`
	ParentB             string      `json:"parent_b,omitempty"`
	SelectedA           string      `json:"selected_a,omitempty"`
	SelectedB           string      `json:"selected_b,omitempty"`
	UniversalDonorPair  bool        `json:"universal_donor_pair,omitempty"`
	StartTick           *uint64     `json:"start_tick,omitempty"`
	DurationTicks       uint64      `json:"duration_ticks"`
	QualityTier         int         `json:"quality_tier"`
	NeedsDurationRecalc bool        `json:"needs_duration_recalc,omitempty"`
	MeetingPoint        *[3]float64 `json:"meeting_point,omitempty"`
	WalkingStarted      bool        `json:"walking_started,omitempty"`
	MeetingReachedTick  *uint64     `json:"meeting_reached_tick,omitempty"`
	JumpsPerformed      int         `json:"jumps_performed,omitempty"`
	LastJumpTick        uint64      `json:"last_jump_tick,omitempty"`
	AffectionPlayed     bool        `json:"affection_played,omitempty"`
}

type DistanceBaseline struct {
	PlayerID string `json:"player_id"`
	TotalCm  int64  `json:"total_cm"`
}

func WriteSnapshot(path string, snap SnapshotV1) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := json.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Header line is for tooling; the body repeats it.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := json.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("json decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

// FileName is the canonical snapshot file name for a tick.
func FileName(tick uint64) string { return fmt.Sprintf("%d.snap.zst", tick) }

// Latest returns the highest-tick snapshot in dir, or "" when none exist.
func Latest(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	type cand struct {
		tick uint64
		name string
	}
	var cs []cand
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		t, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		cs = append(cs, cand{tick: t, name: name})
	}
	if len(cs) == 0 {
		return ""
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].tick > cs[j].tick })
	return filepath.Join(dir, cs[0].name)
}
