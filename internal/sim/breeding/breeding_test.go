package breeding

import (
	"testing"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"breedcraft.ai/internal/sim/breeding/eggdata"
	"breedcraft.ai/internal/sim/catalogs"
	"breedcraft.ai/internal/sim/tuning"
	"breedcraft.ai/internal/sim/world"
)

type fixture struct {
	tun tuning.Tuning
	w   *world.World
	svc *Service
	rec *EventRecorder
	p   *world.Player
	enc *world.Enclosure
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	tun := tuning.Defaults()
	tun.World.WanderEveryTicks = 0
	w, err := world.New(world.ConfigFromTuning("test", 7, tun.World), cats, nil)
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	enc, err := w.PlaceEnclosure(world.Vec3i{X: 0, Y: w.SurfaceY(), Z: 0})
	if err != nil {
		t.Fatalf("place enclosure: %v", err)
	}
	rec := &EventRecorder{}
	f := &fixture{
		tun: tun,
		w:   w,
		svc: New(w, ConfigFromTuning(tun), nil, rec),
		rec: rec,
		p:   w.AddPlayer("ash"),
		enc: enc,
	}
	f.svc.EnclosurePlaced(enc)
	return f
}

// tether adds a creature to the player's storage and tethers it.
func (f *fixture) tether(t *testing.T, species string, g world.Gender, item string) *world.Creature {
	t.Helper()
	c, err := world.NewCreature(f.w.Catalogs(), species, 10, f.w.Rand())
	if err != nil {
		t.Fatalf("new creature %s: %v", species, err)
	}
	c.Gender = g
	c.HeldItem = item
	if !f.p.AddToPC(c) {
		t.Fatalf("storage full")
	}
	if _, err := f.w.Tether(f.enc, f.p.ID, c.ID); err != nil {
		t.Fatalf("tether %s: %v", species, err)
	}
	return c
}

func (f *fixture) step() uint64 {
	now := f.w.Step()
	f.svc.Tick(now)
	return now
}

// runUntil steps until cond holds, failing after limit ticks.
func (f *fixture) runUntil(t *testing.T, limit int, cond func() bool) uint64 {
	t.Helper()
	for i := 0; i < limit; i++ {
		now := f.step()
		if cond() {
			return now
		}
	}
	t.Fatalf("condition not met within %d ticks (tick=%d)", limit, f.w.CurrentTick())
	return 0
}

func (f *fixture) state() *CourtshipState { return f.svc.State(f.enc.Key) }

func (f *fixture) instance(id uuid.UUID) *world.Entity {
	return FindInstance(f.w, f.enc, id, f.tun.Courtship.LocatorMargin)
}

func (f *fixture) eggs() []*world.Creature {
	var out []*world.Creature
	for _, c := range append(append([]*world.Creature(nil), f.p.Party...), f.p.PC...) {
		if c != nil && eggdata.IsEgg(c.Tags) {
			out = append(out, c)
		}
	}
	return out
}

func (f *fixture) countEvents(k EventKind) int {
	n := 0
	for _, e := range f.rec.Events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

func TestFindBreedingPair(t *testing.T) {
	t.Run("male and female of one species", func(t *testing.T) {
		f := newFixture(t)
		fem := f.tether(t, "sproutle", world.GenderFemale, "")
		male := f.tether(t, "sproutle", world.GenderMale, "")
		pair, ok := FindBreedingPair(f.w, f.enc)
		if !ok || pair.A != male.ID || pair.B != fem.ID || pair.UniversalDonor {
			t.Fatalf("pair=%+v ok=%v", pair, ok)
		}
	})
	t.Run("species must match", func(t *testing.T) {
		f := newFixture(t)
		f.tether(t, "sproutle", world.GenderFemale, "")
		f.tether(t, "emberkit", world.GenderMale, "")
		if pair, ok := FindBreedingPair(f.w, f.enc); ok {
			t.Fatalf("unexpected pair %+v", pair)
		}
	})
	t.Run("donor prefers genderless partner", func(t *testing.T) {
		f := newFixture(t)
		f.tether(t, "sproutle", world.GenderFemale, "")
		donor := f.tether(t, "mimicoo", world.GenderGenderless, "")
		volt := f.tether(t, "voltmite", world.GenderGenderless, "")
		pair, ok := FindBreedingPair(f.w, f.enc)
		if !ok || pair.A != donor.ID || pair.B != volt.ID || !pair.UniversalDonor {
			t.Fatalf("pair=%+v ok=%v", pair, ok)
		}
	})
	t.Run("donor falls back to gendered partner", func(t *testing.T) {
		f := newFixture(t)
		fem := f.tether(t, "puddlit", world.GenderFemale, "")
		donor := f.tether(t, "mimicoo", world.GenderGenderless, "")
		pair, ok := FindBreedingPair(f.w, f.enc)
		if !ok || pair.A != donor.ID || pair.B != fem.ID {
			t.Fatalf("pair=%+v ok=%v", pair, ok)
		}
	})
	t.Run("two donors never pair", func(t *testing.T) {
		f := newFixture(t)
		f.tether(t, "mimicoo", world.GenderGenderless, "")
		f.tether(t, "mimicoo", world.GenderGenderless, "")
		if pair, ok := FindBreedingPair(f.w, f.enc); ok {
			t.Fatalf("unexpected pair %+v", pair)
		}
	})
	t.Run("eggs are skipped", func(t *testing.T) {
		f := newFixture(t)
		f.tether(t, "sproutle", world.GenderMale, "")
		egg := f.tether(t, "sproutle", world.GenderFemale, "")
		eggdata.Write(egg.Tags, eggdata.Egg{TargetSpecies: "sproutle", TotalSteps: 256})
		if pair, ok := FindBreedingPair(f.w, f.enc); ok {
			t.Fatalf("egg was selected: %+v", pair)
		}
	})
}

func TestPairFor_OrdersParents(t *testing.T) {
	f := newFixture(t)
	fem := f.tether(t, "sproutle", world.GenderFemale, "")
	male := f.tether(t, "sproutle", world.GenderMale, "")
	donor := f.tether(t, "mimicoo", world.GenderGenderless, "")

	if p, ok := PairFor(f.w, f.enc, fem.ID, male.ID); !ok || p.A != male.ID || p.B != fem.ID {
		t.Fatalf("female/male: %+v %v", p, ok)
	}
	if p, ok := PairFor(f.w, f.enc, fem.ID, donor.ID); !ok || p.A != donor.ID || p.B != fem.ID || !p.UniversalDonor {
		t.Fatalf("female/donor: %+v %v", p, ok)
	}
	if _, ok := PairFor(f.w, f.enc, male.ID, male.ID); ok {
		t.Fatalf("a creature cannot pair with itself")
	}
	if _, ok := PairFor(f.w, f.enc, male.ID, uuid.New()); ok {
		t.Fatalf("non-occupant accepted")
	}
}

func TestFindInstance(t *testing.T) {
	f := newFixture(t)
	c := f.tether(t, "sproutle", world.GenderMale, "")
	e := f.instance(c.ID)
	if e == nil || e.RecordID != c.ID {
		t.Fatalf("instance not found")
	}
	e.Pos.X += 20
	if f.instance(c.ID) != nil {
		t.Fatalf("instance outside the roam box should not resolve")
	}
	if f.instance(uuid.New()) != nil {
		t.Fatalf("unknown record resolved")
	}
}

func TestComputeDuration_FlatGrass(t *testing.T) {
	f := newFixture(t)
	sprout := f.tether(t, "sproutle", world.GenderFemale, "")
	volt := f.tether(t, "voltmite", world.GenderGenderless, "")
	base := f.tun.Courtship.BaseDurationTicks

	// Grass ground plus the enclosure cell: 82 of 162.
	d, tier := ComputeDuration(f.w, f.enc.Key.Pos, sprout, base, f.tun.Habitat)
	if tier != 2 || d != 1800 {
		t.Fatalf("sproutle: duration=%d tier=%d", d, tier)
	}
	d, tier = ComputeDuration(f.w, f.enc.Key.Pos, volt, base, f.tun.Habitat)
	if tier != 1 || d != base {
		t.Fatalf("voltmite: duration=%d tier=%d", d, tier)
	}
}

func TestMeetingPoint(t *testing.T) {
	f := newFixture(t)
	g := float64(f.w.SurfaceY())

	got := MeetingPoint(f.w, r3.Vec{X: 2.5, Y: g + 3, Z: 0.5}, r3.Vec{X: 4.5, Y: g + 3, Z: 0.5}, 5)
	want := r3.Vec{X: 3.5, Y: g, Z: 0.5}
	if got != want {
		t.Fatalf("drop to ground: got %+v want %+v", got, want)
	}

	// Buried midpoint climbs to the surface.
	got = MeetingPoint(f.w, r3.Vec{X: 2.5, Y: g - 2, Z: 0.5}, r3.Vec{X: 4.5, Y: g - 2, Z: 0.5}, 5)
	if got.Y != g {
		t.Fatalf("climb to surface: got %+v", got)
	}

	// Standing on the enclosure block.
	at := f.enc.Key.Pos.Add(0, 1, 0).Center()
	at.Y = g + 1
	if got := MeetingPoint(f.w, at, at, 5); got != at {
		t.Fatalf("on enclosure: got %+v want %+v", got, at)
	}
}
