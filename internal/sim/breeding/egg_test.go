package breeding

import (
	"errors"
	"slices"
	"testing"

	"breedcraft.ai/internal/sim/breeding/eggdata"
	"breedcraft.ai/internal/sim/world"
)

func TestCreateEgg_ScaleAndSteps(t *testing.T) {
	f := newFixture(t)
	fem := f.tether(t, "titanox", world.GenderFemale, "")
	male := f.tether(t, "titanox", world.GenderMale, "")

	egg, err := f.svc.CreateEgg(f.enc, Pair{A: male.ID, B: fem.ID}, f.p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if egg.Scale != f.tun.Egg.MaxScale {
		t.Fatalf("titanox egg scale=%v want clamp %v", egg.Scale, f.tun.Egg.MaxScale)
	}
	data, _ := eggdata.Read(egg.Tags)
	if data.TotalSteps != 40*f.tun.Egg.StepsPerEggCycle {
		t.Fatalf("total steps=%d", data.TotalSteps)
	}
	if egg.Gender != world.GenderGenderless || egg.Level != 1 {
		t.Fatalf("egg record %+v", egg)
	}
}

func TestCreateEgg_DefaultCycles(t *testing.T) {
	f := newFixture(t)
	fem := f.tether(t, "frostling", world.GenderFemale, "")
	male := f.tether(t, "frostling", world.GenderMale, "")
	egg, err := f.svc.CreateEgg(f.enc, Pair{A: male.ID, B: fem.ID}, f.p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	data, _ := eggdata.Read(egg.Tags)
	if data.TotalSteps != f.tun.Egg.DefaultEggCycles*f.tun.Egg.StepsPerEggCycle {
		t.Fatalf("total steps=%d", data.TotalSteps)
	}
	if egg.Scale < f.tun.Egg.MinScale || egg.Scale != 0.4 {
		t.Fatalf("frostling egg scale=%v", egg.Scale)
	}
}

func TestCreateEgg_Failures(t *testing.T) {
	t.Run("enclosure full", func(t *testing.T) {
		f := newFixture(t)
		fem := f.tether(t, "sproutle", world.GenderFemale, "")
		male := f.tether(t, "sproutle", world.GenderMale, "")
		f.enc.MaxOccupants = 2
		pcBefore := len(f.p.PC)
		if _, err := f.svc.CreateEgg(f.enc, Pair{A: male.ID, B: fem.ID}, f.p); !errors.Is(err, ErrEnclosureFull) {
			t.Fatalf("err=%v", err)
		}
		if len(f.p.PC) != pcBefore || len(f.p.Messages()) == 0 {
			t.Fatalf("pc=%d messages=%v", len(f.p.PC), f.p.Messages())
		}
		if f.countEvents(EventEggFailed) != 1 {
			t.Fatalf("events=%v", f.rec.Kinds())
		}
	})
	t.Run("storage full", func(t *testing.T) {
		f := newFixture(t)
		fem := f.tether(t, "sproutle", world.GenderFemale, "")
		male := f.tether(t, "sproutle", world.GenderMale, "")
		for !f.p.PCFull() {
			c, err := world.NewCreature(f.w.Catalogs(), "puddlit", 3, f.w.Rand())
			if err != nil {
				t.Fatalf("new creature: %v", err)
			}
			f.p.AddToPC(c)
		}
		occupants := len(f.enc.Occupants())
		if _, err := f.svc.CreateEgg(f.enc, Pair{A: male.ID, B: fem.ID}, f.p); !errors.Is(err, ErrStorageFull) {
			t.Fatalf("err=%v", err)
		}
		if len(f.enc.Occupants()) != occupants || len(f.eggs()) != 0 {
			t.Fatalf("state changed on failure")
		}
	})
	t.Run("donor species refused", func(t *testing.T) {
		f := newFixture(t)
		donor := f.tether(t, "mimicoo", world.GenderGenderless, "")
		volt := f.tether(t, "voltmite", world.GenderGenderless, "")
		if _, err := f.svc.CreateEgg(f.enc, Pair{A: volt.ID, B: donor.ID, UniversalDonor: true}, f.p); !errors.Is(err, ErrDonorEgg) {
			t.Fatalf("err=%v", err)
		}
	})
	t.Run("unknown species", func(t *testing.T) {
		f := newFixture(t)
		fem := f.tether(t, "sproutle", world.GenderFemale, "")
		male := f.tether(t, "sproutle", world.GenderMale, "")
		fem.Species = "missingno"
		if _, err := f.svc.CreateEgg(f.enc, Pair{A: male.ID, B: fem.ID}, f.p); !errors.Is(err, ErrUnknownSpecies) {
			t.Fatalf("err=%v", err)
		}
	})
}

func TestCreateEgg_AffinityItemsAreDeterministic(t *testing.T) {
	f := newFixture(t)
	fem := f.tether(t, "sproutle", world.GenderFemale, "power_anklet")
	male := f.tether(t, "sproutle", world.GenderMale, "power_weight")
	for i := 0; i < 20; i++ {
		egg, err := f.svc.CreateEgg(f.enc, Pair{A: male.ID, B: fem.ID}, f.p)
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if egg.IVs[0] != male.IVs[0] {
			t.Fatalf("hp=%d want male's %d", egg.IVs[0], male.IVs[0])
		}
		if egg.IVs[5] != fem.IVs[5] {
			t.Fatalf("speed=%d want female's %d", egg.IVs[5], fem.IVs[5])
		}
		f.w.Untether(f.enc, egg.ID)
		f.p.RemoveFromPC(egg.ID)
	}
}

func TestCreateEgg_FixationItemsPickAParent(t *testing.T) {
	f := newFixture(t)
	fem := f.tether(t, "sproutle", world.GenderFemale, "fixing_stone")
	male := f.tether(t, "sproutle", world.GenderMale, "fixing_stone")
	fem.Temperament, male.Temperament = "calm", "bold"
	seen := map[string]bool{}
	for i := 0; i < 40; i++ {
		egg, err := f.svc.CreateEgg(f.enc, Pair{A: male.ID, B: fem.ID}, f.p)
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		seen[egg.Temperament] = true
		f.w.Untether(f.enc, egg.ID)
		f.p.RemoveFromPC(egg.ID)
	}
	for k := range seen {
		if k != "calm" && k != "bold" {
			t.Fatalf("third temperament %q", k)
		}
	}
}

func TestCreateEgg_SingleFixationWins(t *testing.T) {
	f := newFixture(t)
	fem := f.tether(t, "sproutle", world.GenderFemale, "")
	male := f.tether(t, "sproutle", world.GenderMale, "fixing_stone")
	fem.Temperament, male.Temperament = "calm", "bold"
	egg, err := f.svc.CreateEgg(f.enc, Pair{A: male.ID, B: fem.ID}, f.p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if egg.Temperament != "bold" {
		t.Fatalf("temperament=%q", egg.Temperament)
	}
}

func partyEgg(t *testing.T, f *fixture, target string, total, current int) (*world.Creature, int) {
	t.Helper()
	egg, err := world.NewCreature(f.w.Catalogs(), "egg", 1, f.w.Rand())
	if err != nil {
		t.Fatalf("new egg: %v", err)
	}
	egg.Nickname = "Egg"
	egg.Trainer = world.Trainer{ID: f.p.ID.String(), Name: f.p.Name}
	eggdata.Write(egg.Tags, eggdata.Egg{
		TargetSpecies: target,
		TotalSteps:    total,
		CurrentSteps:  current,
		IVs:           [6]int{1, 2, 3, 4, 5, 6},
		Temperament:   "gentle",
	})
	slot, ok := f.p.AddToParty(egg)
	if !ok {
		t.Fatalf("party full")
	}
	return egg, slot
}

func TestHatch_BaseFormAndCarryOver(t *testing.T) {
	f := newFixture(t)
	egg, slot := partyEgg(t, f, "sproutree", 256, 256)

	baby, err := f.svc.Hatch(f.p, slot)
	if err != nil {
		t.Fatalf("hatch: %v", err)
	}
	if baby.Species != "sproutle" || baby.Level != 1 {
		t.Fatalf("hatched %s level %d", baby.Species, baby.Level)
	}
	if f.p.PartySlot(slot) != baby || baby.ID != egg.ID {
		t.Fatalf("slot not replaced in place")
	}
	if baby.IVs != [6]int{1, 2, 3, 4, 5, 6} || baby.Temperament != "gentle" {
		t.Fatalf("ivs=%v temperament=%q", baby.IVs, baby.Temperament)
	}
	if baby.Nickname != "" || baby.Trainer.Name != "ash" {
		t.Fatalf("nickname=%q trainer=%+v", baby.Nickname, baby.Trainer)
	}
	for _, k := range eggdata.Keys() {
		if baby.Tags.Has(k) {
			t.Fatalf("tag %s survived hatching", k)
		}
	}
	msgs := f.p.Messages()
	if !slices.Contains(msgs, "Oh?") || !slices.Contains(msgs, "Sproutle hatched from the egg!") {
		t.Fatalf("messages=%v", msgs)
	}
	var crack bool
	for _, e := range f.w.Effects() {
		crack = crack || e.Kind == world.SoundEggCrack
	}
	if !crack {
		t.Fatalf("no egg crack sound")
	}
}

func TestHatch_TrainerFallsBackToID(t *testing.T) {
	f := newFixture(t)
	egg, slot := partyEgg(t, f, "emberfox", 256, 256)
	egg.Trainer = world.Trainer{ID: f.p.ID.String()}
	baby, err := f.svc.Hatch(f.p, slot)
	if err != nil {
		t.Fatalf("hatch: %v", err)
	}
	if baby.Species != "emberkit" || baby.Trainer.ID != f.p.ID.String() || baby.Trainer.Name != "ash" {
		t.Fatalf("baby %s trainer %+v", baby.Species, baby.Trainer)
	}

	egg, slot = partyEgg(t, f, "emberkit", 256, 256)
	egg.Trainer = world.Trainer{ID: "not-a-uuid"}
	baby, err = f.svc.Hatch(f.p, slot)
	if err != nil {
		t.Fatalf("hatch: %v", err)
	}
	if !baby.Trainer.IsZero() {
		t.Fatalf("trainer=%+v want unset", baby.Trainer)
	}
}

func TestHatch_Errors(t *testing.T) {
	f := newFixture(t)
	_, slot := partyEgg(t, f, "missingno", 256, 256)
	if _, err := f.svc.Hatch(f.p, slot); !errors.Is(err, ErrUnknownSpecies) {
		t.Fatalf("err=%v", err)
	}
	if !eggdata.IsEgg(f.p.PartySlot(slot).Tags) {
		t.Fatalf("failed hatch touched the slot")
	}
	if msgs := f.p.Messages(); len(msgs) == 0 || msgs[len(msgs)-1] != "Sorry, something went wrong while hatching your egg." {
		t.Fatalf("messages=%v", msgs)
	}

	_, slot = partyEgg(t, f, "sproutle", 256, 10)
	if _, err := f.svc.Hatch(f.p, slot); !errors.Is(err, ErrEggNotReady) {
		t.Fatalf("err=%v", err)
	}
	if _, err := f.svc.Hatch(f.p, 5); !errors.Is(err, ErrNotEgg) {
		t.Fatalf("empty slot err=%v", err)
	}
}
