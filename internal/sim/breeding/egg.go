package breeding

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"breedcraft.ai/internal/sim/breeding/eggdata"
	"breedcraft.ai/internal/sim/breeding/logic/genetics"
	"breedcraft.ai/internal/sim/catalogs"
	"breedcraft.ai/internal/sim/world"
)

// CreateEgg materializes the egg of a finished courtship: an egg-species
// record in the owner's storage, tethered to the enclosure. Nothing is
// changed when it fails.
func (s *Service) CreateEgg(enc *world.Enclosure, pair Pair, owner *world.Player) (*world.Creature, error) {
	cats := s.w.Catalogs()
	fail := func(err error, reason string) (*world.Creature, error) {
		s.emit(Event{
			Kind:      EventEggFailed,
			Enclosure: enc.Key.Pos.ToArray(),
			PlayerID:  owner.ID.String(),
			ParentA:   idString(pair.A),
			ParentB:   idString(pair.B),
			Reason:    reason,
		})
		return nil, err
	}

	if enc.Full() {
		owner.Notify("The pasture is full, so no egg could be laid.")
		return fail(ErrEnclosureFull, "enclosure full")
	}
	ra := s.w.OccupantRecord(enc.FindOccupancy(pair.A))
	rb := s.w.OccupantRecord(enc.FindOccupancy(pair.B))
	if ra == nil || rb == nil {
		return fail(ErrNotOccupant, "parent record missing")
	}
	def, ok := cats.Species.Lookup(rb.Species)
	if !ok {
		return fail(fmt.Errorf("%w: %q", ErrUnknownSpecies, rb.Species), "target species unresolved")
	}
	if def.UniversalDonor || def.Egg {
		return fail(fmt.Errorf("%w: %q", ErrDonorEgg, def.ID), "donor egg refused")
	}
	if owner.PCFull() {
		owner.Notify("Your storage is full, so the egg could not be kept.")
		return fail(ErrStorageFull, "storage full")
	}

	eggCfg := s.cfg.Egg
	cycles := def.EggCycles
	if cycles <= 0 {
		cycles = eggCfg.DefaultEggCycles
	}
	off := genetics.Inherit(s.genes(ra), s.genes(rb), cats.Temperaments.IDs, s.rng)

	egg := &world.Creature{
		ID:          uuid.New(),
		Species:     eggCfg.SpeciesID,
		Level:       1,
		Gender:      world.GenderGenderless,
		IVs:         off.IVs,
		Temperament: off.Temperament,
		Scale:       eggScale(def, rb.Scale, eggCfg.ScaleReferenceHeight, eggCfg.MinScale, eggCfg.MaxScale),
		Trainer:     world.Trainer{ID: owner.ID.String(), Name: owner.Name},
		Nickname:    def.Name + " Egg",
		Tags:        world.Tags{},
	}
	eggdata.Write(egg.Tags, eggdata.Egg{
		TargetSpecies: def.ID,
		TotalSteps:    cycles * eggCfg.StepsPerEggCycle,
		IVs:           off.IVs,
		Temperament:   off.Temperament,
	})

	if !owner.AddToPC(egg) {
		return fail(ErrStorageFull, "storage full")
	}
	if _, err := s.w.Tether(enc, owner.ID, egg.ID); err != nil {
		owner.RemoveFromPC(egg.ID)
		return fail(err, "tether failed")
	}
	owner.Notify(fmt.Sprintf("A %s appeared in the pasture!", egg.Nickname))
	s.emit(Event{
		Kind:        EventEggCreated,
		Enclosure:   enc.Key.Pos.ToArray(),
		PlayerID:    owner.ID.String(),
		ParentA:     pair.A.String(),
		ParentB:     pair.B.String(),
		Species:     def.ID,
		EggID:       egg.ID.String(),
		IVs:         append([]int(nil), off.IVs[:]...),
		Temperament: off.Temperament,
	})
	return egg, nil
}

// genes maps a parent record and its held item onto inheritance inputs.
func (s *Service) genes(c *world.Creature) genetics.Parent {
	p := genetics.Parent{IVs: c.IVs, Temperament: c.Temperament, AffinityStat: genetics.NoStat}
	item, ok := s.w.Catalogs().Items.Defs[c.HeldItem]
	if !ok {
		return p
	}
	switch item.Kind {
	case catalogs.ItemBond:
		p.Bond = true
	case catalogs.ItemFixation:
		p.Fixation = true
	case catalogs.ItemAffinity:
		if i, ok := catalogs.StatIndex(item.Stat); ok {
			p.AffinityStat = i
		}
	}
	return p
}

// eggScale sizes the egg after the reference parent, relative to a
// reference species height.
func eggScale(def catalogs.SpeciesDef, parentScale, refHeight, minScale, maxScale float64) float64 {
	if parentScale <= 0 {
		parentScale = 1
	}
	if refHeight <= 0 {
		refHeight = 10
	}
	v := def.Height * parentScale / refHeight
	if math.IsNaN(v) || v < minScale {
		return minScale
	}
	if v > maxScale {
		return maxScale
	}
	return v
}

// Hatch turns the egg in the player's party slot into a level 1 creature of
// its species' base form.
func (s *Service) Hatch(p *world.Player, slot int) (*world.Creature, error) {
	rec := p.PartySlot(slot)
	if rec == nil {
		return nil, fmt.Errorf("%w: empty party slot %d", ErrNotEgg, slot)
	}
	egg, ok := eggdata.Read(rec.Tags)
	if !ok {
		return nil, fmt.Errorf("%w: slot %d holds %s", ErrNotEgg, slot, rec.Species)
	}
	if !egg.Ready() {
		return nil, ErrEggNotReady
	}

	cats := s.w.Catalogs()
	hatchFailed := func(err error) (*world.Creature, error) {
		s.log.Printf("hatch: player=%s slot=%d egg=%s target=%q: %v", p.ID, slot, rec.ID, egg.TargetSpecies, err)
		p.Notify("Sorry, something went wrong while hatching your egg.")
		s.emit(Event{Kind: EventHatchFailed, PlayerID: p.ID.String(), EggID: rec.ID.String(), Species: egg.TargetSpecies, Reason: err.Error()})
		return nil, err
	}
	base, err := cats.Species.BaseForm(egg.TargetSpecies)
	if err != nil {
		if hint := cats.Species.Suggest(egg.TargetSpecies, 1); len(hint) > 0 {
			err = fmt.Errorf("%w (closest known species: %s)", err, hint[0])
		}
		return hatchFailed(fmt.Errorf("%w: %v", ErrUnknownSpecies, err))
	}
	baby, err := world.NewCreature(cats, base.ID, 1, s.rng)
	if err != nil {
		return hatchFailed(fmt.Errorf("%w: %v", ErrUnknownSpecies, err))
	}

	baby.ID = rec.ID
	baby.IVs = egg.IVs
	if egg.Temperament != "" {
		baby.Temperament = egg.Temperament
	}
	baby.Trainer = s.hatchTrainer(rec)
	baby.Nickname = ""
	baby.Tags = rec.Tags.Clone()
	eggdata.Strip(baby.Tags)
	p.SetPartySlot(slot, baby)

	p.Notify("Oh?")
	s.w.Emit(world.Effect{Kind: world.SoundEggCrack, Pos: p.Pos})
	s.w.Emit(world.Effect{Kind: world.EffectHatch, Pos: p.Pos, Count: 30})
	p.Notify(fmt.Sprintf("%s hatched from the egg!", base.Name))
	s.emit(Event{
		Kind:        EventHatched,
		PlayerID:    p.ID.String(),
		EggID:       rec.ID.String(),
		Species:     base.ID,
		IVs:         append([]int(nil), baby.IVs[:]...),
		Temperament: baby.Temperament,
	})
	return baby, nil
}

// hatchTrainer carries the egg's original trainer over, preferring the
// stored name and falling back to the stored id.
func (s *Service) hatchTrainer(rec *world.Creature) world.Trainer {
	t := rec.Trainer
	if t.Name != "" {
		return t
	}
	if t.ID == "" {
		return world.Trainer{}
	}
	id, err := uuid.Parse(t.ID)
	if err != nil {
		s.log.Printf("hatch: egg %s has unparseable trainer id %q: %v", rec.ID, t.ID, err)
		return world.Trainer{}
	}
	out := world.Trainer{ID: id.String()}
	if p := s.w.Player(id); p != nil {
		out.Name = p.Name
	}
	return out
}
