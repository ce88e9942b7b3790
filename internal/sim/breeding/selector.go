package breeding

import (
	"github.com/google/uuid"

	"breedcraft.ai/internal/sim/breeding/eggdata"
	"breedcraft.ai/internal/sim/catalogs"
	"breedcraft.ai/internal/sim/world"
)

// Pair is a breeding pair. A is the universal donor or the male; B is the
// reference parent whose species the egg takes.
type Pair struct {
	A              uuid.UUID
	B              uuid.UUID
	UniversalDonor bool
}

type candidate struct {
	rec *world.Creature
	def catalogs.SpeciesDef
}

// breedable resolves an occupant to a creature that may take part in a
// courtship. Eggs and records of unknown species never qualify.
func breedable(w *world.World, o *world.Occupancy) (candidate, bool) {
	rec := w.OccupantRecord(o)
	if rec == nil || eggdata.IsEgg(rec.Tags) {
		return candidate{}, false
	}
	def, ok := w.Catalogs().Species.Lookup(rec.Species)
	if !ok || def.Egg {
		return candidate{}, false
	}
	return candidate{rec: rec, def: def}, true
}

// FindBreedingPair scans the occupants in tether order. A single universal
// donor pairs with the first genderless occupant, else the first gendered
// one. Otherwise the first species, by encounter order, with both a male and
// a female yields its first male and first female. Two donors never pair.
func FindBreedingPair(w *world.World, enc *world.Enclosure) (Pair, bool) {
	var donors, genderless, gendered []candidate
	for _, o := range enc.Occupants() {
		c, ok := breedable(w, o)
		if !ok {
			continue
		}
		switch {
		case c.def.UniversalDonor:
			donors = append(donors, c)
		case c.rec.Gender == world.GenderGenderless:
			genderless = append(genderless, c)
		default:
			gendered = append(gendered, c)
		}
	}

	if len(donors) == 1 {
		d := donors[0]
		if len(genderless) > 0 {
			return Pair{A: d.rec.ID, B: genderless[0].rec.ID, UniversalDonor: true}, true
		}
		if len(gendered) > 0 {
			return Pair{A: d.rec.ID, B: gendered[0].rec.ID, UniversalDonor: true}, true
		}
	}

	type group struct {
		male, female *world.Creature
	}
	var order []string
	groups := map[string]*group{}
	for _, c := range gendered {
		g := groups[c.def.ID]
		if g == nil {
			g = &group{}
			groups[c.def.ID] = g
			order = append(order, c.def.ID)
		}
		switch c.rec.Gender {
		case world.GenderMale:
			if g.male == nil {
				g.male = c.rec
			}
		case world.GenderFemale:
			if g.female == nil {
				g.female = c.rec
			}
		}
	}
	for _, species := range order {
		if g := groups[species]; g.male != nil && g.female != nil {
			return Pair{A: g.male.ID, B: g.female.ID}, true
		}
	}
	return Pair{}, false
}

// PairFor checks whether two specific occupants can breed and orders them
// into a Pair.
func PairFor(w *world.World, enc *world.Enclosure, x, y uuid.UUID) (Pair, bool) {
	if x == y {
		return Pair{}, false
	}
	cx, ok := breedable(w, enc.FindOccupancy(x))
	if !ok {
		return Pair{}, false
	}
	cy, ok := breedable(w, enc.FindOccupancy(y))
	if !ok {
		return Pair{}, false
	}
	switch {
	case cx.def.UniversalDonor && cy.def.UniversalDonor:
		return Pair{}, false
	case cx.def.UniversalDonor:
		return Pair{A: x, B: y, UniversalDonor: true}, true
	case cy.def.UniversalDonor:
		return Pair{A: y, B: x, UniversalDonor: true}, true
	case cx.def.ID != cy.def.ID:
		return Pair{}, false
	case cx.rec.Gender == world.GenderMale && cy.rec.Gender == world.GenderFemale:
		return Pair{A: x, B: y}, true
	case cx.rec.Gender == world.GenderFemale && cy.rec.Gender == world.GenderMale:
		return Pair{A: y, B: x}, true
	}
	return Pair{}, false
}
