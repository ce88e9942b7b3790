package world

import (
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/google/uuid"

	"breedcraft.ai/internal/sim/catalogs"
)

type Gender int

const (
	GenderGenderless Gender = iota
	GenderMale
	GenderFemale
)

func (g Gender) String() string {
	switch g {
	case GenderMale:
		return "male"
	case GenderFemale:
		return "female"
	default:
		return "genderless"
	}
}

func ParseGender(s string) Gender {
	switch s {
	case "male":
		return GenderMale
	case "female":
		return GenderFemale
	default:
		return GenderGenderless
	}
}

// Trainer identifies the original trainer of a creature. Either field may be
// empty; an all-empty Trainer means no trainer is recorded.
type Trainer struct {
	ID   string
	Name string
}

func (t Trainer) IsZero() bool { return t.ID == "" && t.Name == "" }

// Creature is the persistent record of one creature, whether in a party, in
// storage or tethered to an enclosure.
type Creature struct {
	ID          uuid.UUID
	Species     string
	Level       int
	Gender      Gender
	HeldItem    string
	IVs         [6]int
	Temperament string
	Scale       float64
	Trainer     Trainer
	Nickname    string
	Tags        Tags
}

// NewCreature builds a fresh record of a catalog species with random
// potentials, temperament and gender.
func NewCreature(cats *catalogs.Catalogs, speciesID string, level int, rng *rand.Rand) (*Creature, error) {
	def, ok := cats.Species.Lookup(speciesID)
	if !ok {
		return nil, fmt.Errorf("unknown species %q", speciesID)
	}
	if level < 1 {
		return nil, fmt.Errorf("level must be >= 1, got %d", level)
	}
	c := &Creature{
		ID:      uuid.New(),
		Species: def.ID,
		Level:   level,
		Gender:  RollGender(def, rng),
		Scale:   1,
		Tags:    Tags{},
	}
	for i := range c.IVs {
		c.IVs[i] = rng.IntN(32)
	}
	if ids := cats.Temperaments.IDs; len(ids) > 0 {
		c.Temperament = ids[rng.IntN(len(ids))]
	}
	return c, nil
}

func RollGender(def catalogs.SpeciesDef, rng *rand.Rand) Gender {
	switch def.Gender {
	case catalogs.GenderGenderless:
		return GenderGenderless
	case catalogs.GenderMaleOnly:
		return GenderMale
	case catalogs.GenderFemaleOnly:
		return GenderFemale
	}
	if rng.Float64() < def.MaleRatio {
		return GenderMale
	}
	return GenderFemale
}

// Tags is a record's persistent key/value storage. Values are kept as strings
// so the map survives any serialization unchanged.
type Tags map[string]string

func (t Tags) Bool(key string) bool {
	v, _ := strconv.ParseBool(t[key])
	return v
}

func (t Tags) SetBool(key string, v bool) { t[key] = strconv.FormatBool(v) }

func (t Tags) Int(key string) int {
	v, _ := strconv.Atoi(t[key])
	return v
}

func (t Tags) SetInt(key string, v int) { t[key] = strconv.Itoa(v) }

func (t Tags) String(key string) string { return t[key] }

func (t Tags) SetString(key string, v string) { t[key] = v }

func (t Tags) Delete(key string) { delete(t, key) }

func (t Tags) Has(key string) bool {
	_, ok := t[key]
	return ok
}

func (t Tags) Clone() Tags {
	out := make(Tags, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
