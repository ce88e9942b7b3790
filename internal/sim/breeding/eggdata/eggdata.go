// Package eggdata defines the persistent tag layout of an egg record.
//
// An egg is an ordinary creature record of the egg species whose tag store
// carries the keys below. Hatching strips every one of them.
package eggdata

import (
	"strings"

	"breedcraft.ai/internal/sim/catalogs"
)

const (
	KeyIsEgg         = "is_egg"
	KeyTargetSpecies = "target_species"
	KeyTotalSteps    = "total_hatch_steps"
	KeyCurrentSteps  = "current_hatch_steps"
	KeyTemperament   = "calculated_temperament"
	ivKeyPrefix      = "calculated_iv_"
)

// TagStore is the subset of a record's persistent key/value storage the egg
// layout needs.
type TagStore interface {
	Bool(key string) bool
	SetBool(key string, v bool)
	Int(key string) int
	SetInt(key string, v int)
	String(key string) string
	SetString(key string, v string)
	Delete(key string)
}

type Egg struct {
	TargetSpecies string
	TotalSteps    int
	CurrentSteps  int
	IVs           [6]int
	Temperament   string
}

func IVKey(stat int) string { return ivKeyPrefix + catalogs.StatNames[stat] }

// Keys lists every tag an egg may carry.
func Keys() []string {
	keys := []string{KeyIsEgg, KeyTargetSpecies, KeyTotalSteps, KeyCurrentSteps, KeyTemperament}
	for i := range catalogs.StatNames {
		keys = append(keys, IVKey(i))
	}
	return keys
}

func IsEgg(t TagStore) bool {
	if t == nil {
		return false
	}
	return t.Bool(KeyIsEgg)
}

func Read(t TagStore) (Egg, bool) {
	if !IsEgg(t) {
		return Egg{}, false
	}
	e := Egg{
		TargetSpecies: strings.TrimSpace(t.String(KeyTargetSpecies)),
		TotalSteps:    t.Int(KeyTotalSteps),
		CurrentSteps:  t.Int(KeyCurrentSteps),
		Temperament:   t.String(KeyTemperament),
	}
	for i := range e.IVs {
		e.IVs[i] = t.Int(IVKey(i))
	}
	return e, true
}

func Write(t TagStore, e Egg) {
	t.SetBool(KeyIsEgg, true)
	t.SetString(KeyTargetSpecies, e.TargetSpecies)
	t.SetInt(KeyTotalSteps, e.TotalSteps)
	t.SetInt(KeyCurrentSteps, e.CurrentSteps)
	t.SetString(KeyTemperament, e.Temperament)
	for i, v := range e.IVs {
		t.SetInt(IVKey(i), v)
	}
}

func Strip(t TagStore) {
	for _, k := range Keys() {
		t.Delete(k)
	}
}

// Ready reports whether the egg has accumulated all of its hatch steps.
func (e Egg) Ready() bool { return e.TotalSteps > 0 && e.CurrentSteps >= e.TotalSteps }
