package world

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

var (
	ErrEnclosureFull     = errors.New("enclosure is full")
	ErrEnclosureExists   = errors.New("enclosure already exists")
	ErrEnclosureNotFound = errors.New("enclosure not found")
	ErrAlreadyTethered   = errors.New("creature already tethered")
	ErrNotOwned          = errors.New("creature not in player storage")
)

// EnclosureKey identifies an enclosure by world and block position.
type EnclosureKey struct {
	World string
	Pos   Vec3i
}

func (k EnclosureKey) String() string {
	return fmt.Sprintf("%s@%d,%d,%d", k.World, k.Pos.X, k.Pos.Y, k.Pos.Z)
}

// Occupancy tethers one creature record to an enclosure.
type Occupancy struct {
	RecordID uuid.UUID
	OwnerID  uuid.UUID
	EntityID int
}

type Enclosure struct {
	Key          EnclosureKey
	MinRoam      Vec3i
	MaxRoam      Vec3i
	MaxOccupants int

	occupants []*Occupancy
	dirty     bool
}

// Occupants returns the tethered records in tether order.
func (e *Enclosure) Occupants() []*Occupancy {
	out := make([]*Occupancy, len(e.occupants))
	copy(out, e.occupants)
	return out
}

func (e *Enclosure) FindOccupancy(recordID uuid.UUID) *Occupancy {
	for _, o := range e.occupants {
		if o.RecordID == recordID {
			return o
		}
	}
	return nil
}

func (e *Enclosure) Full() bool { return len(e.occupants) >= e.MaxOccupants }

func (e *Enclosure) AddOccupancy(o *Occupancy) error {
	if e.FindOccupancy(o.RecordID) != nil {
		return ErrAlreadyTethered
	}
	if e.Full() {
		return ErrEnclosureFull
	}
	e.occupants = append(e.occupants, o)
	e.MarkDirty()
	return nil
}

func (e *Enclosure) RemoveOccupancy(recordID uuid.UUID) *Occupancy {
	for i, o := range e.occupants {
		if o.RecordID == recordID {
			e.occupants = append(e.occupants[:i], e.occupants[i+1:]...)
			e.MarkDirty()
			return o
		}
	}
	return nil
}

func (e *Enclosure) MarkDirty()  { e.dirty = true }
func (e *Enclosure) Dirty() bool { return e.dirty }
func (e *Enclosure) ClearDirty() { e.dirty = false }

// RoamBox is the roam volume as a box over whole blocks.
func (e *Enclosure) RoamBox() AABB { return BlockBox(e.MinRoam, e.MaxRoam) }

// PlaceEnclosure puts an enclosure block at pos with a roam radius from the
// world config.
func (w *World) PlaceEnclosure(pos Vec3i) (*Enclosure, error) {
	key := EnclosureKey{World: w.cfg.ID, Pos: pos}
	if _, ok := w.enclosures[key]; ok {
		return nil, ErrEnclosureExists
	}
	if err := w.SetBlock(pos, "PASTURE"); err != nil {
		return nil, err
	}
	r := w.cfg.RoamRadius
	enc := &Enclosure{
		Key:          key,
		MinRoam:      pos.Add(-r, -r, -r),
		MaxRoam:      pos.Add(r, r, r),
		MaxOccupants: w.cfg.MaxOccupants,
	}
	w.enclosures[key] = enc
	return enc, nil
}

func (w *World) Enclosure(key EnclosureKey) *Enclosure { return w.enclosures[key] }

// RemoveEnclosure releases every occupant and deletes the enclosure.
func (w *World) RemoveEnclosure(key EnclosureKey) error {
	enc := w.enclosures[key]
	if enc == nil {
		return ErrEnclosureNotFound
	}
	for _, o := range enc.Occupants() {
		w.Untether(enc, o.RecordID)
	}
	delete(w.enclosures, key)
	_ = w.SetBlock(key.Pos, "AIR")
	return nil
}

func (w *World) Enclosures() []*Enclosure {
	out := make([]*Enclosure, 0, len(w.enclosures))
	for _, e := range w.enclosures {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

// Tether moves a record the player owns into the enclosure and spawns its
// live instance one block above the enclosure.
func (w *World) Tether(enc *Enclosure, playerID, recordID uuid.UUID) (*Occupancy, error) {
	p := w.players[playerID]
	if p == nil || p.FindCreature(recordID) == nil {
		return nil, ErrNotOwned
	}
	if enc.FindOccupancy(recordID) != nil {
		return nil, ErrAlreadyTethered
	}
	if enc.Full() {
		return nil, ErrEnclosureFull
	}
	spawn := enc.Key.Pos.Add(0, 1, 0).Center()
	spawn.Y = float64(enc.Key.Pos.Y + 1)
	ent := w.Spawn(recordID, spawn)
	o := &Occupancy{RecordID: recordID, OwnerID: playerID, EntityID: ent.ID}
	if err := enc.AddOccupancy(o); err != nil {
		w.Despawn(ent.ID)
		return nil, err
	}
	return o, nil
}

func (w *World) Untether(enc *Enclosure, recordID uuid.UUID) bool {
	o := enc.RemoveOccupancy(recordID)
	if o == nil {
		return false
	}
	w.Despawn(o.EntityID)
	return true
}

// OccupantRecord resolves the creature record behind an occupancy through
// its owner's storage.
func (w *World) OccupantRecord(o *Occupancy) *Creature {
	if o == nil {
		return nil
	}
	p := w.players[o.OwnerID]
	if p == nil {
		return nil
	}
	return p.FindCreature(o.RecordID)
}
