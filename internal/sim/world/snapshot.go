package world

import (
	"fmt"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"breedcraft.ai/internal/persistence/snapshot"
)

// ExportSnapshot captures the host world. Breeding state is filled in by the
// breeding service. Must be called from the loop goroutine.
func (w *World) ExportSnapshot() snapshot.SnapshotV1 {
	s := snapshot.SnapshotV1{
		Header: snapshot.Header{Version: snapshot.Version, WorldID: w.cfg.ID, Tick: w.tick},
		Seed:   w.cfg.Seed,
	}
	for _, e := range w.blocks.Edits() {
		s.Blocks = append(s.Blocks, snapshot.BlockV1{Pos: e.Pos.ToArray(), Block: e.Block})
	}

	for _, p := range w.Players() {
		ps := snapshot.PlayerV1{
			ID:         p.ID.String(),
			Name:       p.Name,
			Pos:        [3]float64{p.Pos.X, p.Pos.Y, p.Pos.Z},
			DistanceCm: append([]int64(nil), p.distanceCm[:]...),
		}
		for i, c := range p.Party {
			if c != nil {
				ps.Creatures = append(ps.Creatures, exportCreature(c, i))
			}
		}
		for _, c := range p.PC {
			ps.Creatures = append(ps.Creatures, exportCreature(c, -1))
		}
		s.Players = append(s.Players, ps)
	}

	for _, enc := range w.Enclosures() {
		es := snapshot.EnclosureV1{
			Pos:          enc.Key.Pos.ToArray(),
			MinRoam:      enc.MinRoam.ToArray(),
			MaxRoam:      enc.MaxRoam.ToArray(),
			MaxOccupants: enc.MaxOccupants,
		}
		for _, o := range enc.occupants {
			occ := snapshot.OccupancyV1{RecordID: o.RecordID.String(), OwnerID: o.OwnerID.String()}
			if e := w.Entity(o.EntityID); e != nil {
				occ.Pos = [3]float64{e.Pos.X, e.Pos.Y, e.Pos.Z}
			}
			es.Occupants = append(es.Occupants, occ)
		}
		s.Enclosures = append(s.Enclosures, es)
	}
	return s
}

func exportCreature(c *Creature, slot int) snapshot.CreatureV1 {
	return snapshot.CreatureV1{
		ID:          c.ID.String(),
		Slot:        slot,
		Species:     c.Species,
		Level:       c.Level,
		Gender:      c.Gender.String(),
		HeldItem:    c.HeldItem,
		IVs:         c.IVs,
		Temperament: c.Temperament,
		Scale:       c.Scale,
		TrainerID:   c.Trainer.ID,
		TrainerName: c.Trainer.Name,
		Nickname:    c.Nickname,
		Tags:        c.Tags.Clone(),
	}
}

// ImportSnapshot replaces players, enclosures and block edits with the
// snapshot's and respawns tethered creatures where they stood.
//
// This must be called only when the world is stopped or from the loop goroutine.
func (w *World) ImportSnapshot(s snapshot.SnapshotV1) error {
	if s.Header.Version != snapshot.Version {
		return fmt.Errorf("unsupported snapshot version: %d", s.Header.Version)
	}
	if s.Header.WorldID != w.cfg.ID {
		return fmt.Errorf("snapshot world mismatch: cfg=%s snap=%s", w.cfg.ID, s.Header.WorldID)
	}
	if s.Seed != w.cfg.Seed {
		return fmt.Errorf("snapshot seed mismatch: cfg=%d snap=%d", w.cfg.Seed, s.Seed)
	}

	players := map[uuid.UUID]*Player{}
	for _, ps := range s.Players {
		id, err := uuid.Parse(ps.ID)
		if err != nil {
			return fmt.Errorf("player %q: %w", ps.ID, err)
		}
		p := &Player{
			ID:    id,
			Name:  ps.Name,
			Party: make([]*Creature, w.cfg.PartySize),
			pcCap: w.cfg.PCCapacity,
			Pos:   r3.Vec{X: ps.Pos[0], Y: ps.Pos[1], Z: ps.Pos[2]},
		}
		copy(p.distanceCm[:], ps.DistanceCm)
		for _, cs := range ps.Creatures {
			c, err := importCreature(cs)
			if err != nil {
				return fmt.Errorf("player %s: %w", ps.ID, err)
			}
			if cs.Slot >= 0 && cs.Slot < len(p.Party) && p.Party[cs.Slot] == nil {
				p.Party[cs.Slot] = c
			} else {
				p.PC = append(p.PC, c)
			}
		}
		players[id] = p
	}

	w.players = players
	w.entities = map[int]*Entity{}
	w.enclosures = map[EnclosureKey]*Enclosure{}
	w.blocks.edits = map[Vec3i]uint16{}
	for _, b := range s.Blocks {
		if err := w.SetBlock(FromArray(b.Pos), b.Block); err != nil {
			return err
		}
	}

	for _, es := range s.Enclosures {
		pos := FromArray(es.Pos)
		enc := &Enclosure{
			Key:          EnclosureKey{World: w.cfg.ID, Pos: pos},
			MinRoam:      FromArray(es.MinRoam),
			MaxRoam:      FromArray(es.MaxRoam),
			MaxOccupants: es.MaxOccupants,
		}
		for _, occ := range es.Occupants {
			rid, err := uuid.Parse(occ.RecordID)
			if err != nil {
				return fmt.Errorf("enclosure %v: record %q: %w", pos, occ.RecordID, err)
			}
			oid, err := uuid.Parse(occ.OwnerID)
			if err != nil {
				return fmt.Errorf("enclosure %v: owner %q: %w", pos, occ.OwnerID, err)
			}
			at := r3.Vec{X: occ.Pos[0], Y: occ.Pos[1], Z: occ.Pos[2]}
			if at == (r3.Vec{}) {
				at = pos.Add(0, 1, 0).Center()
				at.Y = float64(pos.Y + 1)
			}
			ent := w.Spawn(rid, at)
			enc.occupants = append(enc.occupants, &Occupancy{RecordID: rid, OwnerID: oid, EntityID: ent.ID})
		}
		w.enclosures[enc.Key] = enc
	}
	w.tick = s.Header.Tick
	return nil
}

func importCreature(cs snapshot.CreatureV1) (*Creature, error) {
	id, err := uuid.Parse(cs.ID)
	if err != nil {
		return nil, fmt.Errorf("creature %q: %w", cs.ID, err)
	}
	tags := Tags{}
	for k, v := range cs.Tags {
		tags[k] = v
	}
	return &Creature{
		ID:          id,
		Species:     cs.Species,
		Level:       cs.Level,
		Gender:      ParseGender(cs.Gender),
		HeldItem:    cs.HeldItem,
		IVs:         cs.IVs,
		Temperament: cs.Temperament,
		Scale:       cs.Scale,
		Trainer:     Trainer{ID: cs.TrainerID, Name: cs.TrainerName},
		Nickname:    cs.Nickname,
		Tags:        tags,
	}, nil
}
