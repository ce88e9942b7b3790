package world

import (
	"sort"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

// MoveIntent is a movement behaviour that owns an entity's navigation while
// attached. An entity carries at most one; the host's own wandering only
// acts on entities without one.
type MoveIntent interface {
	Start(e *Entity, nowTick uint64)
	ShouldContinue(e *Entity, nowTick uint64) bool
	Tick(e *Entity, nowTick uint64)
	Stop(e *Entity)
	// Targets reports whether the intent is already heading for p.
	Targets(p r3.Vec) bool
}

// Entity is the live, movable instance of a creature record.
type Entity struct {
	ID       int
	RecordID uuid.UUID
	Pos      r3.Vec
	Width    float64
	Height   float64
	Removed  bool
	Nav      Navigation

	Jumps int

	intent     MoveIntent
	wanderSeed uint64
}

func (e *Entity) BoundingBox() AABB {
	hw := e.Width / 2
	return AABB{
		Min: r3.Vec{X: e.Pos.X - hw, Y: e.Pos.Y, Z: e.Pos.Z - hw},
		Max: r3.Vec{X: e.Pos.X + hw, Y: e.Pos.Y + e.Height, Z: e.Pos.Z + hw},
	}
}

func (e *Entity) EyePos() r3.Vec { return r3.Vec{X: e.Pos.X, Y: e.Pos.Y + e.Height*0.85, Z: e.Pos.Z} }

func (e *Entity) Intent() MoveIntent { return e.intent }

// SetIntent replaces the current intent, stopping the previous one first.
func (e *Entity) SetIntent(i MoveIntent, nowTick uint64) {
	if e.intent != nil {
		e.intent.Stop(e)
	}
	e.intent = i
	if i != nil {
		i.Start(e, nowTick)
	}
}

// ClearIntent stops and detaches the current intent, if any.
func (e *Entity) ClearIntent() {
	if e.intent == nil {
		return
	}
	e.intent.Stop(e)
	e.intent = nil
}

// Navigation moves an entity in a straight line toward its target.
type Navigation struct {
	target *r3.Vec
	speed  float64
}

func (n *Navigation) MoveTo(p r3.Vec, speed float64) {
	t := p
	n.target = &t
	n.speed = speed
}

func (n *Navigation) Stop() {
	n.target = nil
	n.speed = 0
}

func (n *Navigation) Idle() bool { return n.target == nil }

func (n *Navigation) Target() (r3.Vec, bool) {
	if n.target == nil {
		return r3.Vec{}, false
	}
	return *n.target, true
}

// arriveDist is how close navigation gets before it reports idle.
const arriveDist = 0.1

func (w *World) stepNavigation(e *Entity) {
	t, ok := e.Nav.Target()
	if !ok {
		return
	}
	d := r3.Sub(t, e.Pos)
	dist := r3.Norm(d)
	step := w.cfg.EntitySpeed * e.Nav.speed
	if dist <= arriveDist || dist <= step {
		e.Pos = t
		e.Nav.Stop()
		return
	}
	e.Pos = r3.Add(e.Pos, r3.Scale(step/dist, d))
}

func (w *World) Spawn(recordID uuid.UUID, pos r3.Vec) *Entity {
	w.nextEntityID++
	e := &Entity{
		ID:         w.nextEntityID,
		RecordID:   recordID,
		Pos:        pos,
		Width:      0.6,
		Height:     0.8,
		wanderSeed: uint64(w.nextEntityID)*0x9e3779b97f4a7c15 ^ uint64(w.cfg.Seed),
	}
	w.entities[e.ID] = e
	return e
}

func (w *World) Entity(id int) *Entity {
	e := w.entities[id]
	if e == nil || e.Removed {
		return nil
	}
	return e
}

func (w *World) Despawn(id int) {
	e := w.entities[id]
	if e == nil {
		return
	}
	e.ClearIntent()
	e.Nav.Stop()
	e.Removed = true
	delete(w.entities, id)
}

// EntitiesIn returns live entities whose bounding box intersects box, in id
// order, filtered by keep when non-nil.
func (w *World) EntitiesIn(box AABB, keep func(*Entity) bool) []*Entity {
	var out []*Entity
	for _, e := range w.entities {
		if e.Removed || !e.BoundingBox().Intersects(box) {
			continue
		}
		if keep != nil && !keep(e) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (w *World) sortedEntities() []*Entity {
	out := make([]*Entity, 0, len(w.entities))
	for _, e := range w.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Jump plays the hop animation for an entity.
func (w *World) Jump(e *Entity) {
	e.Jumps++
	w.Emit(Effect{Kind: EffectJump, Pos: e.Pos, EntityID: e.ID})
	w.Emit(Effect{Kind: SoundJump, Pos: e.Pos, EntityID: e.ID})
}
