package world

import "gonum.org/v1/gonum/spatial/r3"

type EffectKind string

const (
	EffectAmbientAffection EffectKind = "AMBIENT_AFFECTION"
	EffectHearts           EffectKind = "HEARTS"
	EffectJump             EffectKind = "JUMP"
	EffectHatch            EffectKind = "HATCH_BURST"
	SoundJump              EffectKind = "SOUND_JUMP"
	SoundEggCrack          EffectKind = "SOUND_EGG_CRACK"
)

// Effect is a particle or sound cue for clients. The world keeps a bounded
// backlog that transports drain.
type Effect struct {
	Tick     uint64     `json:"tick"`
	Kind     EffectKind `json:"kind"`
	Pos      r3.Vec     `json:"pos"`
	Count    int        `json:"count,omitempty"`
	Tier     int        `json:"tier,omitempty"`
	EntityID int        `json:"entity_id,omitempty"`
}

const maxEffectBacklog = 1024

func (w *World) Emit(e Effect) {
	e.Tick = w.tick
	if len(w.effects) >= maxEffectBacklog {
		w.effects = w.effects[1:]
	}
	w.effects = append(w.effects, e)
}

func (w *World) Effects() []Effect { return append([]Effect(nil), w.effects...) }

func (w *World) DrainEffects() []Effect {
	out := w.effects
	w.effects = nil
	return out
}
