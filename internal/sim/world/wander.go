package world

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// systemWander is the host's default behaviour for tethered creatures that
// have no move intent: drift back toward the enclosure when close to the
// roam edge, otherwise take the occasional random stroll.
func (w *World) systemWander(nowTick uint64) {
	every := uint64(w.cfg.WanderEveryTicks)
	if every == 0 {
		return
	}
	for _, enc := range w.Enclosures() {
		center := enc.Key.Pos.Center()
		radius := math.Max(0, float64(w.cfg.RoamRadius-w.cfg.ReturnBuffer))
		for _, o := range enc.occupants {
			e := w.Entity(o.EntityID)
			if e == nil || e.intent != nil || !e.Nav.Idle() {
				continue
			}
			// Per-entity jitter so a pen full of creatures doesn't move in lockstep.
			if (nowTick+e.wanderSeed%every)%every != 0 {
				continue
			}
			flat := r3.Vec{X: e.Pos.X - center.X, Z: e.Pos.Z - center.Z}
			if r3.Norm2(flat) > radius*radius {
				home := r3.Vec{X: center.X, Y: e.Pos.Y, Z: center.Z}
				e.Nav.MoveTo(home, 1.0)
				continue
			}
			if w.rng.IntN(100) >= w.cfg.WanderChancePercent {
				continue
			}
			dx := w.rng.Float64()*2*radius - radius
			dz := w.rng.Float64()*2*radius - radius
			e.Nav.MoveTo(r3.Vec{X: center.X + dx, Y: e.Pos.Y, Z: center.Z + dz}, 0.6)
		}
	}
}
