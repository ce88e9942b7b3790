package breeding

import (
	"gonum.org/v1/gonum/spatial/r3"

	"breedcraft.ai/internal/sim/tuning"
	"breedcraft.ai/internal/sim/world"
)

// targetEpsilonSq is how close two goals must be to count as the same goal.
const targetEpsilonSq = 0.01

// WalkObjective drives one entity to a point. It re-evaluates on the same
// throttle as the courtship driver, counts ticks spent idle while still out
// of reach, re-issues the move at each multiple of RetryEveryTicks past the
// first, and gives up after StuckLimitTicks.
type WalkObjective struct {
	Target r3.Vec

	cfg      tuning.Walk
	throttle uint64

	stuckTicks int
	finished   bool
}

func NewWalkObjective(target r3.Vec, cfg tuning.Walk, throttle int) *WalkObjective {
	if throttle < 1 {
		throttle = 1
	}
	return &WalkObjective{Target: target, cfg: cfg, throttle: uint64(throttle)}
}

func (o *WalkObjective) Start(e *world.Entity, _ uint64) {
	o.stuckTicks = 0
	o.finished = false
	e.Nav.MoveTo(o.Target, o.cfg.Speed)
}

func (o *WalkObjective) ShouldContinue(e *world.Entity, nowTick uint64) bool {
	if o.finished {
		return false
	}
	if nowTick%o.throttle != 0 {
		return true
	}
	if e.Nav.Idle() {
		if o.outOfReach(e) {
			o.stuckTicks += int(o.throttle)
			if o.stuckTicks > o.cfg.StuckLimitTicks {
				o.finished = true
				return false
			}
			return true
		}
		o.finished = true
		return false
	}
	o.stuckTicks = 0
	return true
}

func (o *WalkObjective) Tick(e *world.Entity, nowTick uint64) {
	if nowTick%o.throttle != 0 || !e.Nav.Idle() || !o.outOfReach(e) {
		return
	}
	every := o.cfg.RetryEveryTicks
	if every > 0 && o.stuckTicks > every && o.stuckTicks%every == 0 && o.stuckTicks <= o.cfg.StuckLimitTicks {
		e.Nav.MoveTo(o.Target, o.cfg.Speed)
	}
}

// Stop halts navigation only when it is still heading for this objective's
// goal; a newer, unrelated move request is left alone.
func (o *WalkObjective) Stop(e *world.Entity) {
	o.finished = true
	t, ok := e.Nav.Target()
	if !ok {
		return
	}
	if r3.Norm(r3.Sub(t, o.Target)) <= o.cfg.NavOwnershipRadius {
		e.Nav.Stop()
	}
}

func (o *WalkObjective) Targets(p r3.Vec) bool {
	return world.DistSq(p, o.Target) < targetEpsilonSq
}

// Running reports whether the objective is still trying to arrive.
func (o *WalkObjective) Running() bool { return !o.finished }

func (o *WalkObjective) StuckTicks() int { return o.stuckTicks }

func (o *WalkObjective) outOfReach(e *world.Entity) bool {
	r := o.cfg.ReachThreshold
	return world.DistSq(e.Pos, o.Target) > r*r
}

// attachWalk gives e a walk objective toward p unless its current intent is
// already heading there.
func attachWalk(e *world.Entity, p r3.Vec, cfg tuning.Walk, throttle int, nowTick uint64) {
	if cur := e.Intent(); cur != nil && cur.Targets(p) {
		return
	}
	e.SetIntent(NewWalkObjective(p, cfg, throttle), nowTick)
}

// walking reports whether e still runs a walk objective toward p.
func walking(e *world.Entity, p r3.Vec) bool {
	if e == nil {
		return false
	}
	o, ok := e.Intent().(*WalkObjective)
	return ok && o.Running() && o.Targets(p)
}

// detachWalk removes a walk objective toward p, leaving other intents alone.
func detachWalk(e *world.Entity, p r3.Vec) {
	if e == nil {
		return
	}
	if o, ok := e.Intent().(*WalkObjective); ok && o.Targets(p) {
		e.ClearIntent()
	}
}
