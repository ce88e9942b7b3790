package breeding

import (
	"slices"
	"testing"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"breedcraft.ai/internal/sim/tuning"
)

func TestWalkObjective_StuckRetryAndGiveUp(t *testing.T) {
	f := newFixture(t)
	cfg := tuning.Defaults().Walk
	e := f.w.Spawn(uuid.New(), r3.Vec{X: 0.5, Y: 65, Z: 0.5})
	target := r3.Vec{X: 4.5, Y: 65, Z: 0.5}

	o := NewWalkObjective(target, cfg, 5)
	o.Start(e, 0)
	if e.Nav.Idle() {
		t.Fatalf("start should issue a move")
	}

	// Off-throttle ticks never evaluate.
	e.Nav.Stop()
	if !o.ShouldContinue(e, 3) || o.StuckTicks() != 0 {
		t.Fatalf("off-throttle tick changed state: stuck=%d", o.StuckTicks())
	}

	var retries []int
	for now := uint64(5); now <= 100; now += 5 {
		e.Nav.Stop()
		if !o.ShouldContinue(e, now) {
			if o.StuckTicks() <= cfg.StuckLimitTicks {
				t.Fatalf("gave up early at stuck=%d", o.StuckTicks())
			}
			if want := []int{40, 60}; !slices.Equal(retries, want) {
				t.Fatalf("retries at stuck=%v, want %v", retries, want)
			}
			if o.Running() {
				t.Fatalf("objective still running after giving up")
			}
			return
		}
		o.Tick(e, now)
		if !e.Nav.Idle() {
			retries = append(retries, o.StuckTicks())
		}
	}
	t.Fatalf("objective never gave up")
}

func TestWalkObjective_FinishesWithinReach(t *testing.T) {
	f := newFixture(t)
	cfg := tuning.Defaults().Walk
	e := f.w.Spawn(uuid.New(), r3.Vec{X: 0.5, Y: 65, Z: 0.5})
	o := NewWalkObjective(r3.Vec{X: 1.5, Y: 65, Z: 0.5}, cfg, 5)
	o.Start(e, 0)
	e.Nav.Stop()
	if o.ShouldContinue(e, 5) {
		t.Fatalf("idle within reach threshold should finish")
	}
}

func TestWalkObjective_StopRespectsNewerNavigation(t *testing.T) {
	f := newFixture(t)
	cfg := tuning.Defaults().Walk
	e := f.w.Spawn(uuid.New(), r3.Vec{X: 0.5, Y: 65, Z: 0.5})
	target := r3.Vec{X: 4.5, Y: 65, Z: 0.5}

	o := NewWalkObjective(target, cfg, 5)
	o.Start(e, 0)
	e.Nav.MoveTo(r3.Vec{X: 20, Y: 65, Z: 0.5}, 1)
	o.Stop(e)
	if e.Nav.Idle() {
		t.Fatalf("unrelated navigation was halted")
	}

	o = NewWalkObjective(target, cfg, 5)
	o.Start(e, 0)
	e.Nav.MoveTo(r3.Vec{X: 6.5, Y: 65, Z: 0.5}, 1)
	o.Stop(e)
	if !e.Nav.Idle() {
		t.Fatalf("navigation near the goal should be halted")
	}
}

func TestAttachWalk_NoDuplicate(t *testing.T) {
	f := newFixture(t)
	cfg := tuning.Defaults().Walk
	e := f.w.Spawn(uuid.New(), r3.Vec{X: 0.5, Y: 65, Z: 0.5})
	p := r3.Vec{X: 3.5, Y: 65, Z: 0.5}

	attachWalk(e, p, cfg, 5, 1)
	first := e.Intent()
	attachWalk(e, r3.Vec{X: 3.55, Y: 65, Z: 0.5}, cfg, 5, 2)
	if e.Intent() != first {
		t.Fatalf("a second objective toward the same point was attached")
	}
	if !walking(e, p) {
		t.Fatalf("walking() false while objective runs")
	}
	detachWalk(e, r3.Vec{X: 9, Y: 65, Z: 0})
	if e.Intent() == nil {
		t.Fatalf("detach toward another point removed the objective")
	}
	detachWalk(e, p)
	if e.Intent() != nil || walking(e, p) {
		t.Fatalf("objective not detached")
	}
}
