package breeding

import (
	"testing"

	"breedcraft.ai/internal/sim/breeding/eggdata"
	"breedcraft.ai/internal/sim/world"
)

func eggSteps(t *testing.T, c *world.Creature) int {
	t.Helper()
	e, ok := eggdata.Read(c.Tags)
	if !ok {
		t.Fatalf("%s is not an egg", c.ID)
	}
	return e.CurrentSteps
}

func TestHatchTracker_CreditsWholeStepsWithoutLoss(t *testing.T) {
	f := newFixture(t)
	h := f.svc.Hatcher()
	egg, _ := partyEgg(t, f, "sproutle", 10, 0)

	f.p.AddDistance(world.MoveWalk, 1000)
	h.CreditSteps()
	if got := eggSteps(t, egg); got != 0 {
		t.Fatalf("first observation credited %d steps", got)
	}
	if b, ok := h.Baseline(f.p.ID); !ok || b != 1000 {
		t.Fatalf("baseline=%d ok=%v", b, ok)
	}

	f.p.AddDistance(world.MoveSprint, 300)
	h.CreditSteps()
	if got := eggSteps(t, egg); got != 1 {
		t.Fatalf("steps=%d want 1", got)
	}
	f.p.AddDistance(world.MoveSwim, 212)
	h.CreditSteps()
	if got := eggSteps(t, egg); got != 2 {
		t.Fatalf("remainder lost: steps=%d want 2", got)
	}
	if b, _ := h.Baseline(f.p.ID); b != 1000+2*256 {
		t.Fatalf("baseline=%d", b)
	}

	f.p.AddDistance(world.MoveFly, 100*256)
	h.CreditSteps()
	if got := eggSteps(t, egg); got != 10 {
		t.Fatalf("steps=%d want clamp at 10", got)
	}
	if q := h.Pending(f.p.ID); len(q) != 1 || q[0] != egg.ID {
		t.Fatalf("queue=%v", q)
	}
	f.p.AddDistance(world.MoveWalk, 256)
	h.CreditSteps()
	if q := h.Pending(f.p.ID); len(q) != 1 {
		t.Fatalf("ready egg queued twice: %v", q)
	}
}

func TestHatchTracker_OnePerPassAndBattleSafety(t *testing.T) {
	f := newFixture(t)
	h := f.svc.Hatcher()
	first, s1 := partyEgg(t, f, "sproutleaf", 2, 0)
	second, s2 := partyEgg(t, f, "puddlit", 2, 0)

	h.CreditSteps()
	f.p.AddDistance(world.MoveWalk, 2*256)
	h.CreditSteps()
	if len(h.Pending(f.p.ID)) != 2 {
		t.Fatalf("queue=%v", h.Pending(f.p.ID))
	}

	f.p.InBattle = true
	h.ProcessQueue(1)
	if !eggdata.IsEgg(f.p.PartySlot(s1).Tags) || len(h.Pending(f.p.ID)) != 2 {
		t.Fatalf("hatched during battle")
	}

	f.p.InBattle = false
	h.ProcessQueue(2)
	if got := f.p.PartySlot(s1); got.ID != first.ID || got.Species != "sproutle" {
		t.Fatalf("slot %d holds %s", s1, got.Species)
	}
	if !eggdata.IsEgg(f.p.PartySlot(s2).Tags) {
		t.Fatalf("two eggs hatched in one pass")
	}
	h.ProcessQueue(3)
	if got := f.p.PartySlot(s2); got.ID != second.ID || got.Species != "puddlit" {
		t.Fatalf("slot %d holds %s", s2, got.Species)
	}
	if len(h.Pending(f.p.ID)) != 0 {
		t.Fatalf("queue=%v", h.Pending(f.p.ID))
	}
}

func TestHatchTracker_OfflineDropsQueue(t *testing.T) {
	f := newFixture(t)
	h := f.svc.Hatcher()
	_, slot := partyEgg(t, f, "sproutle", 1, 0)
	h.CreditSteps()
	f.p.AddDistance(world.MoveWalk, 256)
	h.CreditSteps()

	f.w.Disconnect(f.p.ID)
	h.ProcessQueue(1)
	if len(h.Pending(f.p.ID)) != 0 {
		t.Fatalf("offline queue kept")
	}
	if !eggdata.IsEgg(f.p.PartySlot(slot).Tags) {
		t.Fatalf("hatched while offline")
	}

	// Back online, the full egg is queued again on the next credit.
	f.w.Connect("ash")
	f.p.AddDistance(world.MoveWalk, 256)
	h.CreditSteps()
	h.ProcessQueue(2)
	if eggdata.IsEgg(f.p.PartySlot(slot).Tags) {
		t.Fatalf("egg did not hatch after reconnect")
	}
}

func TestHatchTracker_RechecksBeforeHatching(t *testing.T) {
	f := newFixture(t)
	h := f.svc.Hatcher()
	egg, slot := partyEgg(t, f, "sproutle", 1, 0)
	h.CreditSteps()
	f.p.AddDistance(world.MoveWalk, 256)
	h.CreditSteps()

	// The egg left the party between the passes.
	f.p.SetPartySlot(slot, nil)
	f.p.AddToPC(egg)
	h.ProcessQueue(1)
	if !eggdata.IsEgg(egg.Tags) || f.countEvents(EventHatched) != 0 {
		t.Fatalf("egg outside the party hatched")
	}
}

func TestService_TickRunsHatchPasses(t *testing.T) {
	f := newFixture(t)
	_, slot := partyEgg(t, f, "sproutle", 1, 0)
	every := f.tun.Hatch.EveryTicks

	f.runUntil(t, every, func() bool { _, ok := f.svc.Hatcher().Baseline(f.p.ID); return ok })
	f.p.AddDistance(world.MoveWalk, 256)
	f.runUntil(t, every, func() bool { return f.countEvents(EventHatched) == 1 })
	if got := f.p.PartySlot(slot).Species; got != "sproutle" {
		t.Fatalf("slot holds %s", got)
	}
}
