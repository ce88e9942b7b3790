package breeding

import (
	"github.com/google/uuid"

	"breedcraft.ai/internal/sim/world"
)

func (s *Service) stepCourtship(key world.EnclosureKey, nowTick uint64) {
	st := s.registry.Get(key)
	enc := s.w.Enclosure(key)
	if enc == nil {
		// The enclosure is gone; its state goes with it.
		s.registry.Remove(key)
		return
	}
	if !st.Active() {
		s.tryStart(enc, st, nowTick)
		return
	}

	oa := enc.FindOccupancy(st.ParentA)
	ob := enc.FindOccupancy(st.ParentB)
	if oa == nil || ob == nil {
		s.cancel(enc, st, "occupancy missing")
		return
	}
	margin := s.cfg.Courtship.LocatorMargin
	ea := FindInstance(s.w, enc, st.ParentA, margin)
	eb := FindInstance(s.w, enc, st.ParentB, margin)

	if st.NeedsDurationRecalc {
		if ea == nil || eb == nil {
			return
		}
		ref := s.w.OccupantRecord(ob)
		if ref == nil {
			s.cancel(enc, st, "reference parent record missing")
			return
		}
		st.DurationTicks, st.QualityTier = ComputeDuration(s.w, key.Pos, ref, s.cfg.Courtship.BaseDurationTicks, s.cfg.Habitat)
		st.NeedsDurationRecalc = false
		s.emit(Event{
			Kind:      EventDurationComputed,
			Enclosure: key.Pos.ToArray(),
			ParentA:   st.ParentA.String(),
			ParentB:   st.ParentB.String(),
			Tier:      st.QualityTier,
			Duration:  st.DurationTicks,
		})
	}
	if ea == nil || eb == nil {
		s.cancel(enc, st, "parent instance missing")
		return
	}

	c := s.cfg.Courtship
	elapsed := st.elapsed(nowTick)
	dur := uint64(st.DurationTicks)
	switch {
	case elapsed < dur:
		if every := uint64(c.AmbientEffectEveryTicks); every > 0 && nowTick%every == 0 {
			for _, e := range []*world.Entity{ea, eb} {
				s.w.Emit(world.Effect{Kind: world.EffectAmbientAffection, Pos: e.EyePos(), Count: 3, Tier: st.QualityTier, EntityID: e.ID})
			}
		}

	case !st.WalkingStarted:
		mp := MeetingPoint(s.w, ea.Pos, eb.Pos, c.MeetingSearchDepth)
		st.MeetingPoint = &mp
		attachWalk(ea, mp, s.cfg.Walk, c.TickThrottle, nowTick)
		attachWalk(eb, mp, s.cfg.Walk, c.TickThrottle, nowTick)
		st.WalkingStarted = true
		s.emit(Event{Kind: EventWalkStarted, Enclosure: key.Pos.ToArray(), ParentA: st.ParentA.String(), ParentB: st.ParentB.String()})

	case st.MeetingReachedTick == nil:
		mp := *st.MeetingPoint
		if elapsed > dur+uint64(c.WalkTimeoutExtraTicks) {
			s.cancel(enc, st, "walk timed out")
			return
		}
		if walking(ea, mp) || walking(eb, mp) {
			if elapsed < dur+uint64(c.WalkToMeetTicks) {
				return
			}
		}
		detachWalk(ea, mp)
		detachWalk(eb, mp)
		met := nowTick
		st.MeetingReachedTick = &met
		st.LastJumpTick = nowTick
		s.emit(Event{Kind: EventParentsMet, Enclosure: key.Pos.ToArray(), ParentA: st.ParentA.String(), ParentB: st.ParentB.String()})

	default:
		s.stepMet(enc, st, ob, ea, eb, nowTick)
	}
}

func (s *Service) stepMet(enc *world.Enclosure, st *CourtshipState, ob *world.Occupancy, ea, eb *world.Entity, nowTick uint64) {
	c := s.cfg.Courtship
	if nowTick-*st.MeetingReachedTick < uint64(c.StandTicks) {
		return
	}
	if st.JumpsPerformed < c.JumpCount {
		if nowTick-st.LastJumpTick >= uint64(c.JumpDelayTicks) {
			jumper := ea
			if st.JumpsPerformed%2 == 1 {
				jumper = eb
			}
			s.w.Jump(jumper)
			st.JumpsPerformed++
			st.LastJumpTick = nowTick
		}
		return
	}
	if !st.AffectionPlayed {
		maxDist := c.AffectionMaxDistance
		if world.DistSq(ea.Pos, eb.Pos) > maxDist*maxDist {
			s.cancel(enc, st, "parents wandered apart")
			return
		}
		for _, e := range []*world.Entity{ea, eb} {
			s.w.Emit(world.Effect{Kind: world.EffectHearts, Pos: e.EyePos(), Count: 5, Tier: st.QualityTier, EntityID: e.ID})
		}
		st.AffectionPlayed = true
		return
	}

	owner := s.w.Player(ob.OwnerID)
	if owner == nil || !owner.Online || owner.Removed {
		// Completion waits for the owner to come back.
		return
	}
	pair := Pair{A: st.ParentA, B: st.ParentB, UniversalDonor: st.UniversalDonorPair}
	if _, err := s.CreateEgg(enc, pair, owner); err != nil {
		s.log.Printf("courtship %s: egg not created: %v", enc.Key, err)
	}
	st.reset(s.cfg.Courtship.BaseDurationTicks)
}

// tryStart begins a courtship with the pinned pair when it is compatible,
// otherwise with whatever pair automatic selection finds.
func (s *Service) tryStart(enc *world.Enclosure, st *CourtshipState, nowTick uint64) {
	// Pins of creatures that left the enclosure lapse.
	if st.SelectedA != uuid.Nil && enc.FindOccupancy(st.SelectedA) == nil {
		st.SelectedA = uuid.Nil
	}
	if st.SelectedB != uuid.Nil && enc.FindOccupancy(st.SelectedB) == nil {
		st.SelectedB = uuid.Nil
	}
	pair, ok := Pair{}, false
	if st.SelectedA != uuid.Nil && st.SelectedB != uuid.Nil {
		pair, ok = PairFor(s.w, enc, st.SelectedA, st.SelectedB)
	}
	if !ok {
		pair, ok = FindBreedingPair(s.w, enc)
	}
	if !ok {
		return
	}
	st.begin(pair, nowTick, s.cfg.Courtship.BaseDurationTicks)
	s.emit(Event{
		Kind:      EventCourtshipStarted,
		Enclosure: enc.Key.Pos.ToArray(),
		ParentA:   pair.A.String(),
		ParentB:   pair.B.String(),
	})
}

// cancel drops an active courtship back to idle.
func (s *Service) cancel(enc *world.Enclosure, st *CourtshipState, reason string) {
	if !st.Active() {
		return
	}
	s.releaseWalks(enc, st)
	s.log.Printf("courtship %s cancelled: %s", enc.Key, reason)
	s.emit(Event{
		Kind:      EventCourtshipCancelled,
		Enclosure: enc.Key.Pos.ToArray(),
		ParentA:   idString(st.ParentA),
		ParentB:   idString(st.ParentB),
		Reason:    reason,
	})
	st.reset(s.cfg.Courtship.BaseDurationTicks)
}

func (s *Service) releaseWalks(enc *world.Enclosure, st *CourtshipState) {
	if st.MeetingPoint == nil {
		return
	}
	margin := s.cfg.Courtship.LocatorMargin
	for _, id := range []uuid.UUID{st.ParentA, st.ParentB} {
		detachWalk(FindInstance(s.w, enc, id, margin), *st.MeetingPoint)
	}
}

// Cancel aborts the courtship at key, if any.
func (s *Service) Cancel(key world.EnclosureKey, reason string) bool {
	st := s.registry.Get(key)
	enc := s.w.Enclosure(key)
	if st == nil || enc == nil || !st.Active() {
		return false
	}
	s.cancel(enc, st, reason)
	return true
}
