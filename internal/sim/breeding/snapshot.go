package breeding

import (
	"fmt"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"breedcraft.ai/internal/persistence/snapshot"
	"breedcraft.ai/internal/sim/world"
)

// ExportSnapshot captures the host world together with every courtship and
// the hatch distance baselines. Must be called from the loop goroutine.
func (s *Service) ExportSnapshot() snapshot.SnapshotV1 {
	snap := s.w.ExportSnapshot()
	for _, key := range s.registry.Keys() {
		snap.Breeding.Courtships = append(snap.Breeding.Courtships, exportCourtship(key, s.registry.Get(key)))
	}
	snap.Breeding.Baselines = s.hatch.exportBaselines()
	return snap
}

func exportCourtship(key world.EnclosureKey, st *CourtshipState) snapshot.CourtshipV1 {
	cs := snapshot.CourtshipV1{
		Pos:                 key.Pos.ToArray(),
		ParentA:             idString(st.ParentA),
		ParentB:             idString(st.ParentB),
		SelectedA:           idString(st.SelectedA),
		SelectedB:           idString(st.SelectedB),
		UniversalDonorPair:  st.UniversalDonorPair,
		StartTick:           copyTick(st.StartTick),
		DurationTicks:       uint64(st.DurationTicks),
		QualityTier:         st.QualityTier,
		NeedsDurationRecalc: st.NeedsDurationRecalc,
		WalkingStarted:      st.WalkingStarted,
		MeetingReachedTick:  copyTick(st.MeetingReachedTick),
		JumpsPerformed:      st.JumpsPerformed,
		LastJumpTick:        st.LastJumpTick,
		AffectionPlayed:     st.AffectionPlayed,
	}
	if st.MeetingPoint != nil {
		cs.MeetingPoint = &[3]float64{st.MeetingPoint.X, st.MeetingPoint.Y, st.MeetingPoint.Z}
	}
	return cs
}

// ImportSnapshot restores the host world and breeding state. Parents that
// were walking when the snapshot was taken get their walk objectives back.
func (s *Service) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if err := s.w.ImportSnapshot(snap); err != nil {
		return err
	}
	reg := NewRegistry(s.cfg.Courtship.BaseDurationTicks)
	for _, cs := range snap.Breeding.Courtships {
		key := world.EnclosureKey{World: s.w.ID(), Pos: world.FromArray(cs.Pos)}
		st, err := importCourtship(cs, s.cfg.Courtship.BaseDurationTicks)
		if err != nil {
			return fmt.Errorf("courtship %s: %w", key, err)
		}
		reg.states[key] = st
	}
	if err := s.hatch.importBaselines(snap.Breeding.Baselines); err != nil {
		return fmt.Errorf("distance baselines: %w", err)
	}
	s.registry = reg

	nowTick := s.w.CurrentTick()
	margin := s.cfg.Courtship.LocatorMargin
	for _, key := range reg.Keys() {
		st := reg.Get(key)
		enc := s.w.Enclosure(key)
		if enc == nil || !st.Active() || !st.WalkingStarted || st.MeetingReachedTick != nil || st.MeetingPoint == nil {
			continue
		}
		for _, id := range []uuid.UUID{st.ParentA, st.ParentB} {
			if e := FindInstance(s.w, enc, id, margin); e != nil {
				attachWalk(e, *st.MeetingPoint, s.cfg.Walk, s.cfg.Courtship.TickThrottle, nowTick)
			}
		}
	}
	return nil
}

func importCourtship(cs snapshot.CourtshipV1, baseDuration int) (*CourtshipState, error) {
	st := newCourtshipState(baseDuration)
	var err error
	for _, f := range []struct {
		raw string
		dst *uuid.UUID
	}{
		{cs.ParentA, &st.ParentA},
		{cs.ParentB, &st.ParentB},
		{cs.SelectedA, &st.SelectedA},
		{cs.SelectedB, &st.SelectedB},
	} {
		if f.raw == "" {
			continue
		}
		if *f.dst, err = uuid.Parse(f.raw); err != nil {
			return nil, err
		}
	}
	st.UniversalDonorPair = cs.UniversalDonorPair
	st.StartTick = copyTick(cs.StartTick)
	st.DurationTicks = int(cs.DurationTicks)
	st.QualityTier = cs.QualityTier
	st.NeedsDurationRecalc = cs.NeedsDurationRecalc
	st.WalkingStarted = cs.WalkingStarted
	st.MeetingReachedTick = copyTick(cs.MeetingReachedTick)
	st.JumpsPerformed = cs.JumpsPerformed
	st.LastJumpTick = cs.LastJumpTick
	st.AffectionPlayed = cs.AffectionPlayed
	if cs.MeetingPoint != nil {
		mp := r3.Vec{X: cs.MeetingPoint[0], Y: cs.MeetingPoint[1], Z: cs.MeetingPoint[2]}
		st.MeetingPoint = &mp
	}
	if st.Active() != (st.ParentA != uuid.Nil && st.ParentB != uuid.Nil) {
		return nil, fmt.Errorf("start tick and parents disagree")
	}
	return st, nil
}

func copyTick(t *uint64) *uint64 {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
