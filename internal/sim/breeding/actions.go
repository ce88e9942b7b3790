package breeding

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"breedcraft.ai/internal/protocol"
	"breedcraft.ai/internal/sim/breeding/eggdata"
	"breedcraft.ai/internal/sim/world"
)

// lookup resolves the enclosure and its courtship state for a UI action.
func (s *Service) lookup(key world.EnclosureKey) (*world.Enclosure, *CourtshipState, error) {
	enc := s.w.Enclosure(key)
	if enc == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrEnclosureNotFound, key)
	}
	return enc, s.registry.Register(key), nil
}

func (s *Service) actingPlayer(id uuid.UUID) (*world.Player, error) {
	p := s.w.Player(id)
	if p == nil || !p.Online || p.Removed {
		return nil, ErrPlayerUnavailable
	}
	return p, nil
}

// SelectParent pins one of the player's occupants as a preferred parent.
// Selecting an already pinned parent changes nothing. With two pins held the
// older one is replaced. The courtship itself starts on a later tick.
func (s *Service) SelectParent(playerID uuid.UUID, key world.EnclosureKey, recordID uuid.UUID) error {
	if _, err := s.actingPlayer(playerID); err != nil {
		return err
	}
	enc, st, err := s.lookup(key)
	if err != nil {
		return err
	}
	o := enc.FindOccupancy(recordID)
	if o == nil {
		return ErrNotOccupant
	}
	if o.OwnerID != playerID {
		return ErrNotOwner
	}
	if _, ok := breedable(s.w, o); !ok {
		return ErrNotBreedable
	}
	if st.SelectedA == recordID || st.SelectedB == recordID {
		return nil
	}
	switch {
	case st.SelectedA == uuid.Nil:
		st.SelectedA = recordID
	case st.SelectedB == uuid.Nil:
		st.SelectedB = recordID
	default:
		st.SelectedA, st.SelectedB = st.SelectedB, recordID
	}

	// A running courtship between other parents yields to the new pins.
	if st.Active() && st.SelectedA != uuid.Nil && st.SelectedB != uuid.Nil {
		if !(st.Involves(st.SelectedA) && st.Involves(st.SelectedB)) {
			s.cancel(enc, st, "parents reselected")
		}
	}
	return nil
}

// DeselectParent unpins a parent and cancels any courtship it is part of.
// Deselecting a parent that is not pinned changes nothing.
func (s *Service) DeselectParent(playerID uuid.UUID, key world.EnclosureKey, recordID uuid.UUID) error {
	if _, err := s.actingPlayer(playerID); err != nil {
		return err
	}
	enc, st, err := s.lookup(key)
	if err != nil {
		return err
	}
	if o := enc.FindOccupancy(recordID); o != nil && o.OwnerID != playerID {
		return ErrNotOwner
	}
	switch recordID {
	case st.SelectedA:
		st.SelectedA = uuid.Nil
	case st.SelectedB:
		st.SelectedB = uuid.Nil
	default:
		return nil
	}
	if st.Active() && st.Involves(recordID) {
		s.cancel(enc, st, "parent deselected")
	}
	return nil
}

// CollectEgg takes an egg out of the enclosure and into the player's party,
// or leaves it in storage when the party is full. Collecting an egg the
// player already holds returns it unchanged; one another player already
// took fails with ErrEggTaken.
func (s *Service) CollectEgg(playerID uuid.UUID, key world.EnclosureKey, recordID uuid.UUID) (*world.Creature, error) {
	p, err := s.actingPlayer(playerID)
	if err != nil {
		return nil, err
	}
	enc, _, err := s.lookup(key)
	if err != nil {
		return nil, err
	}
	o := enc.FindOccupancy(recordID)
	if o == nil {
		if rec := p.FindCreature(recordID); rec != nil && eggdata.IsEgg(rec.Tags) {
			return rec, nil
		}
		if rec, holder := s.w.FindCreature(recordID); rec != nil && holder.ID != playerID && eggdata.IsEgg(rec.Tags) {
			return nil, ErrEggTaken
		}
		return nil, ErrNotOccupant
	}
	if o.OwnerID != playerID {
		return nil, ErrNotOwner
	}
	rec := s.w.OccupantRecord(o)
	if rec == nil || !eggdata.IsEgg(rec.Tags) {
		return nil, ErrNotEgg
	}

	s.w.Untether(enc, recordID)
	if p.RemoveFromPC(recordID) != nil {
		if _, ok := p.AddToParty(rec); !ok {
			p.AddToPC(rec)
			p.Notify("Your party is full, so the egg was sent to storage.")
		}
	}
	s.emit(Event{
		Kind:      EventEggCollected,
		Enclosure: key.Pos.ToArray(),
		PlayerID:  playerID.String(),
		EggID:     recordID.String(),
		Species:   rec.Tags.String(eggdata.KeyTargetSpecies),
	})
	return rec, nil
}

// View describes the enclosure's courtship for rendering.
func (s *Service) View(key world.EnclosureKey, nowTick uint64) (protocol.CourtshipView, error) {
	enc := s.w.Enclosure(key)
	if enc == nil {
		return protocol.CourtshipView{}, fmt.Errorf("%w: %s", ErrEnclosureNotFound, key)
	}
	st := s.registry.Get(key)
	if st == nil {
		st = newCourtshipState(s.cfg.Courtship.BaseDurationTicks)
	}
	c := s.cfg.Courtship
	v := protocol.CourtshipView{
		Enclosure:          key.Pos.ToArray(),
		Phase:              string(st.Phase(nowTick, c.StandTicks, c.JumpCount)),
		ParentA:            idString(st.ParentA),
		ParentB:            idString(st.ParentB),
		SelectedA:          idString(st.SelectedA),
		SelectedB:          idString(st.SelectedB),
		UniversalDonorPair: st.UniversalDonorPair,
		QualityTier:        st.QualityTier,
		DurationTicks:      st.DurationTicks,
		ElapsedTicks:       st.elapsed(nowTick),
		Occupants:          []protocol.OccupantView{},
	}
	switch {
	case st.Active():
		v.Compatible = true
	case st.SelectedA != uuid.Nil && st.SelectedB != uuid.Nil:
		_, v.Compatible = PairFor(s.w, enc, st.SelectedA, st.SelectedB)
	default:
		_, v.Compatible = FindBreedingPair(s.w, enc)
	}
	for _, o := range enc.Occupants() {
		ov := protocol.OccupantView{
			RecordID: o.RecordID.String(),
			OwnerID:  o.OwnerID.String(),
			Selected: o.RecordID == st.SelectedA || o.RecordID == st.SelectedB,
		}
		if rec := s.w.OccupantRecord(o); rec != nil {
			ov.Species = rec.Species
			ov.Gender = rec.Gender.String()
			ov.Nickname = rec.Nickname
			ov.Egg = eggdata.IsEgg(rec.Tags)
			v.EggReady = v.EggReady || ov.Egg
		}
		v.Occupants = append(v.Occupants, ov)
	}
	return v, nil
}

// HandleUI applies one pasture-menu request and describes the result.
func (s *Service) HandleUI(playerID uuid.UUID, req protocol.UIRequestMsg) protocol.UIUpdateMsg {
	nowTick := s.w.CurrentTick()
	resp := protocol.UIUpdateMsg{
		Type:            protocol.TypeUIUpdate,
		ProtocolVersion: protocol.Version,
		ReqID:           req.ReqID,
		Tick:            nowTick,
	}
	key := world.EnclosureKey{World: s.w.ID(), Pos: world.FromArray(req.Enclosure)}

	var err error
	if req.Action != protocol.ActionView {
		recordID, perr := uuid.Parse(req.RecordID)
		if perr != nil {
			resp.Code, resp.Message = protocol.ErrBadRequest, "bad record_id"
			return resp
		}
		switch req.Action {
		case protocol.ActionSelectParent:
			err = s.SelectParent(playerID, key, recordID)
		case protocol.ActionDeselectParent:
			err = s.DeselectParent(playerID, key, recordID)
		case protocol.ActionCollectEgg:
			_, err = s.CollectEgg(playerID, key, recordID)
		default:
			resp.Code, resp.Message = protocol.ErrBadRequest, "unknown action: "+req.Action
			return resp
		}
	}
	if err != nil {
		resp.Code, resp.Message = errorCode(err), err.Error()
		return resp
	}
	v, err := s.View(key, nowTick)
	if err != nil {
		resp.Code, resp.Message = errorCode(err), err.Error()
		return resp
	}
	resp.Accepted = true
	resp.View = &v
	return resp
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrEnclosureNotFound),
		errors.Is(err, ErrNotOccupant),
		errors.Is(err, ErrNotEgg),
		errors.Is(err, ErrNotBreedable):
		return protocol.ErrInvalidTarget
	case errors.Is(err, ErrNotOwner):
		return protocol.ErrNoPermission
	case errors.Is(err, ErrEggTaken):
		return protocol.ErrConflict
	case errors.Is(err, ErrStorageFull), errors.Is(err, ErrEnclosureFull):
		return protocol.ErrNoResource
	case errors.Is(err, ErrPlayerUnavailable):
		return protocol.ErrBlocked
	default:
		return protocol.ErrInternal
	}
}
