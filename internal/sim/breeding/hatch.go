package breeding

import (
	"slices"
	"sort"

	"github.com/google/uuid"

	"breedcraft.ai/internal/persistence/snapshot"
	"breedcraft.ai/internal/sim/breeding/eggdata"
	"breedcraft.ai/internal/sim/world"
)

// HatchTracker credits hatch steps to party eggs from the distance players
// travel and hatches ready eggs one per player per pass.
type HatchTracker struct {
	s *Service

	// Distance already converted into steps, per player.
	baselines map[uuid.UUID]int64
	// Ready eggs awaiting hatching, in the order they became ready.
	queues map[uuid.UUID][]uuid.UUID
}

func newHatchTracker(s *Service) *HatchTracker {
	return &HatchTracker{
		s:         s,
		baselines: map[uuid.UUID]int64{},
		queues:    map[uuid.UUID][]uuid.UUID{},
	}
}

func (h *HatchTracker) stepCm() int64 {
	if v := h.s.cfg.Egg.StepsPerEggCycle; v > 0 {
		return int64(v)
	}
	return 256
}

// CreditSteps converts new distance into hatch steps for every online
// player's party eggs. A player's first observation only sets the baseline.
func (h *HatchTracker) CreditSteps() {
	per := h.stepCm()
	for _, p := range h.s.w.Players() {
		if !p.Online || p.Removed {
			continue
		}
		total := p.TotalDistanceCm()
		base, seen := h.baselines[p.ID]
		if !seen || total < base {
			h.baselines[p.ID] = total
			continue
		}
		credited := int((total - base) / per)
		if credited <= 0 {
			continue
		}
		h.baselines[p.ID] = base + int64(credited)*per

		for _, c := range p.Party {
			if c == nil {
				continue
			}
			egg, ok := eggdata.Read(c.Tags)
			if !ok {
				continue
			}
			if !egg.Ready() {
				egg.CurrentSteps = min(egg.TotalSteps, egg.CurrentSteps+credited)
				eggdata.Write(c.Tags, egg)
			}
			if egg.Ready() {
				h.enqueue(p.ID, c.ID)
			}
		}
	}
}

func (h *HatchTracker) enqueue(playerID, recordID uuid.UUID) {
	q := h.queues[playerID]
	if slices.Contains(q, recordID) {
		return
	}
	h.queues[playerID] = append(q, recordID)
}

// ProcessQueue hatches at most one queued egg per player. Queues of players
// who left are dropped; players in battle keep theirs for a later pass.
func (h *HatchTracker) ProcessQueue(nowTick uint64) {
	ids := make([]uuid.UUID, 0, len(h.queues))
	for id := range h.queues {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		p := h.s.w.Player(id)
		if p == nil || !p.Online || p.Removed {
			delete(h.queues, id)
			continue
		}
		if p.InBattle {
			continue
		}
		q := h.queues[id]
		recordID := q[0]
		if len(q) == 1 {
			delete(h.queues, id)
		} else {
			h.queues[id] = q[1:]
		}
		slot := partySlotOf(p, recordID)
		if slot < 0 {
			continue
		}
		if egg, ok := eggdata.Read(p.Party[slot].Tags); !ok || !egg.Ready() {
			continue
		}
		if _, err := h.s.Hatch(p, slot); err != nil {
			h.s.log.Printf("hatch pass tick=%d player=%s: %v", nowTick, p.ID, err)
		}
	}
}

func partySlotOf(p *world.Player, recordID uuid.UUID) int {
	for i, c := range p.Party {
		if c != nil && c.ID == recordID {
			return i
		}
	}
	return -1
}

// Pending returns the queued egg ids for a player.
func (h *HatchTracker) Pending(playerID uuid.UUID) []uuid.UUID {
	return append([]uuid.UUID(nil), h.queues[playerID]...)
}

// Baseline returns the distance already credited for a player.
func (h *HatchTracker) Baseline(playerID uuid.UUID) (int64, bool) {
	v, ok := h.baselines[playerID]
	return v, ok
}

func (h *HatchTracker) exportBaselines() []snapshot.DistanceBaseline {
	out := make([]snapshot.DistanceBaseline, 0, len(h.baselines))
	for id, cm := range h.baselines {
		out = append(out, snapshot.DistanceBaseline{PlayerID: id.String(), TotalCm: cm})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}

func (h *HatchTracker) importBaselines(in []snapshot.DistanceBaseline) error {
	next := make(map[uuid.UUID]int64, len(in))
	for _, b := range in {
		id, err := uuid.Parse(b.PlayerID)
		if err != nil {
			return err
		}
		next[id] = b.TotalCm
	}
	h.baselines = next
	h.queues = map[uuid.UUID][]uuid.UUID{}
	return nil
}
