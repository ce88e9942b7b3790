package breeding

import (
	"sort"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"breedcraft.ai/internal/sim/world"
)

// CourtshipState is the per-enclosure courtship record. ParentA and ParentB
// are both set or both uuid.Nil; StartTick is non-nil exactly while a
// courtship runs. ParentB is always the reference parent: the female of a
// standard pair, the non-donor of a universal donor pair.
type CourtshipState struct {
	ParentA            uuid.UUID
	ParentB            uuid.UUID
	UniversalDonorPair bool

	// Parents pinned through the pasture menu; they take precedence over
	// automatic selection while compatible.
	SelectedA uuid.UUID
	SelectedB uuid.UUID

	StartTick           *uint64
	DurationTicks       int
	QualityTier         int
	NeedsDurationRecalc bool

	MeetingPoint       *r3.Vec
	WalkingStarted     bool
	MeetingReachedTick *uint64
	JumpsPerformed     int
	LastJumpTick       uint64
	AffectionPlayed    bool
}

func newCourtshipState(baseDuration int) *CourtshipState {
	return &CourtshipState{DurationTicks: baseDuration, QualityTier: 1}
}

func (s *CourtshipState) Active() bool { return s.StartTick != nil }

func (s *CourtshipState) Involves(id uuid.UUID) bool {
	return id != uuid.Nil && (s.ParentA == id || s.ParentB == id)
}

func (s *CourtshipState) begin(p Pair, nowTick uint64, baseDuration int) {
	s.reset(baseDuration)
	s.ParentA, s.ParentB = p.A, p.B
	s.UniversalDonorPair = p.UniversalDonor
	start := nowTick
	s.StartTick = &start
	s.NeedsDurationRecalc = true
}

// reset returns the state to idle. Pins survive.
func (s *CourtshipState) reset(baseDuration int) {
	s.ParentA, s.ParentB = uuid.Nil, uuid.Nil
	s.UniversalDonorPair = false
	s.StartTick = nil
	s.DurationTicks = baseDuration
	s.QualityTier = 1
	s.NeedsDurationRecalc = false
	s.MeetingPoint = nil
	s.WalkingStarted = false
	s.MeetingReachedTick = nil
	s.JumpsPerformed = 0
	s.LastJumpTick = 0
	s.AffectionPlayed = false
}

func (s *CourtshipState) elapsed(nowTick uint64) uint64 {
	if s.StartTick == nil || nowTick < *s.StartTick {
		return 0
	}
	return nowTick - *s.StartTick
}

// Phase names the sub-phase the state machine is in.
type Phase string

const (
	PhaseIdle       Phase = "IDLE"
	PhaseSizing     Phase = "SIZING"
	PhaseAmbient    Phase = "AMBIENT"
	PhaseWalking    Phase = "WALKING"
	PhaseStand      Phase = "STAND"
	PhaseJump       Phase = "JUMP"
	PhaseAffection  Phase = "AFFECTION"
	PhaseCompletion Phase = "COMPLETION"
)

func (s *CourtshipState) Phase(nowTick uint64, standTicks, jumpCount int) Phase {
	switch {
	case !s.Active():
		return PhaseIdle
	case s.NeedsDurationRecalc:
		return PhaseSizing
	case !s.WalkingStarted:
		return PhaseAmbient
	case s.MeetingReachedTick == nil:
		return PhaseWalking
	case nowTick-*s.MeetingReachedTick < uint64(standTicks):
		return PhaseStand
	case s.JumpsPerformed < jumpCount:
		return PhaseJump
	case !s.AffectionPlayed:
		return PhaseAffection
	default:
		return PhaseCompletion
	}
}

// Registry owns one CourtshipState per enclosure. Entries are created when an
// enclosure is first observed and dropped when it unloads.
type Registry struct {
	baseDuration int
	states       map[world.EnclosureKey]*CourtshipState
}

func NewRegistry(baseDuration int) *Registry {
	return &Registry{baseDuration: baseDuration, states: map[world.EnclosureKey]*CourtshipState{}}
}

// Register returns the state for key, creating it on first sight.
func (r *Registry) Register(key world.EnclosureKey) *CourtshipState {
	if s, ok := r.states[key]; ok {
		return s
	}
	s := newCourtshipState(r.baseDuration)
	r.states[key] = s
	return s
}

func (r *Registry) Get(key world.EnclosureKey) *CourtshipState { return r.states[key] }

func (r *Registry) Remove(key world.EnclosureKey) { delete(r.states, key) }

func (r *Registry) Len() int { return len(r.states) }

// Keys returns registered enclosures in a stable order.
func (r *Registry) Keys() []world.EnclosureKey {
	out := make([]world.EnclosureKey, 0, len(r.states))
	for k := range r.states {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
