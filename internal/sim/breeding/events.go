package breeding

import "io"

type EventKind string

const (
	EventCourtshipStarted   EventKind = "COURTSHIP_STARTED"
	EventDurationComputed   EventKind = "DURATION_COMPUTED"
	EventWalkStarted        EventKind = "WALK_STARTED"
	EventParentsMet         EventKind = "PARENTS_MET"
	EventCourtshipCancelled EventKind = "COURTSHIP_CANCELLED"
	EventEggCreated         EventKind = "EGG_CREATED"
	EventEggFailed          EventKind = "EGG_FAILED"
	EventEggCollected       EventKind = "EGG_COLLECTED"
	EventHatched            EventKind = "HATCHED"
	EventHatchFailed        EventKind = "HATCH_FAILED"
)

// Event is one durable breeding fact, consumed by the event log and the
// sqlite ledger.
type Event struct {
	Tick        uint64    `json:"tick"`
	Kind        EventKind `json:"kind"`
	World       string    `json:"world"`
	Enclosure   [3]int    `json:"enclosure"`
	PlayerID    string    `json:"player_id,omitempty"`
	ParentA     string    `json:"parent_a,omitempty"`
	ParentB     string    `json:"parent_b,omitempty"`
	Species     string    `json:"species,omitempty"`
	EggID       string    `json:"egg_id,omitempty"`
	Tier        int       `json:"tier,omitempty"`
	Duration    int       `json:"duration_ticks,omitempty"`
	IVs         []int     `json:"ivs,omitempty"`
	Temperament string    `json:"temperament,omitempty"`
	Reason      string    `json:"reason,omitempty"`
}

type EventSink interface {
	RecordEvent(Event)
}

// EventSinks fans one event out to several sinks.
type EventSinks []EventSink

func (s EventSinks) RecordEvent(e Event) {
	for _, sink := range s {
		if sink != nil {
			sink.RecordEvent(e)
		}
	}
}

// Close closes every sink that is an io.Closer and returns the first error.
func (s EventSinks) Close() error {
	var first error
	for _, sink := range s {
		c, ok := sink.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// EventRecorder keeps events in memory.
type EventRecorder struct {
	Events []Event
}

func (r *EventRecorder) RecordEvent(e Event) { r.Events = append(r.Events, e) }

func (r *EventRecorder) Kinds() []EventKind {
	out := make([]EventKind, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.Kind)
	}
	return out
}
