package breeding

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"breedcraft.ai/internal/sim/tuning"
	"breedcraft.ai/internal/sim/world"
)

type Config struct {
	Courtship tuning.Courtship
	Walk      tuning.Walk
	Habitat   tuning.Habitat
	Egg       tuning.Egg
	Hatch     tuning.Hatch

	ShutdownGrace time.Duration
}

func ConfigFromTuning(t tuning.Tuning) Config {
	return Config{
		Courtship:     t.Courtship,
		Walk:          t.Walk,
		Habitat:       t.Habitat,
		Egg:           t.Egg,
		Hatch:         t.Hatch,
		ShutdownGrace: time.Duration(t.ShutdownGraceMs) * time.Millisecond,
	}
}

// Service runs breeding on top of a host world: one courtship state machine
// per enclosure, egg creation and hatching. It is not safe for concurrent
// use; call it only from the loop goroutine that steps the world.
type Service struct {
	w    *world.World
	cfg  Config
	log  *log.Logger
	sink EventSink
	rng  *rand.Rand

	registry *Registry
	hatch    *HatchTracker
	// unloaded holds enclosures still present in the world that the host
	// has unloaded; the throttled pass does not re-register them.
	unloaded map[world.EnclosureKey]struct{}
}

func New(w *world.World, cfg Config, logger *log.Logger, sink EventSink) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if sink == nil {
		sink = EventSinks(nil)
	}
	s := &Service{
		w:        w,
		cfg:      cfg,
		log:      logger,
		sink:     sink,
		rng:      rand.New(rand.NewPCG(uint64(w.Config().Seed), 0xb4eed)),
		registry: NewRegistry(cfg.Courtship.BaseDurationTicks),
		unloaded: map[world.EnclosureKey]struct{}{},
	}
	s.hatch = newHatchTracker(s)
	return s
}

func (s *Service) World() *world.World    { return s.w }
func (s *Service) Registry() *Registry    { return s.registry }
func (s *Service) Hatcher() *HatchTracker { return s.hatch }

// State returns the courtship state for an enclosure, or nil if it has not
// been observed.
func (s *Service) State(key world.EnclosureKey) *CourtshipState { return s.registry.Get(key) }

// Tick runs the throttled courtship pass and the hatch passes for nowTick.
// The caller steps the world first.
func (s *Service) Tick(nowTick uint64) {
	if throttle := uint64(s.cfg.Courtship.TickThrottle); throttle > 0 && nowTick%throttle == 0 {
		for _, enc := range s.w.Enclosures() {
			if _, off := s.unloaded[enc.Key]; off {
				continue
			}
			s.registry.Register(enc.Key)
		}
		for key := range s.unloaded {
			if s.w.Enclosure(key) == nil {
				delete(s.unloaded, key)
			}
		}
		for _, key := range s.registry.Keys() {
			s.stepCourtship(key, nowTick)
		}
	}
	if every := uint64(s.cfg.Hatch.EveryTicks); every > 0 && nowTick%every == 0 {
		s.hatch.CreditSteps()
		s.hatch.ProcessQueue(nowTick)
	}
}

// EnclosurePlaced registers a freshly placed enclosure.
func (s *Service) EnclosurePlaced(enc *world.Enclosure) *CourtshipState {
	delete(s.unloaded, enc.Key)
	return s.registry.Register(enc.Key)
}

// EnclosureLoaded registers an enclosure coming into the world and runs one
// selection pass so breeding resumes without waiting for the next throttled
// tick.
func (s *Service) EnclosureLoaded(enc *world.Enclosure, nowTick uint64) *CourtshipState {
	delete(s.unloaded, enc.Key)
	st := s.registry.Register(enc.Key)
	if !st.Active() {
		s.tryStart(enc, st, nowTick)
	}
	return st
}

// EnclosureUnloaded forgets the enclosure's courtship, releasing any walk
// objectives still attached to its parents. The enclosure stays out of the
// throttled pass until EnclosureLoaded or EnclosurePlaced brings it back.
func (s *Service) EnclosureUnloaded(key world.EnclosureKey) {
	enc := s.w.Enclosure(key)
	if enc != nil {
		s.unloaded[key] = struct{}{}
	}
	st := s.registry.Get(key)
	if st == nil {
		return
	}
	if enc != nil && st.Active() {
		s.releaseWalks(enc, st)
	}
	s.registry.Remove(key)
}

// Shutdown closes the event sink within the configured grace period.
func (s *Service) Shutdown(ctx context.Context) error {
	c, ok := s.sink.(io.Closer)
	if !ok {
		return nil
	}
	grace := s.cfg.ShutdownGrace
	if grace <= 0 {
		grace = 800 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Close() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("breeding shutdown: %w", ctx.Err())
	}
}

func (s *Service) emit(e Event) {
	e.Tick = s.w.CurrentTick()
	e.World = s.w.ID()
	s.sink.RecordEvent(e)
}

func idString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}
