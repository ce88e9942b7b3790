package world

import (
	"fmt"
	"io"
	"log"
	"math/rand/v2"

	"github.com/google/uuid"

	"breedcraft.ai/internal/sim/catalogs"
	"breedcraft.ai/internal/sim/tuning"
)

type WorldConfig struct {
	ID      string
	Seed    int64
	MinY    int
	MaxY    int
	GroundY int

	RoamRadius   int
	MaxOccupants int
	PartySize    int
	PCCapacity   int
	EntitySpeed  float64

	WanderEveryTicks    int
	WanderChancePercent int
	ReturnBuffer        int
}

// ConfigFromTuning maps the tuning file onto a world config.
func ConfigFromTuning(id string, seed int64, t tuning.World) WorldConfig {
	return WorldConfig{
		ID:                  id,
		Seed:                seed,
		MinY:                t.MinY,
		MaxY:                t.MaxY,
		GroundY:             t.GroundY,
		RoamRadius:          t.RoamRadius,
		MaxOccupants:        t.MaxOccupants,
		PartySize:           t.PartySize,
		PCCapacity:          t.PCCapacity,
		EntitySpeed:         t.EntitySpeed,
		WanderEveryTicks:    t.WanderEveryTicks,
		WanderChancePercent: t.WanderChancePercent,
		ReturnBuffer:        t.ReturnBuffer,
	}
}

// World is the single-threaded host simulation the breeding service runs on:
// terrain, live entities, enclosures and players.
// All state must be accessed only from the loop goroutine.
type World struct {
	cfg      WorldConfig
	catalogs *catalogs.Catalogs
	log      *log.Logger

	tick uint64

	blocks     *BlockStore
	entities   map[int]*Entity
	enclosures map[EnclosureKey]*Enclosure
	players    map[uuid.UUID]*Player
	effects    []Effect

	nextEntityID int
	rng          *rand.Rand
}

func New(cfg WorldConfig, cats *catalogs.Catalogs, logger *log.Logger) (*World, error) {
	b := func(id string) (uint16, error) {
		v, ok := cats.Blocks.Index[id]
		if !ok {
			return 0, fmt.Errorf("missing block id in palette: %s", id)
		}
		return v, nil
	}
	var gen FlatGen
	var err error
	for _, r := range []struct {
		id  string
		dst *uint16
	}{
		{"AIR", &gen.Air}, {"STONE", &gen.Stone}, {"DIRT", &gen.Dirt}, {"GRASS", &gen.Grass},
	} {
		if *r.dst, err = b(r.id); err != nil {
			return nil, err
		}
	}
	if _, err := b("PASTURE"); err != nil {
		return nil, err
	}
	if cfg.MaxY <= cfg.MinY {
		return nil, fmt.Errorf("world %s: max_y %d <= min_y %d", cfg.ID, cfg.MaxY, cfg.MinY)
	}
	gen.MinY, gen.MaxY, gen.GroundY = cfg.MinY, cfg.MaxY, cfg.GroundY
	if cfg.PartySize <= 0 {
		cfg.PartySize = 6
	}
	if cfg.MaxOccupants <= 0 {
		cfg.MaxOccupants = 16
	}
	if cfg.EntitySpeed <= 0 {
		cfg.EntitySpeed = 0.25
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	w := &World{
		cfg:        cfg,
		catalogs:   cats,
		log:        logger,
		blocks:     NewBlockStore(gen, &cats.Blocks),
		entities:   map[int]*Entity{},
		enclosures: map[EnclosureKey]*Enclosure{},
		players:    map[uuid.UUID]*Player{},
		rng:        rand.New(rand.NewPCG(uint64(cfg.Seed), 0x5eed)),
	}
	return w, nil
}

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) Config() WorldConfig          { return w.cfg }
func (w *World) Catalogs() *catalogs.Catalogs { return w.catalogs }
func (w *World) CurrentTick() uint64          { return w.tick }
func (w *World) Rand() *rand.Rand             { return w.rng }
func (w *World) Logger() *log.Logger          { return w.log }
func (w *World) SurfaceY() int                { return w.cfg.GroundY }

// Step advances the world by one tick: move intents are evaluated first, then
// idle occupants wander, then navigation moves everything.
func (w *World) Step() uint64 {
	w.tick++
	now := w.tick
	for _, e := range w.sortedEntities() {
		if e.intent != nil {
			if e.intent.ShouldContinue(e, now) {
				e.intent.Tick(e, now)
			} else {
				e.ClearIntent()
			}
		}
	}
	w.systemWander(now)
	for _, e := range w.sortedEntities() {
		w.stepNavigation(e)
	}
	return now
}

// Notify queues a message for a player's client.
func (w *World) Notify(playerID uuid.UUID, msg string) {
	if p := w.players[playerID]; p != nil {
		p.Notify(msg)
	}
}

// FindCreature searches every player's storage for a record.
func (w *World) FindCreature(id uuid.UUID) (*Creature, *Player) {
	for _, p := range w.Players() {
		if c := p.FindCreature(id); c != nil {
			return c, p
		}
	}
	return nil, nil
}
