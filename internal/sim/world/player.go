package world

import (
	"sort"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"breedcraft.ai/internal/sim/breeding/eggdata"
)

// MoveStat is a lifetime movement counter kept in centimetres.
type MoveStat int

const (
	MoveWalk MoveStat = iota
	MoveSprint
	MoveCrouch
	MoveSwim
	MoveFly
	MoveAviate
	numMoveStats
)

type Player struct {
	ID       uuid.UUID
	Name     string
	Online   bool
	Removed  bool
	InBattle bool
	Pos      r3.Vec

	Party []*Creature // fixed length; nil slots are empty
	PC    []*Creature
	pcCap int

	distanceCm [numMoveStats]int64
	messages   []string
}

func (w *World) AddPlayer(name string) *Player {
	return w.addPlayer(uuid.New(), name)
}

func (w *World) addPlayer(id uuid.UUID, name string) *Player {
	p := &Player{
		ID:     id,
		Name:   name,
		Online: true,
		Party:  make([]*Creature, w.cfg.PartySize),
		pcCap:  w.cfg.PCCapacity,
	}
	w.players[p.ID] = p
	return p
}

func (w *World) Player(id uuid.UUID) *Player { return w.players[id] }

func (w *World) Players() []*Player {
	out := make([]*Player, 0, len(w.players))
	for _, p := range w.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// FindCreature looks through the party and then the PC.
func (p *Player) FindCreature(id uuid.UUID) *Creature {
	for _, c := range p.Party {
		if c != nil && c.ID == id {
			return c
		}
	}
	for _, c := range p.PC {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// AddToParty places c in the first empty slot.
func (p *Player) AddToParty(c *Creature) (int, bool) {
	for i, s := range p.Party {
		if s == nil {
			p.Party[i] = c
			return i, true
		}
	}
	return -1, false
}

func (p *Player) PartySlot(i int) *Creature {
	if i < 0 || i >= len(p.Party) {
		return nil
	}
	return p.Party[i]
}

func (p *Player) SetPartySlot(i int, c *Creature) bool {
	if i < 0 || i >= len(p.Party) {
		return false
	}
	p.Party[i] = c
	return true
}

func (p *Player) PCFull() bool { return len(p.PC) >= p.pcCap }

func (p *Player) AddToPC(c *Creature) bool {
	if p.PCFull() {
		return false
	}
	p.PC = append(p.PC, c)
	return true
}

func (p *Player) RemoveFromPC(id uuid.UUID) *Creature {
	for i, c := range p.PC {
		if c.ID == id {
			p.PC = append(p.PC[:i], p.PC[i+1:]...)
			return c
		}
	}
	return nil
}

// BattleTeam is the party minus empty slots and eggs.
func (p *Player) BattleTeam() []*Creature {
	var out []*Creature
	for _, c := range p.Party {
		if c == nil || eggdata.IsEgg(c.Tags) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (p *Player) AddDistance(kind MoveStat, cm int64) {
	if kind < 0 || kind >= numMoveStats || cm <= 0 {
		return
	}
	p.distanceCm[kind] += cm
}

// TotalDistanceCm sums every movement counter.
func (p *Player) TotalDistanceCm() int64 {
	var total int64
	for _, v := range p.distanceCm {
		total += v
	}
	return total
}

func (p *Player) Notify(msg string) { p.messages = append(p.messages, msg) }

func (p *Player) Messages() []string { return append([]string(nil), p.messages...) }

func (p *Player) DrainMessages() []string {
	out := p.messages
	p.messages = nil
	return out
}

// PlayerByName finds a player by exact name.
func (w *World) PlayerByName(name string) *Player {
	for _, p := range w.Players() {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Connect returns the named player, creating it on first sight, and marks it
// online.
func (w *World) Connect(name string) *Player {
	p := w.PlayerByName(name)
	if p == nil {
		p = w.AddPlayer(name)
	}
	p.Online = true
	return p
}

func (w *World) Disconnect(id uuid.UUID) {
	if p := w.players[id]; p != nil {
		p.Online = false
	}
}
