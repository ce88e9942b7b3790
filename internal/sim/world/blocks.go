package world

import (
	"fmt"
	"sort"

	"breedcraft.ai/internal/sim/catalogs"
)

// FlatGen describes the default terrain: stone below, a few layers of dirt,
// one grass layer, air from GroundY up.
type FlatGen struct {
	MinY    int
	MaxY    int
	GroundY int

	Air   uint16
	Stone uint16
	Dirt  uint16
	Grass uint16
}

func (g FlatGen) At(p Vec3i) uint16 {
	switch {
	case p.Y >= g.GroundY:
		return g.Air
	case p.Y == g.GroundY-1:
		return g.Grass
	case p.Y >= g.GroundY-4:
		return g.Dirt
	default:
		return g.Stone
	}
}

// BlockStore keeps generated terrain implicit and stores only edits.
type BlockStore struct {
	Gen   FlatGen
	edits map[Vec3i]uint16
	cat   *catalogs.BlockCatalog
}

func NewBlockStore(gen FlatGen, cat *catalogs.BlockCatalog) *BlockStore {
	return &BlockStore{Gen: gen, edits: map[Vec3i]uint16{}, cat: cat}
}

func (s *BlockStore) InBounds(p Vec3i) bool {
	return p.Y >= s.Gen.MinY && p.Y < s.Gen.MaxY
}

func (s *BlockStore) Get(p Vec3i) uint16 {
	if !s.InBounds(p) {
		return s.Gen.Air
	}
	if b, ok := s.edits[p]; ok {
		return b
	}
	return s.Gen.At(p)
}

func (s *BlockStore) Set(p Vec3i, b uint16) {
	if !s.InBounds(p) {
		return
	}
	if s.Gen.At(p) == b {
		delete(s.edits, p)
		return
	}
	s.edits[p] = b
}

func (s *BlockStore) Name(b uint16) string {
	if int(b) < len(s.cat.Palette) {
		return s.cat.Palette[b]
	}
	return "AIR"
}

func (s *BlockStore) Def(b uint16) catalogs.BlockDef {
	return s.cat.Defs[s.Name(b)]
}

// Edits returns every stored edit ordered by position.
func (s *BlockStore) Edits() []BlockEdit {
	out := make([]BlockEdit, 0, len(s.edits))
	for p, b := range s.edits {
		out = append(out, BlockEdit{Pos: p, Block: s.Name(b)})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Pos, out[j].Pos
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
	return out
}

type BlockEdit struct {
	Pos   Vec3i
	Block string
}

func (w *World) BlockID(p Vec3i) string { return w.blocks.Name(w.blocks.Get(p)) }

func (w *World) SetBlock(p Vec3i, id string) error {
	b, ok := w.catalogs.Blocks.Index[id]
	if !ok {
		return fmt.Errorf("unknown block %q", id)
	}
	if !w.blocks.InBounds(p) {
		return fmt.Errorf("block %v out of bounds", p)
	}
	w.blocks.Set(p, b)
	return nil
}

func (w *World) blockDef(p Vec3i) catalogs.BlockDef { return w.blocks.Def(w.blocks.Get(p)) }

func (w *World) IsSolid(p Vec3i) bool { return w.blockDef(p).Solid }

func (w *World) IsLiquid(p Vec3i) bool { return w.blockDef(p).Liquid }

// IsClear reports whether a creature can occupy the block: air or a
// replaceable, non-liquid block.
func (w *World) IsClear(p Vec3i) bool {
	d := w.blockDef(p)
	return !d.Solid && !d.Liquid && (d.Replaceable || d.ID == "AIR")
}

func (w *World) MinY() int { return w.blocks.Gen.MinY }
func (w *World) MaxY() int { return w.blocks.Gen.MaxY }
