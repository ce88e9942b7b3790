package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

type Catalogs struct {
	Blocks       BlockCatalog
	Species      SpeciesCatalog
	Items        ItemCatalog
	Habitats     HabitatCatalog
	Temperaments TemperamentCatalog
}

type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]BlockDef
	PaletteDigest string
	DefsDigest    string
}

type BlockDef struct {
	ID          string `json:"id"`
	Solid       bool   `json:"solid"`
	Liquid      bool   `json:"liquid,omitempty"`
	Replaceable bool   `json:"replaceable,omitempty"`
}

type GenderPolicy string

const (
	GenderMixed      GenderPolicy = "mixed"
	GenderGenderless GenderPolicy = "genderless"
	GenderMaleOnly   GenderPolicy = "male_only"
	GenderFemaleOnly GenderPolicy = "female_only"
)

type SpeciesCatalog struct {
	ByID   map[string]SpeciesDef
	Order  []string
	Digest string
}

type SpeciesDef struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Types          []string     `json:"types"`
	Height         float64      `json:"height"` // decimetres
	EggCycles      int          `json:"egg_cycles,omitempty"`
	Gender         GenderPolicy `json:"gender"`
	MaleRatio      float64      `json:"male_ratio,omitempty"`
	PreEvolution   string       `json:"pre_evolution,omitempty"`
	UniversalDonor bool         `json:"universal_donor,omitempty"`
	Egg            bool         `json:"egg,omitempty"`
}

type ItemKind string

const (
	ItemBond     ItemKind = "bond"
	ItemFixation ItemKind = "fixation"
	ItemAffinity ItemKind = "affinity"
	ItemMisc     ItemKind = "misc"
)

type ItemCatalog struct {
	Defs   map[string]ItemDef
	Digest string
}

type ItemDef struct {
	ID   string   `json:"id"`
	Kind ItemKind `json:"kind"`
	Stat string   `json:"stat,omitempty"` // affinity items only
}

// HabitatCatalog maps an elemental affinity to the blocks that make an
// enclosure feel like home for it.
type HabitatCatalog struct {
	ByAffinity map[string]HabitatDef
	Digest     string
}

type HabitatDef struct {
	Base  []string `json:"base"`
	Decor []string `json:"decor"`

	baseSet  map[string]struct{}
	decorSet map[string]struct{}
}

func (h HabitatDef) IsBase(block string) bool {
	_, ok := h.baseSet[block]
	return ok
}

func (h HabitatDef) IsDecor(block string) bool {
	_, ok := h.decorSet[block]
	return ok
}

type TemperamentCatalog struct {
	IDs    []string
	index  map[string]struct{}
	Digest string
}

func (c TemperamentCatalog) Has(id string) bool {
	_, ok := c.index[id]
	return ok
}

// StatNames is the fixed order of the six stat potentials.
var StatNames = [6]string{"hp", "attack", "defence", "special_attack", "special_defence", "speed"}

func StatIndex(name string) (int, bool) {
	for i, n := range StatNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadBlocks(filepath.Join(configDir, "blocks.json"), &c.Blocks); err != nil {
		return nil, err
	}
	if err := loadSpecies(filepath.Join(configDir, "species.json"), &c.Species); err != nil {
		return nil, err
	}
	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	if err := loadHabitats(filepath.Join(configDir, "habitats.json"), &c.Blocks, &c.Habitats); err != nil {
		return nil, err
	}
	if err := loadTemperaments(filepath.Join(configDir, "temperaments.json"), &c.Temperaments); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadBlocks(path string, out *BlockCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	out.Defs = map[string]BlockDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("blocks.json: empty id")
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// Ensure AIR exists and is palette id 0.
	if _, ok := out.Defs["AIR"]; !ok {
		return fmt.Errorf("blocks.json: missing AIR")
	}
	ids = append([]string{"AIR"}, filterOut(ids, "AIR")...)

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func loadSpecies(path string, out *SpeciesCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []SpeciesDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("species.json: %w", err)
	}
	out.ByID = make(map[string]SpeciesDef, len(defs))
	for _, d := range defs {
		d.ID = strings.ToLower(strings.TrimSpace(d.ID))
		if d.ID == "" {
			return fmt.Errorf("species.json: empty id")
		}
		if _, dup := out.ByID[d.ID]; dup {
			return fmt.Errorf("species.json: duplicate id %q", d.ID)
		}
		if len(d.Types) == 0 || len(d.Types) > 2 {
			return fmt.Errorf("species.json: %s: want 1-2 types, got %d", d.ID, len(d.Types))
		}
		switch d.Gender {
		case GenderMixed, GenderGenderless, GenderMaleOnly, GenderFemaleOnly:
		case "":
			d.Gender = GenderMixed
		default:
			return fmt.Errorf("species.json: %s: bad gender policy %q", d.ID, d.Gender)
		}
		if d.Gender == GenderMixed && (d.MaleRatio <= 0 || d.MaleRatio >= 1) {
			d.MaleRatio = 0.5
		}
		d.PreEvolution = strings.ToLower(strings.TrimSpace(d.PreEvolution))
		out.ByID[d.ID] = d
		out.Order = append(out.Order, d.ID)
	}
	for _, id := range out.Order {
		pre := out.ByID[id].PreEvolution
		if pre == "" {
			continue
		}
		if _, ok := out.ByID[pre]; !ok {
			return fmt.Errorf("species.json: %s: unknown pre_evolution %q", id, pre)
		}
	}
	return nil
}

// Lookup resolves a species id case-insensitively.
func (c SpeciesCatalog) Lookup(id string) (SpeciesDef, bool) {
	d, ok := c.ByID[strings.ToLower(strings.TrimSpace(id))]
	return d, ok
}

// BaseForm follows pre-evolution links down to the first stage. The walk is
// bounded by the catalog size so a malformed cycle cannot loop forever.
func (c SpeciesCatalog) BaseForm(id string) (SpeciesDef, error) {
	d, ok := c.Lookup(id)
	if !ok {
		return SpeciesDef{}, fmt.Errorf("unknown species %q", id)
	}
	for steps := 0; d.PreEvolution != ""; steps++ {
		if steps > len(c.ByID) {
			return SpeciesDef{}, fmt.Errorf("pre-evolution cycle at species %q", id)
		}
		next, ok := c.ByID[d.PreEvolution]
		if !ok {
			return SpeciesDef{}, fmt.Errorf("species %q: unknown pre-evolution %q", d.ID, d.PreEvolution)
		}
		d = next
	}
	return d, nil
}

// Suggest returns up to n known species ids closest to id by edit distance.
func (c SpeciesCatalog) Suggest(id string, n int) []string {
	id = strings.ToLower(strings.TrimSpace(id))
	type cand struct {
		id   string
		dist int
	}
	cands := make([]cand, 0, len(c.Order))
	for _, sid := range c.Order {
		cands = append(cands, cand{id: sid, dist: levenshtein.ComputeDistance(id, sid)})
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })
	out := make([]string, 0, n)
	for _, cd := range cands {
		if len(out) >= n {
			break
		}
		// Beyond half the query length the match is noise.
		if cd.dist > len(id)/2+1 {
			break
		}
		out = append(out, cd.id)
	}
	return out
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	out.Defs = make(map[string]ItemDef, len(defs))
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("items.json: empty id")
		}
		switch d.Kind {
		case ItemBond, ItemFixation, ItemMisc:
		case ItemAffinity:
			if _, ok := StatIndex(d.Stat); !ok {
				return fmt.Errorf("items.json: %s: unknown stat %q", d.ID, d.Stat)
			}
		default:
			return fmt.Errorf("items.json: %s: bad kind %q", d.ID, d.Kind)
		}
		out.Defs[d.ID] = d
	}
	return nil
}

func (c ItemCatalog) Kind(id string) ItemKind {
	if id == "" {
		return ""
	}
	return c.Defs[id].Kind
}

func loadHabitats(path string, blocks *BlockCatalog, out *HabitatCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs map[string]HabitatDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("habitats.json: %w", err)
	}
	out.ByAffinity = make(map[string]HabitatDef, len(defs))
	for aff, d := range defs {
		d.baseSet = map[string]struct{}{}
		d.decorSet = map[string]struct{}{}
		for _, b := range d.Base {
			if _, ok := blocks.Defs[b]; !ok {
				return fmt.Errorf("habitats.json: %s: unknown base block %q", aff, b)
			}
			d.baseSet[b] = struct{}{}
		}
		for _, b := range d.Decor {
			if _, ok := blocks.Defs[b]; !ok {
				return fmt.Errorf("habitats.json: %s: unknown decor block %q", aff, b)
			}
			d.decorSet[b] = struct{}{}
		}
		out.ByAffinity[aff] = d
	}
	return nil
}

func loadTemperaments(path string, out *TemperamentCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return fmt.Errorf("temperaments.json: %w", err)
	}
	if len(ids) == 0 {
		return fmt.Errorf("temperaments.json: empty")
	}
	out.IDs = ids
	out.index = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out.index[id] = struct{}{}
	}
	return nil
}

func filterOut(xs []string, drop string) []string {
	out := xs[:0]
	for _, x := range xs {
		if x != drop {
			out = append(out, x)
		}
	}
	return out
}
