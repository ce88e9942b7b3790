package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/gocarina/gocsv"

	"breedcraft.ai/internal/persistence/indexdb"
	persistlog "breedcraft.ai/internal/persistence/log"
	"breedcraft.ai/internal/persistence/snapshot"
	"breedcraft.ai/internal/sim/breeding/eggdata"
	"breedcraft.ai/internal/sim/catalogs"
	"breedcraft.ai/internal/sim/world"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "eggs":
			eggsCmd(os.Args[2:])
			return
		case "courtships":
			courtshipsCmd(os.Args[2:])
			return
		case "export-csv":
			exportCSVCmd(os.Args[2:])
			return
		case "species":
			speciesCmd(os.Args[2:])
			return
		case "events":
			eventsCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	entries, err := os.ReadDir(filepath.Join(*dataDir, "worlds"))
	if err != nil {
		fatal("read: %v", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			fmt.Println(e.Name())
		}
	}
}

type worldFlags struct {
	dataDir *string
	worldID *string
}

func addWorldFlags(fs *flag.FlagSet) worldFlags {
	return worldFlags{
		dataDir: fs.String("data", "./data", "runtime data directory"),
		worldID: fs.String("world", "pasture_1", "world id"),
	}
}

func (f worldFlags) dir() string { return filepath.Join(*f.dataDir, "worlds", *f.worldID) }

func (f worldFlags) openIndex() *indexdb.Reader {
	r, err := indexdb.OpenReader(filepath.Join(f.dir(), "index", "ledger.sqlite"))
	if err != nil {
		fatal("open index: %v", err)
	}
	return r
}

func eggsCmd(args []string) {
	fs := flag.NewFlagSet("eggs", flag.ExitOnError)
	wf := addWorldFlags(fs)
	player := fs.String("player", "", "player id filter (optional)")
	limit := fs.Int("limit", 50, "max rows")
	_ = fs.Parse(args)

	r := wf.openIndex()
	defer r.Close()
	rows, err := r.Eggs(context.Background(), *player, *limit)
	if err != nil {
		fatal("query eggs: %v", err)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EGG\tPLAYER\tSPECIES\tCREATED\tCOLLECTED\tHATCHED\tTEMPERAMENT\tIVS")
	for _, e := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			e.EggID, e.PlayerID, e.Species, e.CreatedTick, tickOrDash(e.CollectedTick), tickOrDash(e.HatchedTick), e.Temperament, e.IVs)
	}
	_ = tw.Flush()
}

func courtshipsCmd(args []string) {
	fs := flag.NewFlagSet("courtships", flag.ExitOnError)
	wf := addWorldFlags(fs)
	status := fs.String("status", "", "RUNNING|CANCELLED|EGG|FAILED|ABANDONED (optional)")
	limit := fs.Int("limit", 50, "max rows")
	_ = fs.Parse(args)

	r := wf.openIndex()
	defer r.Close()
	rows, err := r.Courtships(context.Background(), strings.ToUpper(*status), *limit)
	if err != nil {
		fatal("query courtships: %v", err)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENCLOSURE\tSTART\tEND\tSTATUS\tTIER\tDURATION\tPARENT_A\tPARENT_B\tEGG\tREASON")
	for _, c := range rows {
		fmt.Fprintf(tw, "%d,%d,%d\t%d\t%s\t%s\t%d\t%d\t%s\t%s\t%s\t%s\n",
			c.X, c.Y, c.Z, c.StartTick, tickOrDash(c.EndTick), c.Status, c.Tier, c.DurationTicks, c.ParentA, c.ParentB, c.EggID, c.Reason)
	}
	_ = tw.Flush()
}

func exportCSVCmd(args []string) {
	fs := flag.NewFlagSet("export-csv", flag.ExitOnError)
	wf := addWorldFlags(fs)
	table := fs.String("table", "eggs", "eggs|courtships|snapshots")
	out := fs.String("out", "", "output file (default stdout)")
	limit := fs.Int("limit", 100000, "max rows")
	_ = fs.Parse(args)

	r := wf.openIndex()
	defer r.Close()
	ctx := context.Background()

	var rows any
	var err error
	switch *table {
	case "eggs":
		rows, err = r.Eggs(ctx, "", *limit)
	case "courtships":
		rows, err = r.Courtships(ctx, "", *limit)
	case "snapshots":
		rows, err = r.Snapshots(ctx, *limit)
	default:
		fatal("unknown table %q", *table)
	}
	if err != nil {
		fatal("query %s: %v", *table, err)
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fatal("create: %v", err)
		}
		defer f.Close()
		w = f
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		fatal("write csv: %v", err)
	}
}

func speciesCmd(args []string) {
	fs := flag.NewFlagSet("species", flag.ExitOnError)
	configDir := fs.String("configs", "./configs", "config directory")
	_ = fs.Parse(args)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fatal("load catalogs: %v", err)
	}
	if fs.NArg() == 0 {
		for _, id := range cats.Species.Order {
			fmt.Println(id)
		}
		return
	}
	for _, q := range fs.Args() {
		d, ok := cats.Species.Lookup(q)
		if !ok {
			fmt.Printf("%s: unknown species", q)
			if s := cats.Species.Suggest(q, 3); len(s) > 0 {
				fmt.Printf(" (did you mean %s?)", strings.Join(s, ", "))
			}
			fmt.Println()
			continue
		}
		base, err := cats.Species.BaseForm(d.ID)
		if err != nil {
			fatal("%s: %v", d.ID, err)
		}
		fmt.Printf("%s name=%q types=%s height=%.1f egg_cycles=%d gender=%s base=%s donor=%t\n",
			d.ID, d.Name, strings.Join(d.Types, "/"), d.Height, d.EggCycles, d.Gender, base.ID, d.UniversalDonor)
	}
}

func eventsCmd(args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	wf := addWorldFlags(fs)
	kind := fs.String("kind", "", "event kind filter (optional)")
	_ = fs.Parse(args)

	evs, err := persistlog.ReadEvents(filepath.Join(wf.dir(), "events"))
	if err != nil {
		fatal("read events: %v", err)
	}
	enc := json.NewEncoder(os.Stdout)
	for _, e := range evs {
		if *kind != "" && !strings.EqualFold(string(e.Kind), *kind) {
			continue
		}
		_ = enc.Encode(e)
	}
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	wf := addWorldFlags(fs)
	snapPath := fs.String("snapshot", "", "snapshot path (default: latest)")
	_ = fs.Parse(args)

	path := *snapPath
	if path == "" {
		path = snapshot.Latest(filepath.Join(wf.dir(), "snapshots"))
	}
	if path == "" {
		fatal("no snapshot found")
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		fatal("read snapshot: %v", err)
	}
	fmt.Printf("snapshot=%s world=%s tick=%d seed=%d\n", filepath.Base(path), snap.Header.WorldID, snap.Header.Tick, snap.Seed)
	for _, p := range snap.Players {
		eggs := 0
		for _, c := range p.Creatures {
			if eggdata.IsEgg(world.Tags(c.Tags)) {
				eggs++
			}
		}
		fmt.Printf("player %s %q creatures=%d eggs=%d\n", p.ID, p.Name, len(p.Creatures), eggs)
	}
	for _, c := range snap.Breeding.Courtships {
		state := "idle"
		if c.StartTick != nil {
			state = fmt.Sprintf("running since %d (tier %d, %d ticks)", *c.StartTick, c.QualityTier, c.DurationTicks)
		}
		fmt.Printf("enclosure %d,%d,%d %s\n", c.Pos[0], c.Pos[1], c.Pos[2], state)
	}
}

func tickOrDash(t int64) string {
	if t == 0 {
		return "-"
	}
	return fmt.Sprint(t)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
