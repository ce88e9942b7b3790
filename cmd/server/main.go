package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"breedcraft.ai/internal/persistence/indexdb"
	persistlog "breedcraft.ai/internal/persistence/log"
	"breedcraft.ai/internal/persistence/snapshot"
	"breedcraft.ai/internal/protocol"
	"breedcraft.ai/internal/sim/breeding"
	"breedcraft.ai/internal/sim/catalogs"
	"breedcraft.ai/internal/sim/loop"
	"breedcraft.ai/internal/sim/tuning"
	"breedcraft.ai/internal/sim/world"
	"breedcraft.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "pasture_1", "world id")
		seed       = flag.Int64("seed", 1337, "world seed")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite breeding ledger")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
		starter    = flag.Bool("starter_pasture", true, "place an enclosure at the origin when starting a fresh world")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	snapDir := filepath.Join(worldDir, "snapshots")
	if err := os.MkdirAll(snapDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(worldDir, "index", "ledger.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
	}
	eventLog := persistlog.NewEventLogger(worldDir, log.New(os.Stdout, "[events] ", log.LstdFlags|log.Lmicroseconds))

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = snapshot.Latest(snapDir)
	}

	var snap *snapshot.SnapshotV1
	worldSeed := *seed
	if snapshotToLoad != "" {
		s, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if s.Header.WorldID != *worldID {
			logger.Fatalf("snapshot world id mismatch: flag=%s snap=%s", *worldID, s.Header.WorldID)
		}
		snap = &s
		worldSeed = s.Seed
	}

	w, err := world.New(world.ConfigFromTuning(*worldID, worldSeed, tune.World), cats, log.New(os.Stdout, "[world] ", log.LstdFlags|log.Lmicroseconds))
	if err != nil {
		logger.Fatalf("world: %v", err)
	}

	// The index is nil-safe but an interface holding a nil pointer is not.
	sinks := breeding.EventSinks{eventLog}
	if idx != nil {
		sinks = append(sinks, idx)
	}
	svc := breeding.New(w, breeding.ConfigFromTuning(tune), log.New(os.Stdout, "[breeding] ", log.LstdFlags|log.Lmicroseconds), sinks)

	if snap != nil {
		if err := svc.ImportSnapshot(*snap); err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(snapshotToLoad), w.CurrentTick())
	} else if *starter {
		enc, err := w.PlaceEnclosure(world.Vec3i{X: 0, Y: w.SurfaceY(), Z: 0})
		if err != nil {
			logger.Fatalf("place starter pasture: %v", err)
		}
		svc.EnclosurePlaced(enc)
	}
	for _, enc := range w.Enclosures() {
		svc.EnclosureLoaded(enc, w.CurrentTick())
	}

	l := loop.New(svc, loop.Config{
		TickRateHz:         tune.TickRateHz,
		SnapshotEveryTicks: tune.SnapshotEveryTicks,
		Digests: protocol.CatalogDigests{
			BlockPalette: cats.Blocks.PaletteDigest,
			Species:      cats.Species.Digest,
			Items:        cats.Items.Digest,
			Habitats:     cats.Habitats.Digest,
			Temperaments: cats.Temperaments.Digest,
		},
	}, logger)

	ctx, cancel := signalContext()
	defer cancel()

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	l.SetSnapshotSink(snapCh)
	snapDone := make(chan struct{})
	go func() {
		defer close(snapDone)
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-snapCh:
				writeSnapshot(logger, idx, snapDir, s)
			}
		}
	}()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := l.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("loop stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		m := l.Metrics()

		fmt.Fprintf(rw, "# HELP breedcraft_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE breedcraft_world_tick gauge\n")
		fmt.Fprintf(rw, "breedcraft_world_tick{world=%q} %d\n", *worldID, m.Tick)

		fmt.Fprintf(rw, "# HELP breedcraft_ui_requests_total UI requests handled.\n")
		fmt.Fprintf(rw, "# TYPE breedcraft_ui_requests_total counter\n")
		fmt.Fprintf(rw, "breedcraft_ui_requests_total{world=%q} %d\n", *worldID, m.UIRequestsTotal)

		fmt.Fprintf(rw, "# HELP breedcraft_drops_total Messages dropped because a queue was full.\n")
		fmt.Fprintf(rw, "# TYPE breedcraft_drops_total counter\n")
		fmt.Fprintf(rw, "breedcraft_drops_total{world=%q,queue=%q} %d\n", *worldID, "notice", m.NoticeDropsTotal)
		fmt.Fprintf(rw, "breedcraft_drops_total{world=%q,queue=%q} %d\n", *worldID, "snapshot", m.SnapshotDropsTotal)
		if idx != nil {
			st := idx.Stats()
			fmt.Fprintf(rw, "breedcraft_drops_total{world=%q,queue=%q} %d\n", *worldID, "index_event", st.DropEventTotal)
			fmt.Fprintf(rw, "breedcraft_drops_total{world=%q,queue=%q} %d\n", *worldID, "index_snapshot", st.DropSnapshotTotal)

			fmt.Fprintf(rw, "# HELP breedcraft_index_queue_depth Ledger writer backlog.\n")
			fmt.Fprintf(rw, "# TYPE breedcraft_index_queue_depth gauge\n")
			fmt.Fprintf(rw, "breedcraft_index_queue_depth{world=%q} %d\n", *worldID, st.QueueDepth)
		}
	})
	mux.HandleFunc("/v1/ui", ws.NewServer(l, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	// The loop goroutine has exited, so the world is safe to read here.
	<-loopDone
	<-snapDone
	writeSnapshot(logger, idx, snapDir, svc.ExportSnapshot())
	if err := svc.Shutdown(context.Background()); err != nil {
		logger.Printf("shutdown: %v", err)
	}
	logger.Printf("stopped at tick %d", w.CurrentTick())
}

func writeSnapshot(logger *log.Logger, idx *indexdb.SQLiteIndex, dir string, s snapshot.SnapshotV1) {
	path := filepath.Join(dir, snapshot.FileName(s.Header.Tick))
	if err := snapshot.WriteSnapshot(path, s); err != nil {
		logger.Printf("snapshot write: %v", err)
		return
	}
	idx.RecordSnapshot(path, s)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
