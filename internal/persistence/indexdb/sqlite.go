package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"breedcraft.ai/internal/persistence/snapshot"
	"breedcraft.ai/internal/sim/breeding"
	"breedcraft.ai/internal/sim/breeding/eggdata"
	"breedcraft.ai/internal/sim/catalogs"
	"breedcraft.ai/internal/sim/tuning"
	"breedcraft.ai/internal/sim/world"
)

// SQLiteIndex is a queryable read model of the breeding history. Writes are
// queued and applied by a single goroutine; the zstd event log stays the
// source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropEvent    atomic.Uint64
	dropSnapshot atomic.Uint64
}

type reqKind int

const (
	reqEvent reqKind = iota + 1
	reqSnapshot
)

type req struct {
	kind reqKind

	event    breeding.Event
	snapshot snapshotRow
}

type snapshotRow struct {
	Tick       uint64
	Path       string
	Seed       int64
	Players    int
	Enclosures int
	Courtships int
	Eggs       int
}

// Stats reports queue health.
type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropEventTotal    uint64
	DropSnapshotTotal uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func openDB(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			world TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			player_id TEXT,
			egg_id TEXT,
			reason TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_kind_tick ON events(kind, tick);`,
		`CREATE TABLE IF NOT EXISTS courtships (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			world TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			start_tick INTEGER NOT NULL,
			parent_a TEXT NOT NULL,
			parent_b TEXT NOT NULL,
			tier INTEGER NOT NULL DEFAULT 0,
			duration_ticks INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			end_tick INTEGER,
			egg_id TEXT,
			reason TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_courtships_pos ON courtships(world, x, y, z, status);`,
		`CREATE TABLE IF NOT EXISTS eggs (
			egg_id TEXT PRIMARY KEY,
			player_id TEXT NOT NULL,
			species TEXT NOT NULL,
			created_tick INTEGER NOT NULL,
			ivs TEXT NOT NULL,
			temperament TEXT NOT NULL,
			collected_tick INTEGER,
			hatched_tick INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_eggs_player ON eggs(player_id, created_tick);`,
		`CREATE TABLE IF NOT EXISTS hatches (
			egg_id TEXT PRIMARY KEY,
			player_id TEXT NOT NULL,
			species TEXT NOT NULL,
			tick INTEGER NOT NULL,
			ivs TEXT NOT NULL,
			temperament TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			seed INTEGER NOT NULL,
			players INTEGER NOT NULL,
			enclosures INTEGER NOT NULL,
			courtships INTEGER NOT NULL,
			eggs INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropEventTotal:    s.dropEvent.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

// RecordEvent queues a breeding event. It never blocks the loop.
func (s *SQLiteIndex) RecordEvent(e breeding.Event) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqEvent, event: e}:
	default:
		// Drop if the indexer falls behind; the event log keeps everything.
		s.dropEvent.Add(1)
	}
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Tick:       snap.Header.Tick,
		Path:       path,
		Seed:       snap.Seed,
		Players:    len(snap.Players),
		Enclosures: len(snap.Enclosures),
	}
	for _, cs := range snap.Breeding.Courtships {
		if cs.StartTick != nil {
			r.Courtships++
		}
	}
	for _, p := range snap.Players {
		for _, c := range p.Creatures {
			if eggdata.IsEgg(world.Tags(c.Tags)) {
				r.Eggs++
			}
		}
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

// UpsertCatalogs stores the catalogs and tuning the server runs with, so the
// ledger can be read without the config directory at hand.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	for _, f := range []struct {
		name, file, digest string
	}{
		{"blocks_defs", "blocks.json", cats.Blocks.DefsDigest},
		{"species", "species.json", cats.Species.Digest},
		{"items", "items.json", cats.Items.Digest},
		{"habitats", "habitats.json", cats.Habitats.Digest},
		{"temperaments", "temperaments.json", cats.Temperaments.Digest},
	} {
		if configDir == "" {
			break
		}
		b, err := os.ReadFile(filepath.Join(configDir, f.file))
		if err != nil {
			continue
		}
		rows = append(rows, kv{name: f.name, digest: f.digest, json: b})
	}
	if b, _ := json.Marshal(cats.Blocks.Palette); len(b) > 0 {
		rows = append(rows, kv{name: "blocks_palette", digest: cats.Blocks.PaletteDigest, json: b})
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second

		lastEventTick uint64
		eventSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqEvent:
			e := r.event
			if e.Tick != lastEventTick {
				lastEventTick = e.Tick
				eventSeq = 0
			}
			seq := eventSeq
			eventSeq++
			n, err := applyEvent(tx, e, seq)
			if err != nil {
				rollback()
				continue
			}
			opCount += n

		case reqSnapshot:
			sn := r.snapshot
			if _, err := tx.Exec(
				`INSERT OR REPLACE INTO snapshots(tick,path,seed,players,enclosures,courtships,eggs) VALUES(?,?,?,?,?,?,?)`,
				int64(sn.Tick), sn.Path, sn.Seed, sn.Players, sn.Enclosures, sn.Courtships, sn.Eggs,
			); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(s.ch) == 0 {
			commit()
		}
	}
	commit()
}

// applyEvent writes the raw event row and folds the event into the
// courtship, egg and hatch tables. It returns the number of statements run.
func applyEvent(tx *sql.Tx, e breeding.Event, seq int) (int, error) {
	raw, _ := json.Marshal(e)
	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO events(tick,seq,kind,world,x,y,z,player_id,egg_id,reason,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		int64(e.Tick), seq, string(e.Kind), e.World, e.Enclosure[0], e.Enclosure[1], e.Enclosure[2],
		e.PlayerID, e.EggID, e.Reason, string(raw),
	); err != nil {
		return 0, err
	}
	ivs, _ := json.Marshal(e.IVs)
	at := []any{e.World, e.Enclosure[0], e.Enclosure[1], e.Enclosure[2]}
	const running = ` WHERE world=? AND x=? AND y=? AND z=? AND status='RUNNING'`

	var stmts []struct {
		q    string
		args []any
	}
	add := func(q string, args ...any) {
		stmts = append(stmts, struct {
			q    string
			args []any
		}{q, args})
	}
	switch e.Kind {
	case breeding.EventCourtshipStarted:
		// A courtship cut short by a restart is superseded.
		add(`UPDATE courtships SET status='ABANDONED', end_tick=?`+running, append([]any{int64(e.Tick)}, at...)...)
		add(`INSERT INTO courtships(world,x,y,z,start_tick,parent_a,parent_b,status) VALUES(?,?,?,?,?,?,?,'RUNNING')`,
			append(at, int64(e.Tick), e.ParentA, e.ParentB)...)
	case breeding.EventDurationComputed:
		add(`UPDATE courtships SET tier=?, duration_ticks=?`+running, append([]any{e.Tier, e.Duration}, at...)...)
	case breeding.EventCourtshipCancelled:
		add(`UPDATE courtships SET status='CANCELLED', end_tick=?, reason=?`+running, append([]any{int64(e.Tick), e.Reason}, at...)...)
	case breeding.EventEggFailed:
		add(`UPDATE courtships SET status='FAILED', end_tick=?, reason=?`+running, append([]any{int64(e.Tick), e.Reason}, at...)...)
	case breeding.EventEggCreated:
		add(`UPDATE courtships SET status='EGG', end_tick=?, egg_id=?`+running, append([]any{int64(e.Tick), e.EggID}, at...)...)
		add(`INSERT OR REPLACE INTO eggs(egg_id,player_id,species,created_tick,ivs,temperament) VALUES(?,?,?,?,?,?)`,
			e.EggID, e.PlayerID, e.Species, int64(e.Tick), string(ivs), e.Temperament)
	case breeding.EventEggCollected:
		add(`UPDATE eggs SET collected_tick=? WHERE egg_id=? AND collected_tick IS NULL`, int64(e.Tick), e.EggID)
	case breeding.EventHatched:
		add(`INSERT OR REPLACE INTO hatches(egg_id,player_id,species,tick,ivs,temperament) VALUES(?,?,?,?,?,?)`,
			e.EggID, e.PlayerID, e.Species, int64(e.Tick), string(ivs), e.Temperament)
		add(`UPDATE eggs SET hatched_tick=? WHERE egg_id=?`, int64(e.Tick), e.EggID)
	}
	for _, st := range stmts {
		if _, err := tx.Exec(st.q, st.args...); err != nil {
			return 0, err
		}
	}
	return 1 + len(stmts), nil
}
