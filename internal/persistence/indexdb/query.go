package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
)

// Reader runs read-only queries against an index written by SQLiteIndex.
type Reader struct {
	db *sql.DB
}

func OpenReader(path string) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	return &Reader{db: db}, nil
}

func (r *Reader) Close() error { return r.db.Close() }

type EggRow struct {
	EggID         string `csv:"egg_id"`
	PlayerID      string `csv:"player_id"`
	Species       string `csv:"species"`
	CreatedTick   int64  `csv:"created_tick"`
	IVs           string `csv:"ivs"`
	Temperament   string `csv:"temperament"`
	CollectedTick int64  `csv:"collected_tick"` // 0 until collected
	HatchedTick   int64  `csv:"hatched_tick"`   // 0 until hatched
}

type CourtshipRow struct {
	World         string `csv:"world"`
	X             int    `csv:"x"`
	Y             int    `csv:"y"`
	Z             int    `csv:"z"`
	StartTick     int64  `csv:"start_tick"`
	ParentA       string `csv:"parent_a"`
	ParentB       string `csv:"parent_b"`
	Tier          int    `csv:"tier"`
	DurationTicks int    `csv:"duration_ticks"`
	Status        string `csv:"status"`
	EndTick       int64  `csv:"end_tick"`
	EggID         string `csv:"egg_id"`
	Reason        string `csv:"reason"`
}

type SnapshotRow struct {
	Tick       int64  `csv:"tick"`
	Path       string `csv:"path"`
	Seed       int64  `csv:"seed"`
	Players    int    `csv:"players"`
	Enclosures int    `csv:"enclosures"`
	Courtships int    `csv:"courtships"`
	Eggs       int    `csv:"eggs"`
}

// Eggs lists eggs newest first. An empty playerID matches everyone.
func (r *Reader) Eggs(ctx context.Context, playerID string, limit int) ([]EggRow, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT egg_id, player_id, species, created_tick, ivs, temperament,
		       COALESCE(collected_tick, 0), COALESCE(hatched_tick, 0)
		FROM eggs
		WHERE (? = '' OR player_id = ?)
		ORDER BY created_tick DESC, egg_id
		LIMIT ?`, playerID, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EggRow
	for rows.Next() {
		var e EggRow
		if err := rows.Scan(&e.EggID, &e.PlayerID, &e.Species, &e.CreatedTick, &e.IVs, &e.Temperament, &e.CollectedTick, &e.HatchedTick); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Courtships lists courtships newest first, filtered by status when given.
func (r *Reader) Courtships(ctx context.Context, status string, limit int) ([]CourtshipRow, error) {
	if limit <= 0 {
		limit = 100
	}
	switch status {
	case "", "RUNNING", "CANCELLED", "EGG", "FAILED", "ABANDONED":
	default:
		return nil, fmt.Errorf("unknown courtship status %q", status)
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT world, x, y, z, start_tick, parent_a, parent_b, tier, duration_ticks, status,
		       COALESCE(end_tick, 0), COALESCE(egg_id, ''), COALESCE(reason, '')
		FROM courtships
		WHERE (? = '' OR status = ?)
		ORDER BY start_tick DESC, id DESC
		LIMIT ?`, status, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CourtshipRow
	for rows.Next() {
		var c CourtshipRow
		if err := rows.Scan(&c.World, &c.X, &c.Y, &c.Z, &c.StartTick, &c.ParentA, &c.ParentB, &c.Tier,
			&c.DurationTicks, &c.Status, &c.EndTick, &c.EggID, &c.Reason); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Reader) Snapshots(ctx context.Context, limit int) ([]SnapshotRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT tick, path, seed, players, enclosures, courtships, eggs
		FROM snapshots ORDER BY tick DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SnapshotRow
	for rows.Next() {
		var s SnapshotRow
		if err := rows.Scan(&s.Tick, &s.Path, &s.Seed, &s.Players, &s.Enclosures, &s.Courtships, &s.Eggs); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CatalogDigest returns the digest stored for a catalog, or "" if absent.
func (r *Reader) CatalogDigest(ctx context.Context, name string) (string, error) {
	var d string
	err := r.db.QueryRowContext(ctx, `SELECT digest FROM catalogs WHERE name=?`, name).Scan(&d)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return d, err
}
