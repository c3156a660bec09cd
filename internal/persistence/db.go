// Package persistence provides SQLite-based storage for region graphs,
// keyed by normalized map name, so a map is analyzed once and reloaded on
// later runs.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/regionmap/internal/grid"
	"github.com/talgya/regionmap/internal/regions"
)

var (
	// ErrGraphNotFound indicates no usable graph is stored for a map.
	ErrGraphNotFound = errors.New("persistence: region graph not found")
	// ErrEmptyMapName indicates a map name with no letters or digits.
	ErrEmptyMapName = errors.New("persistence: map name is empty after normalization")
)

// DB wraps a SQLite connection for region graph persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS region_graphs (
		map_name TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		analysis_id TEXT NOT NULL,
		analyzer_version INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		expand_block_radius REAL NOT NULL,
		ramps_json TEXT NOT NULL,
		noise_json TEXT NOT NULL,
		chokes_json TEXT NOT NULL,
		used_chokes_json TEXT NOT NULL,
		expansions_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS regions (
		map_name TEXT NOT NULL,
		id INTEGER NOT NULL,
		center_x INTEGER NOT NULL,
		center_y INTEGER NOT NULL,
		type TEXT NOT NULL,
		obstructed INTEGER NOT NULL,
		barrier INTEGER NOT NULL,
		color INTEGER NOT NULL,
		cells_json TEXT NOT NULL,
		neighbors_json TEXT NOT NULL,
		PRIMARY KEY (map_name, id)
	);

	CREATE TABLE IF NOT EXISTS analyses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		map_name TEXT NOT NULL,
		analysis_id TEXT NOT NULL,
		regions INTEGER NOT NULL,
		noise INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS map_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_map ON analyses(map_name);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// NormalizeMapName maps display names onto storage keys: lowercase ASCII
// letters and digits only, so "Lost Temple LE" and "losttemple-le" share
// one entry.
func NormalizeMapName(name string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%q: %w", name, ErrEmptyMapName)
	}
	return b.String(), nil
}

type graphRow struct {
	MapName           string  `db:"map_name"`
	DisplayName       string  `db:"display_name"`
	Width             int     `db:"width"`
	Height            int     `db:"height"`
	AnalysisID        string  `db:"analysis_id"`
	AnalyzerVersion   int     `db:"analyzer_version"`
	CreatedAt         string  `db:"created_at"`
	ExpandBlockRadius float64 `db:"expand_block_radius"`
	RampsJSON         string  `db:"ramps_json"`
	NoiseJSON         string  `db:"noise_json"`
	ChokesJSON        string  `db:"chokes_json"`
	UsedChokesJSON    string  `db:"used_chokes_json"`
	ExpansionsJSON    string  `db:"expansions_json"`
}

type regionRow struct {
	ID            int    `db:"id"`
	CenterX       int    `db:"center_x"`
	CenterY       int    `db:"center_y"`
	Type          string `db:"type"`
	Obstructed    bool   `db:"obstructed"`
	Barrier       bool   `db:"barrier"`
	Color         int    `db:"color"`
	CellsJSON     string `db:"cells_json"`
	NeighborsJSON string `db:"neighbors_json"`
}

// Analysis is one entry of the analysis history.
type Analysis struct {
	MapName    string `db:"map_name" json:"map_name"`
	AnalysisID string `db:"analysis_id" json:"analysis_id"`
	Regions    int    `db:"regions" json:"regions"`
	Noise      int    `db:"noise" json:"noise"`
	CreatedAt  string `db:"created_at" json:"created_at"`
}

// SaveGraph stores g under its normalized map name, replacing any graph
// previously stored for that map.
func (db *DB) SaveGraph(g *regions.Graph) error {
	key, err := NormalizeMapName(g.MapName)
	if err != nil {
		return err
	}
	slog.Info("saving region graph", "map", key, "regions", len(g.Regions), "analysis_id", g.AnalysisID)

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM regions WHERE map_name = ?", key); err != nil {
		return err
	}

	rampsJSON, _ := json.Marshal(g.Ramps)
	noiseJSON, _ := json.Marshal(g.Noise)
	chokesJSON, _ := json.Marshal(g.Chokes)
	usedJSON, _ := json.Marshal(g.UsedChokes)
	expJSON, _ := json.Marshal(g.Expansions)
	createdAt := g.CreatedAt.UTC().Format(time.RFC3339Nano)

	_, err = tx.Exec(`INSERT OR REPLACE INTO region_graphs
		(map_name, display_name, width, height, analysis_id, analyzer_version,
		 created_at, expand_block_radius, ramps_json, noise_json, chokes_json,
		 used_chokes_json, expansions_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key, g.MapName, g.Width, g.Height, g.AnalysisID, regions.AnalyzerVersion,
		createdAt, g.ExpandBlockRadius, string(rampsJSON), string(noiseJSON),
		string(chokesJSON), string(usedJSON), string(expJSON),
	)
	if err != nil {
		return fmt.Errorf("insert graph %s: %w", key, err)
	}

	stmt, err := tx.Preparex(`INSERT INTO regions
		(map_name, id, center_x, center_y, type, obstructed, barrier, color,
		 cells_json, neighbors_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range g.Regions {
		cellsJSON, _ := json.Marshal(r.Cells)
		neighborsJSON, _ := json.Marshal(r.Neighbors)

		_, err := stmt.Exec(
			key, r.ID, r.Center.X, r.Center.Y, r.Type.String(),
			r.Obstructed, r.Barrier, r.Color,
			string(cellsJSON), string(neighborsJSON),
		)
		if err != nil {
			return fmt.Errorf("insert region %d: %w", r.ID, err)
		}
	}

	_, err = tx.Exec(
		"INSERT INTO analyses (map_name, analysis_id, regions, noise, created_at) VALUES (?, ?, ?, ?, ?)",
		key, g.AnalysisID, len(g.Regions), len(g.Noise), createdAt,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// LoadGraph returns the graph stored for mapName. A graph written by a
// different analyzer version is reported as ErrGraphNotFound.
func (db *DB) LoadGraph(mapName string) (*regions.Graph, error) {
	key, err := NormalizeMapName(mapName)
	if err != nil {
		return nil, err
	}

	var row graphRow
	err = db.conn.Get(&row, "SELECT * FROM region_graphs WHERE map_name = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", key, ErrGraphNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load graph %s: %w", key, err)
	}
	if row.AnalyzerVersion != regions.AnalyzerVersion {
		slog.Warn("stored region graph is stale", "map", key,
			"stored_version", row.AnalyzerVersion, "current_version", regions.AnalyzerVersion)
		return nil, fmt.Errorf("%s: analyzer version %d: %w", key, row.AnalyzerVersion, ErrGraphNotFound)
	}

	g := &regions.Graph{
		MapName:           row.DisplayName,
		Width:             row.Width,
		Height:            row.Height,
		AnalysisID:        row.AnalysisID,
		ExpandBlockRadius: row.ExpandBlockRadius,
	}
	if g.CreatedAt, err = time.Parse(time.RFC3339Nano, row.CreatedAt); err != nil {
		return nil, fmt.Errorf("graph %s created_at: %w", key, err)
	}
	for _, f := range []struct {
		src string
		dst any
	}{
		{row.RampsJSON, &g.Ramps},
		{row.NoiseJSON, &g.Noise},
		{row.ChokesJSON, &g.Chokes},
		{row.UsedChokesJSON, &g.UsedChokes},
		{row.ExpansionsJSON, &g.Expansions},
	} {
		if err := json.Unmarshal([]byte(f.src), f.dst); err != nil {
			return nil, fmt.Errorf("decode graph %s: %w", key, err)
		}
	}

	var rows []regionRow
	err = db.conn.Select(&rows, `SELECT id, center_x, center_y, type, obstructed, barrier,
		color, cells_json, neighbors_json FROM regions WHERE map_name = ? ORDER BY id`, key)
	if err != nil {
		return nil, fmt.Errorf("load regions %s: %w", key, err)
	}

	g.Regions = make([]*regions.Region, len(rows))
	for i, rr := range rows {
		r := &regions.Region{
			ID:         rr.ID,
			Center:     grid.Cell{X: rr.CenterX, Y: rr.CenterY},
			Obstructed: rr.Obstructed,
			Barrier:    rr.Barrier,
			Color:      rr.Color,
		}
		if err := r.Type.UnmarshalText([]byte(rr.Type)); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(rr.CellsJSON), &r.Cells); err != nil {
			return nil, fmt.Errorf("decode region %d cells: %w", rr.ID, err)
		}
		if err := json.Unmarshal([]byte(rr.NeighborsJSON), &r.Neighbors); err != nil {
			return nil, fmt.Errorf("decode region %d neighbors: %w", rr.ID, err)
		}
		if rr.ID != i {
			return nil, fmt.Errorf("graph %s: region %d stored at position %d", key, rr.ID, i)
		}
		g.Regions[i] = r
	}
	g.Reindex()

	slog.Info("region graph loaded", "map", key, "regions", len(g.Regions), "analysis_id", g.AnalysisID)
	return g, nil
}

// HasGraph reports whether a current graph is stored for mapName.
func (db *DB) HasGraph(mapName string) (bool, error) {
	key, err := NormalizeMapName(mapName)
	if err != nil {
		return false, err
	}
	var n int
	err = db.conn.Get(&n,
		"SELECT COUNT(*) FROM region_graphs WHERE map_name = ? AND analyzer_version = ?",
		key, regions.AnalyzerVersion)
	return n > 0, err
}

// DeleteGraph removes the graph stored for mapName, if any.
func (db *DB) DeleteGraph(mapName string) error {
	key, err := NormalizeMapName(mapName)
	if err != nil {
		return err
	}
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM regions WHERE map_name = ?", key); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM region_graphs WHERE map_name = ?", key); err != nil {
		return err
	}
	return tx.Commit()
}

// ListMaps returns the normalized names of all stored graphs.
func (db *DB) ListMaps() ([]string, error) {
	var names []string
	err := db.conn.Select(&names, "SELECT map_name FROM region_graphs ORDER BY map_name")
	return names, err
}

// RecentAnalyses returns the most recent N analysis records.
func (db *DB) RecentAnalyses(limit int) ([]Analysis, error) {
	var out []Analysis
	err := db.conn.Select(&out,
		"SELECT map_name, analysis_id, regions, noise, created_at FROM analyses ORDER BY id DESC LIMIT ?",
		limit,
	)
	return out, err
}

// SaveMeta stores a key-value pair in map metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO map_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM map_meta WHERE key = ?", key)
	return value, err
}
