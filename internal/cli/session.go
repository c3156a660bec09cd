package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/talgya/regionmap/internal/grid"
	"github.com/talgya/regionmap/internal/pathing"
	"github.com/talgya/regionmap/internal/persistence"
	"github.com/talgya/regionmap/internal/regions"
	"github.com/talgya/regionmap/internal/terrain"
)

// session is a loaded map with its region graph and a shared path cache.
type session struct {
	Map   *grid.Map
	Graph *regions.Graph
	Paths *pathing.Pathfinder
	DB    *persistence.DB
}

func (s *session) Close() {
	if s.DB != nil {
		s.DB.Close()
	}
}

// loadMap reads a text map. Maps without a name header are named after
// the file.
func loadMap(path string) (*grid.Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := grid.ReadMap(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if m.Name == "" {
		m.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return m, nil
}

// openStore opens the configured region graph database.
func openStore() (*persistence.DB, error) {
	db, err := persistence.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// openSession loads the map and either restores its graph from the
// database or decomposes it and stores the result. force skips the
// stored graph; noSave skips writing one.
func openSession(mapPath string, force, noSave bool) (*session, error) {
	m, err := loadMap(mapPath)
	if err != nil {
		return nil, err
	}

	db, err := openStore()
	if err != nil {
		return nil, err
	}
	s := &session{Map: m, DB: db, Paths: pathing.New(m, cfg.PathingConfig())}

	if !force {
		w, h := m.Size()
		g, err := db.LoadGraph(m.Name)
		switch {
		case err == nil && g.Width == w && g.Height == h:
			slog.Info("loaded stored region graph", "map", m.Name, "analysis", g.AnalysisID, "regions", len(g.Regions))
			s.Graph = g
			s.refresh()
			return s, nil
		case err == nil:
			slog.Warn("stored graph does not match map size, reanalyzing", "map", m.Name,
				"stored", fmt.Sprintf("%dx%d", g.Width, g.Height), "map_size", fmt.Sprintf("%dx%d", w, h))
		case !errors.Is(err, persistence.ErrGraphNotFound):
			db.Close()
			return nil, err
		}
	}

	d := regions.NewDecomposer(cfg.RegionsConfig(),
		terrain.NewRampFinder(cfg.RampConfig()),
		terrain.NewChokeFinder(cfg.ChokeConfig()),
		s.Paths, slog.Default())
	s.Graph = d.Decompose(regions.InputFromMap(m))

	if !noSave {
		if err := db.SaveGraph(s.Graph); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

// refresh recomputes obstruction against the map's current obstacles.
func (s *session) refresh() {
	s.Graph.RefreshObstruction(regions.Obstruction{
		Terrain:     s.Map,
		Paths:       s.Paths,
		InsideRatio: cfg.Decompose.ObstructionInsideRatio,
		Logger:      slog.Default(),
	})
}
