// Package api provides the HTTP API for querying a region graph.
// GET endpoints are public (read-only queries).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talgya/regionmap/internal/grid"
	"github.com/talgya/regionmap/internal/pathing"
	"github.com/talgya/regionmap/internal/persistence"
	"github.com/talgya/regionmap/internal/regions"
)

// Server serves region queries over HTTP.
type Server struct {
	Map      *grid.Map
	Graph    *regions.Graph
	Paths    *pathing.Pathfinder
	DB       *persistence.DB // optional; records obstacle clears
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// InsideRatio is passed to obstruction refreshes.
	InsideRatio float64
	// PathRate is the number of path queries allowed per client per minute.
	PathRate int

	// mu serializes terrain mutation against queries.
	mu sync.RWMutex
}

// Handler builds the request router.
func (s *Server) Handler() http.Handler {
	pathLimiter := NewRateLimiter(max(s.PathRate, 1), time.Minute)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/regions", s.handleRegions)
	mux.HandleFunc("GET /api/v1/regions/{id}", s.handleRegionDetail)
	mux.HandleFunc("GET /api/v1/regions/{id}/reachable", s.handleReachable)
	mux.HandleFunc("GET /api/v1/region-at", s.handleRegionAt)
	mux.HandleFunc("GET /api/v1/path", RateLimitMiddleware(pathLimiter, s.handlePath))
	mux.HandleFunc("GET /api/v1/expand/blocking", s.handleExpandBlocking)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("POST /api/v1/obstacles/{index}/clear", s.adminOnly(s.handleClearObstacle))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "map", s.Graph.MapName, "admin_auth", s.AdminKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no REGIONMAP_SERVER_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

type regionSummary struct {
	ID         int          `json:"id"`
	Type       regions.Type `json:"type"`
	Center     grid.Cell    `json:"center"`
	Size       int          `json:"size"`
	Obstructed bool         `json:"obstructed"`
	Barrier    bool         `json:"barrier"`
	Color      int          `json:"color"`
	Neighbors  []int        `json:"neighbors"`
}

func summarize(r *regions.Region) regionSummary {
	return regionSummary{
		ID:         r.ID,
		Type:       r.Type,
		Center:     r.Center,
		Size:       r.Size(),
		Obstructed: r.Obstructed,
		Barrier:    r.Barrier,
		Color:      r.Color,
		Neighbors:  r.NeighborIDs(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g := s.Graph
	status := map[string]any{
		"map":             g.MapName,
		"width":           g.Width,
		"height":          g.Height,
		"analysis_id":     g.AnalysisID,
		"created_at":      g.CreatedAt,
		"regions":         len(g.Regions),
		"ramps":           len(g.Ramps),
		"noise_cells":     len(g.Noise),
		"chokes":          len(g.Chokes),
		"chokes_used":     len(g.UsedChokes),
		"expansions":      len(g.Expansions),
		"obstacles":       len(s.Map.ActiveObstacles()),
		"path_searches":   s.Paths.Searches(),
		"path_cache_size": s.Paths.CacheSize(),
	}
	writeJSON(w, status)
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]regionSummary, 0, len(s.Graph.Regions))
	for _, reg := range s.Graph.Regions {
		if t := r.URL.Query().Get("type"); t != "" && reg.Type.String() != t {
			continue
		}
		out = append(out, summarize(reg))
	}
	writeJSON(w, out)
}

func (s *Server) regionFromPath(w http.ResponseWriter, r *http.Request) (*regions.Region, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid region id", http.StatusBadRequest)
		return nil, false
	}
	reg, ok := s.Graph.Region(id)
	if !ok {
		http.Error(w, "region not found", http.StatusNotFound)
		return nil, false
	}
	return reg, true
}

func (s *Server) handleRegionDetail(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reg, ok := s.regionFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, reg)
}

func (s *Server) handleReachable(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reg, ok := s.regionFromPath(w, r)
	if !ok {
		return
	}
	out := []regionSummary{}
	for _, n := range s.Graph.GetReachableNeighbors(reg.ID, s.Paths) {
		out = append(out, summarize(n))
	}
	writeJSON(w, out)
}

func (s *Server) handleRegionAt(w http.ResponseWriter, r *http.Request) {
	p, err := queryPoint(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	reg, ok := s.Graph.GetRegion(p)
	if !ok {
		http.Error(w, "no region at position", http.StatusNotFound)
		return
	}
	writeJSON(w, summarize(reg))
}

func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	from, err := parsePoint(r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, "invalid from: "+err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parsePoint(r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, "invalid to: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	path, err := s.Paths.FindPath(from, to)
	if errors.Is(err, pathing.ErrNoPath) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{"found": false})
		return
	}
	if err != nil {
		http.Error(w, "path search failed", http.StatusInternalServerError)
		return
	}

	length := 0.0
	prev := from
	for _, p := range path {
		length += prev.Distance(p)
		prev = p
	}
	writeJSON(w, map[string]any{
		"found":  true,
		"steps":  len(path),
		"length": length,
		"path":   path,
	})
}

func (s *Server) handleExpandBlocking(w http.ResponseWriter, r *http.Request) {
	p, err := queryPoint(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	writeJSON(w, map[string]any{"blocking": s.Graph.IsBlockingExpand(p)})
}

// handleClearObstacle removes a destroyed obstacle, drops cached paths,
// and recomputes which regions are obstructed.
func (s *Server) handleClearObstacle(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "invalid obstacle index", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Map.ClearObstacle(index); err != nil {
		http.Error(w, "obstacle not found", http.StatusNotFound)
		return
	}
	s.Paths.Invalidate()
	s.Graph.RefreshObstruction(regions.Obstruction{
		Terrain:     s.Map,
		Paths:       s.Paths,
		InsideRatio: s.InsideRatio,
		Logger:      slog.Default(),
	})

	var obstructed []int
	for _, reg := range s.Graph.Regions {
		if reg.Obstructed {
			obstructed = append(obstructed, reg.ID)
		}
	}
	slog.Info("obstacle cleared", "map", s.Graph.MapName, "index", index, "obstructed_regions", len(obstructed))

	if s.DB != nil {
		if err := s.DB.SaveMeta("cleared_obstacle:"+s.Graph.AnalysisID+":"+strconv.Itoa(index), time.Now().UTC().Format(time.RFC3339)); err != nil {
			slog.Warn("failed to record obstacle clear", "error", err)
		}
	}

	writeJSON(w, map[string]any{
		"cleared":            index,
		"obstructed_regions": obstructed,
	})
}

func queryPoint(r *http.Request) (grid.Point, error) {
	q := r.URL.Query()
	x, err := strconv.ParseFloat(q.Get("x"), 64)
	if err != nil {
		return grid.Point{}, fmt.Errorf("invalid x")
	}
	y, err := strconv.ParseFloat(q.Get("y"), 64)
	if err != nil {
		return grid.Point{}, fmt.Errorf("invalid y")
	}
	return grid.Point{X: x, Y: y}, nil
}

// parsePoint parses "x,y".
func parsePoint(v string) (grid.Point, error) {
	xs, ys, ok := strings.Cut(v, ",")
	if !ok {
		return grid.Point{}, fmt.Errorf("want x,y")
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return grid.Point{}, fmt.Errorf("bad x %q", xs)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return grid.Point{}, fmt.Errorf("bad y %q", ys)
	}
	return grid.Point{X: x, Y: y}, nil
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
