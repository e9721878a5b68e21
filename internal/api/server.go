// Package api provides the HTTP API for observing a running model.
// GET endpoints are public and read the published snapshot only.
// POST endpoints require a bearer token (run control).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/merchant-network/internal/agents"
	"github.com/talgya/merchant-network/internal/engine"
	"github.com/talgya/merchant-network/internal/persistence"
)

// Server serves model state over HTTP.
type Server struct {
	Model    *engine.Model
	Runner   *engine.Runner  // Nil when the model is not being driven
	DB       *persistence.DB // Nil disables history and saving
	RunID    string
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// HistoryLimit caps database-backed requests per client per hour.
	HistoryLimit int
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	limit := s.HistoryLimit
	if limit <= 0 {
		limit = 120
	}
	historyLimiter := NewRateLimiter(limit, time.Hour)

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/v1/merchants", s.handleMerchants)
	mux.HandleFunc("/api/v1/merchant/", s.handleMerchantDetail)
	mux.HandleFunc("/api/v1/locations", s.handleLocations)
	mux.HandleFunc("/api/v1/routes", s.handleRoutes)
	mux.HandleFunc("/api/v1/history", RateLimitMiddleware(historyLimiter, s.handleHistory))
	mux.HandleFunc("/api/v1/runs", RateLimitMiddleware(historyLimiter, s.handleRuns))

	// Admin endpoints.
	mux.HandleFunc("/api/v1/stop", s.adminOnly(s.handleStop))
	mux.HandleFunc("/api/v1/save", s.adminOnly(s.handleSave))

	return corsMiddleware(mux)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", srv.Addr, "admin_auth", s.AdminKey != "", "history", s.DB != nil)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		slog.Info("HTTP API stopped")
		return nil
	}
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); allowedOrigins[origin] {
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

// adminOnly requires a POST with the admin bearer token.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no admin key set)", http.StatusForbidden)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.AdminKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.Model.Snapshot()
	cfg := s.Model.Config()
	running := s.Runner != nil && s.Runner.Running()

	writeJSON(w, map[string]any{
		"run_id":        s.RunID,
		"step":          snap.Step,
		"running":       running,
		"seed":          cfg.Seed,
		"merchants":     len(snap.Merchants()),
		"locations":     len(snap.Locations()),
		"products":      snap.Products,
		"social_type":   cfg.Social.Type,
		"social_edges":  s.Model.Topology().SocialEdges(),
		"spatial_cost":  s.Model.Topology().TotalSpatialCost(),
		"stats":         snap.Stats,
		"history_saved": s.DB != nil,
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Model.Snapshot())
}

// handleMerchants lists merchants, optionally filtered by ?type= strategy
// label and ?location= name.
func (s *Server) handleMerchants(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("type")
	if kind != "" {
		k, err := agents.ParseStrategy(kind)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		kind = k.String()
	}
	at := r.URL.Query().Get("location")

	result := []engine.EntitySnapshot{}
	for _, e := range s.Model.Snapshot().Merchants() {
		if kind != "" && e.Type != kind {
			continue
		}
		if at != "" && e.Location != at {
			continue
		}
		result = append(result, e)
	}
	writeJSON(w, result)
}

func (s *Server) handleMerchantDetail(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/v1/merchant/")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		http.Error(w, "invalid merchant id", http.StatusBadRequest)
		return
	}
	for _, e := range s.Model.Snapshot().Merchants() {
		if e.ID == id {
			writeJSON(w, e)
			return
		}
	}
	http.Error(w, "merchant not found", http.StatusNotFound)
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	result := s.Model.Snapshot().Locations()
	if result == nil {
		result = []engine.EntitySnapshot{}
	}
	writeJSON(w, result)
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Model.Topology().Spatial().Routes())
}

// handleHistory serves stored reporters, or with ?step=N the stored
// snapshot of that step. ?step=latest is the highest saved step.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil || s.RunID == "" {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	stepStr := r.URL.Query().Get("step")
	if stepStr == "" {
		rows, err := s.DB.StatsHistory(s.RunID)
		if err != nil {
			slog.Error("stats history query failed", "error", err)
			http.Error(w, "history unavailable", http.StatusInternalServerError)
			return
		}
		if rows == nil {
			rows = []engine.StepStats{}
		}
		writeJSON(w, rows)
		return
	}

	var step int
	var err error
	if stepStr == "latest" {
		step, err = s.DB.LatestStep(s.RunID)
	} else if step, err = strconv.Atoi(stepStr); err != nil || step < 0 {
		http.Error(w, "invalid step", http.StatusBadRequest)
		return
	}
	var snap *engine.Snapshot
	if err == nil {
		snap, err = s.DB.LoadSnapshot(s.RunID, step)
	}
	if errors.Is(err, persistence.ErrNotFound) {
		http.Error(w, "step not saved", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("snapshot load failed", "step", step, "error", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, snap)
}

// handleRuns lists every run recorded in the database, newest first.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	runs, err := s.DB.Runs()
	if err != nil {
		slog.Error("run list query failed", "error", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []persistence.Run{}
	}
	writeJSON(w, runs)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if s.Runner == nil {
		http.Error(w, "no runner", http.StatusConflict)
		return
	}
	s.Runner.Stop()
	slog.Info("runner stop requested via API")
	writeJSON(w, map[string]any{"step": s.Model.Snapshot().Step, "message": "stopping"})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil || s.RunID == "" {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	snap := s.Model.Snapshot()
	if err := s.DB.SaveSnapshot(s.RunID, snap); err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"step": snap.Step, "message": "snapshot saved"})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Warn("response encode failed", "error", err)
	}
}
