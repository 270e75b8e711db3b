// ============================================================================
// Stub Control Plane - In-Process CouchDB Replication API
// ============================================================================
//
// Package: internal/server
// File: server.go
// Purpose: Serves just enough of the CouchDB control-plane surface for the
//          demo and the tests to run a batch without a live cluster
//
// Endpoints:
//   GET  /_all_dbs   - list database names
//   POST /_replicate - accept a replication trigger; answers {"ok":true}
//                      unless the database was marked to fail that phase
//
// The server records every accepted trigger so tests can assert on payload
// contents and phase ordering.
//
// ============================================================================

package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// Replication records one trigger the server accepted or rejected.
type Replication struct {
	Database     string
	Source       string
	Target       string
	CreateTarget bool
	Continuous   bool
}

// Server is an in-process stand-in for a CouchDB cluster's control plane.
type Server struct {
	mu             sync.RWMutex
	databases      map[string]struct{}
	failInitial    map[string]struct{}
	failContinuous map[string]struct{}
	replications   []Replication
}

// New creates an empty stub cluster.
func New() *Server {
	return &Server{
		databases:      make(map[string]struct{}),
		failInitial:    make(map[string]struct{}),
		failContinuous: make(map[string]struct{}),
	}
}

// AddDatabases seeds databases into the cluster.
func (s *Server) AddDatabases(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		s.databases[name] = struct{}{}
	}
}

// FailInitial makes the one-shot trigger for a database answer ok=false.
func (s *Server) FailInitial(database string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failInitial[database] = struct{}{}
}

// FailContinuous makes the continuous trigger for a database answer
// ok=false.
func (s *Server) FailContinuous(database string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failContinuous[database] = struct{}{}
}

// Replications returns a copy of every trigger received so far.
func (s *Server) Replications() []Replication {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Replication, len(s.replications))
	copy(out, s.replications)
	return out
}

// Handler returns the HTTP handler serving the control-plane endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/_all_dbs", s.handleAllDBs)
	mux.HandleFunc("/_replicate", s.handleReplicate)
	return mux
}

func (s *Server) handleAllDBs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	names := make([]string, 0, len(s.databases))
	for name := range s.databases {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(names)
}

func (s *Server) handleReplicate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		Source       string `json:"source"`
		Target       string `json:"target"`
		CreateTarget bool   `json:"create_target"`
		Continuous   bool   `json:"continuous"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	// The database name is the last path segment of the source URL.
	database := payload.Source
	if idx := strings.LastIndex(database, "/"); idx >= 0 {
		database = database[idx+1:]
	}

	s.mu.Lock()
	s.replications = append(s.replications, Replication{
		Database:     database,
		Source:       payload.Source,
		Target:       payload.Target,
		CreateTarget: payload.CreateTarget,
		Continuous:   payload.Continuous,
	})

	ok := true
	if payload.Continuous {
		_, failed := s.failContinuous[database]
		ok = !failed
	} else {
		_, failed := s.failInitial[database]
		ok = !failed
	}
	if ok && payload.CreateTarget {
		s.databases[database] = struct{}{}
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"ok": ok})
}
