// ============================================================================
// Database Source - Candidate Enumeration and Filtering
// ============================================================================
//
// Package: internal/controller
// File: source.go
// Purpose: Produces the filtered, ordered list of database names a batch
//          will replicate
//
// Two sources:
//   - StaticSource: names given on the command line
//   - RemoteSource: every database on the source cluster (_all_dbs),
//     for "replicate all but ..." runs
//
// Filtering drops system databases (leading underscore) unless explicitly
// included, and anything on the skip list; surviving names are URL-encoded
// for embedding in source/target URLs. A name matches the skip list in
// either its raw or its encoded form.
//
// ============================================================================

package controller

import (
	"context"
	"strings"

	"github.com/ChuLiYu/couch-replicate/internal/couchdb"
)

// DatabaseSource enumerates candidate database names for a batch.
type DatabaseSource interface {
	List(ctx context.Context) ([]string, error)
}

// StaticSource serves a fixed list of names.
type StaticSource []string

// List implements DatabaseSource.
func (s StaticSource) List(ctx context.Context) ([]string, error) {
	return s, nil
}

// RemoteSource lists every database on a cluster.
type RemoteSource struct {
	Client   *couchdb.Client
	Endpoint string
}

// List implements DatabaseSource.
func (s RemoteSource) List(ctx context.Context) ([]string, error) {
	return s.Client.AllDatabases(ctx, s.Endpoint)
}

// FilterOptions controls which candidate databases survive filtering.
type FilterOptions struct {
	// Skip lists database names to exclude, matched against both the raw
	// and the URL-encoded name.
	Skip []string
	// IncludeSystem keeps databases whose name starts with an underscore
	// (_users, _global_changes, ...).
	IncludeSystem bool
}

// ParseSkipList splits a comma-separated skip string into trimmed names.
func ParseSkipList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	skip := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			skip = append(skip, trimmed)
		}
	}
	return skip
}

// FilterDatabases applies the skip rules and returns the surviving names,
// URL-encoded, in their original order.
func FilterDatabases(names []string, opts FilterOptions) []string {
	skip := make(map[string]struct{}, len(opts.Skip))
	for _, s := range opts.Skip {
		skip[s] = struct{}{}
	}

	eligible := make([]string, 0, len(names))
	for _, name := range names {
		if strings.HasPrefix(name, "_") && !opts.IncludeSystem {
			log.Info("Skipping system database", "database", name)
			continue
		}

		encoded := couchdb.EncodeDatabaseName(name)
		if _, ok := skip[name]; ok {
			log.Info("Skipping database", "database", name)
			continue
		}
		if _, ok := skip[encoded]; ok {
			log.Info("Skipping database", "database", name)
			continue
		}

		eligible = append(eligible, encoded)
	}

	return eligible
}
