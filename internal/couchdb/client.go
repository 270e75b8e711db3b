// ============================================================================
// CouchDB Control-Plane Client
// ============================================================================
//
// Package: internal/couchdb
// File: client.go
// Purpose: Issues replication triggers and database listings against a
//          CouchDB cluster's HTTP API
//
// The client interprets responses only as ok / not-ok: the `ok` field of the
// _replicate response body decides whether the cluster accepted a trigger,
// and anything that prevents reading that field (connection failure, bad
// status, malformed body) is a transport/protocol error. Status codes are
// not interpreted beyond that.
//
// The per-request timeout configured here is the only timeout in the system;
// the orchestration core enforces none of its own.
//
// ============================================================================

package couchdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// DefaultRequestTimeout bounds a single control-plane call when the config
// does not say otherwise.
const DefaultRequestTimeout = 5 * time.Minute

// maxResponseBody caps how much of a response is read for decoding and
// debug traces.
const maxResponseBody = 1 << 20

// Client talks to CouchDB cluster control planes. It is safe for concurrent
// use by multiple workers.
type Client struct {
	http  *http.Client
	log   *slog.Logger
	debug bool
}

// NewClient builds a client with the given per-request timeout. debug turns
// on request/response traces through the logger. A nil logger falls back to
// slog.Default(); a non-positive timeout falls back to the default.
func NewClient(timeout time.Duration, logger *slog.Logger, debug bool) *Client {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:  &http.Client{Timeout: timeout},
		log:   logger,
		debug: debug,
	}
}

// replicateRequest is the _replicate payload. create_target is always set so
// the target database is created on first replication; continuous is only
// present on the second-phase trigger.
type replicateRequest struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	CreateTarget bool   `json:"create_target"`
	Continuous   bool   `json:"continuous,omitempty"`
}

type replicateResponse struct {
	OK bool `json:"ok"`
}

// Trigger posts one replication trigger to <endpoint>/_replicate and reports
// whether the cluster accepted it. The returned error covers transport and
// protocol failures only; a clean ok=false response is (false, nil).
func (c *Client) Trigger(ctx context.Context, endpoint, source, target string, continuous bool) (bool, error) {
	payload := replicateRequest{
		Source:       source,
		Target:       target,
		CreateTarget: true,
		Continuous:   continuous,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("failed to encode replicate payload: %w", err)
	}

	replicateURL := endpoint + "/_replicate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, replicateURL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to build replicate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("replicate request failed: %w", err)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		return false, fmt.Errorf("failed to read replicate response: %w", err)
	}

	if c.debug {
		c.log.Debug("Request POST",
			"url", replicateURL,
			"data", string(body))
		c.log.Debug("HTTP response",
			"code", res.StatusCode,
			"data", string(resBody))
	}

	var parsed replicateResponse
	if err := json.Unmarshal(resBody, &parsed); err != nil {
		return false, fmt.Errorf("malformed replicate response (HTTP %d): %w", res.StatusCode, err)
	}

	return parsed.OK, nil
}

// AllDatabases lists every database on the cluster via GET /_all_dbs.
func (c *Client) AllDatabases(ctx context.Context, endpoint string) ([]string, error) {
	allDBsURL := endpoint + "/_all_dbs"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, allDBsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build _all_dbs request: %w", err)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("_all_dbs request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read _all_dbs response: %w", err)
	}

	if c.debug {
		c.log.Debug("Request GET", "url", allDBsURL)
		c.log.Debug("HTTP response",
			"code", res.StatusCode,
			"data", string(body))
	}

	var dbs []string
	if err := json.Unmarshal(body, &dbs); err != nil {
		return nil, fmt.Errorf("malformed _all_dbs response (HTTP %d): %w", res.StatusCode, err)
	}

	return dbs, nil
}

// EncodeDatabaseName URL-encodes a database name for embedding in source and
// target URLs. Matches quote_plus encoding: reserved characters are
// percent-escaped and spaces become '+'.
func EncodeDatabaseName(name string) string {
	return url.QueryEscape(name)
}
