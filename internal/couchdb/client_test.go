package couchdb

// ============================================================================
// CouchDB Client Test File
// Purpose: Verify the _replicate payload, ok/not-ok interpretation and
//          error paths against an httptest control plane
// ============================================================================

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture holds the last request the test server saw.
type capture struct {
	mu          sync.Mutex
	method      string
	path        string
	contentType string
	body        map[string]any
}

func newReplicateServer(t *testing.T, response string, status int, cap *capture) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cap.mu.Lock()
		cap.method = r.Method
		cap.path = r.URL.Path
		cap.contentType = r.Header.Get("Content-Type")
		cap.body = nil
		json.NewDecoder(r.Body).Decode(&cap.body)
		cap.mu.Unlock()

		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
}

// ============================================================================
// Trigger Tests
// ============================================================================

// TestTriggerAccepted tests a clean ok=true response
func TestTriggerAccepted(t *testing.T) {
	cap := &capture{}
	srv := newReplicateServer(t, `{"ok":true}`, http.StatusOK, cap)
	defer srv.Close()

	client := NewClient(time.Second, nil, false)
	ok, err := client.Trigger(context.Background(), srv.URL,
		srv.URL+"/accounts", srv.URL+"/accounts", false)

	require.NoError(t, err)
	assert.True(t, ok)

	cap.mu.Lock()
	defer cap.mu.Unlock()
	assert.Equal(t, http.MethodPost, cap.method)
	assert.Equal(t, "/_replicate", cap.path)
	assert.Equal(t, "application/json", cap.contentType)
	assert.Equal(t, srv.URL+"/accounts", cap.body["source"])
	assert.Equal(t, srv.URL+"/accounts", cap.body["target"])
	assert.Equal(t, true, cap.body["create_target"])

	// One-shot triggers omit the continuous flag entirely.
	_, present := cap.body["continuous"]
	assert.False(t, present)
}

// TestTriggerContinuousPayload tests the second-phase payload
func TestTriggerContinuousPayload(t *testing.T) {
	cap := &capture{}
	srv := newReplicateServer(t, `{"ok":true}`, http.StatusOK, cap)
	defer srv.Close()

	client := NewClient(time.Second, nil, false)
	ok, err := client.Trigger(context.Background(), srv.URL,
		srv.URL+"/accounts", srv.URL+"/accounts", true)

	require.NoError(t, err)
	assert.True(t, ok)

	cap.mu.Lock()
	defer cap.mu.Unlock()
	assert.Equal(t, true, cap.body["continuous"])
	assert.Equal(t, true, cap.body["create_target"])
}

// TestTriggerRejected tests a clean ok=false response
func TestTriggerRejected(t *testing.T) {
	cap := &capture{}
	srv := newReplicateServer(t, `{"ok":false}`, http.StatusOK, cap)
	defer srv.Close()

	client := NewClient(time.Second, nil, false)
	ok, err := client.Trigger(context.Background(), srv.URL, "s", "t", false)

	// A rejection is not an error.
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestTriggerMissingOKField tests a body with no ok field
func TestTriggerMissingOKField(t *testing.T) {
	cap := &capture{}
	srv := newReplicateServer(t, `{"error":"db_not_found"}`, http.StatusNotFound, cap)
	defer srv.Close()

	client := NewClient(time.Second, nil, false)
	ok, err := client.Trigger(context.Background(), srv.URL, "s", "t", false)

	// Valid JSON without ok decodes to false; only the ok field matters.
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestTriggerMalformedResponse tests a non-JSON body
func TestTriggerMalformedResponse(t *testing.T) {
	cap := &capture{}
	srv := newReplicateServer(t, `<html>gateway error</html>`, http.StatusBadGateway, cap)
	defer srv.Close()

	client := NewClient(time.Second, nil, false)
	_, err := client.Trigger(context.Background(), srv.URL, "s", "t", false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

// TestTriggerConnectionError tests an unreachable endpoint
func TestTriggerConnectionError(t *testing.T) {
	cap := &capture{}
	srv := newReplicateServer(t, `{"ok":true}`, http.StatusOK, cap)
	srv.Close() // shut down before the call

	client := NewClient(time.Second, nil, false)
	_, err := client.Trigger(context.Background(), srv.URL, "s", "t", false)

	assert.Error(t, err)
}

// TestTriggerContextCancelled tests that a cancelled context aborts the call
func TestTriggerContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(time.Minute, nil, false)
	_, err := client.Trigger(ctx, srv.URL, "s", "t", false)

	assert.Error(t, err)
}

// ============================================================================
// AllDatabases Tests
// ============================================================================

// TestAllDatabases tests listing the cluster's databases
func TestAllDatabases(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/_all_dbs", r.URL.Path)
		w.Write([]byte(`["_users","accounts","orders"]`))
	}))
	defer srv.Close()

	client := NewClient(time.Second, nil, false)
	dbs, err := client.AllDatabases(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, []string{"_users", "accounts", "orders"}, dbs)
}

// TestAllDatabasesMalformed tests a non-list response
func TestAllDatabasesMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal_server_error"}`))
	}))
	defer srv.Close()

	client := NewClient(time.Second, nil, false)
	_, err := client.AllDatabases(context.Background(), srv.URL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

// ============================================================================
// Encoding Tests
// ============================================================================

// TestEncodeDatabaseName tests quote_plus-style encoding
func TestEncodeDatabaseName(t *testing.T) {
	assert.Equal(t, "plain", EncodeDatabaseName("plain"))
	assert.Equal(t, "my+db", EncodeDatabaseName("my db"))
	assert.Equal(t, "a%2Fb", EncodeDatabaseName("a/b"))
	assert.Equal(t, "caf%C3%A9", EncodeDatabaseName("café"))
	assert.Equal(t, "_users", EncodeDatabaseName("_users"))
}
