package memclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theapemachine/recall-go/pkg/config"
)

func newTestService(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *HTTPClient) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewHTTPClient(config.HTTPSettings{
		Endpoint: server.URL,
		APIKey:   "test-key",
		Timeout:  2 * time.Second,
	})

	return server, client
}

func healthOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"storage":{"backend":"sqlite_vec","status":"healthy","accessible":true},"system":{"platform":"linux"},"uptime_seconds":42}`)
}

func TestHealth(t *testing.T) {
	_, client := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		healthOK(w)
	})

	health, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Storage.Status)
	assert.Equal(t, "sqlite_vec", health.Storage.Backend)
}

func TestSearchNormalizesTimestamps(t *testing.T) {
	_, client := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/search", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "auth decisions", body["query"])
		assert.Equal(t, float64(5), body["n_results"])

		fmt.Fprint(w, `{"results":[{"memory":{"content_hash":"abc","content":"we chose jwt","created_at":1700000000},"similarity_score":0.91}]}`)
	})

	memories, err := client.Search(context.Background(), "auth decisions", 5)
	require.NoError(t, err)
	require.Len(t, memories, 1)

	// Server epoch seconds become milliseconds at the client boundary.
	assert.Equal(t, float64(1700000000000), memories[0].CreatedAt)
	assert.Equal(t, 0.91, memories[0].SimilarityScore)
}

func TestSearchMillisecondTimestampUntouched(t *testing.T) {
	_, client := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[{"memory":{"content_hash":"abc","content":"x","created_at":1700000000000},"similarity_score":0.5}]}`)
	})

	memories, err := client.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	require.Len(t, memories, 1)
	assert.Equal(t, float64(1700000000000), memories[0].CreatedAt)
}

func TestSearchByTagAndTimeOverfetchesAndFilters(t *testing.T) {
	now := time.Now()
	recent := float64(now.Add(-2*24*time.Hour).UnixMilli() / 1000)
	stale := float64(now.Add(-40*24*time.Hour).UnixMilli() / 1000)

	_, client := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/search/by-tag", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		// 4x over-fetch for the requested limit of 2.
		assert.Equal(t, float64(8), body["limit"])

		fmt.Fprintf(w, `{"results":[
			{"memory":{"content_hash":"a","content":"old","created_at":%f},"similarity_score":0.9},
			{"memory":{"content_hash":"b","content":"new","created_at":%f},"similarity_score":0.8}
		]}`, stale, recent)
	})

	memories, err := client.SearchByTagAndTime(context.Background(), []string{"architecture"}, "last-week", 2)
	require.NoError(t, err)
	require.Len(t, memories, 1)
	assert.Equal(t, "b", memories[0].ContentHash)
}

func TestSearchByTimeSendsSemanticQuery(t *testing.T) {
	_, client := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/search/by-time", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "last-week", body["query"])
		assert.Equal(t, "recent work", body["semantic_query"])

		fmt.Fprint(w, `{"results":[]}`)
	})

	_, err := client.SearchByTime(context.Background(), "recent work", "last-week", 3)
	require.NoError(t, err)
}

func TestStore(t *testing.T) {
	_, client := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/memories", r.URL.Path)

		var req StoreRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "session summary", req.Content)
		assert.Contains(t, req.Tags, "session-consolidation")

		fmt.Fprint(w, `{"content_hash":"deadbeef"}`)
	})

	hash, err := client.Store(context.Background(), StoreRequest{
		Content: "session summary",
		Tags:    []string{"session-consolidation"},
	})
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", hash)
}

func TestConnectDowngradesToHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		healthOK(w)
	}))
	t.Cleanup(server.Close)

	// Point the client at the plain server via an https URL; the TLS probe
	// fails and the client retries over http on the same host and port.
	httpsEndpoint := "https://" + strings.TrimPrefix(server.URL, "http://")
	client := NewHTTPClient(config.HTTPSettings{
		Endpoint: httpsEndpoint,
		Timeout:  2 * time.Second,
	})

	require.NoError(t, client.Connect(context.Background()))
	assert.Equal(t, server.URL, client.endpoint)

	// The downgraded endpoint sticks for follow-up calls.
	_, err := client.Health(context.Background())
	assert.NoError(t, err)
}

func TestServerErrorIsTransportError(t *testing.T) {
	_, client := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.Search(context.Background(), "q", 1)
	assert.Error(t, err)
}

func TestMalformedResultEntriesDropped(t *testing.T) {
	_, client := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[{"memory":"not-an-object","similarity_score":0.9},{"memory":{"content_hash":"ok","content":"fine"},"similarity_score":0.8}]}`)
	})

	memories, err := client.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	require.Len(t, memories, 1)
	assert.Equal(t, "ok", memories[0].ContentHash)
}
