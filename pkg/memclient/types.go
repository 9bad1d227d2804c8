package memclient

import (
	"encoding/json"
	"time"
)

/*
MemoryTypeCompressedCluster marks a server-side consolidation of several
memories. Cluster memories are exempt from display-time deduplication.
*/
const MemoryTypeCompressedCluster = "compressed_cluster"

// year2100Seconds separates epoch-second from epoch-millisecond timestamps.
// The server emits seconds; everything downstream assumes milliseconds.
const year2100Seconds = 4102444800

/*
Memory is a server-owned record identified by its content hash. The client
never mutates a memory; the unexported-looking annotation fields below are
derived locally during retrieval and scoring.
*/
type Memory struct {
	ContentHash     string         `json:"content_hash"`
	Content         string         `json:"content"`
	Tags            []string       `json:"tags,omitempty"`
	MemoryType      string         `json:"memory_type,omitempty"`
	CreatedAt       float64        `json:"created_at,omitempty"`
	CreatedAtISO    string         `json:"created_at_iso,omitempty"`
	SimilarityScore float64        `json:"similarity_score,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`

	// Derived annotations, never sent back to the server.
	GitContextType   string             `json:"_gitContextType,omitempty"`
	GitContextSource string             `json:"_gitContextSource,omitempty"`
	GitContextWeight float64            `json:"_gitContextWeight,omitempty"`
	RelevanceScore   float64            `json:"relevanceScore,omitempty"`
	OriginalScore    float64            `json:"_originalScore,omitempty"`
	WasBoosted       bool               `json:"_wasBoosted,omitempty"`
	ScoreBreakdown   map[string]float64 `json:"scoreBreakdown,omitempty"`
}

/*
IsCluster reports whether this memory is a compressed cluster.
*/
func (m *Memory) IsCluster() bool {
	return m.MemoryType == MemoryTypeCompressedCluster
}

/*
CreatedTime converts the normalized millisecond timestamp to time.Time.
*/
func (m *Memory) CreatedTime() time.Time {
	return time.UnixMilli(int64(m.CreatedAt))
}

/*
NormalizeTimestamp converts server epoch-second timestamps to milliseconds.
Values already at millisecond scale (past the year-2100 threshold in
seconds) pass through untouched. Callers downstream must not convert again.
*/
func NormalizeTimestamp(v float64) float64 {
	if v > 0 && v < year2100Seconds {
		return v * 1000
	}
	return v
}

func (m *Memory) normalize() {
	m.CreatedAt = NormalizeTimestamp(m.CreatedAt)
}

/*
StoreRequest is the payload for creating a new memory.
*/
type StoreRequest struct {
	Content    string         `json:"content"`
	Tags       []string       `json:"tags"`
	MemoryType string         `json:"memory_type"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

/*
Health mirrors the service health endpoints.
*/
type Health struct {
	Storage struct {
		Backend        string  `json:"backend"`
		Status         string  `json:"status"`
		DatabasePath   string  `json:"database_path"`
		TotalMemories  int     `json:"total_memories"`
		DatabaseSizeMB float64 `json:"database_size_mb"`
		UniqueTags     int     `json:"unique_tags"`
		EmbeddingModel string  `json:"embedding_model"`
		Accessible     bool    `json:"accessible"`
	} `json:"storage"`
	System struct {
		Platform string `json:"platform"`
	} `json:"system"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// searchResult is the wire shape of every search endpoint.
type searchResult struct {
	Results []struct {
		Memory          json.RawMessage `json:"memory"`
		SimilarityScore float64         `json:"similarity_score"`
	} `json:"results"`
}

func (r *searchResult) memories() []Memory {
	out := make([]Memory, 0, len(r.Results))

	for _, res := range r.Results {
		var m Memory
		if err := json.Unmarshal(res.Memory, &m); err != nil {
			// Malformed entries are dropped, not fatal.
			continue
		}
		m.SimilarityScore = res.SimilarityScore
		m.normalize()
		out = append(out, m)
	}

	return out
}
