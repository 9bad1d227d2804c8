package memclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theapemachine/recall-go/pkg/config"
)

func TestParseMemoriesResultShape(t *testing.T) {
	payload := `{"results":[{"memory":{"content_hash":"a","content":"x","created_at":1700000000},"similarity_score":0.7}]}`

	memories := parseMemories(payload)
	require.Len(t, memories, 1)
	assert.Equal(t, "a", memories[0].ContentHash)
	assert.Equal(t, 0.7, memories[0].SimilarityScore)
	assert.Equal(t, float64(1700000000000), memories[0].CreatedAt)
}

func TestParseMemoriesToolDialect(t *testing.T) {
	payload := `{"memories":[{"content_hash":"b","content":"y","created_at":1700000000}]}`

	memories := parseMemories(payload)
	require.Len(t, memories, 1)
	assert.Equal(t, "b", memories[0].ContentHash)
	assert.Equal(t, float64(1700000000000), memories[0].CreatedAt)
}

func TestParseMemoriesEmptyAndGarbage(t *testing.T) {
	assert.Nil(t, parseMemories(`{}`))
	assert.Nil(t, parseMemories(`{"memories":"nope"}`))
	assert.Nil(t, parseMemories(`{"results":[]}`))
}

func TestSubprocessClientRequiresCommand(t *testing.T) {
	client := NewSubprocessClient(config.MCPSettings{})

	err := client.Connect(t.Context())
	assert.Error(t, err)
}
