package memclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theapemachine/recall-go/pkg/config"
)

func TestNewByProtocol(t *testing.T) {
	httpClient, err := New(config.MemoryService{Protocol: "http"})
	require.NoError(t, err)
	assert.Equal(t, "http", httpClient.Name())

	mcpClient, err := New(config.MemoryService{Protocol: "mcp"})
	require.NoError(t, err)
	assert.Equal(t, "mcp", mcpClient.Name())

	autoClient, err := New(config.MemoryService{Protocol: "auto"})
	require.NoError(t, err)
	assert.Equal(t, "auto", autoClient.Name())

	_, err = New(config.MemoryService{Protocol: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestAutoClientSelectsHealthyTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		healthOK(w)
	}))
	t.Cleanup(server.Close)

	auto := NewAutoClient(config.MemoryService{
		Protocol:        "auto",
		PreferredOrder:  []string{"http", "mcp"},
		FallbackEnabled: true,
		HTTP: config.HTTPSettings{
			Endpoint: server.URL,
			Timeout:  time.Second,
		},
	})

	require.NoError(t, auto.Connect(t.Context()))
	assert.Equal(t, "auto:http", auto.Name())

	// The selection sticks; a second connect does not re-probe.
	require.NoError(t, auto.Connect(t.Context()))
	assert.Equal(t, "auto:http", auto.Name())
}

func TestAutoClientFallbackDisabledProbesFirstOnly(t *testing.T) {
	auto := NewAutoClient(config.MemoryService{
		Protocol:        "auto",
		PreferredOrder:  []string{"mcp", "http"},
		FallbackEnabled: false,
		MCP:             config.MCPSettings{},
	})

	// The mcp transport has no command configured; with fallback off the
	// http candidate is never tried.
	err := auto.Connect(t.Context())
	assert.Error(t, err)
	assert.Equal(t, "auto", auto.Name())
}
