package memclient

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"

	"github.com/theapemachine/recall-go/pkg/config"
	"github.com/theapemachine/recall-go/pkg/errors"
)

// protocolVersion is the JSON-RPC protocol revision declared at initialize.
const protocolVersion = "2024-11-05"

const (
	toolRetrieveMemory = "retrieve_memory"
	toolRecallMemory   = "recall_memory"
	toolCheckHealth    = "check_database_health"
	toolStoreMemory    = "store_memory"
)

/*
SubprocessClient drives a long-lived memory service child process over
newline-delimited JSON-RPC on stdio. Requests are demultiplexed by integer
ID inside the underlying client; a per-request timeout rejects the pending
call without killing the child. Only an explicit Disconnect terminates the
process (SIGTERM, escalating to SIGKILL).
*/
type SubprocessClient struct {
	mu        sync.Mutex
	cfg       config.MCPSettings
	client    *client.Client
	connected bool
}

func NewSubprocessClient(cfg config.MCPSettings) *SubprocessClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.ConnectionTimeout <= 0 {
		cfg.ConnectionTimeout = 10 * time.Second
	}

	return &SubprocessClient{cfg: cfg}
}

func (c *SubprocessClient) Name() string { return "mcp" }

/*
Connect spawns the child and performs the initialize handshake. Idempotent
per client.
*/
func (c *SubprocessClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	if len(c.cfg.Command) == 0 {
		return errors.NewConfigError("memoryService.mcp.command", "no command configured")
	}

	mcpClient, err := client.NewStdioMCPClient(c.cfg.Command[0], nil, c.cfg.Command[1:]...)
	if err != nil {
		return errors.NewTransportError("mcp", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectionTimeout)
	defer cancel()

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = protocolVersion
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "recall-go",
		Version: "1.0.0",
	}
	initRequest.Params.Capabilities = mcp.ClientCapabilities{}

	serverInfo, err := mcpClient.Initialize(ctx, initRequest)
	if err != nil {
		_ = mcpClient.Close()
		return errors.NewTransportError("mcp", err)
	}

	log.Info("memory service subprocess ready",
		"serverName", serverInfo.ServerInfo.Name,
		"serverVersion", serverInfo.ServerInfo.Version,
	)

	c.client = mcpClient
	c.connected = true

	return nil
}

/*
Disconnect terminates the child process. Pending requests are rejected by
the underlying transport.
*/
func (c *SubprocessClient) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}

	c.connected = false
	err := c.client.Close()
	c.client = nil

	if err != nil {
		return errors.NewTransportError("mcp", err)
	}

	return nil
}

func (c *SubprocessClient) Health(ctx context.Context) (*Health, error) {
	payload, err := c.callTool(ctx, toolCheckHealth, map[string]any{})
	if err != nil {
		return nil, err
	}

	var health Health
	if err := json.Unmarshal([]byte(payload), &health); err == nil && health.Storage.Status != "" {
		return &health, nil
	}

	// Tolerate loose shapes: some service builds report a flat document.
	health = Health{}
	health.Storage.Status = gjson.Get(payload, "status").String()
	health.Storage.Backend = gjson.Get(payload, "backend").String()
	health.Storage.TotalMemories = int(gjson.Get(payload, "total_memories").Int())

	if health.Storage.Status == "" {
		return nil, errors.NewProtocolError("unrecognized health payload")
	}

	return &health, nil
}

func (c *SubprocessClient) Search(ctx context.Context, query string, limit int) ([]Memory, error) {
	payload, err := c.callTool(ctx, toolRetrieveMemory, map[string]any{
		"query":     query,
		"n_results": limit,
	})
	if err != nil {
		return nil, err
	}

	return parseMemories(payload), nil
}

func (c *SubprocessClient) SearchByTime(ctx context.Context, query, timeWindow string, limit int) ([]Memory, error) {
	payload, err := c.callTool(ctx, toolRecallMemory, map[string]any{
		"query":     strings.TrimSpace(timeWindow + " " + query),
		"n_results": limit,
	})
	if err != nil {
		return nil, err
	}

	return parseMemories(payload), nil
}

/*
SearchByTag has no dedicated tool on this transport; the tags are folded
into a retrieval query instead.
*/
func (c *SubprocessClient) SearchByTag(ctx context.Context, tags []string, limit int) ([]Memory, error) {
	return c.Search(ctx, "tags: "+strings.Join(tags, ", "), limit)
}

func (c *SubprocessClient) SearchByTagAndTime(ctx context.Context, tags []string, timeWindow string, limit int) ([]Memory, error) {
	fetched, err := c.SearchByTag(ctx, tags, limit*tagOverfetchFactor)
	if err != nil {
		return nil, err
	}

	window := ParseTimeWindow(timeWindow)
	now := time.Now()

	var out []Memory
	for _, m := range fetched {
		if !withinWindow(m.CreatedAt, window, now) {
			continue
		}
		out = append(out, m)
		if len(out) >= limit {
			break
		}
	}

	return out, nil
}

func (c *SubprocessClient) Store(ctx context.Context, req StoreRequest) (string, error) {
	payload, err := c.callTool(ctx, toolStoreMemory, map[string]any{
		"content":     req.Content,
		"tags":        req.Tags,
		"memory_type": req.MemoryType,
		"metadata":    req.Metadata,
	})
	if err != nil {
		return "", err
	}

	hash := gjson.Get(payload, "content_hash").String()
	if hash == "" {
		return "", errors.NewProtocolError("store response missing content_hash")
	}

	return hash, nil
}

// EvaluateQuality has no subprocess equivalent.
func (c *SubprocessClient) EvaluateQuality(contentHash string) {
	log.Debug("quality evaluation skipped on mcp transport", "hash", contentHash)
}

func (c *SubprocessClient) callTool(ctx context.Context, name string, args map[string]any) (string, error) {
	c.mu.Lock()
	mcpClient := c.client
	connected := c.connected
	c.mu.Unlock()

	if !connected {
		if err := c.Connect(ctx); err != nil {
			return "", err
		}
		c.mu.Lock()
		mcpClient = c.client
		c.mu.Unlock()
	}

	// The per-request deadline rejects this call only; the child stays up.
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	request := mcp.CallToolRequest{}
	request.Params.Name = name
	request.Params.Arguments = args

	result, err := mcpClient.CallTool(ctx, request)
	if err != nil {
		return "", errors.NewTransportError("mcp", err)
	}

	if result.IsError {
		return "", errors.ErrInternal.WithMessagef("tool %s reported an error", name)
	}

	text := textOf(result)

	payload, ok := ParseToolPayload(text)
	if !ok {
		// Unparseable tool output degrades to an empty result.
		log.Debug("tool payload not parseable", "tool", name)
		return "{}", nil
	}

	return payload, nil
}

func textOf(result *mcp.CallToolResult) string {
	var builder strings.Builder

	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			builder.WriteString(textContent.Text)
		}
	}

	return builder.String()
}

// parseMemories accepts either the REST result shape or the tool dialect
// that wraps records in a "memories" array.
func parseMemories(payload string) []Memory {
	var result searchResult
	if err := json.Unmarshal([]byte(payload), &result); err == nil && len(result.Results) > 0 {
		return result.memories()
	}

	raw := gjson.Get(payload, "memories")
	if !raw.Exists() {
		return nil
	}

	var memories []Memory
	if err := json.Unmarshal([]byte(raw.Raw), &memories); err != nil {
		return nil
	}

	for i := range memories {
		memories[i].normalize()
	}

	return memories
}
