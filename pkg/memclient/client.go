/*
Package memclient is the dual-transport client for the memory service. The
HTTP transport talks to the REST endpoints; the subprocess transport drives
a long-lived JSON-RPC child over stdio. Auto mode probes the preferred
transport and falls back to the other; whichever transport answers first
stays selected for the lifetime of the client.
*/
package memclient

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/theapemachine/recall-go/pkg/config"
	"github.com/theapemachine/recall-go/pkg/errors"
)

/*
Client is the unified interface over both transports.
*/
type Client interface {
	// Connect prepares the transport. Idempotent per client.
	Connect(ctx context.Context) error
	// Disconnect releases the transport; pending subprocess requests are
	// rejected with ErrRequestRejected.
	Disconnect() error
	// Health probes the service.
	Health(ctx context.Context) (*Health, error)
	// Search runs a semantic query.
	Search(ctx context.Context, query string, limit int) ([]Memory, error)
	// SearchByTime runs a semantic query restricted to a natural-language
	// time window ("last-week", "yesterday", ...).
	SearchByTime(ctx context.Context, query, timeWindow string, limit int) ([]Memory, error)
	// SearchByTag returns memories carrying any of the tags.
	SearchByTag(ctx context.Context, tags []string, limit int) ([]Memory, error)
	// SearchByTagAndTime combines tag filtering with a time window.
	SearchByTagAndTime(ctx context.Context, tags []string, timeWindow string, limit int) ([]Memory, error)
	// Store creates a memory and returns its content hash.
	Store(ctx context.Context, req StoreRequest) (string, error)
	// EvaluateQuality fires a non-blocking quality evaluation for a stored
	// memory. Failures are ignored.
	EvaluateQuality(contentHash string)
	// Name identifies the transport for logging.
	Name() string
}

/*
New builds a client according to the configured protocol: "http", "mcp", or
"auto".
*/
func New(cfg config.MemoryService) (Client, error) {
	switch cfg.Protocol {
	case "http":
		return NewHTTPClient(cfg.HTTP), nil
	case "mcp":
		return NewSubprocessClient(cfg.MCP), nil
	case "auto":
		return NewAutoClient(cfg), nil
	}

	return nil, errors.NewConfigError("memoryService.protocol", "unknown protocol: "+cfg.Protocol)
}

/*
AutoClient probes transports in the configured order and sticks with the
first healthy one.
*/
type AutoClient struct {
	cfg      config.MemoryService
	selected Client
}

func NewAutoClient(cfg config.MemoryService) *AutoClient {
	return &AutoClient{cfg: cfg}
}

func (c *AutoClient) Connect(ctx context.Context) error {
	if c.selected != nil {
		return nil
	}

	order := c.cfg.PreferredOrder
	if len(order) == 0 {
		order = []string{"http", "mcp"}
	}
	if !c.cfg.FallbackEnabled && len(order) > 1 {
		order = order[:1]
	}

	var lastErr error

	for _, transport := range order {
		candidate := c.build(transport)
		if candidate == nil {
			continue
		}

		if err := candidate.Connect(ctx); err != nil {
			log.Warn("transport connect failed", "transport", transport, "error", err)
			lastErr = err
			continue
		}

		if _, err := candidate.Health(ctx); err != nil {
			log.Warn("transport health check failed", "transport", transport, "error", err)
			_ = candidate.Disconnect()
			lastErr = err
			continue
		}

		log.Info("memory service transport selected", "transport", transport)
		c.selected = candidate
		return nil
	}

	if lastErr == nil {
		lastErr = errors.NewConfigError("memoryService.preferredOrder", "no usable transport configured")
	}

	return errors.NewTransportError("auto", lastErr)
}

func (c *AutoClient) build(transport string) Client {
	switch transport {
	case "http":
		return NewHTTPClient(c.cfg.HTTP)
	case "mcp":
		return NewSubprocessClient(c.cfg.MCP)
	}
	return nil
}

func (c *AutoClient) Disconnect() error {
	if c.selected == nil {
		return nil
	}
	return c.selected.Disconnect()
}

func (c *AutoClient) Health(ctx context.Context) (*Health, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c.selected.Health(ctx)
}

func (c *AutoClient) Search(ctx context.Context, query string, limit int) ([]Memory, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c.selected.Search(ctx, query, limit)
}

func (c *AutoClient) SearchByTime(ctx context.Context, query, timeWindow string, limit int) ([]Memory, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c.selected.SearchByTime(ctx, query, timeWindow, limit)
}

func (c *AutoClient) SearchByTag(ctx context.Context, tags []string, limit int) ([]Memory, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c.selected.SearchByTag(ctx, tags, limit)
}

func (c *AutoClient) SearchByTagAndTime(ctx context.Context, tags []string, timeWindow string, limit int) ([]Memory, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c.selected.SearchByTagAndTime(ctx, tags, timeWindow, limit)
}

func (c *AutoClient) Store(ctx context.Context, req StoreRequest) (string, error) {
	if err := c.Connect(ctx); err != nil {
		return "", err
	}
	return c.selected.Store(ctx, req)
}

func (c *AutoClient) EvaluateQuality(contentHash string) {
	if c.selected != nil {
		c.selected.EvaluateQuality(contentHash)
	}
}

func (c *AutoClient) Name() string {
	if c.selected != nil {
		return "auto:" + c.selected.Name()
	}
	return "auto"
}
