// Package mcp implements a Model Context Protocol client: the initialize
// handshake, tool listing and tool invocation over a JSON-RPC transport.
package mcp

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/mcp/internal/protocol"
	"github.com/effective-security/mcpchat/mcp/transport"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat", "mcp")

// Client is an MCP client session over a single transport. It is owned by
// one orchestrator and is not safe for concurrent queries; the interactive
// loop serializes access.
type Client struct {
	protocol    *protocol.Protocol
	clientInfo  Implementation
	initialized bool
}

// NewClient creates a client over the given transport. Initialize must be
// called before any other request.
func NewClient(tr transport.Transport, clientInfo Implementation) (*Client, error) {
	p := protocol.NewProtocol()
	p.NotificationHandler = func(n *transport.BaseJSONRPCNotification) {
		logger.KV(xlog.DEBUG, "status", "server_notification", "method", n.Method)
	}
	if err := p.Connect(tr); err != nil {
		return nil, errors.WithMessage(err, "failed to connect transport")
	}
	return &Client{
		protocol:   p,
		clientInfo: clientInfo,
	}, nil
}

// Initialize performs the MCP handshake and acknowledges it with the
// initialized notification.
func (c *Client) Initialize(ctx context.Context) (*InitializeResponse, error) {
	params := initializeParams{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    map[string]any{},
		ClientInfo:      c.clientInfo,
	}

	raw, err := c.protocol.Request(ctx, "initialize", params, nil)
	if err != nil {
		return nil, errors.WithMessage(err, "initialize failed")
	}

	var res InitializeResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal initialize response")
	}

	if err := c.protocol.Notification("notifications/initialized", nil); err != nil {
		return nil, errors.WithMessage(err, "failed to send initialized notification")
	}
	c.initialized = true

	logger.KV(xlog.DEBUG,
		"status", "initialized",
		"server", res.ServerInfo.Name,
		"version", res.ServerInfo.Version,
		"protocol", res.ProtocolVersion,
	)
	return &res, nil
}

// ListTools returns the tools advertised by the server, in server order.
func (c *Client) ListTools(ctx context.Context, cursor *string) (*ToolsResponse, error) {
	if !c.initialized {
		return nil, errors.Errorf("client not initialized")
	}

	raw, err := c.protocol.Request(ctx, "tools/list", listToolsParams{Cursor: cursor}, nil)
	if err != nil {
		return nil, errors.WithMessage(err, "tools/list failed")
	}

	var res ToolsResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal tools response")
	}
	return &res, nil
}

// CallTool invokes the named tool with the given arguments.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResponse, error) {
	if !c.initialized {
		return nil, errors.Errorf("client not initialized")
	}

	raw, err := c.protocol.Request(ctx, "tools/call", callToolParams{
		Name:      name,
		Arguments: args,
	}, nil)
	if err != nil {
		return nil, errors.WithMessagef(err, "tools/call %s failed", name)
	}

	var res ToolResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal tool response")
	}
	return &res, nil
}

// Close releases the protocol and its transport.
func (c *Client) Close() error {
	return c.protocol.Close()
}
