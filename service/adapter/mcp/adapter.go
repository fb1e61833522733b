// Package mcp calls tools over the Model Context Protocol and serves the
// local systems as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/viant/opsagent/internal/clock"
	"github.com/viant/opsagent/service/adapter"
)

const (
	protocolVersion = "2024-11-05"
	clientName      = "opsagent"
	clientVersion   = "1.0.0"
	listTimeout     = 5 * time.Second
)

// Adapter calls tools exposed by one MCP server.
type Adapter struct {
	client  *client.Client
	timeout time.Duration
	mux     sync.RWMutex
	tools   map[string]mcp.Tool
}

var _ adapter.Adapter = (*Adapter)(nil)

// Call invokes toolID; a JSON object text result becomes the output map.
func (a *Adapter) Call(ctx context.Context, toolID string, params map[string]interface{}) (*adapter.Result, error) {
	started := clock.Now()
	a.mux.RLock()
	_, ok := a.tools[toolID]
	a.mux.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", adapter.ErrUnknownTool, toolID)
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	arguments := map[string]interface{}{}
	for k, v := range params {
		arguments[k] = v
	}
	result, err := a.client.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolID,
			Arguments: arguments,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", toolID, err)
	}
	text := resultText(result)
	ret := &adapter.Result{DurationMs: clock.ElapsedMs(started)}
	if result.IsError {
		ret.Error = text
		return ret, nil
	}
	ret.Success = true
	ret.Output = map[string]interface{}{}
	if text != "" {
		if err := json.Unmarshal([]byte(text), &ret.Output); err != nil {
			ret.Output = map[string]interface{}{"result": text}
		}
	}
	return ret, nil
}

// Tools returns the names of the tools the server exposes.
func (a *Adapter) Tools() []string {
	a.mux.RLock()
	defer a.mux.RUnlock()
	var ret []string
	for name := range a.tools {
		ret = append(ret, name)
	}
	return ret
}

// Close terminates the client.
func (a *Adapter) Close() error {
	return a.client.Close()
}

func (a *Adapter) initialize(ctx context.Context) error {
	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = protocolVersion
	initRequest.Params.Capabilities = mcp.ClientCapabilities{}
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    clientName,
		Version: clientVersion,
	}
	if _, err := a.client.Initialize(ctx, initRequest); err != nil {
		return fmt.Errorf("failed to initialize MCP client: %w", err)
	}
	listCtx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	listed, err := a.client.ListTools(listCtx, mcp.ListToolsRequest{})
	if err != nil {
		return fmt.Errorf("failed to list MCP tools: %w", err)
	}
	tools := map[string]mcp.Tool{}
	for _, tool := range listed.Tools {
		tools[tool.Name] = tool
	}
	a.mux.Lock()
	a.tools = tools
	a.mux.Unlock()
	return nil
}

func resultText(result *mcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		switch actual := content.(type) {
		case mcp.TextContent:
			parts = append(parts, actual.Text)
		case *mcp.TextContent:
			parts = append(parts, actual.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// NewStdio launches command as an MCP server over stdio.
func NewStdio(ctx context.Context, command string, env []string, args []string, timeout time.Duration) (*Adapter, error) {
	mcpClient, err := client.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to start MCP server %s: %w", command, err)
	}
	ret := &Adapter{client: mcpClient, timeout: timeout}
	if err = ret.initialize(ctx); err != nil {
		_ = mcpClient.Close()
		return nil, err
	}
	return ret, nil
}

// NewInProcess connects to an MCP server running in the same process.
func NewInProcess(ctx context.Context, srv *server.MCPServer, timeout time.Duration) (*Adapter, error) {
	mcpClient, err := client.NewInProcessClient(srv)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-process MCP client: %w", err)
	}
	if err = mcpClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start in-process MCP client: %w", err)
	}
	ret := &Adapter{client: mcpClient, timeout: timeout}
	if err = ret.initialize(ctx); err != nil {
		_ = mcpClient.Close()
		return nil, err
	}
	return ret, nil
}
