package mcp

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/viant/opsagent/extension"
	"github.com/viant/opsagent/service/adapter"
)

const (
	serverName    = "opsagent-systems"
	serverVersion = "1.0.0"
)

// NewServer exposes every registered tool through backend, typically the local adapter.
func NewServer(actions *extension.Actions, backend adapter.Adapter) *server.MCPServer {
	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
	)
	for _, tool := range actions.Tools() {
		options := []mcp.ToolOption{mcp.WithDescription(tool.Signature.Description)}
		options = append(options, propertyOptions(tool.Signature.Input)...)
		mcpServer.AddTool(mcp.NewTool(tool.ID, options...), handler(tool.ID, backend))
	}
	return mcpServer
}

// Serve runs the server over stdio until the input stream closes.
func Serve(mcpServer *server.MCPServer) error {
	return server.ServeStdio(mcpServer)
}

func handler(toolID string, backend adapter.Adapter) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := backend.Call(ctx, toolID, getArgs(request))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !result.Success {
			return mcp.NewToolResultError(result.Error), nil
		}
		data, err := json.Marshal(result.Output)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

// getArgs extracts arguments from request as map[string]any
func getArgs(request mcp.CallToolRequest) map[string]any {
	if args, ok := request.Params.Arguments.(map[string]any); ok {
		return args
	}
	return make(map[string]any)
}

// propertyOptions describes the json-tagged fields of an input struct.
func propertyOptions(t reflect.Type) []mcp.ToolOption {
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	var ret []mcp.ToolOption
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := strings.Split(field.Tag.Get("json"), ",")[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}
		switch field.Type.Kind() {
		case reflect.String:
			ret = append(ret, mcp.WithString(name))
		case reflect.Bool:
			ret = append(ret, mcp.WithBoolean(name))
		case reflect.Int, reflect.Int32, reflect.Int64, reflect.Float32, reflect.Float64:
			ret = append(ret, mcp.WithNumber(name))
		case reflect.Slice, reflect.Array:
			ret = append(ret, mcp.WithArray(name))
		default:
			ret = append(ret, mcp.WithObject(name))
		}
	}
	return ret
}
