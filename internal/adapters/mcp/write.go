package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"graphvault/internal/application"
	"graphvault/internal/application/commands"
	"graphvault/internal/ports"
)

// RegisterWriteTools adds all write graph tools to the MCP server.
func RegisterWriteTools(s *server.MCPServer, store ports.GraphStore) {
	s.AddTool(saveNodeTool(), saveNodeHandler(store))
	s.AddTool(deleteNodeTool(), deleteNodeHandler(store))
	s.AddTool(saveEdgeTool(), saveEdgeHandler(store))
	s.AddTool(deleteEdgeTool(), deleteEdgeHandler(store))
	s.AddTool(importTool(), importHandler(store))
	s.AddTool(checkTool(), checkHandler(store))
}

// --- save_node ---

func saveNodeTool() mcp.Tool {
	return mcp.NewTool("save_node",
		mcp.WithDescription("Create or replace a node. Existing edges of the node are kept."),
		mcp.WithString("id",
			mcp.Description("Node ID (non-negative decimal)"),
			mcp.Required(),
		),
		mcp.WithString("content",
			mcp.Description("Node content"),
			mcp.Required(),
		),
		mcp.WithString("type",
			mcp.Description("Node type: standard (default), simo or miso"),
			mcp.Enum("standard", "simo", "miso"),
		),
		mcp.WithArray("properties",
			mcp.Description("Extended properties as key=value strings"),
			mcp.WithStringItems(),
		),
	)
}

func saveNodeHandler(store ports.GraphStore) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := application.ParseIDArg("nodeID", req.GetString("id", ""))
		if err != nil {
			return toolError(err)
		}
		nodeType, err := application.ParseNodeType(req.GetString("type", ""))
		if err != nil {
			return toolError(err)
		}
		props, err := application.ParseProperties(req.GetStringSlice("properties", nil))
		if err != nil {
			return toolError(err)
		}

		cmd := commands.NewSaveNodeCommand(store, id, req.GetString("content", ""))
		cmd.Type = nodeType
		cmd.Properties = props
		result, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}

		return mcp.NewToolResultText(result.Message), nil
	}
}

// --- delete_node ---

func deleteNodeTool() mcp.Tool {
	return mcp.NewTool("delete_node",
		mcp.WithDescription("Delete a node together with every edge that starts or ends at it."),
		mcp.WithString("id",
			mcp.Description("Node ID"),
			mcp.Required(),
		),
	)
}

func deleteNodeHandler(store ports.GraphStore) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := application.ParseIDArg("nodeID", req.GetString("id", ""))
		if err != nil {
			return toolError(err)
		}

		result, err := commands.NewDeleteNodeCommand(store, id).Execute(ctx)
		if err != nil {
			return toolError(err)
		}

		return mcp.NewToolResultText(result.Message), nil
	}
}

// --- save_edge ---

func saveEdgeTool() mcp.Tool {
	return mcp.NewTool("save_edge",
		mcp.WithDescription("Create or replace the directed edge from_id -> to_id. Both nodes must exist."),
		mcp.WithString("from_id",
			mcp.Description("Source node ID"),
			mcp.Required(),
		),
		mcp.WithString("to_id",
			mcp.Description("Destination node ID"),
			mcp.Required(),
		),
		mcp.WithNumber("weight",
			mcp.Description("Edge weight"),
			mcp.Required(),
		),
		mcp.WithString("content",
			mcp.Description("Edge content"),
		),
		mcp.WithArray("properties",
			mcp.Description("Extended properties as key=value strings"),
			mcp.WithStringItems(),
		),
	)
}

func saveEdgeHandler(store ports.GraphStore) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		from, err := application.ParseIDArg("fromID", req.GetString("from_id", ""))
		if err != nil {
			return toolError(err)
		}
		to, err := application.ParseIDArg("toID", req.GetString("to_id", ""))
		if err != nil {
			return toolError(err)
		}
		weight, err := req.RequireFloat("weight")
		if err != nil {
			return toolError(err)
		}
		props, err := application.ParseProperties(req.GetStringSlice("properties", nil))
		if err != nil {
			return toolError(err)
		}

		cmd := commands.NewSaveEdgeCommand(store, from, to, weight, req.GetString("content", ""))
		cmd.Properties = props
		result, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}

		return mcp.NewToolResultText(result.Message), nil
	}
}

// --- delete_edge ---

func deleteEdgeTool() mcp.Tool {
	return mcp.NewTool("delete_edge",
		mcp.WithDescription("Delete the directed edge from_id -> to_id."),
		mcp.WithString("from_id",
			mcp.Description("Source node ID"),
			mcp.Required(),
		),
		mcp.WithString("to_id",
			mcp.Description("Destination node ID"),
			mcp.Required(),
		),
	)
}

func deleteEdgeHandler(store ports.GraphStore) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		from, err := application.ParseIDArg("fromID", req.GetString("from_id", ""))
		if err != nil {
			return toolError(err)
		}
		to, err := application.ParseIDArg("toID", req.GetString("to_id", ""))
		if err != nil {
			return toolError(err)
		}

		result, err := commands.NewDeleteEdgeCommand(store, from, to).Execute(ctx)
		if err != nil {
			return toolError(err)
		}

		return mcp.NewToolResultText(result.Message), nil
	}
}

// --- import ---

func importTool() mcp.Tool {
	return mcp.NewTool("import",
		mcp.WithDescription("Save a YAML document of nodes and edges as one unit: either everything is written or nothing is."),
		mcp.WithString("document",
			mcp.Description("YAML with top-level nodes (id, type, content, properties) and edges (from, to, weight, content, properties)"),
			mcp.Required(),
		),
	)
}

func importHandler(store ports.GraphStore) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		batch, err := commands.ParseBatch(strings.NewReader(req.GetString("document", "")))
		if err != nil {
			return toolError(err)
		}

		result, err := commands.NewSaveBatchCommand(store, batch).Execute(ctx)
		if err != nil {
			return toolError(err)
		}

		return mcp.NewToolResultText(result.Message), nil
	}
}

// --- check ---

func checkTool() mcp.Tool {
	return mcp.NewTool("check",
		mcp.WithDescription("Verify that edge mirrors, directory manifests and the node registry agree. With repair, fix what was found."),
		mcp.WithBoolean("repair",
			mcp.Description("Repair the findings, treating outgoing mirrors as authoritative"),
		),
	)
}

func checkHandler(store ports.GraphStore) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := commands.NewCheckCommand(store, req.GetBool("repair", false)).Execute(ctx)
		if err != nil && result == nil {
			return toolError(err)
		}

		var sb strings.Builder
		sb.WriteString(result.Message)
		sb.WriteByte('\n')
		remaining := result.Report
		if result.After != nil {
			remaining = result.After
		}
		for _, f := range remaining.Findings {
			fmt.Fprintf(&sb, "  %s\n", f)
		}
		if err != nil {
			fmt.Fprintf(&sb, "error: %v\n", err)
			return mcp.NewToolResultError(sb.String()), nil
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}
