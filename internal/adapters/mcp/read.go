package mcp

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"graphvault/internal/application"
	"graphvault/internal/application/commands"
	"graphvault/internal/domain"
	"graphvault/internal/ports"
)

// RegisterReadTools adds all read-only graph tools to the MCP server.
// The catalog may be nil, in which case the search tool is not offered.
func RegisterReadTools(s *server.MCPServer, store ports.GraphStore, catalog ports.Catalog) {
	s.AddTool(getNodeTool(), getNodeHandler(store))
	s.AddTool(listNodesTool(), listNodesHandler(store))
	s.AddTool(listEdgesTool(), listEdgesHandler(store))
	s.AddTool(edgesToTool(), edgesToHandler(store))
	s.AddTool(statsTool(), statsHandler(store))
	s.AddTool(resolvePathTool(), resolvePathHandler(store))
	if catalog != nil {
		s.AddTool(searchTool(), searchHandler(store, catalog))
	}
}

// --- get_node ---

func getNodeTool() mcp.Tool {
	return mcp.NewTool("get_node",
		mcp.WithDescription("Read a node by ID: type, content and extended properties."),
		mcp.WithString("id",
			mcp.Description("Node ID (decimal, e.g. 42)"),
			mcp.Required(),
		),
	)
}

func getNodeHandler(store ports.GraphStore) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := application.ParseIDArg("nodeID", req.GetString("id", ""))
		if err != nil {
			return toolError(err)
		}

		node, err := commands.NewGetNodeCommand(store, id).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(formatNode(*node)), nil
	}
}

// --- list_nodes ---

func listNodesTool() mcp.Tool {
	return mcp.NewTool("list_nodes",
		mcp.WithDescription("List the IDs of every node in the store."),
	)
}

func listNodesHandler(store ports.GraphStore) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := commands.NewListNodesCommand(store).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return formatEntities(ids, func(id int64) string { return fmt.Sprint(id) })
	}
}

// --- list_edges ---

func listEdgesTool() mcp.Tool {
	return mcp.NewTool("list_edges",
		mcp.WithDescription("List the edges of a node. Outgoing edges start at the node, incoming edges end at it."),
		mcp.WithString("id",
			mcp.Description("Node ID"),
			mcp.Required(),
		),
		mcp.WithString("direction",
			mcp.Description("outgoing (default) or incoming"),
			mcp.Enum("outgoing", "incoming"),
		),
	)
}

func listEdgesHandler(store ports.GraphStore) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := application.ParseIDArg("nodeID", req.GetString("id", ""))
		if err != nil {
			return toolError(err)
		}
		dir, err := application.ParseDirection(req.GetString("direction", "outgoing"))
		if err != nil {
			return toolError(err)
		}

		res, err := commands.NewListEdgesCommand(store, id, dir).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return formatEdges(res)
	}
}

// --- edges_to ---

func edgesToTool() mcp.Tool {
	return mcp.NewTool("edges_to",
		mcp.WithDescription("List every edge whose destination is the given node."),
		mcp.WithString("id",
			mcp.Description("Destination node ID"),
			mcp.Required(),
		),
	)
}

func edgesToHandler(store ports.GraphStore) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := application.ParseIDArg("nodeID", req.GetString("id", ""))
		if err != nil {
			return toolError(err)
		}

		res, err := commands.NewEdgesToCommand(store, id).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return formatEdges(res)
	}
}

// --- stats ---

func statsTool() mcp.Tool {
	return mcp.NewTool("stats",
		mcp.WithDescription("Report node and edge totals, the record format and the data root."),
	)
}

func statsHandler(store ports.GraphStore) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := commands.NewStatsCommand(store).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("root: %s\nformat: %s\nnodes: %d\nedges: %d",
			res.Root, res.Format, res.Totals.Nodes, res.Totals.Edges)), nil
	}
}

// --- resolve_path ---

func resolvePathTool() mcp.Tool {
	return mcp.NewTool("resolve_path",
		mcp.WithDescription("Get the filesystem path of a node file, or of an edge mirror when to_id is given."),
		mcp.WithString("id",
			mcp.Description("Node ID, or source node ID of the edge"),
			mcp.Required(),
		),
		mcp.WithString("to_id",
			mcp.Description("Destination node ID of the edge"),
		),
		mcp.WithString("direction",
			mcp.Description("Edge mirror: outgoing (default) or incoming"),
			mcp.Enum("outgoing", "incoming"),
		),
	)
}

func resolvePathHandler(store ports.GraphStore) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		from, err := application.ParseIDArg("fromID", req.GetString("id", ""))
		if err != nil {
			return toolError(err)
		}

		cmd := commands.NewNodePathCommand(store, from)
		if raw := req.GetString("to_id", ""); raw != "" {
			to, err := application.ParseIDArg("toID", raw)
			if err != nil {
				return toolError(err)
			}
			dir, err := application.ParseDirection(req.GetString("direction", "outgoing"))
			if err != nil {
				return toolError(err)
			}
			cmd = commands.NewEdgePathCommand(store, from, to, dir)
		}

		path, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(path), nil
	}
}

// --- search ---

func searchTool() mcp.Tool {
	return mcp.NewTool("search",
		mcp.WithDescription("Search node content by keyword. The catalog is rebuilt from the store first."),
		mcp.WithString("query",
			mcp.Description("Search query (at least 2 characters)"),
			mcp.Required(),
		),
	)
}

func searchHandler(store ports.GraphStore, catalog ports.Catalog) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if err := application.ValidateRequired("query", query); err != nil {
			return toolError(err)
		}

		if _, err := commands.NewSyncCatalogCommand(store, catalog, true).Execute(ctx); err != nil {
			return toolError(err)
		}
		results, err := commands.NewSearchCommand(catalog, query).Execute(ctx)
		if err != nil {
			return toolError(err)
		}

		if len(results) == 0 {
			return mcp.NewToolResultText("No results found."), nil
		}

		var sb strings.Builder
		for _, r := range results {
			fmt.Fprintf(&sb, "%d  %s  %s\n", r.ID, r.Type, r.Content)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- helpers ---

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

func formatEntities[T any](entities []T, format func(T) string) (*mcp.CallToolResult, error) {
	if len(entities) == 0 {
		return mcp.NewToolResultText("No results."), nil
	}
	var sb strings.Builder
	for _, e := range entities {
		sb.WriteString(format(e))
		sb.WriteByte('\n')
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func formatEdges(res *commands.EdgesResult) (*mcp.CallToolResult, error) {
	if len(res.Edges) == 0 && len(res.Skipped) == 0 {
		return mcp.NewToolResultText("No results."), nil
	}
	var sb strings.Builder
	for _, e := range res.Edges {
		sb.WriteString(formatEdge(e))
		sb.WriteByte('\n')
	}
	if len(res.Skipped) > 0 {
		fmt.Fprintf(&sb, "%d unreadable records skipped:\n", len(res.Skipped))
		for _, err := range res.Skipped {
			fmt.Fprintf(&sb, "  %v\n", err)
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func formatNode(n domain.Node) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "id: %d\ntype: %s\nversion: %d\ncontent: %s\n", n.ID, n.Type, n.Version, n.Content)
	formatProperties(&sb, n.Properties)
	return sb.String()
}

func formatEdge(e domain.Edge) string {
	return fmt.Sprintf("%d -> %d  weight=%g  %s", e.From, e.To, e.Weight, e.Content)
}

func formatProperties(sb *strings.Builder, props domain.Properties) {
	if len(props) == 0 {
		return
	}
	sb.WriteString("properties:\n")
	for _, k := range slices.Sorted(maps.Keys(props)) {
		fmt.Fprintf(sb, "  %s: %s\n", k, props[k])
	}
}
