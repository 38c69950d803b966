// Package server builds the MCP server and registers tools and resources.
package server

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/SedlarDavid/sqltools-mcp/internal/db"
	"github.com/SedlarDavid/sqltools-mcp/internal/logger"
	"github.com/SedlarDavid/sqltools-mcp/internal/tools"
)

const (
	ServerName    = "sqltools-mcp"
	ServerVersion = "1.0.0"
)

// New returns an MCP server with all tools and resources registered.
func New(svc *tools.Service, log *slog.Logger, m *Metrics) *server.MCPServer {
	s := server.NewMCPServer(ServerName, ServerVersion,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
	)
	Register(s, svc, log, m)
	return s
}

// Register adds the tools and resources to s. With a nil svc only the
// database-free ones (ping, add, greet, greeting) are registered.
func Register(s *server.MCPServer, svc *tools.Service, log *slog.Logger, m *Metrics) {
	if log == nil {
		log = logger.Discard()
	}
	h := &handlers{svc: svc, log: log, metrics: m}

	s.AddTool(mcp.NewTool("ping",
		mcp.WithDescription("Simple health check. Returns pong."),
	), h.ping)

	s.AddTool(mcp.NewTool("add",
		mcp.WithDescription("Add two numbers"),
		mcp.WithNumber("a", mcp.Required(), mcp.Description("First integer")),
		mcp.WithNumber("b", mcp.Required(), mcp.Description("Second integer")),
	), h.add)

	s.AddTool(mcp.NewTool("greet",
		mcp.WithDescription("Get a personalized greeting"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Who to greet")),
	), h.greet)

	s.AddResourceTemplate(mcp.NewResourceTemplate("greeting://{name}", "greeting",
		mcp.WithTemplateDescription("Get a personalized greeting"),
		mcp.WithTemplateMIMEType("text/plain"),
	), h.greeting)

	if svc == nil {
		return
	}

	s.AddTool(mcp.NewTool("execute_query",
		mcp.WithDescription("Execute a SQL query against the database. Only SELECT, INSERT, UPDATE and DELETE are allowed."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The SQL statement to run")),
	), h.executeQuery)

	s.AddTool(mcp.NewTool("list_tables",
		mcp.WithDescription("List all tables in the database"),
	), h.listTables)

	s.AddTool(mcp.NewTool("count_rows",
		mcp.WithDescription("Count rows in a specific table"),
		mcp.WithString("table_name", mcp.Required(), mcp.Description("Table to count")),
	), h.countRows)

	s.AddTool(mcp.NewTool("get_table_sample",
		mcp.WithDescription("Get a sample of rows from a table"),
		mcp.WithString("table_name", mcp.Required(), mcp.Description("Table to sample")),
		mcp.WithNumber("limit", mcp.DefaultNumber(tools.DefaultSampleLimit),
			mcp.Description("Maximum rows to return (capped at 100)")),
	), h.getTableSample)

	s.AddTool(mcp.NewTool("search_table",
		mcp.WithDescription("Search for records in a table where a column contains a term"),
		mcp.WithString("table_name", mcp.Required(), mcp.Description("Table to search")),
		mcp.WithString("column", mcp.Required(), mcp.Description("Column to match against")),
		mcp.WithString("search_term", mcp.Required(), mcp.Description("Text the column must contain, case-insensitive")),
		mcp.WithNumber("limit", mcp.DefaultNumber(tools.DefaultSearchLimit),
			mcp.Description("Maximum rows to return (capped at 100)")),
	), h.searchTable)

	s.AddTool(mcp.NewTool("describe_table",
		mcp.WithDescription("Describe the structure of a specific table"),
		mcp.WithString("table_name", mcp.Required(), mcp.Description("Table to describe")),
	), h.describeTable)

	s.AddResourceTemplate(mcp.NewResourceTemplate("schema://{table_name}", "table schema",
		mcp.WithTemplateDescription("Get detailed schema information for a table"),
		mcp.WithTemplateMIMEType("application/json"),
	), h.tableSchema)
}

type handlers struct {
	svc     *tools.Service
	log     *slog.Logger
	metrics *Metrics
}

// run executes one call, logs it under a fresh call_id and renders any
// failure as text. It never returns a transport error.
func (h *handlers) run(ctx context.Context, tool, prefix string, fn func(context.Context) (string, error)) string {
	log := h.log.With(slog.String("call_id", uuid.NewString()), slog.String("tool", tool))
	start := time.Now()
	text, err := fn(ctx)
	elapsed := time.Since(start)
	if err == nil {
		log.Info("tool call completed", slog.Duration("duration", elapsed))
		h.metrics.observe(tool, "ok", elapsed)
		return text
	}
	kind := db.KindOf(err)
	level := slog.LevelError
	if expected(kind) {
		level = slog.LevelWarn
	}
	log.Log(ctx, level, "tool call failed",
		slog.String("kind", kind.String()),
		slog.Duration("duration", elapsed),
		slog.Any("error", err))
	h.metrics.observe(tool, kind.String(), elapsed)
	return renderError(err, prefix)
}

func (h *handlers) text(ctx context.Context, tool string, fn func(context.Context) (string, error)) *mcp.CallToolResult {
	return mcp.NewToolResultText(h.run(ctx, tool, prefixQuery, fn))
}

// rendered adapts a service call returning a *tools.QueryResult.
func rendered(res *tools.QueryResult, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return res.Text()
}

func (h *handlers) ping(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.text(ctx, "ping", func(context.Context) (string, error) { return "pong", nil }), nil
}

func (h *handlers) add(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := req.RequireInt("a")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := req.RequireInt("b")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return h.text(ctx, "add", func(context.Context) (string, error) {
		return strconv.Itoa(tools.Add(a, b)), nil
	}), nil
}

func (h *handlers) greet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return h.text(ctx, "greet", func(context.Context) (string, error) {
		return tools.Greet(name), nil
	}), nil
}

func (h *handlers) executeQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return h.text(ctx, "execute_query", func(ctx context.Context) (string, error) {
		return rendered(h.svc.ExecuteQuery(ctx, query))
	}), nil
}

func (h *handlers) listTables(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.text(ctx, "list_tables", func(ctx context.Context) (string, error) {
		return rendered(h.svc.ListTables(ctx))
	}), nil
}

func (h *handlers) countRows(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := req.RequireString("table_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return h.text(ctx, "count_rows", func(ctx context.Context) (string, error) {
		return rendered(h.svc.CountRows(ctx, table))
	}), nil
}

func (h *handlers) getTableSample(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := req.RequireString("table_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := tools.LimitFromNumber(req.GetFloat("limit", tools.DefaultSampleLimit))
	return h.text(ctx, "get_table_sample", func(ctx context.Context) (string, error) {
		return rendered(h.svc.GetTableSample(ctx, table, limit))
	}), nil
}

func (h *handlers) searchTable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := req.RequireString("table_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	column, err := req.RequireString("column")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	term, err := req.RequireString("search_term")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := tools.LimitFromNumber(req.GetFloat("limit", tools.DefaultSearchLimit))
	return h.text(ctx, "search_table", func(ctx context.Context) (string, error) {
		return rendered(h.svc.SearchTable(ctx, table, column, term, limit))
	}), nil
}

func (h *handlers) describeTable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := req.RequireString("table_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return h.text(ctx, "describe_table", func(ctx context.Context) (string, error) {
		return rendered(h.svc.DescribeTable(ctx, table))
	}), nil
}

func (h *handlers) greeting(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	name := templateArg(req, "name")
	text := h.run(ctx, "greeting", prefixQuery, func(context.Context) (string, error) {
		return tools.Greet(name), nil
	})
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "text/plain", Text: text},
	}, nil
}

func (h *handlers) tableSchema(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	table := templateArg(req, "table_name")
	text := h.run(ctx, "get_table_schema", prefixSchema, func(ctx context.Context) (string, error) {
		schema, err := h.svc.TableSchema(ctx, table)
		if err != nil {
			return "", err
		}
		return schema.Text()
	})
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: text},
	}, nil
}

// templateArg returns the decoded value mcp-go matched for a URI template
// variable.
func templateArg(req mcp.ReadResourceRequest, key string) string {
	switch v := req.Params.Arguments[key].(type) {
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	case string:
		return v
	}
	return ""
}
