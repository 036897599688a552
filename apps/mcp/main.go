package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/deskwatch/deskwatch/pkg/collector"
	"github.com/deskwatch/deskwatch/pkg/config"
	"github.com/deskwatch/deskwatch/pkg/logging"
	"github.com/deskwatch/deskwatch/pkg/report"
	"github.com/deskwatch/deskwatch/pkg/sla"
	"github.com/deskwatch/deskwatch/pkg/zendesk"
)

type app struct {
	cfg    *config.Config
	client *zendesk.Client
	engine *sla.Engine
	log    *zap.Logger
}

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, true)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	calendar := sla.NewCalendar(cfg.Calendar)

	a := &app{
		cfg:    cfg,
		client: zendesk.NewClient(cfg.Zendesk, logger),
		engine: sla.NewEngine(sla.WithCalendar(calendar)),
		log:    logger,
	}

	s := server.NewMCPServer("Zendesk Ticket Monitor", "1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
	)

	s.AddTool(
		mcp.NewTool("get_urgent_tickets",
			mcp.WithDescription("Get urgent priority tickets from the last N hours"),
			mcp.WithNumber("hours", mcp.Description("Number of hours to look back (default: 24)")),
			mcp.WithBoolean("include_solved", mcp.Description("Include solved tickets (default: false)")),
		),
		a.handleGetUrgentTickets,
	)

	s.AddTool(
		mcp.NewTool("get_ticket_details",
			mcp.WithDescription("Get detailed information about a specific ticket, including SLA standing"),
			mcp.WithNumber("ticket_id", mcp.Required(), mcp.Description("Ticket ID to retrieve")),
		),
		a.handleGetTicketDetails,
	)

	s.AddTool(
		mcp.NewTool("search_tickets",
			mcp.WithDescription("Search tickets by keyword in subject or description"),
			mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
			mcp.WithNumber("hours", mcp.Description("Number of hours to look back (default: 24)")),
		),
		a.handleSearchTickets,
	)

	s.AddTool(
		mcp.NewTool("get_ticket_stats",
			mcp.WithDescription("Get ticket statistics including SLA breach counts"),
			mcp.WithNumber("hours", mcp.Description("Number of hours to look back (default: 24)")),
		),
		a.handleGetTicketStats,
	)

	s.AddTool(
		mcp.NewTool("create_ticket_summary",
			mcp.WithDescription("Create a formatted summary report of recent tickets"),
			mcp.WithNumber("hours", mcp.Description("Number of hours to look back (default: 24)")),
			mcp.WithString("format", mcp.Description("Output format: markdown, text, or json (default: markdown)")),
		),
		a.handleCreateTicketSummary,
	)

	s.AddTool(
		mcp.NewTool("monitor_ticket_status",
			mcp.WithDescription("Check status of specific tickets and detect changes"),
			mcp.WithArray("ticket_ids", mcp.Required(),
				mcp.Description("List of ticket IDs to monitor"),
				mcp.Items(map[string]any{"type": "number"}),
			),
		),
		a.handleMonitorTicketStatus,
	)

	s.AddResource(
		mcp.NewResource(
			"zendesk://tickets/recent",
			"Recent Tickets",
			mcp.WithResourceDescription("Tickets created in the last 24 hours with SLA classification"),
			mcp.WithMIMEType("application/json"),
		),
		a.handleRecentTicketsResource,
	)

	s.AddResource(
		mcp.NewResource(
			"zendesk://tickets/urgent",
			"Urgent Tickets",
			mcp.WithResourceDescription("Unsolved urgent tickets from the last 24 hours"),
			mcp.WithMIMEType("application/json"),
		),
		a.handleUrgentTicketsResource,
	)

	s.AddResource(
		mcp.NewResource(
			"zendesk://tickets/open",
			"Open Tickets",
			mcp.WithResourceDescription("New and open tickets from the last 24 hours"),
			mcp.WithMIMEType("application/json"),
		),
		a.handleOpenTicketsResource,
	)

	s.AddResource(
		mcp.NewResource(
			"zendesk://stats/summary",
			"Ticket Statistics",
			mcp.WithResourceDescription("Aggregate statistics for the last 24 hours"),
			mcp.WithMIMEType("application/json"),
		),
		a.handleStatsResource,
	)

	logger.Info("starting MCP server", zap.String("addr", cfg.MCPAddr))
	httpServer := server.NewStreamableHTTPServer(s)
	if err := httpServer.Start(cfg.MCPAddr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// snapshotFor runs one collection cycle over a caller-chosen window. Each
// tool call sees live data rather than the shared dashboard cadence; a
// fresh collector has no last-known-good to fall back on, so any source
// failure surfaces as an error.
func (a *app) snapshotFor(ctx context.Context, hours int) (*collector.Snapshot, error) {
	if hours <= 0 {
		hours = a.cfg.WindowHours
	}
	c := collector.New(a.client, a.engine, time.Duration(hours)*time.Hour, a.cfg.EnrichLimit, a.log)
	snap, err := c.Cycle(ctx)
	if err != nil {
		if errors.Is(err, zendesk.ErrAuthentication) {
			return nil, err
		}
		return nil, fmt.Errorf("ticket source unavailable: %w", err)
	}
	return snap, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (a *app) handleGetUrgentTickets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hours := req.GetInt("hours", 24)
	includeSolved := req.GetBool("include_solved", false)

	snap, err := a.snapshotFor(ctx, hours)
	if err != nil {
		return nil, err
	}

	urgent := make([]sla.Enriched, 0)
	for _, en := range snap.Tickets {
		if en.Ticket.Priority != zendesk.PriorityUrgent {
			continue
		}
		if !includeSolved && en.Ticket.Status.Resolved() {
			continue
		}
		urgent = append(urgent, en)
	}

	return jsonResult(map[string]any{
		"count":   len(urgent),
		"tickets": urgent,
		"state":   snap.State,
	})
}

func (a *app) handleGetTicketDetails(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := int64(req.GetInt("ticket_id", 0))
	if id == 0 {
		return nil, fmt.Errorf("ticket_id is required")
	}

	t, err := a.client.Ticket(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching ticket %d: %w", id, err)
	}

	events, err := a.client.MetricEvents(ctx, id)
	if err != nil {
		a.log.Warn("metric events unavailable for ticket detail",
			zap.Int64("ticket_id", id), zap.Error(err))
		events = nil
	}

	en, err := sla.Enrich(a.engine, *t, events)
	if err != nil {
		return nil, err
	}
	return jsonResult(en)
}

func (a *app) handleSearchTickets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	hours := req.GetInt("hours", 24)

	snap, err := a.snapshotFor(ctx, hours)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	matching := make([]sla.Enriched, 0)
	for _, en := range snap.Tickets {
		if strings.Contains(strings.ToLower(en.Ticket.Subject), needle) ||
			strings.Contains(strings.ToLower(en.Ticket.Description), needle) {
			matching = append(matching, en)
		}
	}

	return jsonResult(map[string]any{
		"query":   query,
		"count":   len(matching),
		"tickets": matching,
	})
}

func (a *app) handleGetTicketStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hours := req.GetInt("hours", 24)

	snap, err := a.snapshotFor(ctx, hours)
	if err != nil {
		return nil, err
	}
	return jsonResult(snap.Summary)
}

func (a *app) handleCreateTicketSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hours := req.GetInt("hours", 24)
	format := report.Format(req.GetString("format", string(report.FormatMarkdown)))

	snap, err := a.snapshotFor(ctx, hours)
	if err != nil {
		return nil, err
	}

	summary, err := report.Render(format, snap.Tickets, snap.Summary, a.client, time.Now())
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(summary), nil
}

func (a *app) handleMonitorTicketStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := req.GetArguments()["ticket_ids"].([]any)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("ticket_ids is required")
	}

	results := make([]map[string]any, 0, len(raw))
	for _, v := range raw {
		f, ok := v.(float64)
		if !ok {
			results = append(results, map[string]any{"error": fmt.Sprintf("invalid ticket id: %v", v)})
			continue
		}
		id := int64(f)

		t, err := a.client.Ticket(ctx, id)
		if err != nil {
			results = append(results, map[string]any{"id": id, "error": err.Error()})
			continue
		}
		results = append(results, map[string]any{
			"id":         id,
			"status":     t.Status,
			"priority":   t.Priority,
			"subject":    t.Subject,
			"updated_at": t.UpdatedAt.Format(time.RFC3339),
		})
	}
	return jsonResult(results)
}

func (a *app) resourceJSON(uri string, v any) ([]mcp.ResourceContents, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}

func (a *app) handleRecentTicketsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	snap, err := a.snapshotFor(ctx, 24)
	if err != nil {
		return nil, err
	}
	return a.resourceJSON(req.Params.URI, snap.Tickets)
}

func (a *app) handleUrgentTicketsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	snap, err := a.snapshotFor(ctx, 24)
	if err != nil {
		return nil, err
	}
	urgent := make([]sla.Enriched, 0)
	for _, en := range snap.Tickets {
		if en.Ticket.Priority == zendesk.PriorityUrgent && !en.Ticket.Status.Resolved() {
			urgent = append(urgent, en)
		}
	}
	return a.resourceJSON(req.Params.URI, urgent)
}

func (a *app) handleOpenTicketsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	snap, err := a.snapshotFor(ctx, 24)
	if err != nil {
		return nil, err
	}
	open := make([]sla.Enriched, 0)
	for _, en := range snap.Tickets {
		if en.Ticket.Status == zendesk.StatusNew || en.Ticket.Status == zendesk.StatusOpen {
			open = append(open, en)
		}
	}
	return a.resourceJSON(req.Params.URI, open)
}

func (a *app) handleStatsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	snap, err := a.snapshotFor(ctx, 24)
	if err != nil {
		return nil, err
	}
	return a.resourceJSON(req.Params.URI, snap.Summary)
}
