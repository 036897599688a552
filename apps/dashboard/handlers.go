package main

import (
	"embed"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/deskwatch/deskwatch/pkg/collector"
	"github.com/deskwatch/deskwatch/pkg/sla"
	"github.com/deskwatch/deskwatch/pkg/zendesk"
)

//go:embed static
var staticFS embed.FS

type handler struct {
	client *zendesk.Client
	engine *sla.Engine
	coll   *collector.Collector
	log    *zap.Logger
}

func (h *handler) index(c echo.Context) error {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "dashboard page missing")
	}
	return c.HTMLBlob(http.StatusOK, page)
}

func (h *handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// tickets serves the latest snapshot. Before the first cycle completes the
// endpoint reports 503 so clients can distinguish "starting" from "empty".
func (h *handler) tickets(c echo.Context) error {
	snap := h.coll.Snapshot()
	if snap == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "no data yet")
	}
	return c.JSON(http.StatusOK, snap)
}

type ticketDetail struct {
	sla.Enriched
	Comments []zendesk.Comment `json:"comments,omitempty"`
	URL      string            `json:"url"`
}

// ticketDetail fetches one ticket live, bypassing the snapshot, so drill-in
// views always show current status and conversation.
func (h *handler) ticketDetail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid ticket id")
	}

	ctx := c.Request().Context()

	t, err := h.client.Ticket(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, zendesk.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "ticket not found")
		case errors.Is(err, zendesk.ErrAuthentication):
			return echo.NewHTTPError(http.StatusBadGateway, "upstream authentication failed")
		case zendesk.IsRateLimited(err):
			return echo.NewHTTPError(http.StatusTooManyRequests, "upstream rate limited")
		default:
			h.log.Error("ticket fetch failed", zap.Int64("ticket_id", id), zap.Error(err))
			return echo.NewHTTPError(http.StatusBadGateway, "ticket source unavailable")
		}
	}

	events, err := h.client.MetricEvents(ctx, id)
	if err != nil {
		h.log.Warn("metric events unavailable for detail view",
			zap.Int64("ticket_id", id), zap.Error(err))
		events = nil
	}

	en, err := sla.Enrich(h.engine, *t, events)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	comments, err := h.client.Comments(ctx, id)
	if err != nil {
		h.log.Warn("comments unavailable for detail view",
			zap.Int64("ticket_id", id), zap.Error(err))
	}

	return c.JSON(http.StatusOK, ticketDetail{
		Enriched: en,
		Comments: comments,
		URL:      h.client.AgentTicketURL(id),
	})
}
