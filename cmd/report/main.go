// Command report generates ticket reports on demand: a daily summary of
// recent tickets, weekly per-agent queue reports, and a date-range
// executive summary, written as markdown and printable HTML.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/deskwatch/deskwatch/pkg/collector"
	"github.com/deskwatch/deskwatch/pkg/config"
	"github.com/deskwatch/deskwatch/pkg/logging"
	"github.com/deskwatch/deskwatch/pkg/report"
	"github.com/deskwatch/deskwatch/pkg/sla"
	"github.com/deskwatch/deskwatch/pkg/zendesk"
)

func main() {
	daily := flag.Bool("daily", false, "generate the daily ticket summary")
	weekly := flag.Bool("weekly", false, "generate weekly per-agent reports")
	executive := flag.Bool("executive", false, "generate the date-range executive summary")
	hours := flag.Int("hours", 0, "daily summary window in hours (default: configured window)")
	from := flag.String("from", "", "executive summary start date, YYYY-MM-DD (default: last full week)")
	to := flag.String("to", "", "executive summary end date, YYYY-MM-DD (default: last full week)")
	flag.Parse()

	if !*daily && !*weekly && !*executive {
		*daily = true
	}

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

	client := zendesk.NewClient(cfg.Zendesk, logger)
	engine := sla.NewEngine(sla.WithCalendar(sla.NewCalendar(cfg.Calendar)))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if *daily {
		if err := runDaily(ctx, cfg, client, engine, logger, *hours); err != nil {
			logger.Fatal("daily report failed", zap.Error(err))
		}
	}
	if *weekly {
		if err := runWeekly(ctx, cfg, client, logger); err != nil {
			logger.Fatal("weekly reports failed", zap.Error(err))
		}
	}
	if *executive {
		if err := runExecutive(ctx, cfg, client, engine, logger, *from, *to); err != nil {
			logger.Fatal("executive summary failed", zap.Error(err))
		}
	}
}

func runDaily(ctx context.Context, cfg *config.Config, client *zendesk.Client, engine *sla.Engine, logger *zap.Logger, hours int) error {
	window := cfg.Window()
	if hours > 0 {
		window = time.Duration(hours) * time.Hour
	}

	coll := collector.New(client, engine, window, cfg.EnrichLimit, logger)
	snap, err := coll.Cycle(ctx)
	if err != nil {
		return err
	}
	if snap.State == collector.StateUnavailable {
		return fmt.Errorf("ticket source unavailable")
	}

	now := time.Now()
	md := report.MarkdownSummary(snap.Tickets, snap.Summary, client, now)

	body, err := report.MarkdownToHTML(md)
	if err != nil {
		return err
	}
	page := report.WrapPage("Zendesk Ticket Summary", body)

	paths, err := report.WriteDaily(cfg.ReportDir, md, page, now)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Printf("Report saved to: %s\n", p)
	}
	return nil
}

func runExecutive(ctx context.Context, cfg *config.Config, client *zendesk.Client, engine *sla.Engine, logger *zap.Logger, fromStr, toStr string) error {
	from, to, err := executiveRange(fromStr, toStr, time.Now())
	if err != nil {
		return err
	}

	tickets, err := client.SearchCreatedBetween(ctx, from, to)
	if err != nil {
		return err
	}

	coll := collector.New(client, engine, 0, cfg.EnrichLimit, logger)
	snap, err := coll.Enrich(ctx, tickets)
	if err != nil {
		return err
	}

	now := time.Now()
	md := report.ExecutiveMarkdown(snap.Tickets, snap.Summary, cfg, client, from, to, now)

	body, err := report.MarkdownToHTML(md)
	if err != nil {
		return err
	}
	page := report.WrapPage("Zendesk Executive Summary", body)

	paths, err := report.WriteExecutive(cfg.ReportDir, md, page, from, to)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Printf("Report saved to: %s\n", p)
	}
	return nil
}

// executiveRange resolves the report period. With no flags it covers the
// last full Monday-through-Sunday week.
func executiveRange(fromStr, toStr string, now time.Time) (time.Time, time.Time, error) {
	if fromStr == "" && toStr == "" {
		sinceMonday := (int(now.Weekday()) + 6) % 7
		to := now.AddDate(0, 0, -(sinceMonday + 1))
		to = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, now.Location())
		return to.AddDate(0, 0, -6), to, nil
	}
	if fromStr == "" || toStr == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("-from and -to must be given together")
	}
	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing -from: %w", err)
	}
	to, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing -to: %w", err)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("-to %s is before -from %s", toStr, fromStr)
	}
	return from, to, nil
}

func runWeekly(ctx context.Context, cfg *config.Config, client *zendesk.Client, logger *zap.Logger) error {
	if len(cfg.Agents) == 0 {
		return fmt.Errorf("no agents configured, set agents in the config file")
	}

	now := time.Now()
	for _, agent := range cfg.Agents {
		tickets, err := client.SearchAssignedOpen(ctx, agent.ID)
		if err != nil {
			logger.Warn("skipping agent, queue fetch failed",
				zap.String("agent", agent.Name), zap.Error(err))
			continue
		}

		agentStats := report.ComputeAgentStats(tickets, now)
		page, err := report.WeeklyHTML(agent.Name, tickets, agentStats, client, now)
		if err != nil {
			return err
		}

		path, err := report.WriteWeekly(cfg.ReportDir, agent.Name, page, now)
		if err != nil {
			return err
		}
		fmt.Printf("Report saved to: %s (%d open tickets)\n", path, agentStats.Total)
	}
	return nil
}
