// Command monitor renders a refreshing terminal dashboard of recent
// tickets, their SLA standing, and cycle-over-cycle changes. On shutdown it
// writes the final ticket state to zendesk_monitor_log.json.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/xeonx/timeago"
	"go.uber.org/zap"

	"github.com/deskwatch/deskwatch/pkg/collector"
	"github.com/deskwatch/deskwatch/pkg/config"
	"github.com/deskwatch/deskwatch/pkg/logging"
	"github.com/deskwatch/deskwatch/pkg/sla"
	"github.com/deskwatch/deskwatch/pkg/stats"
	"github.com/deskwatch/deskwatch/pkg/zendesk"
)

const stateFile = "zendesk_monitor_log.json"

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

	client := zendesk.NewClient(cfg.Zendesk, logger)
	engine := sla.NewEngine(sla.WithCalendar(sla.NewCalendar(cfg.Calendar)))
	coll := collector.New(client, engine, cfg.Window(), cfg.EnrichLimit, logger)
	tracker := stats.NewTracker()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("Starting Zendesk Monitor...")
	fmt.Println("Fetching initial data...")

	ticker := time.NewTicker(cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		snap, err := coll.Cycle(ctx)
		if err != nil && errors.Is(err, zendesk.ErrAuthentication) {
			logger.Fatal("authentication failed, check ZENDESK_EMAIL and ZENDESK_API_TOKEN", zap.Error(err))
		}
		if ctx.Err() != nil {
			break
		}

		var changes stats.Changes
		if snap != nil && snap.State == collector.StateLive {
			changes = tracker.Observe(rawTickets(snap.Tickets))
		}
		render(client, cfg, snap, changes, err)

		select {
		case <-ctx.Done():
		case <-ticker.C:
			continue
		}
		break
	}

	fmt.Println("\nMonitoring stopped.")
	if err := dumpState(tracker); err != nil {
		logger.Warn("could not save final state", zap.Error(err))
	} else {
		fmt.Printf("Final state saved to %s\n", stateFile)
	}
}

func rawTickets(items []sla.Enriched) []zendesk.Ticket {
	out := make([]zendesk.Ticket, len(items))
	for i, en := range items {
		out[i] = en.Ticket
	}
	return out
}

func render(client *zendesk.Client, cfg *config.Config, snap *collector.Snapshot, changes stats.Changes, cycleErr error) {
	rule := strings.Repeat("=", 80)

	// ANSI clear plus home keeps the display in place between refreshes.
	fmt.Print("\033[2J\033[H")
	fmt.Println(rule)
	fmt.Printf("ZENDESK MONITOR - %s.zendesk.com\n", client.Subdomain())
	fmt.Printf("Last Update: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Println(rule)

	if snap == nil || snap.State == collector.StateUnavailable {
		if cycleErr != nil {
			fmt.Printf("\nERROR: %v\n", cycleErr)
		} else {
			fmt.Println("\nERROR: ticket source unavailable")
		}
		footer(rule, cfg.RefreshInterval)
		return
	}
	if snap.State == collector.StateStale {
		fmt.Printf("\nWARNING: source unavailable, showing data from %s\n",
			snap.FetchedAt.Format("15:04:05"))
	}

	sum := snap.Summary

	fmt.Printf("\nOVERVIEW (Last %d Hours)\n", cfg.WindowHours)
	fmt.Printf("|- Total Tickets: %d\n", sum.Total)
	fmt.Printf("|- New: %d | Open: %d | Pending: %d\n",
		sum.ByStatus[zendesk.StatusNew], sum.ByStatus[zendesk.StatusOpen], sum.ByStatus[zendesk.StatusPending])
	fmt.Printf("`- Solved: %d | Closed: %d\n",
		sum.ByStatus[zendesk.StatusSolved], sum.ByStatus[zendesk.StatusClosed])

	fmt.Println("\nPRIORITY DISTRIBUTION")
	fmt.Printf("|- Urgent: %d\n", sum.ByPriority[zendesk.PriorityUrgent])
	fmt.Printf("|- High: %d\n", sum.ByPriority[zendesk.PriorityHigh])
	fmt.Printf("|- Normal: %d\n", sum.ByPriority[zendesk.PriorityNormal])
	fmt.Printf("`- Low: %d\n", sum.ByPriority[zendesk.PriorityLow])

	fmt.Println("\nSLA STANDING (Resolution Time)")
	fmt.Printf("|- Breached: %d\n", sum.SLA.Breached)
	fmt.Printf("|- At Risk: %d\n", sum.SLA.AtRisk)
	fmt.Printf("|- On Track: %d\n", sum.SLA.OnTrack)
	fmt.Printf("|- Met/Resolved: %d\n", sum.SLA.Met)
	fmt.Printf("`- No SLA: %d | Reply-Time Only: %d\n", sum.NoSLA, sum.ReplyOnly)

	if len(changes.NewTickets) > 0 {
		fmt.Printf("\nNEW TICKETS DETECTED (%d)\n", len(changes.NewTickets))
		fmt.Print("\a")
		for _, t := range changes.NewTickets {
			fmt.Printf("|- [%d] %s\n", t.ID, subjectOr(t))
			fmt.Printf("|  Priority: %s | Created: %s\n", priorityOr(t), t.CreatedAt.Format("15:04:05"))
		}
	}

	if len(changes.StatusChanges) > 0 {
		fmt.Printf("\nSTATUS CHANGES (%d)\n", len(changes.StatusChanges))
		for _, ch := range changes.StatusChanges {
			fmt.Printf("|- [%d] %s\n", ch.Ticket.ID, subjectOr(ch.Ticket))
			fmt.Printf("|  %s -> %s\n", strings.ToUpper(string(ch.From)), strings.ToUpper(string(ch.To)))
		}
	}

	if len(changes.PriorityChanges) > 0 {
		fmt.Printf("\nPRIORITY CHANGES (%d)\n", len(changes.PriorityChanges))
		for _, ch := range changes.PriorityChanges {
			fmt.Printf("|- [%d] %s\n", ch.Ticket.ID, subjectOr(ch.Ticket))
			fmt.Printf("|  %s -> %s\n", strings.ToUpper(string(ch.From)), strings.ToUpper(string(ch.To)))
		}
	}

	if top := topRequesters(sum, 5); len(top) > 0 {
		fmt.Println("\nTOP REQUESTERS")
		for _, r := range top {
			fmt.Printf("|- Requester %d: %d ticket(s)\n", r.id, r.count)
		}
	}

	urgent := activeUrgent(snap.Tickets)
	if len(urgent) > 0 {
		fmt.Printf("\nACTIVE URGENT TICKETS (%d)\n", len(urgent))
		for _, en := range urgent {
			t := en.Ticket
			fmt.Printf("|- [%d] %s [%s]\n", t.ID, subjectOr(t), en.Bucket)
			fmt.Printf("|  Status: %s | Opened %s\n", t.Status, timeago.English.Format(t.CreatedAt))
			fmt.Printf("|  URL: %s\n", client.AgentTicketURL(t.ID))
		}
	}

	for _, w := range snap.Warnings {
		fmt.Printf("\nWARNING: %s\n", w)
	}

	footer(rule, cfg.RefreshInterval)
}

func footer(rule string, interval time.Duration) {
	fmt.Println("\n" + rule)
	fmt.Printf("Press Ctrl+C to stop monitoring | Auto-refresh every %d seconds\n", int(interval.Seconds()))
	fmt.Println(rule)
}

func subjectOr(t zendesk.Ticket) string {
	if t.Subject == "" {
		return "No subject"
	}
	return t.Subject
}

func priorityOr(t zendesk.Ticket) string {
	if t.Priority == zendesk.PriorityNone {
		return "none"
	}
	return string(t.Priority)
}

func activeUrgent(items []sla.Enriched) []sla.Enriched {
	var out []sla.Enriched
	for _, en := range items {
		if en.Ticket.Priority == zendesk.PriorityUrgent && !en.Ticket.Status.Resolved() {
			out = append(out, en)
		}
	}
	return out
}

type requesterCount struct {
	id    int64
	count int
}

func topRequesters(sum stats.Summary, n int) []requesterCount {
	out := make([]requesterCount, 0, len(sum.ByRequester))
	for id, count := range sum.ByRequester {
		if count > 1 {
			out = append(out, requesterCount{id: id, count: count})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].count > out[j].count })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func dumpState(tracker *stats.Tracker) error {
	payload := struct {
		Timestamp time.Time        `json:"timestamp"`
		Tickets   []zendesk.Ticket `json:"tickets"`
	}{
		Timestamp: time.Now(),
		Tickets:   tracker.Tickets(),
	}

	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(stateFile, out, 0o644)
}
