// Package report renders ticket snapshots as markdown, plain text, JSON,
// and printable HTML documents.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/deskwatch/deskwatch/pkg/sla"
	"github.com/deskwatch/deskwatch/pkg/stats"
	"github.com/deskwatch/deskwatch/pkg/zendesk"
)

// Linker builds agent-facing URLs for tickets. *zendesk.Client satisfies it.
type Linker interface {
	AgentTicketURL(id int64) string
}

// Format selects the summary output encoding.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatJSON     Format = "json"
)

// priorityOrder fixes the rendering order for priority breakdowns. Map
// iteration order would shuffle the report between runs.
var priorityOrder = []zendesk.Priority{
	zendesk.PriorityUrgent,
	zendesk.PriorityHigh,
	zendesk.PriorityNormal,
	zendesk.PriorityLow,
	zendesk.PriorityNone,
}

// Render produces a summary in the requested format. Unknown formats fall
// back to plain text.
func Render(format Format, items []sla.Enriched, sum stats.Summary, link Linker, now time.Time) (string, error) {
	switch format {
	case FormatJSON:
		return JSONSummary(items, sum)
	case FormatMarkdown:
		return MarkdownSummary(items, sum, link, now), nil
	default:
		return TextSummary(items, sum, now), nil
	}
}

// MarkdownSummary renders the snapshot as a markdown document: headline
// statistics, priority and status breakdowns, SLA standing, and the list of
// active urgent tickets with agent links.
func MarkdownSummary(items []sla.Enriched, sum stats.Summary, link Linker, now time.Time) string {
	var b strings.Builder

	b.WriteString("# Zendesk Ticket Summary\n\n")
	fmt.Fprintf(&b, "**Generated**: %s\n\n", now.Format("2006-01-02 15:04:05"))

	b.WriteString("## Statistics\n\n")
	fmt.Fprintf(&b, "- **Total Tickets**: %d\n", sum.Total)
	fmt.Fprintf(&b, "- **Open**: %d\n", sum.OpenCount)
	fmt.Fprintf(&b, "- **Solved**: %d\n", sum.SolvedCount)
	fmt.Fprintf(&b, "- **Urgent**: %d\n\n", sum.UrgentCount)

	b.WriteString("### By Priority\n\n")
	for _, p := range priorityOrder {
		if n := sum.ByPriority[p]; n > 0 {
			fmt.Fprintf(&b, "- %s: %d\n", priorityLabel(p), n)
		}
	}

	b.WriteString("\n### By Status\n\n")
	for _, s := range sortedStatuses(sum.ByStatus) {
		fmt.Fprintf(&b, "- %s: %d\n", titleCase(string(s)), sum.ByStatus[s])
	}

	// The SLA section appears only when resolution-time classifications
	// exist; a report full of zero counts reads like compliance data where
	// there is none.
	if sum.SLA.Total() > 0 {
		b.WriteString("\n### SLA (Resolution Time)\n\n")
		fmt.Fprintf(&b, "- Breached: %d\n", sum.SLA.Breached)
		fmt.Fprintf(&b, "- At Risk: %d\n", sum.SLA.AtRisk)
		fmt.Fprintf(&b, "- On Track: %d\n", sum.SLA.OnTrack)
		fmt.Fprintf(&b, "- Met/Resolved: %d\n", sum.SLA.Met)
		fmt.Fprintf(&b, "- Reply-Time Only: %d\n", sum.ReplyOnly)
		fmt.Fprintf(&b, "- No SLA: %d\n", sum.NoSLA)
	}
	if sum.Excluded > 0 {
		fmt.Fprintf(&b, "\n**Excluded (malformed)**: %d ticket(s) could not be classified\n", sum.Excluded)
	}

	urgent := activeUrgent(items)
	if len(urgent) > 0 {
		b.WriteString("\n## Active Urgent Tickets\n\n")
		for _, en := range urgent {
			t := en.Ticket
			fmt.Fprintf(&b, "- [#%d](%s) - %s (%s)\n", t.ID, link.AgentTicketURL(t.ID), subjectOr(t), t.Status)
		}
	}

	return b.String()
}

// TextSummary renders the snapshot as plain monospace text for terminals
// and email bodies.
func TextSummary(items []sla.Enriched, sum stats.Summary, now time.Time) string {
	rule := strings.Repeat("=", 60)
	thin := strings.Repeat("-", 60)

	var b strings.Builder
	b.WriteString(rule + "\n")
	b.WriteString("ZENDESK TICKET SUMMARY\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", now.Format("2006-01-02 15:04:05"))

	b.WriteString("STATISTICS\n" + thin + "\n")
	fmt.Fprintf(&b, "Total Tickets: %d\n", sum.Total)
	fmt.Fprintf(&b, "Open: %d\n", sum.OpenCount)
	fmt.Fprintf(&b, "Solved: %d\n", sum.SolvedCount)
	fmt.Fprintf(&b, "Urgent: %d\n\n", sum.UrgentCount)

	b.WriteString("BY PRIORITY\n" + thin + "\n")
	for _, p := range priorityOrder {
		if n := sum.ByPriority[p]; n > 0 {
			fmt.Fprintf(&b, "%s: %d\n", priorityLabel(p), n)
		}
	}

	b.WriteString("\nBY STATUS\n" + thin + "\n")
	for _, s := range sortedStatuses(sum.ByStatus) {
		fmt.Fprintf(&b, "%s: %d\n", titleCase(string(s)), sum.ByStatus[s])
	}

	if sum.SLA.Total() > 0 {
		b.WriteString("\nSLA (RESOLUTION TIME)\n" + thin + "\n")
		fmt.Fprintf(&b, "Breached: %d\n", sum.SLA.Breached)
		fmt.Fprintf(&b, "At Risk: %d\n", sum.SLA.AtRisk)
		fmt.Fprintf(&b, "On Track: %d\n", sum.SLA.OnTrack)
		fmt.Fprintf(&b, "Met/Resolved: %d\n", sum.SLA.Met)
		fmt.Fprintf(&b, "Reply-Time Only: %d\n", sum.ReplyOnly)
		fmt.Fprintf(&b, "No SLA: %d\n", sum.NoSLA)
	}
	if sum.Excluded > 0 {
		fmt.Fprintf(&b, "\nExcluded (malformed): %d\n", sum.Excluded)
	}

	return b.String()
}

// JSONSummary emits the stats plus the full enriched ticket list.
func JSONSummary(items []sla.Enriched, sum stats.Summary) (string, error) {
	payload := struct {
		Stats   stats.Summary  `json:"stats"`
		Tickets []sla.Enriched `json:"tickets"`
	}{Stats: sum, Tickets: items}

	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding summary: %w", err)
	}
	return string(out), nil
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

func sortedStatuses(m map[zendesk.Status]int) []zendesk.Status {
	keys := make([]zendesk.Status, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func subjectOr(t zendesk.Ticket) string {
	if t.Subject == "" {
		return "No subject"
	}
	return t.Subject
}

func titleCase(s string) string {
	if s == "" {
		return "Unknown"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func priorityLabel(p zendesk.Priority) string {
	if p == zendesk.PriorityNone {
		return "None"
	}
	return titleCase(string(p))
}
