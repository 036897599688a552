package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/deskwatch/deskwatch/pkg/sla"
	"github.com/deskwatch/deskwatch/pkg/stats"
	"github.com/deskwatch/deskwatch/pkg/zendesk"
)

// AgentNamer resolves an agent ID to a display name. *config.Config
// satisfies it.
type AgentNamer interface {
	AgentName(id int64) string
}

// ExecutiveMarkdown renders the date-range executive report: headline
// outcomes, the usual breakdowns, SLA standing, daily ticket volume, load
// per agent, and the critical pending queue.
func ExecutiveMarkdown(items []sla.Enriched, sum stats.Summary, names AgentNamer, link Linker, from, to, now time.Time) string {
	var b strings.Builder

	b.WriteString("# Zendesk Executive Summary\n\n")
	fmt.Fprintf(&b, "**Period**: %s to %s\n\n", from.Format("2006-01-02"), to.Format("2006-01-02"))
	fmt.Fprintf(&b, "**Generated**: %s\n\n", now.Format("2006-01-02 15:04:05"))

	resolved := sum.ByStatus[zendesk.StatusSolved] + sum.ByStatus[zendesk.StatusClosed]
	b.WriteString("## Outcomes\n\n")
	fmt.Fprintf(&b, "- **Total Tickets**: %d\n", sum.Total)
	fmt.Fprintf(&b, "- **Resolved**: %d (%s)\n", resolved, percent(resolved, sum.Total))
	fmt.Fprintf(&b, "- **Still Open**: %d\n", sum.OpenCount)
	fmt.Fprintf(&b, "- **Urgent**: %d\n", sum.UrgentCount)
	if sum.Excluded > 0 {
		fmt.Fprintf(&b, "- **Excluded (malformed)**: %d\n", sum.Excluded)
	}

	b.WriteString("\n### By Priority\n\n")
	for _, p := range priorityOrder {
		if n := sum.ByPriority[p]; n > 0 {
			fmt.Fprintf(&b, "- %s: %d\n", priorityLabel(p), n)
		}
	}

	b.WriteString("\n### By Status\n\n")
	for _, s := range sortedStatuses(sum.ByStatus) {
		fmt.Fprintf(&b, "- %s: %d\n", titleCase(string(s)), sum.ByStatus[s])
	}

	b.WriteString("\n### By Channel\n\n")
	for _, ch := range sortedChannels(sum.ByChannel) {
		fmt.Fprintf(&b, "- %s: %d\n", titleCase(string(ch)), sum.ByChannel[ch])
	}

	if sum.SLA.Total() > 0 {
		b.WriteString("\n### SLA (Resolution Time)\n\n")
		fmt.Fprintf(&b, "- Breached: %d\n", sum.SLA.Breached)
		fmt.Fprintf(&b, "- At Risk: %d\n", sum.SLA.AtRisk)
		fmt.Fprintf(&b, "- On Track: %d\n", sum.SLA.OnTrack)
		fmt.Fprintf(&b, "- Met/Resolved: %d\n", sum.SLA.Met)
		met := sum.SLA.Met + sum.SLA.OnTrack
		fmt.Fprintf(&b, "- Within Target: %s of %d classified\n", percent(met, sum.SLA.Total()), sum.SLA.Total())
	}

	if days := dailyVolume(items); len(days) > 0 {
		b.WriteString("\n## Daily Volume\n\n")
		for _, d := range days {
			fmt.Fprintf(&b, "- %s: %d\n", d.day.Format("Mon, Jan 2"), d.count)
		}
	}

	if agents := agentLoad(items, names); len(agents) > 0 {
		b.WriteString("\n## Tickets by Agent\n\n")
		for _, a := range agents {
			fmt.Fprintf(&b, "- %s: %d (%d open)\n", a.name, a.total, a.open)
		}
	}

	if critical := criticalPending(items); len(critical) > 0 {
		fmt.Fprintf(&b, "\n## Critical Pending (%d)\n\n", len(critical))
		for _, en := range critical {
			t := en.Ticket
			fmt.Fprintf(&b, "- [#%d](%s) - %s (%s, %s)\n",
				t.ID, link.AgentTicketURL(t.ID), subjectOr(t), t.Priority, en.Bucket)
		}
	}

	return b.String()
}

// WriteExecutive writes the executive report to
// <dir>/Zendesk_Executive_Summary_<from>_to_<to>.md and, when htmlBody is
// non-empty, a matching .html file. It returns the paths written.
func WriteExecutive(dir, markdown, htmlBody string, from, to time.Time) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report dir: %w", err)
	}

	stem := fmt.Sprintf("Zendesk_Executive_Summary_%s_to_%s",
		from.Format("2006-01-02"), to.Format("2006-01-02"))
	var paths []string

	mdPath := filepath.Join(dir, stem+".md")
	if err := os.WriteFile(mdPath, []byte(markdown), 0o644); err != nil {
		return nil, fmt.Errorf("writing executive summary: %w", err)
	}
	paths = append(paths, mdPath)

	if htmlBody != "" {
		htmlPath := filepath.Join(dir, stem+".html")
		if err := os.WriteFile(htmlPath, []byte(htmlBody), 0o644); err != nil {
			return nil, fmt.Errorf("writing executive summary html: %w", err)
		}
		paths = append(paths, htmlPath)
	}
	return paths, nil
}

type dayCount struct {
	day   time.Time
	count int
}

func dailyVolume(items []sla.Enriched) []dayCount {
	byDay := make(map[time.Time]int)
	for _, en := range items {
		if en.Ticket.CreatedAt.IsZero() {
			continue
		}
		day := en.Ticket.CreatedAt.UTC().Truncate(24 * time.Hour)
		byDay[day]++
	}

	out := make([]dayCount, 0, len(byDay))
	for day, count := range byDay {
		out = append(out, dayCount{day: day, count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].day.Before(out[j].day) })
	return out
}

type agentCount struct {
	name  string
	total int
	open  int
}

// agentLoad counts tickets per assignee, busiest first. Unassigned tickets
// are grouped under one bucket rather than dropped.
func agentLoad(items []sla.Enriched, names AgentNamer) []agentCount {
	totals := make(map[string]*agentCount)
	for _, en := range items {
		name := "Unassigned"
		if en.Ticket.AssigneeID != 0 {
			name = names.AgentName(en.Ticket.AssigneeID)
		}
		a, ok := totals[name]
		if !ok {
			a = &agentCount{name: name}
			totals[name] = a
		}
		a.total++
		if !en.Ticket.Status.Resolved() {
			a.open++
		}
	}

	out := make([]agentCount, 0, len(totals))
	for _, a := range totals {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].total != out[j].total {
			return out[i].total > out[j].total
		}
		return out[i].name < out[j].name
	})
	return out
}

// criticalPending lists urgent and high tickets sitting in pending, the
// queue a weekly leadership review walks first.
func criticalPending(items []sla.Enriched) []sla.Enriched {
	var out []sla.Enriched
	for _, en := range items {
		t := en.Ticket
		if t.Status == zendesk.StatusPending &&
			(t.Priority == zendesk.PriorityUrgent || t.Priority == zendesk.PriorityHigh) {
			out = append(out, en)
		}
	}
	return out
}

func sortedChannels(m map[zendesk.Channel]int) []zendesk.Channel {
	keys := make([]zendesk.Channel, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func percent(part, whole int) string {
	if whole == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part)/float64(whole)*100)
}
