package report

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/xeonx/timeago"

	"github.com/deskwatch/deskwatch/pkg/zendesk"
)

// AgentStats summarizes one agent's open queue for the weekly report.
type AgentStats struct {
	Total   int `json:"total"`
	Urgent  int `json:"urgent"`
	High    int `json:"high"`
	Normal  int `json:"normal"`
	Low     int `json:"low"`
	Pending int `json:"pending"`
	Hold    int `json:"hold"`

	AvgAgeDays int `json:"avg_age_days"`
	OldestDays int `json:"oldest_days"`
	NewestDays int `json:"newest_days"`
}

// ComputeAgentStats derives queue statistics from an agent's open tickets.
func ComputeAgentStats(tickets []zendesk.Ticket, now time.Time) AgentStats {
	var s AgentStats
	s.Total = len(tickets)

	var ages []int
	for _, t := range tickets {
		switch t.Priority {
		case zendesk.PriorityUrgent:
			s.Urgent++
		case zendesk.PriorityHigh:
			s.High++
		case zendesk.PriorityLow:
			s.Low++
		default:
			s.Normal++
		}
		switch t.Status {
		case zendesk.StatusPending:
			s.Pending++
		case zendesk.StatusHold:
			s.Hold++
		}
		if !t.CreatedAt.IsZero() {
			ages = append(ages, int(now.Sub(t.CreatedAt).Hours()/24))
		}
	}

	if len(ages) > 0 {
		sum := 0
		s.OldestDays = ages[0]
		s.NewestDays = ages[0]
		for _, a := range ages {
			sum += a
			if a > s.OldestDays {
				s.OldestDays = a
			}
			if a < s.NewestDays {
				s.NewestDays = a
			}
		}
		s.AvgAgeDays = sum / len(ages)
	}
	return s
}

type weeklyRow struct {
	ID       int64
	Priority string
	Subject  string
	Status   string
	DaysOpen int
	Age      string
	RowClass string
	URL      string
}

type weeklyPage struct {
	AgentName  string
	ReportDate string
	Stats      AgentStats
	Rows       []weeklyRow
}

var weeklyTmpl = template.Must(template.New("weekly").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Weekly Ticket Report - {{.AgentName}}</title>
<style>
@media print { .no-print { display: none; } body { margin: 0.5in; } }
body { font-family: 'Segoe UI', Arial, sans-serif; line-height: 1.6; color: #333;
  max-width: 1200px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
.container { background: white; padding: 40px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); }
h1 { color: #1e40af; border-bottom: 3px solid #1e40af; padding-bottom: 10px; }
.header-info { background: #eff6ff; padding: 15px; border-radius: 8px; margin: 20px 0;
  border-left: 4px solid #2563eb; }
.stats-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(150px, 1fr));
  gap: 15px; margin: 20px 0; }
.stat-card { background: #eff6ff; padding: 15px; border-radius: 8px; text-align: center;
  border: 1px solid #bfdbfe; }
.stat-value { font-size: 32px; font-weight: bold; color: #1e40af; }
.stat-label { font-size: 12px; color: #6b7280; text-transform: uppercase; margin-top: 5px; }
table { width: 100%; border-collapse: collapse; margin: 20px 0; font-size: 13px; }
thead { background: #1e40af; color: white; }
th, td { padding: 10px; text-align: left; }
tr.urgent { background: #fee2e2; }
tr.high { background: #fed7aa; }
tr.normal { background: #fef9c3; }
tr.low { background: #d1fae5; }
.print-button { background: #2563eb; color: white; border: none; padding: 12px 24px;
  border-radius: 6px; font-size: 16px; cursor: pointer; margin: 20px 0; }
</style>
</head>
<body>
<div class="container">
<button class="print-button no-print" onclick="window.print()">Print Report</button>
<h1>Weekly Ticket Report - {{.AgentName}}</h1>
<div class="header-info">
<p><strong>Report Date:</strong> {{.ReportDate}}</p>
<p><strong>Total Open Tickets:</strong> {{.Stats.Total}}</p>
<p><strong>Status:</strong> {{.Stats.Pending}} Pending, {{.Stats.Hold}} On Hold</p>
<p><strong>Priority:</strong> {{.Stats.Urgent}} Urgent, {{.Stats.High}} High, {{.Stats.Normal}} Normal, {{.Stats.Low}} Low</p>
</div>
<h2>Summary Statistics</h2>
<div class="stats-grid">
<div class="stat-card"><div class="stat-value">{{.Stats.Total}}</div><div class="stat-label">Total Tickets</div></div>
<div class="stat-card"><div class="stat-value">{{.Stats.AvgAgeDays}}</div><div class="stat-label">Avg Age (Days)</div></div>
<div class="stat-card"><div class="stat-value">{{.Stats.OldestDays}}</div><div class="stat-label">Oldest (Days)</div></div>
<div class="stat-card"><div class="stat-value">{{.Stats.Urgent}}</div><div class="stat-label">Urgent Issues</div></div>
</div>
<h2>All Open Tickets</h2>
<table>
<thead><tr><th>ID</th><th>Priority</th><th>Subject</th><th>Status</th><th>Days Open</th><th>Opened</th></tr></thead>
<tbody>
{{range .Rows}}<tr class="{{.RowClass}}">
<td><a href="{{.URL}}">#{{.ID}}</a></td>
<td>{{.Priority}}</td>
<td>{{.Subject}}</td>
<td>{{.Status}}</td>
<td>{{.DaysOpen}}</td>
<td>{{.Age}}</td>
</tr>
{{end}}</tbody>
</table>
<div style="margin-top: 40px; padding-top: 20px; border-top: 2px solid #e5e7eb; text-align: center; color: #6b7280; font-size: 14px;">
<p><strong>Generated:</strong> {{.ReportDate}}</p>
<p><strong>Automated Weekly Report</strong></p>
</div>
</div>
</body>
</html>
`))

// WeeklyHTML renders a printable per-agent report of open tickets.
func WeeklyHTML(agentName string, tickets []zendesk.Ticket, s AgentStats, link Linker, now time.Time) (string, error) {
	page := weeklyPage{
		AgentName:  agentName,
		ReportDate: now.Format("Monday, January 2, 2006 at 3:04 PM"),
		Stats:      s,
	}

	for _, t := range tickets {
		subject := subjectOr(t)
		// Truncate on rune boundaries; byte slicing can split a multi-byte
		// sequence and emit invalid UTF-8 into the page.
		if r := []rune(subject); len(r) > 60 {
			subject = string(r[:60]) + "..."
		}
		page.Rows = append(page.Rows, weeklyRow{
			ID:       t.ID,
			Priority: priorityLabel(t.Priority),
			Subject:  subject,
			Status:   titleCase(string(t.Status)),
			DaysOpen: int(now.Sub(t.CreatedAt).Hours() / 24),
			Age:      timeago.English.Format(t.CreatedAt),
			RowClass: rowClass(t.Priority),
			URL:      link.AgentTicketURL(t.ID),
		})
	}

	var b strings.Builder
	if err := weeklyTmpl.Execute(&b, page); err != nil {
		return "", fmt.Errorf("rendering weekly report for %s: %w", agentName, err)
	}
	return b.String(), nil
}

func rowClass(p zendesk.Priority) string {
	switch p {
	case zendesk.PriorityUrgent:
		return "urgent"
	case zendesk.PriorityHigh:
		return "high"
	case zendesk.PriorityLow:
		return "low"
	default:
		return "normal"
	}
}
