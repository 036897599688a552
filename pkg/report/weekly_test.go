package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskwatch/deskwatch/pkg/zendesk"
)

func openTicket(id int64, priority zendesk.Priority, status zendesk.Status, ageDays int) zendesk.Ticket {
	return zendesk.Ticket{
		ID:        id,
		Subject:   "printer keeps jamming every morning",
		Priority:  priority,
		Status:    status,
		CreatedAt: reportNow.AddDate(0, 0, -ageDays),
	}
}

func TestComputeAgentStats(t *testing.T) {
	tickets := []zendesk.Ticket{
		openTicket(1, zendesk.PriorityUrgent, zendesk.StatusOpen, 10),
		openTicket(2, zendesk.PriorityHigh, zendesk.StatusPending, 4),
		openTicket(3, zendesk.PriorityNone, zendesk.StatusHold, 1),
	}

	s := ComputeAgentStats(tickets, reportNow)

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Urgent)
	assert.Equal(t, 1, s.High)
	// Missing priority counts as normal, matching the queue view.
	assert.Equal(t, 1, s.Normal)
	assert.Equal(t, 1, s.Pending)
	assert.Equal(t, 1, s.Hold)
	assert.Equal(t, 5, s.AvgAgeDays)
	assert.Equal(t, 10, s.OldestDays)
	assert.Equal(t, 1, s.NewestDays)
}

func TestComputeAgentStatsEmpty(t *testing.T) {
	s := ComputeAgentStats(nil, reportNow)
	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 0, s.AvgAgeDays)
}

func TestWeeklyHTML(t *testing.T) {
	tickets := []zendesk.Ticket{
		openTicket(1, zendesk.PriorityUrgent, zendesk.StatusOpen, 10),
		{
			ID:        2,
			Subject:   "this subject is deliberately much longer than sixty characters to check truncation",
			Priority:  zendesk.PriorityLow,
			Status:    zendesk.StatusOpen,
			CreatedAt: reportNow.AddDate(0, 0, -1),
		},
	}
	s := ComputeAgentStats(tickets, reportNow)

	out, err := WeeklyHTML("Candice Brown", tickets, s, fakeLinker{}, reportNow)
	require.NoError(t, err)

	assert.Contains(t, out, "Weekly Ticket Report - Candice Brown")
	assert.Contains(t, out, `href="https://example.zendesk.com/agent/tickets/1"`)
	assert.Contains(t, out, `class="urgent"`)
	assert.Contains(t, out, "this subject is deliberately much longer than sixty")
	assert.Contains(t, out, "...")
	assert.Contains(t, out, "Total Open Tickets:</strong> 2")
}

func TestWeeklyHTMLTruncatesOnRuneBoundary(t *testing.T) {
	tickets := []zendesk.Ticket{{
		ID:        1,
		Subject:   strings.Repeat("é", 70),
		Priority:  zendesk.PriorityNormal,
		Status:    zendesk.StatusOpen,
		CreatedAt: reportNow.AddDate(0, 0, -1),
	}}
	s := ComputeAgentStats(tickets, reportNow)

	out, err := WeeklyHTML("Ron Pineda", tickets, s, fakeLinker{}, reportNow)
	require.NoError(t, err)

	assert.True(t, utf8.ValidString(out))
	assert.Contains(t, out, strings.Repeat("é", 60)+"...")
}

func TestWriteDailyAndWeekly(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")

	paths, err := WriteDaily(dir, "# Summary\n", "<html></html>", reportNow)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "zendesk_summary_20260310.md"), paths[0])
	assert.Equal(t, filepath.Join(dir, "zendesk_summary_20260310.html"), paths[1])

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "# Summary\n", string(data))

	path, err := WriteWeekly(dir, "Candice Brown", "<html></html>", reportNow)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Candice_Brown_weekly_2026-03-10.html"), path)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
