package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskwatch/deskwatch/pkg/sla"
	"github.com/deskwatch/deskwatch/pkg/stats"
	"github.com/deskwatch/deskwatch/pkg/zendesk"
)

type fakeNames map[int64]string

func (f fakeNames) AgentName(id int64) string {
	if name, ok := f[id]; ok {
		return name
	}
	return "Agent ID: unknown"
}

var (
	execFrom = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	execTo   = time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
)

func executiveData() ([]sla.Enriched, stats.Summary) {
	items := []sla.Enriched{
		{
			Ticket: zendesk.Ticket{
				ID: 1, Subject: "EHR integration down",
				Priority: zendesk.PriorityUrgent, Status: zendesk.StatusPending,
				AssigneeID: 11, CreatedAt: execFrom.Add(9 * time.Hour),
			},
			SLA:    &sla.Classification{Metric: zendesk.MetricResolutionTime, TargetSeconds: 14400, Breached: true},
			Bucket: sla.BucketBreached,
		},
		{
			Ticket: zendesk.Ticket{
				ID: 2, Subject: "Password reset",
				Priority: zendesk.PriorityNormal, Status: zendesk.StatusSolved,
				AssigneeID: 11, CreatedAt: execFrom.Add(10 * time.Hour),
			},
			SLA:    &sla.Classification{Metric: zendesk.MetricResolutionTime, TargetSeconds: 86400, Fulfilled: true},
			Bucket: sla.BucketMet,
		},
		{
			Ticket: zendesk.Ticket{
				ID: 3, Subject: "Access request",
				Priority: zendesk.PriorityLow, Status: zendesk.StatusOpen,
				CreatedAt: execFrom.AddDate(0, 0, 1).Add(14 * time.Hour),
			},
			Bucket: sla.BucketNone,
		},
	}
	return items, stats.Aggregate(items)
}

func TestExecutiveMarkdown(t *testing.T) {
	items, sum := executiveData()
	names := fakeNames{11: "Candice Brown"}

	out := ExecutiveMarkdown(items, sum, names, fakeLinker{}, execFrom, execTo, reportNow)

	assert.Contains(t, out, "# Zendesk Executive Summary")
	assert.Contains(t, out, "**Period**: 2026-03-02 to 2026-03-08")
	assert.Contains(t, out, "- **Total Tickets**: 3")
	assert.Contains(t, out, "- **Resolved**: 1 (33.3%)")
	assert.Contains(t, out, "### SLA (Resolution Time)")
	assert.Contains(t, out, "- Breached: 1")
	assert.Contains(t, out, "- Within Target: 50.0% of 2 classified")

	// Daily volume in chronological order.
	iMon := indexOf(t, out, "Mon, Mar 2: 2")
	iTue := indexOf(t, out, "Tue, Mar 3: 1")
	assert.Less(t, iMon, iTue)

	// Per-agent load, unassigned grouped, busiest first.
	iAgent := indexOf(t, out, "- Candice Brown: 2 (1 open)")
	iUnassigned := indexOf(t, out, "- Unassigned: 1 (1 open)")
	assert.Less(t, iAgent, iUnassigned)

	// Pending urgent ticket surfaces in the critical queue with a link.
	assert.Contains(t, out, "## Critical Pending (1)")
	assert.Contains(t, out, "[#1](https://example.zendesk.com/agent/tickets/1) - EHR integration down (urgent, Breached)")
}

func indexOf(t *testing.T, haystack, needle string) int {
	t.Helper()
	i := strings.Index(haystack, needle)
	require.GreaterOrEqual(t, i, 0, "missing %q", needle)
	return i
}

func TestExecutiveMarkdownNoResolutionSLA(t *testing.T) {
	items := []sla.Enriched{{
		Ticket: zendesk.Ticket{ID: 5, Subject: "Question", Status: zendesk.StatusOpen, CreatedAt: execFrom},
		Bucket: sla.BucketNone,
	}}
	sum := stats.Aggregate(items)

	out := ExecutiveMarkdown(items, sum, fakeNames{}, fakeLinker{}, execFrom, execTo, reportNow)
	assert.NotContains(t, out, "SLA (Resolution Time)")
	assert.NotContains(t, out, "Critical Pending")
}

func TestWriteExecutive(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")

	paths, err := WriteExecutive(dir, "# Summary\n", "<html></html>", execFrom, execTo)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "Zendesk_Executive_Summary_2026-03-02_to_2026-03-08.md"), paths[0])
	assert.Equal(t, filepath.Join(dir, "Zendesk_Executive_Summary_2026-03-02_to_2026-03-08.html"), paths[1])

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "# Summary\n", string(data))
}
