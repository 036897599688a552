package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskwatch/deskwatch/pkg/sla"
	"github.com/deskwatch/deskwatch/pkg/zendesk"
)

func enriched(id int64, priority zendesk.Priority, status zendesk.Status, metric zendesk.Metric, bucket sla.Bucket) sla.Enriched {
	en := sla.Enriched{
		Ticket: zendesk.Ticket{
			ID:          id,
			Priority:    priority,
			Status:      status,
			RequesterID: 900 + id%3,
			Via:         zendesk.Via{Channel: zendesk.ChannelEmail},
			CreatedAt:   time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		},
		Bucket: bucket,
	}
	if metric != "" {
		en.SLA = &sla.Classification{Metric: metric, TargetSeconds: 3600}
	}
	return en
}

func TestAggregateCounts(t *testing.T) {
	items := []sla.Enriched{
		enriched(1, zendesk.PriorityUrgent, zendesk.StatusOpen, zendesk.MetricResolutionTime, sla.BucketBreached),
		enriched(2, zendesk.PriorityUrgent, zendesk.StatusNew, zendesk.MetricResolutionTime, sla.BucketAtRisk),
		enriched(3, zendesk.PriorityHigh, zendesk.StatusOpen, zendesk.MetricResolutionTime, sla.BucketOnTrack),
		enriched(4, zendesk.PriorityNormal, zendesk.StatusSolved, zendesk.MetricResolutionTime, sla.BucketMet),
		enriched(5, zendesk.PriorityLow, zendesk.StatusPending, zendesk.MetricReplyTime, sla.BucketMet),
		enriched(6, zendesk.PriorityNone, zendesk.StatusOpen, "", sla.BucketNone),
	}

	s := Aggregate(items)

	assert.Equal(t, 6, s.Total)
	assert.Equal(t, 2, s.UrgentCount)
	assert.Equal(t, 4, s.OpenCount)
	assert.Equal(t, 1, s.SolvedCount)
	assert.Equal(t, 2, s.ByPriority[zendesk.PriorityUrgent])
	assert.Equal(t, 3, s.ByStatus[zendesk.StatusOpen])
	assert.Equal(t, 6, s.ByChannel[zendesk.ChannelEmail])

	assert.Equal(t, SLACounts{Breached: 1, AtRisk: 1, OnTrack: 1, Met: 1}, s.SLA)
	assert.Equal(t, 1, s.ReplyOnly)
	assert.Equal(t, 1, s.NoSLA)
}

// The four SLA buckets must sum to exactly the number of tickets whose
// authoritative classification is resolution time. Reply-time-only and
// no-SLA tickets stay out of the headline counts.
func TestAggregateSLASumInvariant(t *testing.T) {
	items := []sla.Enriched{
		enriched(1, zendesk.PriorityHigh, zendesk.StatusOpen, zendesk.MetricResolutionTime, sla.BucketBreached),
		enriched(2, zendesk.PriorityHigh, zendesk.StatusOpen, zendesk.MetricResolutionTime, sla.BucketOnTrack),
		enriched(3, zendesk.PriorityHigh, zendesk.StatusOpen, zendesk.MetricReplyTime, sla.BucketBreached),
		enriched(4, zendesk.PriorityHigh, zendesk.StatusOpen, "", sla.BucketNone),
		enriched(5, zendesk.PriorityHigh, zendesk.StatusSolved, zendesk.MetricResolutionTime, sla.BucketMet),
	}

	s := Aggregate(items)

	resolutionClassified := 0
	for _, en := range items {
		if en.HasResolutionSLA() {
			resolutionClassified++
		}
	}
	assert.Equal(t, resolutionClassified, s.SLA.Total())
	assert.Equal(t, 3, s.SLA.Total())
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(nil)
	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 0, s.SLA.Total())
	assert.NotNil(t, s.ByPriority)
}

func TestTrackerFirstObservationAllNew(t *testing.T) {
	tr := NewTracker()
	tickets := []zendesk.Ticket{
		{ID: 1, Status: zendesk.StatusNew},
		{ID: 2, Status: zendesk.StatusOpen},
	}

	ch := tr.Observe(tickets)
	assert.Len(t, ch.NewTickets, 2)
	assert.True(t, ch.Any())
}

func TestTrackerDetectsTransitions(t *testing.T) {
	tr := NewTracker()
	tr.Observe([]zendesk.Ticket{
		{ID: 1, Status: zendesk.StatusNew, Priority: zendesk.PriorityNormal},
		{ID: 2, Status: zendesk.StatusOpen, Priority: zendesk.PriorityHigh},
	})

	ch := tr.Observe([]zendesk.Ticket{
		{ID: 1, Status: zendesk.StatusOpen, Priority: zendesk.PriorityNormal},
		{ID: 2, Status: zendesk.StatusOpen, Priority: zendesk.PriorityUrgent},
		{ID: 3, Status: zendesk.StatusNew, Priority: zendesk.PriorityLow},
	})

	require.Len(t, ch.StatusChanges, 1)
	assert.Equal(t, zendesk.StatusNew, ch.StatusChanges[0].From)
	assert.Equal(t, zendesk.StatusOpen, ch.StatusChanges[0].To)

	require.Len(t, ch.PriorityChanges, 1)
	assert.Equal(t, zendesk.PriorityHigh, ch.PriorityChanges[0].From)
	assert.Equal(t, zendesk.PriorityUrgent, ch.PriorityChanges[0].To)

	require.Len(t, ch.NewTickets, 1)
	assert.Equal(t, int64(3), ch.NewTickets[0].ID)
}

func TestTrackerNoChanges(t *testing.T) {
	tr := NewTracker()
	tickets := []zendesk.Ticket{{ID: 1, Status: zendesk.StatusOpen}}
	tr.Observe(tickets)

	ch := tr.Observe(tickets)
	assert.False(t, ch.Any())
}

func TestTrackerTicketsNewestFirst(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tr := NewTracker()
	tr.Observe([]zendesk.Ticket{
		{ID: 1, CreatedAt: base},
		{ID: 2, CreatedAt: base.Add(time.Hour)},
		{ID: 3, CreatedAt: base.Add(30 * time.Minute)},
	})

	out := tr.Tickets()
	require.Len(t, out, 3)
	assert.Equal(t, int64(2), out[0].ID)
	assert.Equal(t, int64(3), out[1].ID)
	assert.Equal(t, int64(1), out[2].ID)
}
