package sla

import (
	"time"

	"github.com/rickar/cal/v2"

	"github.com/deskwatch/deskwatch/pkg/zendesk"
)

// atRiskFraction is the remaining-time share below which an unsolved ticket
// is shown as At Risk.
const atRiskFraction = 0.25

// Engine classifies tickets against their SLA metric events.
type Engine struct {
	calendar *cal.BusinessCalendar
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithCalendar sets the business calendar used for business-hours targets.
func WithCalendar(c *cal.BusinessCalendar) Option {
	return func(e *Engine) { e.calendar = c }
}

// WithClock overrides the engine's clock. Tests use this to pin "now".
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine returns an Engine with a default Mon-Fri business calendar and
// the wall clock.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		calendar: cal.NewBusinessCalendar(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Classify derives the SLA classification for one ticket from its metric
// events. Resolution-time events are authoritative; reply-time is the
// fallback; no events means an empty classification. A missing creation
// timestamp yields a MalformedTicketError and no classification.
func (e *Engine) Classify(t zendesk.Ticket, events []zendesk.MetricEvent) (Classification, error) {
	if t.CreatedAt.IsZero() {
		return Classification{}, &MalformedTicketError{TicketID: t.ID, Field: "created_at"}
	}

	group := chooseMetricGroup(events)
	applied := latestTarget(group)
	if applied == nil {
		return Classification{}, nil
	}

	c := Classification{
		Metric:        applied.Metric,
		TargetSeconds: applied.TargetSeconds,
		BusinessHours: applied.BusinessHours,
		PolicyID:      applied.Policy.ID,
		PolicyTitle:   applied.Policy.Title,
	}

	for _, ev := range group {
		switch ev.Type {
		case zendesk.EventBreach:
			c.Breached = true
			when := ev.Time
			c.BreachTime = &when
		case zendesk.EventFulfill:
			c.Fulfilled = true
		}
	}

	// A non-positive target is a broken policy. Fail safe toward
	// visibility: always breached, never hidden.
	if c.TargetSeconds <= 0 {
		c.Anomaly = true
		c.Breached = true
		c.Fulfilled = false
		return c, nil
	}

	// Elapsed-based breach is an inference for a metric still running. A
	// fulfill event ended the metric, so time past it proves nothing.
	if !c.Breached && !c.Fulfilled && !t.Status.Resolved() && e.Elapsed(t, c.BusinessHours) >= c.Target() {
		c.Breached = true
	}

	// A resolved ticket with no breach evidence was met within target.
	if !c.Fulfilled && t.Status.Resolved() && !c.Breached {
		c.Fulfilled = true
	}

	// A breach, once it occurred, is a fact about history: it dominates
	// any later fulfillment.
	if c.Breached {
		c.Fulfilled = false
	}

	return c, nil
}

// Elapsed returns how much time has run against the ticket since creation,
// business-hours-aware when the policy demands it.
func (e *Engine) Elapsed(t zendesk.Ticket, businessHours bool) time.Duration {
	now := e.now()
	if businessHours && e.calendar != nil {
		return e.calendar.WorkHoursInRange(t.CreatedAt, now)
	}
	return now.Sub(t.CreatedAt)
}

// Remaining returns the time left before the target is exceeded. Negative
// when overdue, zero when the classification has no SLA.
func (e *Engine) Remaining(t zendesk.Ticket, c Classification) time.Duration {
	if !c.HasSLA() {
		return 0
	}
	return c.Target() - e.Elapsed(t, c.BusinessHours)
}

// BucketFor maps a classification to its display bucket.
func (e *Engine) BucketFor(t zendesk.Ticket, c Classification) Bucket {
	switch {
	case !c.HasSLA():
		return BucketNone
	case c.Breached:
		return BucketBreached
	case c.Fulfilled:
		return BucketMet
	}
	remaining := e.Remaining(t, c)
	if float64(remaining) < atRiskFraction*float64(c.Target()) {
		return BucketAtRisk
	}
	return BucketOnTrack
}

// chooseMetricGroup partitions events by metric and picks the
// authoritative group: resolution time when present, else reply time.
func chooseMetricGroup(events []zendesk.MetricEvent) []zendesk.MetricEvent {
	var resolution, reply []zendesk.MetricEvent
	for _, ev := range events {
		switch ev.Metric {
		case zendesk.MetricResolutionTime:
			resolution = append(resolution, ev)
		case zendesk.MetricReplyTime:
			reply = append(reply, ev)
		}
	}
	if hasTarget(resolution) {
		return resolution
	}
	if hasTarget(reply) {
		return reply
	}
	return nil
}

func hasTarget(events []zendesk.MetricEvent) bool {
	for _, ev := range events {
		if ev.Type == zendesk.EventApplySLA {
			return true
		}
	}
	return false
}

// latestTarget returns the most recently applied target in the group. A
// policy can be reapplied or changed mid-ticket-life; only the latest
// target is meaningful.
func latestTarget(group []zendesk.MetricEvent) *zendesk.MetricEvent {
	var latest *zendesk.MetricEvent
	for i := range group {
		ev := &group[i]
		if ev.Type != zendesk.EventApplySLA {
			continue
		}
		if latest == nil || ev.Time.After(latest.Time) {
			latest = ev
		}
	}
	return latest
}
