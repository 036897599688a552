package sla

import (
	"github.com/deskwatch/deskwatch/pkg/zendesk"
)

// Enriched pairs a ticket with its classification for one cycle. SLA is
// nil when the ticket has no metric events; adapters render that as
// "No SLA" and never infer a classification themselves.
type Enriched struct {
	Ticket           zendesk.Ticket  `json:"ticket"`
	SLA              *Classification `json:"sla_metrics,omitempty"`
	Bucket           Bucket          `json:"sla_bucket"`
	RemainingSeconds int64           `json:"remaining_seconds,omitempty"`
}

// Enrich classifies one ticket and bundles the display-facing fields.
func Enrich(e *Engine, t zendesk.Ticket, events []zendesk.MetricEvent) (Enriched, error) {
	c, err := e.Classify(t, events)
	if err != nil {
		return Enriched{}, err
	}
	out := Enriched{
		Ticket: t,
		Bucket: e.BucketFor(t, c),
	}
	if c.HasSLA() {
		cc := c
		out.SLA = &cc
		out.RemainingSeconds = int64(e.Remaining(t, c).Seconds())
	}
	return out, nil
}

// HasResolutionSLA reports whether the authoritative classification is the
// resolution-time metric. Only these tickets feed the headline SLA counts.
func (en Enriched) HasResolutionSLA() bool {
	return en.SLA != nil && en.SLA.Metric == zendesk.MetricResolutionTime
}
