// Package sla derives SLA classifications for tickets from their metric
// event history. Classification is a pure function of the ticket, its
// events, and the clock; no I/O happens here.
package sla

import (
	"fmt"
	"time"

	"github.com/deskwatch/deskwatch/pkg/zendesk"
)

// Classification is the derived SLA state of one ticket for one polling
// cycle. It is recomputed every cycle and never persisted. The zero value
// means the ticket has no SLA.
type Classification struct {
	Metric        zendesk.Metric `json:"metric_type,omitempty"`
	TargetSeconds int64          `json:"target_seconds,omitempty"`
	BusinessHours bool           `json:"business_hours,omitempty"`
	PolicyID      int64          `json:"policy_id,omitempty"`
	PolicyTitle   string         `json:"policy_title,omitempty"`
	Breached      bool           `json:"breached"`
	Fulfilled     bool           `json:"fulfilled"`
	BreachTime    *time.Time     `json:"breach_time,omitempty"`
	// Anomaly marks a policy with a non-positive target. Such tickets are
	// classified as breached so a misconfigured policy stays visible.
	Anomaly bool `json:"anomaly,omitempty"`
}

// HasSLA reports whether any SLA policy applies to the ticket.
func (c Classification) HasSLA() bool {
	return c.Metric != ""
}

// Target returns the SLA target as a duration.
func (c Classification) Target() time.Duration {
	return time.Duration(c.TargetSeconds) * time.Second
}

// Bucket is the display grouping of a classification.
type Bucket string

const (
	BucketBreached Bucket = "Breached"
	BucketAtRisk   Bucket = "At Risk"
	BucketOnTrack  Bucket = "On Track"
	BucketMet      Bucket = "Met/Resolved"
	BucketNone     Bucket = "No SLA"
)

// MalformedTicketError marks a ticket record missing a field required for
// classification. The ticket is excluded from classification; the cycle
// continues.
type MalformedTicketError struct {
	TicketID int64
	Field    string
}

func (e *MalformedTicketError) Error() string {
	return fmt.Sprintf("ticket %d: missing %s, cannot classify", e.TicketID, e.Field)
}
