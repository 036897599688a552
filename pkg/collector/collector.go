// Package collector runs the polling cycle: fetch recent tickets, enrich a
// bounded number of them with SLA metric events, classify, aggregate, and
// publish an immutable snapshot for the presentation layers.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/deskwatch/deskwatch/pkg/sla"
	"github.com/deskwatch/deskwatch/pkg/stats"
	"github.com/deskwatch/deskwatch/pkg/zendesk"
)

// Source is the slice of the ticket API the collector needs.
type Source interface {
	SearchCreatedSince(ctx context.Context, window time.Duration) ([]zendesk.Ticket, error)
	MetricEvents(ctx context.Context, id int64) ([]zendesk.MetricEvent, error)
}

// State describes how trustworthy a snapshot is. Stale data is never
// presented as live.
type State string

const (
	// StateLive means the snapshot was fetched this cycle.
	StateLive State = "live"
	// StateStale means the source failed and this is the last-known-good
	// data.
	StateStale State = "stale"
	// StateUnavailable means the source failed and no prior data exists.
	StateUnavailable State = "unavailable"
)

// Snapshot is one cycle's worth of enriched tickets plus their summary.
type Snapshot struct {
	Tickets   []sla.Enriched `json:"tickets"`
	Summary   stats.Summary  `json:"summary"`
	FetchedAt time.Time      `json:"fetched_at"`
	State     State          `json:"state"`
	Warnings  []string       `json:"warnings,omitempty"`
}

// Collector fetches, enriches, and aggregates tickets on a fixed cadence.
type Collector struct {
	source      Source
	engine      *sla.Engine
	window      time.Duration
	enrichLimit int
	log         *zap.Logger

	mu   sync.RWMutex
	last *Snapshot
}

// New builds a Collector. enrichLimit bounds per-ticket metric fetches per
// cycle; it is a rate-budget policy, not an engine concern.
func New(source Source, engine *sla.Engine, window time.Duration, enrichLimit int, log *zap.Logger) *Collector {
	return &Collector{
		source:      source,
		engine:      engine,
		window:      window,
		enrichLimit: enrichLimit,
		log:         log,
	}
}

// Snapshot returns the most recent snapshot, or nil before the first cycle.
func (c *Collector) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

func (c *Collector) store(s *Snapshot) {
	c.mu.Lock()
	c.last = s
	c.mu.Unlock()
}

// Cycle runs one fetch-enrich-aggregate pass. Authentication failures are
// returned as-is so callers can stop; any other source failure degrades to
// the last-known-good snapshot marked stale (or an explicit unavailable
// state) and is also returned for logging.
func (c *Collector) Cycle(ctx context.Context) (*Snapshot, error) {
	now := time.Now()

	tickets, err := c.source.SearchCreatedSince(ctx, c.window)
	if err != nil {
		if errors.Is(err, zendesk.ErrAuthentication) {
			return nil, err
		}
		return c.degrade(now), err
	}

	snap, err := c.Enrich(ctx, tickets)
	if err != nil {
		return nil, err
	}
	c.store(snap)
	return snap, nil
}

// Enrich classifies an already-fetched ticket list under the collector's
// enrichment cap and aggregates the result. It does not publish the
// snapshot; date-range reports run it over their own fetch.
func (c *Collector) Enrich(ctx context.Context, tickets []zendesk.Ticket) (*Snapshot, error) {
	now := time.Now()

	var (
		enriched    []sla.Enriched
		warnings    []string
		excluded    int
		rateLimited bool
	)

	for i, t := range tickets {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var events []zendesk.MetricEvent
		if i < c.enrichLimit && !rateLimited {
			var err error
			events, err = c.source.MetricEvents(ctx, t.ID)
			if err != nil {
				events = nil
				if zendesk.IsRateLimited(err) {
					// Skip enrichment for the rest of the cycle rather
					// than fail the whole render.
					rateLimited = true
					warnings = append(warnings, "rate limited: SLA enrichment skipped for remaining tickets")
					c.log.Warn("rate limited during enrichment, degrading remainder of cycle",
						zap.Int64("ticket_id", t.ID))
				} else if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil, err
				} else {
					c.log.Warn("metric events unavailable, ticket degraded to no SLA",
						zap.Int64("ticket_id", t.ID), zap.Error(err))
				}
			}
		}

		en, err := sla.Enrich(c.engine, t, events)
		if err != nil {
			var malformed *sla.MalformedTicketError
			if errors.As(err, &malformed) {
				excluded++
				warnings = append(warnings, malformed.Error())
				c.log.Warn("ticket excluded from classification", zap.Error(malformed))
				continue
			}
			return nil, err
		}
		if en.SLA != nil && en.SLA.Anomaly {
			warnings = append(warnings, anomalyWarning(t.ID, en.SLA.PolicyTitle))
			c.log.Warn("non-positive SLA target, classified as breached",
				zap.Int64("ticket_id", t.ID), zap.String("policy", en.SLA.PolicyTitle))
		}
		enriched = append(enriched, en)
	}

	summary := stats.Aggregate(enriched)
	summary.Excluded = excluded

	return &Snapshot{
		Tickets:   enriched,
		Summary:   summary,
		FetchedAt: now,
		State:     StateLive,
		Warnings:  warnings,
	}, nil
}

// degrade publishes the source-unavailable state: last-known-good data
// marked stale when it exists, an explicit empty unavailable snapshot when
// it does not.
func (c *Collector) degrade(now time.Time) *Snapshot {
	var snap *Snapshot
	if last := c.Snapshot(); last != nil {
		stale := *last
		stale.State = StateStale
		snap = &stale
	} else {
		snap = &Snapshot{FetchedAt: now, State: StateUnavailable}
	}
	c.store(snap)
	return snap
}

// Run polls until the context is canceled. It returns early only on
// authentication failure, which operators must see immediately.
func (c *Collector) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := c.Cycle(ctx); err != nil {
			if errors.Is(err, zendesk.ErrAuthentication) {
				return err
			}
			if ctx.Err() != nil {
				return nil
			}
			c.log.Warn("cycle failed, serving degraded snapshot", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func anomalyWarning(ticketID int64, policy string) string {
	if policy == "" {
		policy = "unknown policy"
	}
	return fmt.Sprintf("ticket %d: non-positive SLA target (%s), marked breached", ticketID, policy)
}
