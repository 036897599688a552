package stats

import (
	"sort"

	"github.com/deskwatch/deskwatch/pkg/zendesk"
)

// StatusChange records a ticket moving between statuses across cycles.
type StatusChange struct {
	Ticket zendesk.Ticket `json:"ticket"`
	From   zendesk.Status `json:"from"`
	To     zendesk.Status `json:"to"`
}

// PriorityChange records a ticket's priority changing across cycles.
type PriorityChange struct {
	Ticket zendesk.Ticket   `json:"ticket"`
	From   zendesk.Priority `json:"from"`
	To     zendesk.Priority `json:"to"`
}

// Changes is what moved between two consecutive observations.
type Changes struct {
	NewTickets      []zendesk.Ticket `json:"new_tickets"`
	StatusChanges   []StatusChange   `json:"status_changes"`
	PriorityChanges []PriorityChange `json:"priority_changes"`
}

// Any reports whether anything changed.
func (c Changes) Any() bool {
	return len(c.NewTickets)+len(c.StatusChanges)+len(c.PriorityChanges) > 0
}

// Tracker detects new tickets and status/priority transitions between
// polling cycles. Not safe for concurrent use; each loop owns one.
type Tracker struct {
	prev map[int64]zendesk.Ticket
}

// NewTracker returns an empty Tracker. The first observation reports every
// ticket as new.
func NewTracker() *Tracker {
	return &Tracker{prev: make(map[int64]zendesk.Ticket)}
}

// Observe diffs the current tickets against the previous cycle and
// remembers them for the next call.
func (tr *Tracker) Observe(tickets []zendesk.Ticket) Changes {
	var ch Changes
	current := make(map[int64]zendesk.Ticket, len(tickets))

	for _, t := range tickets {
		current[t.ID] = t
		prev, seen := tr.prev[t.ID]
		if !seen {
			ch.NewTickets = append(ch.NewTickets, t)
			continue
		}
		if prev.Status != t.Status {
			ch.StatusChanges = append(ch.StatusChanges, StatusChange{Ticket: t, From: prev.Status, To: t.Status})
		}
		if prev.Priority != t.Priority {
			ch.PriorityChanges = append(ch.PriorityChanges, PriorityChange{Ticket: t, From: prev.Priority, To: t.Priority})
		}
	}

	tr.prev = current
	return ch
}

// Tickets returns the last observed tickets, newest first. Used for the
// final state dump when a monitor loop shuts down.
func (tr *Tracker) Tickets() []zendesk.Ticket {
	out := make([]zendesk.Ticket, 0, len(tr.prev))
	for _, t := range tr.prev {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
