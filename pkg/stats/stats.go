// Package stats folds enriched tickets into summary counts and tracks
// cycle-to-cycle changes.
package stats

import (
	"github.com/deskwatch/deskwatch/pkg/sla"
	"github.com/deskwatch/deskwatch/pkg/zendesk"
)

// SLACounts are the headline SLA status counts, restricted to tickets
// whose authoritative classification is the resolution-time metric.
// Reply-time-only classifications stay out so the compliance number is not
// diluted by the less critical metric.
type SLACounts struct {
	Breached int `json:"breached"`
	AtRisk   int `json:"at_risk"`
	OnTrack  int `json:"on_track"`
	Met      int `json:"met"`
}

// Total returns the sum of the four buckets. It equals exactly the number
// of tickets carrying a resolution-time classification.
func (c SLACounts) Total() int {
	return c.Breached + c.AtRisk + c.OnTrack + c.Met
}

// Summary is the reduction of one cycle's enriched tickets.
type Summary struct {
	Total       int                       `json:"total"`
	ByPriority  map[zendesk.Priority]int  `json:"by_priority"`
	ByStatus    map[zendesk.Status]int    `json:"by_status"`
	ByChannel   map[zendesk.Channel]int   `json:"by_channel"`
	ByRequester map[int64]int             `json:"by_requester"`
	UrgentCount int                       `json:"urgent_count"`
	OpenCount   int                       `json:"open_count"`
	SolvedCount int                       `json:"solved_count"`
	SLA         SLACounts                 `json:"sla"`
	ReplyOnly   int                       `json:"reply_time_only"`
	NoSLA       int                       `json:"no_sla"`
	// Excluded counts tickets dropped from classification as malformed.
	// Set by the caller that observed the failures; never hidden.
	Excluded int `json:"excluded"`
}

// Aggregate reduces enriched tickets into a Summary.
func Aggregate(items []sla.Enriched) Summary {
	s := Summary{
		Total:       len(items),
		ByPriority:  make(map[zendesk.Priority]int),
		ByStatus:    make(map[zendesk.Status]int),
		ByChannel:   make(map[zendesk.Channel]int),
		ByRequester: make(map[int64]int),
	}

	for _, en := range items {
		t := en.Ticket
		s.ByPriority[t.Priority]++
		s.ByStatus[t.Status]++
		s.ByChannel[t.Channel()]++
		if t.RequesterID != 0 {
			s.ByRequester[t.RequesterID]++
		}
		if t.Priority == zendesk.PriorityUrgent {
			s.UrgentCount++
		}
		if t.Status == zendesk.StatusNew || t.Status == zendesk.StatusOpen {
			s.OpenCount++
		}
		if t.Status == zendesk.StatusSolved {
			s.SolvedCount++
		}

		switch {
		case en.HasResolutionSLA():
			switch en.Bucket {
			case sla.BucketBreached:
				s.SLA.Breached++
			case sla.BucketAtRisk:
				s.SLA.AtRisk++
			case sla.BucketOnTrack:
				s.SLA.OnTrack++
			case sla.BucketMet:
				s.SLA.Met++
			}
		case en.SLA != nil:
			s.ReplyOnly++
		default:
			s.NoSLA++
		}
	}

	return s
}
