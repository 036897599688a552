package zendesk

import "time"

// Priority is the Zendesk ticket priority.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
	PriorityNone   Priority = ""
)

// Status is the Zendesk ticket lifecycle status.
type Status string

const (
	StatusNew     Status = "new"
	StatusOpen    Status = "open"
	StatusPending Status = "pending"
	StatusHold    Status = "hold"
	StatusSolved  Status = "solved"
	StatusClosed  Status = "closed"
)

// Resolved reports whether the ticket has reached a terminal status.
func (s Status) Resolved() bool {
	return s == StatusSolved || s == StatusClosed
}

// Channel is the submission channel from the ticket's via object.
type Channel string

const (
	ChannelAPI    Channel = "api"
	ChannelEmail  Channel = "email"
	ChannelWeb    Channel = "web"
	ChannelMobile Channel = "mobile"
	ChannelChat   Channel = "chat"
	ChannelOther  Channel = "other"
)

// Ticket is one ticket record as returned by the search API. A fetch
// produces a fresh snapshot; tickets are never mutated in place.
type Ticket struct {
	ID          int64     `json:"id"`
	Subject     string    `json:"subject"`
	Description string    `json:"description,omitempty"`
	Priority    Priority  `json:"priority"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	RequesterID int64     `json:"requester_id"`
	AssigneeID  int64     `json:"assignee_id,omitempty"`
	Via         Via       `json:"via"`
}

// Via carries the submission channel.
type Via struct {
	Channel Channel `json:"channel"`
}

// Channel returns the submission channel, mapping unknown values to "other".
func (t Ticket) Channel() Channel {
	switch t.Via.Channel {
	case ChannelAPI, ChannelEmail, ChannelWeb, ChannelMobile, ChannelChat:
		return t.Via.Channel
	default:
		return ChannelOther
	}
}

// Metric identifies which SLA metric a metric event measures.
type Metric string

const (
	MetricResolutionTime Metric = "resolution_time"
	MetricReplyTime      Metric = "reply_time"
)

// EventType tags what happened to an SLA metric.
type EventType string

const (
	EventApplySLA EventType = "apply_sla"
	EventBreach   EventType = "breach"
	EventFulfill  EventType = "fulfill"
)

// Policy is the SLA policy attached to an apply_sla event.
type Policy struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// MetricEvent is one SLA metric event for a ticket. A ticket may carry
// zero, one, or many of these across both metrics.
type MetricEvent struct {
	Metric        Metric    `json:"metric"`
	Type          EventType `json:"type"`
	Time          time.Time `json:"time"`
	TargetSeconds int64     `json:"target_seconds"`
	BusinessHours bool      `json:"business_hours"`
	Policy        Policy    `json:"policy"`
}

// Comment is one comment on a ticket.
type Comment struct {
	ID        int64     `json:"id"`
	AuthorID  int64     `json:"author_id"`
	Body      string    `json:"body"`
	Public    bool      `json:"public"`
	CreatedAt time.Time `json:"created_at"`
}
