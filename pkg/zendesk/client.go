package zendesk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds the connection settings for one Zendesk instance.
type Config struct {
	Subdomain string
	Email     string
	APIToken  string
	// BaseURL overrides the https://<subdomain>.zendesk.com/api/v2 default.
	// Used by tests.
	BaseURL string
	Timeout time.Duration
	// RequestsPerMinute paces outgoing calls to stay inside the API rate
	// budget. Zero means the default of 200.
	RequestsPerMinute int
}

// Client issues authenticated read requests against the Zendesk REST API.
type Client struct {
	http      *http.Client
	baseURL   string
	subdomain string
	email     string
	token     string
	limiter   *rate.Limiter
	log       *zap.Logger
}

// NewClient builds a Client from cfg. The logger may not be nil.
func NewClient(cfg Config, log *zap.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.zendesk.com/api/v2", cfg.Subdomain)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 200
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		baseURL:   baseURL,
		subdomain: cfg.Subdomain,
		email:     cfg.Email,
		token:     cfg.APIToken,
		limiter:   rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm/10+1),
		log:       log,
	}
}

// AgentTicketURL returns the agent-facing URL for a ticket.
func (c *Client) AgentTicketURL(id int64) string {
	return fmt.Sprintf("https://%s.zendesk.com/agent/tickets/%d", c.subdomain, id)
}

// Subdomain returns the configured Zendesk subdomain.
func (c *Client) Subdomain() string {
	return c.subdomain
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.SetBasicAuth(c.email+"/token", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling zendesk: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, ErrAuthentication
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusTooManyRequests:
		retryAfter := 30 * time.Second
		if s := resp.Header.Get("Retry-After"); s != "" {
			if secs, err := strconv.Atoi(s); err == nil {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return nil, &RateLimitError{RetryAfter: retryAfter}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("zendesk: unexpected status %d: %s", resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return body, nil
}

type searchPage struct {
	Results  []Ticket `json:"results"`
	NextPage string   `json:"next_page"`
}

// search runs a search query and follows next_page until exhausted.
func (c *Client) search(ctx context.Context, query, sortBy string) ([]Ticket, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("sort_by", sortBy)
	params.Set("sort_order", "desc")
	next := c.baseURL + "/search.json?" + params.Encode()

	var tickets []Ticket
	for next != "" {
		body, err := c.get(ctx, next)
		if err != nil {
			return nil, err
		}
		var page searchPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decoding search page: %w", err)
		}
		tickets = append(tickets, page.Results...)
		next = page.NextPage
	}
	return tickets, nil
}

// SearchCreatedSince returns tickets created within the given window,
// newest first.
func (c *Client) SearchCreatedSince(ctx context.Context, window time.Duration) ([]Ticket, error) {
	cutoff := time.Now().UTC().Add(-window).Format("2006-01-02T15:04:05Z")
	query := fmt.Sprintf("type:ticket created>=%s", cutoff)
	tickets, err := c.search(ctx, query, "created_at")
	if err != nil {
		return nil, fmt.Errorf("searching recent tickets: %w", err)
	}
	return tickets, nil
}

// SearchCreatedBetween returns tickets created between the two dates
// inclusive, newest first. Used by date-range reports.
func (c *Client) SearchCreatedBetween(ctx context.Context, from, to time.Time) ([]Ticket, error) {
	query := fmt.Sprintf("type:ticket created>=%s created<=%s",
		from.Format("2006-01-02"), to.Format("2006-01-02"))
	tickets, err := c.search(ctx, query, "created_at")
	if err != nil {
		return nil, fmt.Errorf("searching tickets %s to %s: %w",
			from.Format("2006-01-02"), to.Format("2006-01-02"), err)
	}
	return tickets, nil
}

// SearchAssignedOpen returns the unresolved tickets assigned to one agent,
// highest priority first.
func (c *Client) SearchAssignedOpen(ctx context.Context, agentID int64) ([]Ticket, error) {
	query := fmt.Sprintf("type:ticket assignee:%d status<solved", agentID)
	tickets, err := c.search(ctx, query, "priority")
	if err != nil {
		return nil, fmt.Errorf("searching tickets for agent %d: %w", agentID, err)
	}
	return tickets, nil
}

// Ticket fetches one ticket by ID.
func (c *Client) Ticket(ctx context.Context, id int64) (*Ticket, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/tickets/%d.json", c.baseURL, id))
	if err != nil {
		return nil, fmt.Errorf("fetching ticket %d: %w", id, err)
	}
	var wrapper struct {
		Ticket Ticket `json:"ticket"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("decoding ticket %d: %w", id, err)
	}
	return &wrapper.Ticket, nil
}

// Comments fetches the comment thread for a ticket.
func (c *Client) Comments(ctx context.Context, id int64) ([]Comment, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/tickets/%d/comments.json", c.baseURL, id))
	if err != nil {
		return nil, fmt.Errorf("fetching comments for ticket %d: %w", id, err)
	}
	var wrapper struct {
		Comments []Comment `json:"comments"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("decoding comments for ticket %d: %w", id, err)
	}
	return wrapper.Comments, nil
}

// rawMetricEvent is the wire form of a metric event. The target lives under
// sla.target_in_seconds on newer payloads and sla.target (minutes) on older
// ones.
type rawMetricEvent struct {
	Type EventType `json:"type"`
	Time time.Time `json:"time"`
	SLA  *struct {
		TargetInSeconds int64  `json:"target_in_seconds"`
		Target          int64  `json:"target"`
		BusinessHours   bool   `json:"business_hours"`
		Policy          Policy `json:"policy"`
	} `json:"sla"`
}

func (r rawMetricEvent) toEvent(metric Metric) MetricEvent {
	ev := MetricEvent{Metric: metric, Type: r.Type, Time: r.Time}
	if r.SLA != nil {
		ev.TargetSeconds = r.SLA.TargetInSeconds
		if ev.TargetSeconds == 0 {
			ev.TargetSeconds = r.SLA.Target * 60
		}
		ev.BusinessHours = r.SLA.BusinessHours
		ev.Policy = r.SLA.Policy
	}
	return ev
}

// MetricEvents fetches the SLA metric events for a ticket and flattens the
// metric-keyed payload into one list. A transport failure is retried once;
// rate limiting and authentication failures are returned as-is.
func (c *Client) MetricEvents(ctx context.Context, id int64) ([]MetricEvent, error) {
	u := fmt.Sprintf("%s/tickets/%d/metric_events.json", c.baseURL, id)

	body, err := c.get(ctx, u)
	if err != nil && retryable(err) {
		c.log.Warn("metric events fetch failed, retrying once",
			zap.Int64("ticket_id", id), zap.Error(err))
		body, err = c.get(ctx, u)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching metric events for ticket %d: %w", id, err)
	}

	var keyed map[string][]rawMetricEvent
	if err := json.Unmarshal(body, &keyed); err != nil {
		return nil, fmt.Errorf("decoding metric events for ticket %d: %w", id, err)
	}

	var events []MetricEvent
	for _, metric := range []Metric{MetricResolutionTime, MetricReplyTime} {
		for _, raw := range keyed[string(metric)] {
			events = append(events, raw.toEvent(metric))
		}
	}
	return events, nil
}

// retryable reports whether a single retry is worth attempting. Auth
// failures and rate limits are never retried here.
func retryable(err error) bool {
	if errors.Is(err, ErrAuthentication) || errors.Is(err, ErrNotFound) || IsRateLimited(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
