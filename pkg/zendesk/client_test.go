package zendesk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		Subdomain: "example",
		Email:     "agent@example.com",
		APIToken:  "secret",
		BaseURL:   srv.URL,
	}, zap.NewNop())
	return c, srv
}

func TestClientBasicAuthHeader(t *testing.T) {
	var gotUser, gotPass string
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		fmt.Fprint(w, `{"ticket":{"id":1}}`)
	}))

	_, err := c.Ticket(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "agent@example.com/token", gotUser)
	assert.Equal(t, "secret", gotPass)
}

func TestClientAuthenticationError(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.SearchCreatedSince(context.Background(), 24*time.Hour)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestClientNotFound(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.Ticket(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientRateLimited(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "42")
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := c.SearchCreatedSince(context.Background(), time.Hour)
	require.True(t, IsRateLimited(err))

	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 42*time.Second, rl.RetryAfter)
}

func TestSearchFollowsPagination(t *testing.T) {
	var srv *httptest.Server
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/search.json", func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch calls {
		case 1:
			fmt.Fprintf(w, `{"results":[{"id":1},{"id":2}],"next_page":"%s/search.json?page=2"}`, srv.URL)
		default:
			fmt.Fprint(w, `{"results":[{"id":3}],"next_page":null}`)
		}
	})
	c, s := testClient(t, mux)
	srv = s

	tickets, err := c.SearchCreatedSince(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, tickets, 3)
	assert.Equal(t, int64(3), tickets[2].ID)
	assert.Equal(t, 2, calls)
}

func TestSearchCreatedSinceQuery(t *testing.T) {
	var gotQuery string
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		fmt.Fprint(w, `{"results":[]}`)
	}))

	_, err := c.SearchCreatedSince(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Regexp(t, `^type:ticket created>=\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z$`, gotQuery)
}

func TestSearchCreatedBetweenQuery(t *testing.T) {
	var gotQuery string
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		fmt.Fprint(w, `{"results":[]}`)
	}))

	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	_, err := c.SearchCreatedBetween(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, "type:ticket created>=2026-03-02 created<=2026-03-08", gotQuery)
}

func TestSearchAssignedOpenQuery(t *testing.T) {
	var gotQuery, gotSort string
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotSort = r.URL.Query().Get("sort_by")
		fmt.Fprint(w, `{"results":[]}`)
	}))

	_, err := c.SearchAssignedOpen(context.Background(), 21761242009371)
	require.NoError(t, err)
	assert.Equal(t, "type:ticket assignee:21761242009371 status<solved", gotQuery)
	assert.Equal(t, "priority", gotSort)
}

func TestMetricEventsDecode(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"resolution_time": [
				{"type":"apply_sla","time":"2026-03-10T12:00:00Z","sla":{"target_in_seconds":7200,"business_hours":true,"policy":{"id":7,"title":"Standard"}}},
				{"type":"breach","time":"2026-03-10T14:00:01Z"}
			],
			"reply_time": [
				{"type":"apply_sla","time":"2026-03-10T12:00:00Z","sla":{"target":30}}
			]
		}`)
	}))

	events, err := c.MetricEvents(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, MetricResolutionTime, events[0].Metric)
	assert.Equal(t, EventApplySLA, events[0].Type)
	assert.Equal(t, int64(7200), events[0].TargetSeconds)
	assert.True(t, events[0].BusinessHours)
	assert.Equal(t, "Standard", events[0].Policy.Title)

	assert.Equal(t, EventBreach, events[1].Type)

	// Legacy payloads carry the target in minutes under sla.target.
	assert.Equal(t, MetricReplyTime, events[2].Metric)
	assert.Equal(t, int64(1800), events[2].TargetSeconds)
}

func TestMetricEventsRetriesOnce(t *testing.T) {
	calls := 0
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"resolution_time":[]}`)
	}))

	_, err := c.MetricEvents(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestMetricEventsNoRetryOnRateLimit(t *testing.T) {
	calls := 0
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := c.MetricEvents(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	assert.Equal(t, 1, calls)
}

func TestCommentsDecode(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"comments":[{"id":10,"author_id":5,"body":"hello","public":true,"created_at":"2026-03-10T12:00:00Z"}]}`)
	}))

	comments, err := c.Comments(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "hello", comments[0].Body)
	assert.True(t, comments[0].Public)
}

func TestAgentTicketURL(t *testing.T) {
	c := NewClient(Config{Subdomain: "example"}, zap.NewNop())
	assert.Equal(t, "https://example.zendesk.com/agent/tickets/42", c.AgentTicketURL(42))
}

func TestChannelNormalization(t *testing.T) {
	assert.Equal(t, ChannelEmail, Ticket{Via: Via{Channel: "email"}}.Channel())
	assert.Equal(t, ChannelOther, Ticket{Via: Via{Channel: "carrier_pigeon"}}.Channel())
	assert.Equal(t, ChannelOther, Ticket{}.Channel())
}

func TestRetryableClassification(t *testing.T) {
	assert.False(t, retryable(ErrAuthentication))
	assert.False(t, retryable(ErrNotFound))
	assert.False(t, retryable(&RateLimitError{}))
	assert.False(t, retryable(context.Canceled))
	assert.True(t, retryable(errors.New("connection reset")))
}
