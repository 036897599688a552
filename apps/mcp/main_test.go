package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deskwatch/deskwatch/pkg/collector"
	"github.com/deskwatch/deskwatch/pkg/config"
	"github.com/deskwatch/deskwatch/pkg/sla"
	"github.com/deskwatch/deskwatch/pkg/zendesk"
)

func testApp(t *testing.T, handler http.Handler) *app {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := zap.NewNop()
	return &app{
		cfg: &config.Config{WindowHours: 24, EnrichLimit: 50},
		client: zendesk.NewClient(zendesk.Config{
			Subdomain: "example",
			Email:     "agent@example.com",
			APIToken:  "secret",
			BaseURL:   srv.URL,
		}, logger),
		engine: sla.NewEngine(),
		log:    logger,
	}
}

func TestSnapshotForLiveData(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[{"id":1,"subject":"VPN is down","status":"open","priority":"urgent","created_at":"2026-03-10T12:00:00Z"}]}`)
	})
	mux.HandleFunc("/tickets/1/metric_events.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"resolution_time":[],"reply_time":[]}`)
	})
	a := testApp(t, mux)

	snap, err := a.snapshotFor(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, collector.StateLive, snap.State)
	require.Len(t, snap.Tickets, 1)
	assert.Equal(t, int64(1), snap.Tickets[0].Ticket.ID)
}

func TestSnapshotForSourceFailure(t *testing.T) {
	a := testApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	snap, err := a.snapshotFor(context.Background(), 24)
	assert.Nil(t, snap)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ticket source unavailable")
}

func TestSnapshotForAuthFailure(t *testing.T) {
	a := testApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	snap, err := a.snapshotFor(context.Background(), 24)
	assert.Nil(t, snap)
	assert.ErrorIs(t, err, zendesk.ErrAuthentication)
}
