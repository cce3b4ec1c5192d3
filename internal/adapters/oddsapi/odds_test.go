package oddsapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alejandrodnm/valuebot/internal/adapters/oddsapi"
	"github.com/alejandrodnm/valuebot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epl = domain.League{ID: "soccer_epl", Name: "Premier League"}

func newTestClient(srv *httptest.Server) *oddsapi.Client {
	return oddsapi.NewClient(oddsapi.Config{
		BaseURL:       srv.URL,
		APIKey:        "test-key",
		Regions:       "eu",
		RatePerSecond: 100,
	})
}

func serveFile(t *testing.T, path, wantPath string) *httptest.Server {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, wantPath, r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("apiKey"))
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}))
}

func TestListEvents_Success(t *testing.T) {
	srv := serveFile(t, "testdata/events.json", "/sports/soccer_epl/events")
	defer srv.Close()

	events, err := newTestClient(srv).ListEvents(context.Background(), epl)

	require.NoError(t, err)
	require.Len(t, events, 2, "events without id are dropped")
	ev := events[0]
	assert.Equal(t, "ev_ars_che", ev.ID)
	assert.Equal(t, "Arsenal", ev.HomeTeam)
	assert.Equal(t, "Chelsea", ev.AwayTeam)
	assert.Equal(t, epl, ev.League)
	assert.Equal(t, time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC), ev.StartTime)
}

func TestListQuotes_Mapping(t *testing.T) {
	srv := serveFile(t, "testdata/event_odds.json", "/sports/soccer_epl/events/ev_ars_che/odds")
	defer srv.Close()

	ev := domain.Event{ID: "ev_ars_che", League: epl, HomeTeam: "Arsenal", AwayTeam: "Chelsea"}
	quotes, err := newTestClient(srv).ListQuotes(context.Background(), ev)
	require.NoError(t, err)

	// 3 h2h + 2 totals + 2 spreads (pinnacle) + 3 h2h (betfair); h2h_lay se ignora.
	require.Len(t, quotes, 10)

	byKey := make(map[string]domain.PriceQuote)
	for _, q := range quotes {
		byKey[q.Source+"/"+string(q.Family)+"/"+q.Outcome] = q
	}

	home := byKey["pinnacle/match_result/home"]
	assert.Equal(t, 2.10, home.Price)
	assert.False(t, home.HasLine)

	assert.Equal(t, 3.45, byKey["betfair_ex_eu/match_result/draw"].Price)

	over := byKey["pinnacle/totals/over"]
	assert.True(t, over.HasLine)
	assert.Equal(t, 2.5, over.Line)

	away := byKey["pinnacle/handicap/away"]
	assert.Equal(t, 1.5, away.Line)
	assert.Equal(t, 1.50, away.Price)
}

func TestListQuotes_QueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "eu", q.Get("regions"))
		assert.Equal(t, "h2h,totals,spreads", q.Get("markets"))
		assert.Equal(t, "decimal", q.Get("oddsFormat"))
		w.Write([]byte(`{"id":"x","bookmakers":[]}`))
	}))
	defer srv.Close()

	quotes, err := newTestClient(srv).ListQuotes(context.Background(), domain.Event{ID: "x", League: epl})
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestListEvents_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"API key is not valid"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).ListEvents(context.Background(), epl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.NotContains(t, err.Error(), "test-key")
	assert.Equal(t, int32(1), calls.Load())
}

func TestListEvents_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).ListEvents(context.Background(), epl)
	assert.Error(t, err)
}

func TestListEvents_RecoversAfterServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	events, err := newTestClient(srv).ListEvents(context.Background(), epl)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, int32(2), calls.Load())
}

func TestListEvents_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(srv).ListEvents(ctx, epl)
	assert.Error(t, err)
}
