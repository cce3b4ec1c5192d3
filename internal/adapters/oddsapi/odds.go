package oddsapi

import (
	"context"
	"fmt"
	"net/url"

	"github.com/alejandrodnm/valuebot/internal/domain"
)

// ListEvents devuelve los próximos eventos de la liga (sport key de la API).
func (c *Client) ListEvents(ctx context.Context, league domain.League) ([]domain.Event, error) {
	var raw []apiEvent
	u := c.endpoint("/sports/"+url.PathEscape(league.ID)+"/events", nil)
	if err := c.get(ctx, u, &raw); err != nil {
		return nil, fmt.Errorf("oddsapi.ListEvents: %s: %w", league.ID, err)
	}

	events := make([]domain.Event, 0, len(raw))
	for _, r := range raw {
		if r.ID == "" || r.HomeTeam == "" || r.AwayTeam == "" {
			continue
		}
		events = append(events, mapEvent(r, league))
	}
	return events, nil
}

// ListQuotes devuelve las cuotas decimales de todos los bookmakers para el evento.
func (c *Client) ListQuotes(ctx context.Context, ev domain.Event) ([]domain.PriceQuote, error) {
	params := url.Values{}
	params.Set("regions", c.regions)
	params.Set("markets", c.markets)
	params.Set("oddsFormat", "decimal")

	path := fmt.Sprintf("/sports/%s/events/%s/odds", url.PathEscape(ev.League.ID), url.PathEscape(ev.ID))
	var raw apiEventOdds
	if err := c.get(ctx, c.endpoint(path, params), &raw); err != nil {
		return nil, fmt.Errorf("oddsapi.ListQuotes: %s: %w", ev.ID, err)
	}
	return mapQuotes(raw, ev), nil
}
