// Package snapshot implementa los proveedores de fixtures y cuotas sobre un
// archivo JSON. Sirve para dry-run sin API key y para reproducir pasadas.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/alejandrodnm/valuebot/internal/domain"
)

// File es el formato del snapshot en disco.
type File struct {
	TakenAt time.Time          `json:"taken_at"`
	Leagues map[string][]Event `json:"leagues"` // por league ID
}

// Event es un evento con todas sus cuotas.
type Event struct {
	ID       string    `json:"id"`
	HomeTeam string    `json:"home_team"`
	AwayTeam string    `json:"away_team"`
	Start    time.Time `json:"start"`
	Quotes   []Quote   `json:"quotes"`
}

// Quote es una cuota de una fuente. Line es nil en mercados sin línea.
type Quote struct {
	Source  string   `json:"source"`
	Market  string   `json:"market"`
	Outcome string   `json:"outcome"`
	Price   float64  `json:"price"`
	Line    *float64 `json:"line,omitempty"`
}

// Provider sirve eventos y cuotas desde un snapshot cargado en memoria.
// Implementa ports.FixtureProvider y ports.PriceProvider. Solo lectura tras crearse.
type Provider struct {
	events map[string][]domain.Event      // por league ID
	quotes map[string][]domain.PriceQuote // por event ID
}

// Load lee un snapshot JSON de disco.
func Load(path string) (*Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot.Load: read %q: %w", path, err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("snapshot.Load: parse %q: %w", path, err)
	}
	return New(f), nil
}

// New construye un Provider a partir de un snapshot ya parseado.
func New(f File) *Provider {
	p := &Provider{
		events: make(map[string][]domain.Event, len(f.Leagues)),
		quotes: make(map[string][]domain.PriceQuote),
	}
	for leagueID, events := range f.Leagues {
		for _, e := range events {
			p.events[leagueID] = append(p.events[leagueID], domain.Event{
				ID:        e.ID,
				HomeTeam:  e.HomeTeam,
				AwayTeam:  e.AwayTeam,
				StartTime: e.Start.UTC(),
			})
			for _, q := range e.Quotes {
				pq := domain.PriceQuote{
					Source:  q.Source,
					Family:  domain.MarketFamily(q.Market),
					Outcome: q.Outcome,
					Price:   q.Price,
				}
				if q.Line != nil {
					pq.Line = *q.Line
					pq.HasLine = true
				}
				p.quotes[e.ID] = append(p.quotes[e.ID], pq)
			}
		}
		sort.SliceStable(p.events[leagueID], func(i, j int) bool {
			return p.events[leagueID][i].StartTime.Before(p.events[leagueID][j].StartTime)
		})
	}
	return p
}

// ListEvents devuelve los eventos de la liga ordenados por inicio.
func (p *Provider) ListEvents(ctx context.Context, league domain.League) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src := p.events[league.ID]
	out := make([]domain.Event, len(src))
	for i, ev := range src {
		ev.League = league
		out[i] = ev
	}
	return out, nil
}

// ListQuotes devuelve una copia de las cuotas del evento.
func (p *Provider) ListQuotes(ctx context.Context, ev domain.Event) ([]domain.PriceQuote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]domain.PriceQuote(nil), p.quotes[ev.ID]...), nil
}
