package engine

// collect.go: worker pool por liga y fan-out acotado por evento.

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/alejandrodnm/valuebot/internal/domain"
	"github.com/alejandrodnm/valuebot/internal/domain/model"
	"golang.org/x/sync/errgroup"
)

const defaultEventWorkers = 4

// leagueResult es lo que produce un worker para una liga. Cada worker escribe solo
// su propio resultado; el orden final no depende de qué liga termina antes.
type leagueResult struct {
	index      int
	candidates []domain.Candidate
	diag       domain.Diagnostics
}

// collect recorre las ligas en paralelo y concatena los candidatos en el orden
// de configuración (liga, evento, catálogo).
func (e *Engine) collect(ctx context.Context) ([]domain.Candidate, domain.Diagnostics) {
	workers := e.cfg.LeagueWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	leagues := e.cfg.Leagues
	workCh := make(chan int, len(leagues))
	resultCh := make(chan leagueResult, len(leagues))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range workCh {
				resultCh <- e.collectLeague(ctx, idx, leagues[idx])
			}
		}()
	}

	for i := range leagues {
		workCh <- i
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]leagueResult, len(leagues))
	for r := range resultCh {
		results[r.index] = r
	}

	var (
		all  []domain.Candidate
		diag domain.Diagnostics
	)
	for _, r := range results {
		all = append(all, r.candidates...)
		diag.Add(r.diag)
	}

	slog.Debug("collect complete",
		"leagues", len(leagues),
		"candidates", len(all),
		"workers", workers,
	)
	return all, diag
}

// collectLeague obtiene los eventos de una liga y evalúa cada uno.
// Una liga sin eventos o con error del proveedor se salta sin abortar la pasada.
func (e *Engine) collectLeague(ctx context.Context, idx int, league domain.League) leagueResult {
	res := leagueResult{index: idx, diag: domain.Diagnostics{Leagues: 1}}

	if ctx.Err() != nil {
		res.diag.LeaguesSkipped = 1
		res.diag.Partial = true
		return res
	}

	events, err := e.fixtures.ListEvents(ctx, league)
	if err != nil {
		slog.Warn("league skipped: fixtures failed", "league", league.ID, "err", err)
		res.diag.LeaguesSkipped = 1
		return res
	}
	if len(events) == 0 {
		slog.Info("league skipped: no events", "league", league.ID)
		res.diag.LeaguesSkipped = 1
		return res
	}

	limit := e.cfg.EventWorkers
	if limit <= 0 {
		limit = defaultEventWorkers
	}

	// Cada goroutine escribe solo su slot: sin locks.
	perEvent := make([][]domain.Candidate, len(events))
	perDiag := make([]domain.Diagnostics, len(events))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, ev := range events {
		g.Go(func() error {
			perEvent[i], perDiag[i] = e.collectEvent(ctx, league, ev)
			return nil
		})
	}
	_ = g.Wait()

	quoted := 0
	for i := range events {
		res.candidates = append(res.candidates, perEvent[i]...)
		res.diag.Add(perDiag[i])
		if perDiag[i].EventsSkipped == 0 {
			quoted++
		}
	}
	if quoted == 0 {
		// Ningún evento con cuotas equivale a un proveedor de precios vacío.
		slog.Info("league skipped: no quotes", "league", league.ID)
		res.diag.LeaguesSkipped = 1
	}
	return res
}

// collectEvent obtiene señales y cuotas de un evento y lo evalúa.
func (e *Engine) collectEvent(ctx context.Context, league domain.League, ev domain.Event) ([]domain.Candidate, domain.Diagnostics) {
	diag := domain.Diagnostics{Events: 1}
	if ev.League.ID == "" {
		ev.League = league
	}

	if ctx.Err() != nil {
		diag.EventsSkipped = 1
		return nil, diag
	}

	home, err := e.signals.GetSignal(ctx, ev.HomeTeam, league.Name)
	if err != nil {
		slog.Warn("event skipped: signal failed", "event", ev.ID, "team", ev.HomeTeam, "err", err)
		diag.EventsSkipped = 1
		return nil, diag
	}
	away, err := e.signals.GetSignal(ctx, ev.AwayTeam, league.Name)
	if err != nil {
		slog.Warn("event skipped: signal failed", "event", ev.ID, "team", ev.AwayTeam, "err", err)
		diag.EventsSkipped = 1
		return nil, diag
	}

	quotes, err := e.prices.ListQuotes(ctx, ev)
	if err != nil {
		slog.Warn("event skipped: quotes failed", "event", ev.ID, "err", err)
		diag.EventsSkipped = 1
		return nil, diag
	}
	if len(quotes) == 0 {
		slog.Debug("event skipped: no quotes", "event", ev.ID)
		diag.EventsSkipped = 1
		return nil, diag
	}

	cands, evalDiag := evaluateEvent(ev, quotes, model.Inputs{Home: home, Away: away}, e.model, e.cfg)
	diag.Add(evalDiag)
	return cands, diag
}
