package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/valuebot/internal/domain"
	"github.com/alejandrodnm/valuebot/internal/domain/model"
	"github.com/alejandrodnm/valuebot/internal/ports"
	"github.com/google/uuid"
)

// Estimator es lo que el engine necesita del modelo de probabilidad.
type Estimator interface {
	Estimate(rule domain.Rule, outcome string, line float64, in model.Inputs) (domain.ProbabilityEstimate, bool)
}

// Engine es el orquestador de cada pasada: collect → evaluate → filter → dedup → rank.
// No guarda estado entre pasadas.
type Engine struct {
	cfg      Config
	fixtures ports.FixtureProvider
	prices   ports.PriceProvider
	signals  ports.SignalProvider
	model    Estimator
	notifier ports.Notifier
	storage  ports.Storage // opcional
}

// New crea un Engine con todas las dependencias inyectadas.
// storage puede ser nil (dry-run).
func New(
	cfg Config,
	fixtures ports.FixtureProvider,
	prices ports.PriceProvider,
	signals ports.SignalProvider,
	estimator Estimator,
	notifier ports.Notifier,
	storage ports.Storage,
) *Engine {
	return &Engine{
		cfg:      cfg,
		fixtures: fixtures,
		prices:   prices,
		signals:  signals,
		model:    estimator,
		notifier: notifier,
		storage:  storage,
	}
}

// Analyze ejecuta una pasada completa y devuelve el ranking.
//
// Solo devuelve error si la configuración es inválida (ErrInvalidConfig), antes de
// cualquier fetch. Los fallos de proveedores se cuentan en Diagnostics. Si el contexto
// se cancela o vence PassTimeout, las ligas ya evaluadas se rankean igualmente y
// Diagnostics.Partial queda a true.
func (e *Engine) Analyze(ctx context.Context) (domain.Ranking, error) {
	if err := e.cfg.Validate(); err != nil {
		return domain.Ranking{}, err
	}

	ranking := domain.Ranking{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	passCtx := ctx
	if e.cfg.PassTimeout > 0 {
		var cancel context.CancelFunc
		passCtx, cancel = context.WithTimeout(ctx, e.cfg.PassTimeout)
		defer cancel()
	}

	candidates, diag := e.collect(passCtx)

	survivors, filtered := filterCandidates(candidates, e.cfg)
	diag.Add(filtered)

	unique, dups := dedup(survivors)
	diag.Duplicates = dups

	ranked, truncated := rankAndTruncate(unique, e.cfg.MaxResults)
	diag.Truncated = truncated

	if passCtx.Err() != nil {
		diag.Partial = true
	}

	ranking.Candidates = ranked
	ranking.Diagnostics = diag
	ranking.FinishedAt = time.Now().UTC()
	return ranking, nil
}

// Run ejecuta pasadas periódicas hasta que el contexto se cancele.
// Con cfg.Once solo ejecuta una pasada. Una configuración inválida corta el loop.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting",
		"interval", e.cfg.Interval,
		"once", e.cfg.Once,
		"leagues", len(e.cfg.Leagues),
	)

	if err := e.runPass(ctx); err != nil {
		return err
	}
	if e.cfg.Once {
		return nil
	}

	interval := e.cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("engine stopped")
			return nil
		case <-ticker.C:
			if err := e.runPass(ctx); err != nil {
				return err
			}
		}
	}
}

// runPass ejecuta una pasada y notifica/persiste el resultado.
// Los errores del notifier y del storage no cortan el loop.
func (e *Engine) runPass(ctx context.Context) error {
	ranking, err := e.Analyze(ctx)
	if err != nil {
		if errors.Is(err, ErrInvalidConfig) {
			return err
		}
		return fmt.Errorf("engine.runPass: %w", err)
	}

	if e.notifier != nil {
		if err := e.notifier.Notify(ctx, ranking); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}

	if e.storage != nil {
		if err := e.storage.SaveRanking(ctx, ranking); err != nil {
			slog.Warn("storage error", "err", err)
		}
	}

	d := ranking.Diagnostics
	slog.Info("pass complete",
		"run_id", ranking.RunID,
		"candidates", len(ranking.Candidates),
		"best_edge", fmt.Sprintf("%.4f", ranking.BestEdge()),
		"events", d.Events,
		"leagues_skipped", d.LeaguesSkipped,
		"events_skipped", d.EventsSkipped,
		"quotes_skipped", d.QuotesSkipped,
		"partial", d.Partial,
		"duration", ranking.FinishedAt.Sub(ranking.StartedAt).Round(time.Millisecond),
	)
	return nil
}
