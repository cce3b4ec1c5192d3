package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/valuebot/internal/adapters/notify"
	"github.com/alejandrodnm/valuebot/internal/adapters/storage"
	"github.com/alejandrodnm/valuebot/internal/application/engine"
	"github.com/alejandrodnm/valuebot/internal/ports"
)

// runAndFavorite ejecuta una pasada, la notifica y persiste, y guarda los n
// mejores candidatos como favoritos.
func runAndFavorite(ctx context.Context, eng *engine.Engine, notifier ports.Notifier, store *storage.SQLiteStorage, n int) error {
	ranking, err := eng.Analyze(ctx)
	if err != nil {
		return fmt.Errorf("runAndFavorite: %w", err)
	}
	if err := notifier.Notify(ctx, ranking); err != nil {
		slog.Warn("notifier error", "err", err)
	}
	if err := store.SaveRanking(ctx, ranking); err != nil {
		slog.Warn("storage error", "err", err)
	}

	saved := 0
	for i, c := range ranking.Candidates {
		if i >= n {
			break
		}
		if err := store.AddFavorite(ctx, c); err != nil {
			return fmt.Errorf("runAndFavorite: %w", err)
		}
		saved++
		slog.Info("favorite saved", "key", c.Key().String(), "edge", fmt.Sprintf("%.4f", c.Edge))
	}
	slog.Info("favorites updated", "saved", saved, "run_id", ranking.RunID)
	return nil
}

// runQuery atiende los comandos de consulta sobre el storage.
func runQuery(ctx context.Context, store *storage.SQLiteStorage, console *notify.Console, list bool, remove string, window time.Duration) error {
	if remove != "" {
		if err := store.RemoveFavorite(ctx, remove); err != nil {
			return err
		}
		slog.Info("favorite removed", "key", remove)
	}

	if list {
		favs, err := store.ListFavorites(ctx)
		if err != nil {
			return err
		}
		console.PrintFavorites(favs)
	}

	if window > 0 {
		to := time.Now().UTC()
		from := to.Add(-window)
		cands, err := store.GetHistory(ctx, from, to)
		if err != nil {
			return err
		}
		console.PrintHistory(cands, from, to)

		passes, err := store.RecentPasses(ctx, 5)
		if err != nil {
			return err
		}
		for _, p := range passes {
			slog.Info("recent pass",
				"run_id", p.RunID,
				"started_at", p.StartedAt.Format(time.RFC3339),
				"candidates", p.Candidates,
				"best_edge", fmt.Sprintf("%.4f", p.BestEdge),
				"events", p.Events,
				"partial", p.Partial,
			)
		}
	}
	return nil
}
