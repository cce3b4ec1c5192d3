package storage

// sqlite.go: histórico de pasadas y favoritos.
//
//   - `passes`: una fila por pasada con los contadores de Diagnostics.
//   - `candidates`: UNA fila por DedupKey (UPSERT). first_seen se conserva y
//     peak_edge guarda el mejor edge visto.
//   - `favorites`: candidatos guardados por el usuario, nunca se podan.
//   - Cache en memoria: una clave cuyo edge no cambió > 5% y que se escribió hace
//     menos de refreshEvery no se reescribe.
//   - Los instantes se guardan como milisegundos Unix (INTEGER).

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/alejandrodnm/valuebot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS passes (
    run_id          TEXT PRIMARY KEY,
    started_at      INTEGER NOT NULL,
    finished_at     INTEGER NOT NULL,
    candidates      INTEGER NOT NULL DEFAULT 0,
    best_edge       REAL    NOT NULL DEFAULT 0,
    events          INTEGER NOT NULL DEFAULT 0,
    leagues_skipped INTEGER NOT NULL DEFAULT 0,
    events_skipped  INTEGER NOT NULL DEFAULT 0,
    quotes_skipped  INTEGER NOT NULL DEFAULT 0,
    filtered_edge   INTEGER NOT NULL DEFAULT 0,
    partial         INTEGER NOT NULL DEFAULT 0,
    catalog_version INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS candidates (
    dedup_key    TEXT PRIMARY KEY,
    run_id       TEXT    NOT NULL,
    event_id     TEXT    NOT NULL,
    league_id    TEXT    NOT NULL,
    league_name  TEXT    NOT NULL,
    home_team    TEXT    NOT NULL,
    away_team    TEXT    NOT NULL,
    start_time   INTEGER NOT NULL,
    family       TEXT    NOT NULL,
    outcome      TEXT    NOT NULL,
    line         REAL    NOT NULL DEFAULT 0,
    has_line     INTEGER NOT NULL DEFAULT 0,
    label        TEXT    NOT NULL,
    price        REAL    NOT NULL,
    source       TEXT    NOT NULL,
    model_p      REAL    NOT NULL,
    implied_p    REAL    NOT NULL,
    consensus_p  REAL    NOT NULL DEFAULT 0,
    edge         REAL    NOT NULL,
    return_pct   REAL    NOT NULL,
    sources      INTEGER NOT NULL,
    best         REAL    NOT NULL DEFAULT 0,
    worst        REAL    NOT NULL DEFAULT 0,
    dispersion   REAL    NOT NULL DEFAULT 0,
    first_seen   INTEGER NOT NULL,
    last_seen    INTEGER NOT NULL,
    peak_edge    REAL    NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS favorites (
    dedup_key TEXT PRIMARY KEY,
    saved_at  INTEGER NOT NULL,
    payload   TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_passes_at     ON passes(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_cand_last     ON candidates(last_seen DESC);
CREATE INDEX IF NOT EXISTS idx_cand_edge     ON candidates(edge DESC);
CREATE INDEX IF NOT EXISTS idx_fav_saved     ON favorites(saved_at DESC);
`

const (
	defaultRetention = 30 * 24 * time.Hour
	edgeChangePct    = 0.05
	refreshEvery     = 30 * time.Minute
)

// cachedState es lo último que se escribió para una clave.
type cachedState struct {
	edge      float64
	writtenAt time.Time
}

// SQLiteStorage implementa ports.Storage y ports.FavoriteStore usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db        *sql.DB
	retention time.Duration
	now       func() time.Time
	cache     map[string]cachedState // dedup key → estado guardado
	mu        sync.Mutex
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema, poda lo más antiguo que retention y precarga la cache.
// retention <= 0 usa 30 días.
func NewSQLiteStorage(path string, retention time.Duration) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	if retention <= 0 {
		retention = defaultRetention
	}
	s := &SQLiteStorage{
		db:        db,
		retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
		cache:     make(map[string]cachedState),
	}
	s.pruneOld(context.Background())
	s.warmCache(context.Background())
	return s, nil
}

// SaveRanking persiste el resumen de la pasada y hace upsert de los candidatos
// que cambiaron respecto a la última escritura.
func (s *SQLiteStorage) SaveRanking(ctx context.Context, r domain.Ranking) error {
	d := r.Diagnostics
	if _, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO passes
			(run_id, started_at, finished_at, candidates, best_edge, events,
			 leagues_skipped, events_skipped, quotes_skipped, filtered_edge, partial, catalog_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, millis(r.StartedAt), millis(r.FinishedAt), len(r.Candidates), r.BestEdge(),
		d.Events, d.LeaguesSkipped, d.EventsSkipped, d.QuotesSkipped, d.FilteredEdge,
		boolInt(d.Partial), domain.CatalogVersion,
	); err != nil {
		return fmt.Errorf("storage.SaveRanking: insert pass: %w", err)
	}

	now := s.now()
	toWrite := s.filterChanged(r.Candidates, now)
	if len(toWrite) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRanking: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candidates
			(dedup_key, run_id, event_id, league_id, league_name, home_team, away_team,
			 start_time, family, outcome, line, has_line, label, price, source,
			 model_p, implied_p, consensus_p, edge, return_pct, sources, best, worst,
			 dispersion, first_seen, last_seen, peak_edge)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dedup_key) DO UPDATE SET
			run_id      = excluded.run_id,
			start_time  = excluded.start_time,
			source      = excluded.source,
			model_p     = excluded.model_p,
			implied_p   = excluded.implied_p,
			consensus_p = excluded.consensus_p,
			edge        = excluded.edge,
			return_pct  = excluded.return_pct,
			sources     = excluded.sources,
			best        = excluded.best,
			worst       = excluded.worst,
			dispersion  = excluded.dispersion,
			last_seen   = excluded.last_seen,
			peak_edge   = MAX(peak_edge, excluded.edge)
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveRanking: prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range toWrite {
		key := c.Key().String()
		if _, err := stmt.ExecContext(ctx,
			key,
			r.RunID,
			c.Event.ID,
			c.Event.League.ID,
			c.Event.League.Name,
			c.Event.HomeTeam,
			c.Event.AwayTeam,
			millis(c.Event.StartTime),
			string(c.Family),
			c.Outcome,
			c.Line,
			boolInt(c.HasLine),
			c.MarketLabel,
			c.ReferencePrice,
			c.ReferenceSource,
			c.ModelProbability,
			c.ImpliedProbability,
			c.ConsensusProbability,
			c.Edge,
			c.ReturnPct,
			c.Aggregation.Sources,
			c.Aggregation.Best,
			c.Aggregation.Worst,
			c.Aggregation.Dispersion,
			millis(now), // first_seen: ignorado en ON CONFLICT
			millis(now),
			c.Edge,
		); err != nil {
			return fmt.Errorf("storage.SaveRanking: upsert %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveRanking: commit: %w", err)
	}
	slog.Debug("ranking saved", "run_id", r.RunID, "written", len(toWrite), "candidates", len(r.Candidates))
	return nil
}

// GetHistory devuelve los candidatos cuyo last_seen está en el rango dado,
// ordenados por edge desc.
func (s *SQLiteStorage) GetHistory(ctx context.Context, from, to time.Time) ([]domain.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, league_id, league_name, home_team, away_team, start_time,
		       family, outcome, line, has_line, label, price, source,
		       model_p, implied_p, consensus_p, edge, return_pct,
		       sources, best, worst, dispersion
		FROM candidates
		WHERE last_seen BETWEEN ? AND ?
		ORDER BY edge DESC, dedup_key ASC
	`, millis(from), millis(to))
	if err != nil {
		return nil, fmt.Errorf("storage.GetHistory: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Candidate
	for rows.Next() {
		var (
			c       domain.Candidate
			start   int64
			family  string
			hasLine int
		)
		if err := rows.Scan(
			&c.Event.ID,
			&c.Event.League.ID,
			&c.Event.League.Name,
			&c.Event.HomeTeam,
			&c.Event.AwayTeam,
			&start,
			&family,
			&c.Outcome,
			&c.Line,
			&hasLine,
			&c.MarketLabel,
			&c.ReferencePrice,
			&c.ReferenceSource,
			&c.ModelProbability,
			&c.ImpliedProbability,
			&c.ConsensusProbability,
			&c.Edge,
			&c.ReturnPct,
			&c.Aggregation.Sources,
			&c.Aggregation.Best,
			&c.Aggregation.Worst,
			&c.Aggregation.Dispersion,
		); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: scan row: %w", err)
		}
		c.Event.StartTime = fromMillis(start)
		c.Family = domain.MarketFamily(family)
		c.HasLine = hasLine == 1
		c.Estimate.Probability = c.ModelProbability
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.GetHistory: rows: %w", err)
	}
	return out, nil
}

// AddFavorite guarda un candidato indexado por su DedupKey. Guardar dos veces
// la misma clave reemplaza el anterior.
func (s *SQLiteStorage) AddFavorite(ctx context.Context, c domain.Candidate) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("storage.AddFavorite: encode: %w", err)
	}
	key := c.Key().String()
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO favorites (dedup_key, saved_at, payload) VALUES (?, ?, ?)`,
		key, millis(s.now()), string(payload),
	); err != nil {
		return fmt.Errorf("storage.AddFavorite: insert %s: %w", key, err)
	}
	return nil
}

// RemoveFavorite borra un favorito. Una clave inexistente no es error.
func (s *SQLiteStorage) RemoveFavorite(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM favorites WHERE dedup_key = ?`, key); err != nil {
		return fmt.Errorf("storage.RemoveFavorite: delete %s: %w", key, err)
	}
	return nil
}

// ListFavorites devuelve los favoritos, los más recientes primero.
func (s *SQLiteStorage) ListFavorites(ctx context.Context) ([]domain.Favorite, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT dedup_key, saved_at, payload FROM favorites ORDER BY saved_at DESC, dedup_key ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage.ListFavorites: query: %w", err)
	}
	defer rows.Close()

	var favs []domain.Favorite
	for rows.Next() {
		var (
			f       domain.Favorite
			savedAt int64
			payload string
		)
		if err := rows.Scan(&f.Key, &savedAt, &payload); err != nil {
			return nil, fmt.Errorf("storage.ListFavorites: scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &f.Candidate); err != nil {
			return nil, fmt.Errorf("storage.ListFavorites: decode %s: %w", f.Key, err)
		}
		f.SavedAt = fromMillis(savedAt)
		favs = append(favs, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.ListFavorites: rows: %w", err)
	}
	return favs, nil
}

// PassSummary es el resumen persistido de una pasada.
type PassSummary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Candidates int
	BestEdge   float64
	Events     int
	Partial    bool
}

// RecentPasses devuelve las últimas n pasadas, la más reciente primero.
func (s *SQLiteStorage) RecentPasses(ctx context.Context, n int) ([]PassSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, started_at, finished_at, candidates, best_edge, events, partial
		FROM passes
		ORDER BY started_at DESC, run_id ASC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("storage.RecentPasses: query: %w", err)
	}
	defer rows.Close()

	var out []PassSummary
	for rows.Next() {
		var (
			p                 PassSummary
			started, finished int64
			partial           int
		)
		if err := rows.Scan(&p.RunID, &started, &finished, &p.Candidates, &p.BestEdge, &p.Events, &partial); err != nil {
			return nil, fmt.Errorf("storage.RecentPasses: scan row: %w", err)
		}
		p.StartedAt = fromMillis(started)
		p.FinishedAt = fromMillis(finished)
		p.Partial = partial == 1
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.RecentPasses: rows: %w", err)
	}
	return out, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// filterChanged devuelve los candidatos cuyo edge cambió o cuya última escritura
// es antigua, y actualiza la caché.
func (s *SQLiteStorage) filterChanged(cands []domain.Candidate, now time.Time) []domain.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()

	var toWrite []domain.Candidate
	for _, c := range cands {
		key := c.Key().String()
		if prev, ok := s.cache[key]; ok {
			unchanged := relChange(prev.edge, c.Edge) < edgeChangePct &&
				now.Sub(prev.writtenAt) < refreshEvery
			if unchanged {
				continue
			}
		}
		toWrite = append(toWrite, c)
		s.cache[key] = cachedState{edge: c.Edge, writtenAt: now}
	}
	return toWrite
}

// pruneOld elimina pasadas y candidatos más antiguos que la retención.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := millis(s.now().Add(-s.retention))
	if _, err := s.db.ExecContext(ctx, `DELETE FROM passes WHERE started_at < ?`, cutoff); err != nil {
		slog.Warn("prune passes failed", "err", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM candidates WHERE last_seen < ?`, cutoff); err != nil {
		slog.Warn("prune candidates failed", "err", err)
	}
}

// warmCache precarga la caché desde la DB al arrancar, evitando escrituras
// redundantes en la primera pasada tras un reinicio.
func (s *SQLiteStorage) warmCache(ctx context.Context) {
	rows, err := s.db.QueryContext(ctx, `SELECT dedup_key, edge, last_seen FROM candidates`)
	if err != nil {
		return
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for rows.Next() {
		var (
			key      string
			edge     float64
			lastSeen int64
		)
		if rows.Scan(&key, &edge, &lastSeen) == nil {
			s.cache[key] = cachedState{edge: edge, writtenAt: fromMillis(lastSeen)}
		}
	}
}

// relChange devuelve el cambio relativo entre dos valores (0.0 – ∞).
func relChange(old, new float64) float64 {
	if old == 0 {
		return 1.0
	}
	return math.Abs(new-old) / math.Abs(old)
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
