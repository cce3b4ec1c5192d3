package signals

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/alejandrodnm/valuebot/internal/domain"
	"github.com/alejandrodnm/valuebot/internal/ports"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "valuebot:signal:"

// Cached envuelve un SignalProvider con una caché en Redis.
// La caché es best-effort: si Redis falla se consulta el provider interno.
type Cached struct {
	inner  ports.SignalProvider
	client *redis.Client
	ttl    time.Duration
}

// NewCached crea la caché sobre un cliente ya configurado.
func NewCached(inner ports.SignalProvider, client *redis.Client, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cached{inner: inner, client: client, ttl: ttl}
}

// GetSignal lee de Redis; en miss consulta el provider interno y guarda el resultado.
func (c *Cached) GetSignal(ctx context.Context, team, competition string) (domain.TeamSignal, error) {
	key := cacheKey(team, competition)

	vals, err := c.client.HGetAll(ctx, key).Result()
	switch {
	case err != nil:
		slog.Debug("signal cache read failed", "key", key, "err", err)
	case len(vals) > 0:
		if sig, ok := decode(vals); ok {
			return sig, nil
		}
	}

	sig, err := c.inner.GetSignal(ctx, team, competition)
	if err != nil {
		return domain.TeamSignal{}, fmt.Errorf("signals.Cached.GetSignal: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key,
		"scoring_rate", strconv.FormatFloat(sig.ScoringRate, 'f', -1, 64),
		"rating", strconv.FormatFloat(sig.StrengthRating, 'f', -1, 64),
	)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Debug("signal cache write failed", "key", key, "err", err)
	}
	return sig, nil
}

func cacheKey(team, competition string) string {
	return keyPrefix + normalize(competition) + ":" + normalize(team)
}

func decode(vals map[string]string) (domain.TeamSignal, bool) {
	rate, err1 := strconv.ParseFloat(vals["scoring_rate"], 64)
	rating, err2 := strconv.ParseFloat(vals["rating"], 64)
	if err1 != nil || err2 != nil {
		return domain.TeamSignal{}, false
	}
	return domain.TeamSignal{ScoringRate: rate, StrengthRating: rating}, true
}
