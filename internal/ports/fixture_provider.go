package ports

import (
	"context"

	"github.com/alejandrodnm/valuebot/internal/domain"
)

// FixtureProvider lista los próximos eventos de una liga.
type FixtureProvider interface {
	// ListEvents devuelve los eventos programados de la liga.
	// Una lista vacía no es un error: el engine la cuenta como liga saltada.
	ListEvents(ctx context.Context, league domain.League) ([]domain.Event, error)
}
