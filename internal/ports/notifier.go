package ports

import (
	"context"

	"github.com/alejandrodnm/valuebot/internal/domain"
)

// Notifier presenta el ranking de una pasada al usuario.
type Notifier interface {
	// Notify recibe el ranking ya ordenado y truncado.
	Notify(ctx context.Context, ranking domain.Ranking) error
}
