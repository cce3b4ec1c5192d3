package ports

import (
	"context"

	"github.com/alejandrodnm/valuebot/internal/domain"
)

// PriceProvider obtiene las cuotas de todas las fuentes para un evento.
type PriceProvider interface {
	// ListQuotes devuelve una cuota por (fuente, mercado, outcome, línea).
	// Puede incluir cuotas malformadas; el engine las descarta y las cuenta.
	ListQuotes(ctx context.Context, event domain.Event) ([]domain.PriceQuote, error)
}
