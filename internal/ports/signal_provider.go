package ports

import (
	"context"

	"github.com/alejandrodnm/valuebot/internal/domain"
)

// SignalProvider devuelve las señales de fuerza de un equipo.
type SignalProvider interface {
	// GetSignal devuelve la señal del equipo en la competición.
	// Un equipo desconocido devuelve la señal cero sin error; el modelo aplica sus valores neutros.
	GetSignal(ctx context.Context, team, competition string) (domain.TeamSignal, error)
}
