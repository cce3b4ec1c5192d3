package notify

import (
	"context"
	"errors"

	"github.com/alejandrodnm/valuebot/internal/domain"
	"github.com/alejandrodnm/valuebot/internal/ports"
)

// Multi reparte el ranking a varios notificadores. Un sink que falla no impide
// que los demás reciban el ranking.
type Multi struct {
	sinks []ports.Notifier
}

// NewMulti crea el fan-out. Los nil se ignoran.
func NewMulti(sinks ...ports.Notifier) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Len devuelve el número de sinks activos.
func (m *Multi) Len() int { return len(m.sinks) }

// Notify llama a todos los sinks y une sus errores.
func (m *Multi) Notify(ctx context.Context, r domain.Ranking) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Notify(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
