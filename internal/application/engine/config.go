package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/alejandrodnm/valuebot/internal/domain"
)

// ErrInvalidConfig indica umbrales o rangos inválidos. Es fatal y se devuelve antes de cualquier fetch.
var ErrInvalidConfig = errors.New("invalid engine config")

// Config son los parámetros de una pasada. Se leen al invocar; el engine no los cachea.
type Config struct {
	MinEdge      float64           // un candidato sobrevive solo si edge > MinEdge
	Standard     domain.PriceRange // odd_min..odd_max
	DoubleChance domain.PriceRange
	MaxResults   int
	MinSources   int

	LeagueWorkers int // 0 = NumCPU
	EventWorkers  int // fetches de cuotas en paralelo por liga (0 = 4)
	PassTimeout   time.Duration

	ConsensusMarkup float64 // 0 = 1.0

	Interval time.Duration // entre pasadas de Run
	Once     bool          // Run ejecuta una sola pasada

	Leagues []domain.League
}

// Validate comprueba la configuración. Todos los errores envuelven ErrInvalidConfig.
func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("engine.Config.Validate: %w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if !finite(c.MinEdge) || c.MinEdge < 0 {
		return invalid("min_edge %v must be a finite value >= 0", c.MinEdge)
	}
	if err := validRange("odd", c.Standard); err != "" {
		return invalid("%s", err)
	}
	if err := validRange("double_chance", c.DoubleChance); err != "" {
		return invalid("%s", err)
	}
	if c.MaxResults < 1 {
		return invalid("max_results %d must be >= 1", c.MaxResults)
	}
	if c.MinSources < 1 {
		return invalid("min_sources %d must be >= 1", c.MinSources)
	}
	if c.LeagueWorkers < 0 || c.EventWorkers < 0 {
		return invalid("workers must not be negative (league=%d event=%d)", c.LeagueWorkers, c.EventWorkers)
	}
	if c.PassTimeout < 0 {
		return invalid("pass_timeout %s must not be negative", c.PassTimeout)
	}
	if !finite(c.ConsensusMarkup) || c.ConsensusMarkup < 0 {
		return invalid("consensus_markup %v must be a finite value >= 0", c.ConsensusMarkup)
	}
	if len(c.Leagues) == 0 {
		return invalid("no leagues configured")
	}
	for _, l := range c.Leagues {
		if l.ID == "" {
			return invalid("league %q has an empty id", l.Name)
		}
	}
	return nil
}

// rangeFor devuelve el rango de cuotas de la banda del mercado.
func (c Config) rangeFor(b domain.Band) domain.PriceRange {
	if b == domain.BandDoubleChance {
		return c.DoubleChance
	}
	return c.Standard
}

func validRange(name string, r domain.PriceRange) string {
	switch {
	case !finite(r.Min) || !finite(r.Max):
		return fmt.Sprintf("%s range must be finite", name)
	case r.Min <= 1:
		return fmt.Sprintf("%s_min %.2f must be > 1", name, r.Min)
	case r.Min > r.Max:
		return fmt.Sprintf("%s_min %.2f > %s_max %.2f", name, r.Min, name, r.Max)
	}
	return ""
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
