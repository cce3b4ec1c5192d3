package domain

import (
	"math"
	"strings"
	"time"
)

// League es una competición que el engine recorre en cada pasada.
// ID es la clave del proveedor (p.ej. "soccer_epl" en The Odds API).
type League struct {
	ID   string
	Name string
}

// Event es un partido programado. Inmutable durante una pasada de análisis.
type Event struct {
	ID        string
	League    League
	HomeTeam  string
	AwayTeam  string
	StartTime time.Time
}

// Label devuelve el nombre legible del partido ("Home vs Away").
func (e Event) Label() string {
	return strings.TrimSpace(e.HomeTeam) + " vs " + strings.TrimSpace(e.AwayTeam)
}

// PriceQuote es la cuota decimal de una fuente para un outcome de un mercado.
type PriceQuote struct {
	Source  string
	Family  MarketFamily
	Outcome string
	Price   float64
	Line    float64 // punto del total o de la fora
	HasLine bool
}

// Valid devuelve true si la cuota es utilizable (finita y > 1.0).
func (q PriceQuote) Valid() bool {
	return q.Price > 1 && !math.IsInf(q.Price, 0) && !math.IsNaN(q.Price)
}

// TeamSignal es la señal de un equipo: ritmo goleador esperado y rating Elo.
// Un valor 0 significa "desconocido".
type TeamSignal struct {
	ScoringRate    float64
	StrengthRating float64
}

// ProbabilityEstimate es la salida del modelo para un outcome.
// Inputs solo sirve para observabilidad.
type ProbabilityEstimate struct {
	Probability float64
	Inputs      map[string]float64
}
