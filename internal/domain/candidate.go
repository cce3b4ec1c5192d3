package domain

import (
	"fmt"
	"math"
	"time"
)

// DedupKey identifica una apuesta real: dos candidatos con la misma clave son la misma apuesta.
type DedupKey struct {
	EventID    string
	Family     MarketFamily
	Outcome    string // etiqueta renderizada (incluye la línea)
	PriceCents int64  // cuota de referencia redondeada a 2 decimales
}

// String devuelve la forma persistible de la clave.
func (k DedupKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%d.%02d", k.EventID, k.Family, k.Outcome, k.PriceCents/100, k.PriceCents%100)
}

// Candidate es una apuesta evaluada. No se muta tras crearse.
type Candidate struct {
	Event   Event
	Family  MarketFamily
	Outcome string
	Line    float64
	HasLine bool

	MarketLabel     string
	ReferencePrice  float64
	ReferenceSource string

	ModelProbability     float64
	ImpliedProbability   float64 // 1 / ReferencePrice
	ConsensusProbability float64 // sin margen, de todas las fuentes

	Edge      float64 // ModelProbability × ReferencePrice − 1
	ReturnPct float64 // Edge / (ReferencePrice − 1) × 100

	Aggregation Aggregation
	Estimate    ProbabilityEstimate
}

// NewCandidate construye un candidato calculando edge y retorno a partir de p y la cuota.
func NewCandidate(ev Event, spec MarketSpec, outcome string, line float64, hasLine bool,
	price float64, source string, est ProbabilityEstimate, agg Aggregation, consensus float64) Candidate {
	edge := Edge(est.Probability, price)
	return Candidate{
		Event:                ev,
		Family:               spec.Family,
		Outcome:              outcome,
		Line:                 line,
		HasLine:              hasLine,
		MarketLabel:          spec.Label(outcome, ev, line),
		ReferencePrice:       price,
		ReferenceSource:      source,
		ModelProbability:     est.Probability,
		ImpliedProbability:   ImpliedProbability(price),
		ConsensusProbability: consensus,
		Edge:                 edge,
		ReturnPct:            ReturnPct(edge, price),
		Aggregation:          agg,
		Estimate:             est,
	}
}

// Key devuelve la clave canónica de deduplicación.
func (c Candidate) Key() DedupKey {
	return DedupKey{
		EventID:    c.Event.ID,
		Family:     c.Family,
		Outcome:    c.MarketLabel,
		PriceCents: int64(math.Round(c.ReferencePrice * 100)),
	}
}

// Diagnostics cuenta lo descartado en una pasada. Nunca es un error.
type Diagnostics struct {
	Leagues        int
	LeaguesSkipped int
	Events         int
	EventsSkipped  int
	Quotes         int
	QuotesSkipped  int

	Evaluated       int
	FilteredPrice   int // sin cuota dentro del rango
	FilteredSources int // menos fuentes que el mínimo
	FilteredEdge    int // edge ≤ mínimo
	Duplicates      int
	Truncated       int

	Partial bool // pasada cancelada o con timeout
}

// Add acumula los contadores de otra pasada parcial.
func (d *Diagnostics) Add(o Diagnostics) {
	d.Leagues += o.Leagues
	d.LeaguesSkipped += o.LeaguesSkipped
	d.Events += o.Events
	d.EventsSkipped += o.EventsSkipped
	d.Quotes += o.Quotes
	d.QuotesSkipped += o.QuotesSkipped
	d.Evaluated += o.Evaluated
	d.FilteredPrice += o.FilteredPrice
	d.FilteredSources += o.FilteredSources
	d.FilteredEdge += o.FilteredEdge
	d.Duplicates += o.Duplicates
	d.Truncated += o.Truncated
	d.Partial = d.Partial || o.Partial
}

// Ranking es el resultado de una pasada: lista ordenada por edge, acotada y sin claves repetidas.
type Ranking struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Candidates  []Candidate
	Diagnostics Diagnostics
}

// BestEdge devuelve el edge del primer candidato, o 0 si la lista está vacía.
func (r Ranking) BestEdge() float64 {
	if len(r.Candidates) == 0 {
		return 0
	}
	return r.Candidates[0].Edge
}

// Favorite es un candidato guardado por el usuario, indexado por su DedupKey.
type Favorite struct {
	Key       string
	Candidate Candidate
	SavedAt   time.Time
}

// TruncateLabel recorta una etiqueta a maxLen caracteres.
func TruncateLabel(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen || maxLen <= 3 {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
