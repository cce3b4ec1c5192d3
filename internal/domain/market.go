package domain

import (
	"fmt"
	"strings"
)

// MarketFamily es la categoría de apuesta (1X2, totales, fora...).
type MarketFamily string

const (
	FamilyMatchResult  MarketFamily = "match_result"
	FamilyTotals       MarketFamily = "totals"
	FamilyHandicap     MarketFamily = "handicap"
	FamilyBTTS         MarketFamily = "btts"
	FamilyDoubleChance MarketFamily = "double_chance"
	FamilyDrawNoBet    MarketFamily = "draw_no_bet"
	FamilyCleanSheet   MarketFamily = "clean_sheet"
	FamilyCorners      MarketFamily = "corners"
	FamilyCards        MarketFamily = "cards"
	FamilyFirstGoal    MarketFamily = "first_goal"
)

// Outcomes canónicos usados por el catálogo y los adapters.
const (
	OutcomeHome  = "home"
	OutcomeDraw  = "draw"
	OutcomeAway  = "away"
	OutcomeOver  = "over"
	OutcomeUnder = "under"
	OutcomeYes   = "yes"
	OutcomeNo    = "no"
	Outcome1X    = "1X"
	Outcome12    = "12"
	OutcomeX2    = "X2"
	OutcomeNone  = "none"
)

// Rule identifica la regla de derivación de probabilidad que el modelo aplica.
type Rule string

const (
	RuleMatchResult  Rule = "match_result"
	RuleTotals       Rule = "totals"
	RuleHandicap     Rule = "handicap"
	RuleBTTS         Rule = "btts"
	RuleDoubleChance Rule = "double_chance"
	RuleDrawNoBet    Rule = "draw_no_bet"
	RuleCleanSheet   Rule = "clean_sheet"
	RuleCorners      Rule = "corners"
	RuleCards        Rule = "cards"
	RuleFirstGoal    Rule = "first_goal"
)

// Band es la política de rango de cuotas de un mercado.
type Band int

const (
	// BandStandard usa odd_min..odd_max.
	BandStandard Band = iota
	// BandDoubleChance usa un rango más estrecho: sus probabilidades reales son más altas.
	BandDoubleChance
)

// PriceRange es un rango cerrado de cuotas aceptadas.
type PriceRange struct {
	Min float64
	Max float64
}

// Contains devuelve true si min ≤ price ≤ max.
func (r PriceRange) Contains(price float64) bool {
	return price >= r.Min && price <= r.Max
}

// OutcomeSpec es un outcome de un mercado con su plantilla de etiqueta.
// Placeholders: {home} {away} {team} {line} {line+}.
type OutcomeSpec struct {
	Key   string
	Label string
}

// MarketSpec es una fila del catálogo de mercados.
type MarketSpec struct {
	Family   MarketFamily
	Name     string
	Rule     Rule
	Band     Band
	Lined    bool // requiere Line (totales, foras, corners, tarjetas)
	Outcomes []OutcomeSpec
}

// Outcome busca la spec de un outcome por clave.
func (m MarketSpec) Outcome(key string) (OutcomeSpec, bool) {
	for _, o := range m.Outcomes {
		if o.Key == key {
			return o, true
		}
	}
	return OutcomeSpec{}, false
}

// Label renderiza la etiqueta de un outcome para un evento concreto.
func (m MarketSpec) Label(outcome string, ev Event, line float64) string {
	spec, ok := m.Outcome(outcome)
	if !ok {
		return string(m.Family) + " " + outcome
	}
	team := ""
	switch outcome {
	case OutcomeHome:
		team = ev.HomeTeam
	case OutcomeAway:
		team = ev.AwayTeam
	}
	r := strings.NewReplacer(
		"{home}", ev.HomeTeam,
		"{away}", ev.AwayTeam,
		"{team}", team,
		"{line+}", fmt.Sprintf("%+.1f", line),
		"{line}", fmt.Sprintf("%.1f", line),
	)
	return r.Replace(spec.Label)
}

// CatalogVersion se incrementa cada vez que cambia la tabla.
const CatalogVersion = 3

// Catalog es la tabla estática de mercados soportados.
// Añadir un mercado = añadir una fila (y, si es nueva, una Rule en el modelo).
var Catalog = []MarketSpec{
	{
		Family: FamilyMatchResult, Name: "1X2", Rule: RuleMatchResult, Band: BandStandard,
		Outcomes: []OutcomeSpec{
			{Key: OutcomeHome, Label: "1 ({home})"},
			{Key: OutcomeDraw, Label: "X (draw)"},
			{Key: OutcomeAway, Label: "2 ({away})"},
		},
	},
	{
		Family: FamilyTotals, Name: "Totals", Rule: RuleTotals, Band: BandStandard, Lined: true,
		Outcomes: []OutcomeSpec{
			{Key: OutcomeOver, Label: "Over {line}"},
			{Key: OutcomeUnder, Label: "Under {line}"},
		},
	},
	{
		Family: FamilyHandicap, Name: "Fora", Rule: RuleHandicap, Band: BandStandard, Lined: true,
		Outcomes: []OutcomeSpec{
			{Key: OutcomeHome, Label: "Fora {team} {line+}"},
			{Key: OutcomeAway, Label: "Fora {team} {line+}"},
		},
	},
	{
		Family: FamilyBTTS, Name: "Both teams to score", Rule: RuleBTTS, Band: BandStandard,
		Outcomes: []OutcomeSpec{
			{Key: OutcomeYes, Label: "BTTS yes"},
			{Key: OutcomeNo, Label: "BTTS no"},
		},
	},
	{
		Family: FamilyDoubleChance, Name: "Double chance", Rule: RuleDoubleChance, Band: BandDoubleChance,
		Outcomes: []OutcomeSpec{
			{Key: Outcome1X, Label: "1X ({home} or draw)"},
			{Key: Outcome12, Label: "12 (no draw)"},
			{Key: OutcomeX2, Label: "X2 (draw or {away})"},
		},
	},
	{
		Family: FamilyDrawNoBet, Name: "Draw no bet", Rule: RuleDrawNoBet, Band: BandStandard,
		Outcomes: []OutcomeSpec{
			{Key: OutcomeHome, Label: "DNB {team}"},
			{Key: OutcomeAway, Label: "DNB {team}"},
		},
	},
	{
		Family: FamilyCleanSheet, Name: "Clean sheet", Rule: RuleCleanSheet, Band: BandStandard,
		Outcomes: []OutcomeSpec{
			{Key: OutcomeHome, Label: "Clean sheet {team}"},
			{Key: OutcomeAway, Label: "Clean sheet {team}"},
		},
	},
	{
		Family: FamilyCorners, Name: "Corners", Rule: RuleCorners, Band: BandStandard, Lined: true,
		Outcomes: []OutcomeSpec{
			{Key: OutcomeOver, Label: "Corners over {line}"},
			{Key: OutcomeUnder, Label: "Corners under {line}"},
		},
	},
	{
		Family: FamilyCards, Name: "Cards", Rule: RuleCards, Band: BandStandard, Lined: true,
		Outcomes: []OutcomeSpec{
			{Key: OutcomeOver, Label: "Cards over {line}"},
			{Key: OutcomeUnder, Label: "Cards under {line}"},
		},
	},
	{
		Family: FamilyFirstGoal, Name: "First goal", Rule: RuleFirstGoal, Band: BandStandard,
		Outcomes: []OutcomeSpec{
			{Key: OutcomeHome, Label: "First goal {team}"},
			{Key: OutcomeAway, Label: "First goal {team}"},
			{Key: OutcomeNone, Label: "No goal"},
		},
	},
}

// LookupMarket devuelve la fila del catálogo para una familia.
func LookupMarket(family MarketFamily) (MarketSpec, bool) {
	for _, m := range Catalog {
		if m.Family == family {
			return m, true
		}
	}
	return MarketSpec{}, false
}
