package oddsapi

import (
	"strings"

	"github.com/alejandrodnm/valuebot/internal/domain"
)

// marketFamilies traduce las keys de mercado de la API a familias del catálogo.
var marketFamilies = map[string]domain.MarketFamily{
	"h2h":           domain.FamilyMatchResult,
	"totals":        domain.FamilyTotals,
	"spreads":       domain.FamilyHandicap,
	"btts":          domain.FamilyBTTS,
	"draw_no_bet":   domain.FamilyDrawNoBet,
	"double_chance": domain.FamilyDoubleChance,
}

// mapEvent convierte un evento de la API a domain.Event.
func mapEvent(r apiEvent, league domain.League) domain.Event {
	return domain.Event{
		ID:        r.ID,
		League:    league,
		HomeTeam:  r.HomeTeam,
		AwayTeam:  r.AwayTeam,
		StartTime: r.CommenceTime.UTC(),
	}
}

// mapQuotes aplana bookmakers × mercados × outcomes a PriceQuotes.
// Los mercados desconocidos se ignoran; los outcomes que no se pueden
// asignar a home/away/draw se pasan tal cual para que el engine los cuente.
func mapQuotes(r apiEventOdds, ev domain.Event) []domain.PriceQuote {
	var out []domain.PriceQuote
	for _, bm := range r.Bookmakers {
		for _, m := range bm.Markets {
			family, ok := marketFamilies[m.Key]
			if !ok {
				continue
			}
			for _, o := range m.Outcomes {
				q := domain.PriceQuote{
					Source:  bm.Key,
					Family:  family,
					Outcome: mapOutcome(family, o.Name, ev),
					Price:   o.Price,
				}
				if o.Point != nil {
					q.Line = *o.Point
					q.HasLine = true
				}
				out = append(out, q)
			}
		}
	}
	return out
}

// mapOutcome traduce el nombre de outcome de la API al outcome canónico.
// Un nombre no reconocido se devuelve tal cual y el engine lo descarta.
func mapOutcome(family domain.MarketFamily, name string, ev domain.Event) string {
	n := normalizeName(name)

	switch family {
	case domain.FamilyTotals:
		return n // "over" | "under"
	case domain.FamilyBTTS:
		return n // "yes" | "no"
	case domain.FamilyDoubleChance:
		return mapDoubleChance(n, ev)
	}

	if side := matchSide(n, ev); side != "" {
		return side
	}
	return n
}

// mapDoubleChance separa "Home or Draw" por " or " y compara cada lado por nombre exacto.
func mapDoubleChance(n string, ev domain.Event) string {
	parts := strings.Split(n, " or ")
	if len(parts) != 2 {
		return n
	}
	a, b := matchSide(strings.TrimSpace(parts[0]), ev), matchSide(strings.TrimSpace(parts[1]), ev)

	has := func(side string) bool { return a == side || b == side }
	switch {
	case a == "" || b == "" || a == b:
		return n
	case has(domain.OutcomeHome) && has(domain.OutcomeDraw):
		return domain.Outcome1X
	case has(domain.OutcomeHome) && has(domain.OutcomeAway):
		return domain.Outcome12
	case has(domain.OutcomeAway) && has(domain.OutcomeDraw):
		return domain.OutcomeX2
	}
	return n
}

// matchSide devuelve home, away o draw si n coincide exactamente; "" si no.
// Un nombre de equipo vacío nunca coincide.
func matchSide(n string, ev domain.Event) string {
	if n == "" {
		return ""
	}
	switch n {
	case "draw":
		return domain.OutcomeDraw
	case normalizeName(ev.HomeTeam):
		return domain.OutcomeHome
	case normalizeName(ev.AwayTeam):
		return domain.OutcomeAway
	}
	return ""
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
