package engine

import (
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/alejandrodnm/valuebot/internal/domain"
	"github.com/alejandrodnm/valuebot/internal/domain/model"
)

// marketKey agrupa las cuotas de un mismo mercado. Para la fora la línea se guarda
// desde el punto de vista local: home -1.5 y away +1.5 son el mismo mercado.
type marketKey struct {
	family    domain.MarketFamily
	lineCents int64
}

type marketGroup struct {
	spec      domain.MarketSpec
	order     int // posición en el catálogo
	lineCents int64
	hasLine   bool
	outcomes  map[string][]domain.PriceQuote
	lines     map[string]float64 // línea tal como la cotiza cada outcome
}

// evaluateEvent agrupa las cuotas por mercado y outcome y produce un candidato por
// outcome con cuota de referencia dentro de rango. Las cuotas malformadas o de
// familias fuera del catálogo se descartan una a una.
func evaluateEvent(ev domain.Event, quotes []domain.PriceQuote, in model.Inputs, est Estimator, cfg Config) ([]domain.Candidate, domain.Diagnostics) {
	var diag domain.Diagnostics
	groups := make(map[marketKey]*marketGroup)

	for _, q := range quotes {
		diag.Quotes++
		spec, order, ok := lookup(q.Family)
		if !ok || !q.Valid() || strings.TrimSpace(q.Source) == "" {
			slog.Debug("quote skipped", "event", ev.ID, "family", q.Family, "outcome", q.Outcome, "price", q.Price)
			diag.QuotesSkipped++
			continue
		}
		if _, ok := spec.Outcome(q.Outcome); !ok {
			diag.QuotesSkipped++
			continue
		}
		if spec.Lined && (!q.HasLine || !finite(q.Line)) {
			diag.QuotesSkipped++
			continue
		}

		line := 0.0
		if spec.Lined {
			line = q.Line
		}
		key := marketKey{family: spec.Family, lineCents: cents(marketLine(spec, q.Outcome, line))}
		g, ok := groups[key]
		if !ok {
			g = &marketGroup{
				spec:      spec,
				order:     order,
				lineCents: key.lineCents,
				hasLine:   spec.Lined,
				outcomes:  make(map[string][]domain.PriceQuote),
				lines:     make(map[string]float64),
			}
			groups[key] = g
		}
		g.outcomes[q.Outcome] = append(g.outcomes[q.Outcome], q)
		g.lines[q.Outcome] = line
	}

	// Orden determinista: catálogo, línea, orden de outcomes del catálogo.
	ordered := make([]*marketGroup, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].order != ordered[j].order {
			return ordered[i].order < ordered[j].order
		}
		return ordered[i].lineCents < ordered[j].lineCents
	})

	var out []domain.Candidate
	for _, g := range ordered {
		aggs := make(map[string]domain.Aggregation, len(g.outcomes))
		for outcome, qs := range g.outcomes {
			aggs[outcome] = domain.Aggregate(qs, cfg.MinSources)
		}
		consensus := domain.Consensus(aggs, cfg.ConsensusMarkup)
		band := cfg.rangeFor(g.spec.Band)

		for _, o := range g.spec.Outcomes {
			agg, ok := aggs[o.Key]
			if !ok {
				continue
			}
			diag.Evaluated++

			line := g.lines[o.Key]
			estimate, ok := est.Estimate(g.spec.Rule, o.Key, line, in)
			if !ok {
				diag.QuotesSkipped += agg.Sources
				continue
			}

			price, source, ok := agg.Reference(band)
			if !ok {
				diag.FilteredPrice++
				continue
			}

			out = append(out, domain.NewCandidate(ev, g.spec, o.Key, line, g.hasLine,
				price, source, estimate, agg, consensus[o.Key]))
		}
	}
	return out, diag
}

// marketLine devuelve la línea que identifica el mercado.
func marketLine(spec domain.MarketSpec, outcome string, line float64) float64 {
	if spec.Family == domain.FamilyHandicap && outcome == domain.OutcomeAway {
		return -line
	}
	return line
}

// lookup busca la familia en el catálogo y devuelve también su posición.
func lookup(family domain.MarketFamily) (domain.MarketSpec, int, bool) {
	for i, m := range domain.Catalog {
		if m.Family == family {
			return m, i, true
		}
	}
	return domain.MarketSpec{}, 0, false
}

func cents(v float64) int64 {
	return int64(math.Round(v * 100))
}
