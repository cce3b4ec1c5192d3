package domain

import (
	"sort"
	"strings"
)

// SourcePrice es la mejor cuota de una fuente para un outcome.
type SourcePrice struct {
	Source string
	Price  float64
}

// Aggregation resume las cuotas de todas las fuentes para un outcome.
type Aggregation struct {
	Best          float64
	BestSource    string
	Worst         float64
	Mean          float64
	MeanImplied   float64 // media de 1/cuota por fuente
	Sources       int     // fuentes independientes
	Dispersion    float64 // Best - Worst
	LowConfidence bool    // Sources < mínimo configurado

	// Prices están ordenadas por cuota desc, fuente asc.
	Prices []SourcePrice
}

// Aggregate resume las cuotas de un outcome.
// Cada fuente cuenta una vez (se queda su mejor cuota); las cuotas inválidas se ignoran.
func Aggregate(quotes []PriceQuote, minSources int) Aggregation {
	bySource := make(map[string]float64, len(quotes))
	for _, q := range quotes {
		if !q.Valid() {
			continue
		}
		src := strings.ToLower(strings.TrimSpace(q.Source))
		if src == "" {
			continue
		}
		if prev, ok := bySource[src]; !ok || q.Price > prev {
			bySource[src] = q.Price
		}
	}

	agg := Aggregation{Prices: make([]SourcePrice, 0, len(bySource))}
	for src, price := range bySource {
		agg.Prices = append(agg.Prices, SourcePrice{Source: src, Price: price})
	}
	sort.Slice(agg.Prices, func(i, j int) bool {
		if agg.Prices[i].Price != agg.Prices[j].Price {
			return agg.Prices[i].Price > agg.Prices[j].Price
		}
		return agg.Prices[i].Source < agg.Prices[j].Source
	})

	agg.Sources = len(agg.Prices)
	agg.LowConfidence = agg.Sources < minSources
	if agg.Sources == 0 {
		return agg
	}

	var sum, sumImplied float64
	for _, sp := range agg.Prices {
		sum += sp.Price
		sumImplied += 1 / sp.Price
	}
	agg.Best = agg.Prices[0].Price
	agg.BestSource = agg.Prices[0].Source
	agg.Worst = agg.Prices[len(agg.Prices)-1].Price
	agg.Mean = sum / float64(agg.Sources)
	agg.MeanImplied = sumImplied / float64(agg.Sources)
	agg.Dispersion = agg.Best - agg.Worst
	return agg
}

// Reference devuelve la mejor cuota dentro del rango (y su fuente).
// Las cuotas fuera del rango no se consideran.
func (a Aggregation) Reference(r PriceRange) (float64, string, bool) {
	for _, sp := range a.Prices {
		if r.Contains(sp.Price) {
			return sp.Price, sp.Source, true
		}
	}
	return 0, "", false
}

// Consensus calcula la probabilidad de consenso sin margen para cada outcome de un mercado.
//
//	raw_i       = media de 1/cuota del outcome i
//	consensus_i = raw_i / Σ raw × markup
//
// Con un único outcome cotizado no hay con qué normalizar y se devuelve raw × markup.
// markup <= 0 se trata como 1 (sin ajuste).
func Consensus(byOutcome map[string]Aggregation, markup float64) map[string]float64 {
	if markup <= 0 {
		markup = 1
	}
	out := make(map[string]float64, len(byOutcome))

	// Suma en orden de clave: el resultado no depende del orden del map.
	keys := make([]string, 0, len(byOutcome))
	for outcome := range byOutcome {
		keys = append(keys, outcome)
	}
	sort.Strings(keys)

	var total float64
	quoted := 0
	for _, outcome := range keys {
		agg := byOutcome[outcome]
		if agg.Sources == 0 {
			continue
		}
		total += agg.MeanImplied
		quoted++
	}
	if quoted == 0 || total <= 0 {
		return out
	}

	for outcome, agg := range byOutcome {
		if agg.Sources == 0 {
			continue
		}
		if quoted == 1 {
			out[outcome] = agg.MeanImplied * markup
			continue
		}
		out[outcome] = agg.MeanImplied / total * markup
	}
	return out
}
