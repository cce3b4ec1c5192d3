package engine

import (
	"sort"

	"github.com/alejandrodnm/valuebot/internal/domain"
)

// filterCandidates descarta los candidatos con pocas fuentes o sin value suficiente.
// El filtro de fuentes va primero: un candidato escaso se excluye aunque su edge sea alto.
func filterCandidates(cands []domain.Candidate, cfg Config) ([]domain.Candidate, domain.Diagnostics) {
	var diag domain.Diagnostics
	out := make([]domain.Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Aggregation.Sources < cfg.MinSources {
			diag.FilteredSources++
			continue
		}
		// Estricto: edge == MinEdge no pasa.
		if !(c.Edge > cfg.MinEdge) {
			diag.FilteredEdge++
			continue
		}
		out = append(out, c)
	}
	return out, diag
}

// dedup conserva el primer candidato de cada DedupKey, en el orden recibido.
func dedup(cands []domain.Candidate) ([]domain.Candidate, int) {
	seen := make(map[domain.DedupKey]bool, len(cands))
	out := make([]domain.Candidate, 0, len(cands))
	dups := 0
	for _, c := range cands {
		k := c.Key()
		if seen[k] {
			dups++
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	return out, dups
}

// rankAndTruncate ordena por edge desc; empates por probabilidad del modelo desc,
// luego inicio más temprano y por último la clave, para que el orden sea total.
func rankAndTruncate(cands []domain.Candidate, maxResults int) ([]domain.Candidate, int) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Edge != b.Edge {
			return a.Edge > b.Edge
		}
		if a.ModelProbability != b.ModelProbability {
			return a.ModelProbability > b.ModelProbability
		}
		if !a.Event.StartTime.Equal(b.Event.StartTime) {
			return a.Event.StartTime.Before(b.Event.StartTime)
		}
		return a.Key().String() < b.Key().String()
	})

	if maxResults <= 0 || len(cands) <= maxResults {
		return cands, 0
	}
	return cands[:maxResults], len(cands) - maxResults
}
