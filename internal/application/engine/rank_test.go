package engine

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/alejandrodnm/valuebot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(id string, edge, prob float64, start time.Time, sources int) domain.Candidate {
	return domain.Candidate{
		Event:            domain.Event{ID: id, HomeTeam: "H" + id, AwayTeam: "A" + id, StartTime: start},
		Family:           domain.FamilyMatchResult,
		Outcome:          domain.OutcomeHome,
		MarketLabel:      "1 (H" + id + ")",
		ReferencePrice:   2.0,
		ModelProbability: prob,
		Edge:             edge,
		Aggregation:      domain.Aggregation{Sources: sources},
	}
}

func TestFilter_StrictEdgeThreshold(t *testing.T) {
	cfg := testConfig(epl)
	cfg.MinEdge = 0.25

	// 0.5 × 2.5 − 1 = 0.25 exacto
	exact := candidate("exact", domain.Edge(0.5, 2.5), 0.5, kick0, 6)
	above := candidate("above", 0.2501, 0.5, kick0, 6)

	out, diag := filterCandidates([]domain.Candidate{exact, above}, cfg)
	require.Len(t, out, 1)
	assert.Equal(t, "above", out[0].Event.ID)
	assert.Equal(t, 1, diag.FilteredEdge)
}

func TestFilter_OneSourceShort(t *testing.T) {
	cfg := testConfig(epl)
	short := candidate("short", 0.5, 0.6, kick0, cfg.MinSources-1)
	enough := candidate("enough", 0.5, 0.6, kick0, cfg.MinSources)

	out, diag := filterCandidates([]domain.Candidate{short, enough}, cfg)
	require.Len(t, out, 1)
	assert.Equal(t, "enough", out[0].Event.ID)
	assert.Equal(t, 1, diag.FilteredSources)
}

func TestDedup_FirstSeenWins(t *testing.T) {
	a := candidate("e1", 0.10, 0.6, kick0, 6)
	b := candidate("e1", 0.10, 0.6, kick0, 6)
	b.ReferenceSource = "second"
	c := candidate("e1", 0.10, 0.6, kick0, 6)
	c.ReferencePrice = 2.1 // otra cuota, otra clave

	out, dups := dedup([]domain.Candidate{a, b, c})
	require.Len(t, out, 2)
	assert.Equal(t, 1, dups)
	assert.Empty(t, out[0].ReferenceSource)
}

func TestRank_TieBreaks(t *testing.T) {
	early := candidate("early", 0.10, 0.5, kick0, 6)
	late := candidate("late", 0.10, 0.5, kick0.Add(time.Hour), 6)
	likely := candidate("likely", 0.10, 0.7, kick0.Add(2*time.Hour), 6)
	best := candidate("best", 0.20, 0.3, kick0.Add(3*time.Hour), 6)

	out, truncated := rankAndTruncate([]domain.Candidate{late, early, best, likely}, 10)
	assert.Equal(t, 0, truncated)
	ids := []string{out[0].Event.ID, out[1].Event.ID, out[2].Event.ID, out[3].Event.ID}
	assert.Equal(t, []string{"best", "likely", "early", "late"}, ids)
}

func TestRank_FifteenTruncatedToTwelve(t *testing.T) {
	var cands []domain.Candidate
	for i := 0; i < 15; i++ {
		edge := 0.40 - 0.02*float64(i)
		start := kick0
		if i == 12 {
			// Mismo edge y probabilidad que el 12º pero empieza más tarde.
			edge = 0.40 - 0.02*11
			start = kick0.Add(time.Hour)
		}
		cands = append(cands, candidate(fmt.Sprintf("c%02d", i), edge, 0.5, start, 6))
	}
	rng := rand.New(rand.NewSource(7))
	rng.Shuffle(len(cands), func(i, j int) { cands[i], cands[j] = cands[j], cands[i] })

	out, truncated := rankAndTruncate(cands, 12)
	require.Len(t, out, 12)
	assert.Equal(t, 3, truncated)

	ids := make(map[string]bool)
	for _, c := range out {
		ids[c.Event.ID] = true
	}
	for i := 0; i < 12; i++ {
		assert.True(t, ids[fmt.Sprintf("c%02d", i)], "c%02d should be ranked", i)
	}
	assert.False(t, ids["c12"], "equal edge but later start is cut")
	assert.Equal(t, "c00", out[0].Event.ID)
	assert.Equal(t, "c11", out[11].Event.ID)
}

func TestRank_TotalOrderIndependentOfInput(t *testing.T) {
	a := candidate("a", 0.1, 0.5, kick0, 6)
	b := candidate("b", 0.1, 0.5, kick0, 6)

	out1, _ := rankAndTruncate([]domain.Candidate{a, b}, 5)
	out2, _ := rankAndTruncate([]domain.Candidate{b, a}, 5)
	assert.Equal(t, out1, out2)
}
