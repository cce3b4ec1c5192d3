package model

import (
	"math"
	"testing"

	"github.com/alejandrodnm/valuebot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func estimate(t *testing.T, m *Model, rule domain.Rule, outcome string, line float64, in Inputs) float64 {
	t.Helper()
	est, ok := m.Estimate(rule, outcome, line, in)
	require.True(t, ok, "rule=%s outcome=%s", rule, outcome)
	return est.Probability
}

func strong() Inputs {
	return Inputs{
		Home: domain.TeamSignal{ScoringRate: 2.1, StrengthRating: 1720},
		Away: domain.TeamSignal{ScoringRate: 0.9, StrengthRating: 1480},
	}
}

func TestEloProbability(t *testing.T) {
	assert.InDelta(t, 0.5, EloProbability(1500, 1500), 1e-12)
	assert.InDelta(t, 1/(1+math.Pow(10, -0.25)), EloProbability(1600, 1500), 1e-12)
	assert.InDelta(t, 1, EloProbability(1600, 1500)+EloProbability(1500, 1600), 1e-12)
}

func TestMatchResult_MissingSignalsFallBackToNeutral(t *testing.T) {
	m := Default()

	est, ok := m.Estimate(domain.RuleMatchResult, domain.OutcomeHome, 0, Inputs{})
	require.True(t, ok)
	// p = 0.45×0.5 + 0.35×0.5 + 0.20×0.55 = 0.51
	assert.InDelta(t, 0.51, est.Probability, 1e-9)
	assert.InDelta(t, 0.51, est.Inputs["strength"], 1e-9)

	// draw = 0.28 × (1 − |1.02 − 1|), away = resto
	draw := estimate(t, m, domain.RuleMatchResult, domain.OutcomeDraw, 0, Inputs{})
	away := estimate(t, m, domain.RuleMatchResult, domain.OutcomeAway, 0, Inputs{})
	assert.InDelta(t, 0.28*0.98, draw, 1e-9)
	assert.InDelta(t, 0.49-0.28*0.98, away, 1e-9)
}

func TestMatchResult_HomeProbabilityWithinBand(t *testing.T) {
	m := Default()
	weak := Inputs{
		Home: domain.TeamSignal{ScoringRate: 0.2, StrengthRating: 1200},
		Away: domain.TeamSignal{ScoringRate: 3.0, StrengthRating: 1900},
	}
	h := estimate(t, m, domain.RuleMatchResult, domain.OutcomeHome, 0, weak)
	d := estimate(t, m, domain.RuleMatchResult, domain.OutcomeDraw, 0, weak)
	a := estimate(t, m, domain.RuleMatchResult, domain.OutcomeAway, 0, weak)
	assert.InDelta(t, 0.25, h, 1e-9)
	assert.InDelta(t, 0.28*0.5, d, 1e-9)
	assert.InDelta(t, 1.0, h+d+a, 1e-9)

	extreme := Inputs{
		Home: domain.TeamSignal{ScoringRate: 10, StrengthRating: 3000},
		Away: domain.TeamSignal{ScoringRate: 0.01, StrengthRating: 500},
	}
	h = estimate(t, m, domain.RuleMatchResult, domain.OutcomeHome, 0, extreme)
	a = estimate(t, m, domain.RuleMatchResult, domain.OutcomeAway, 0, extreme)
	assert.InDelta(t, 0.75, h, 1e-9)
	assert.GreaterOrEqual(t, a, 0.0)
}

func TestNew_RejectsWeightsNotSummingToOne(t *testing.T) {
	_, err := New(Config{ScoringWeight: 0.9, RatingWeight: 0.9, PriorWeight: 0.9})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	// Solo un peso cambiado: los otros toman el default y la suma deja de ser 1.
	_, err = New(Config{ScoringWeight: 0.5})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	m, err := New(Config{ScoringWeight: 0.5, RatingWeight: 0.3, PriorWeight: 0.2})
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestNew_RejectsBadBands(t *testing.T) {
	_, err := New(Config{ResultFloor: 0.8, ResultCeil: 0.6})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Config{TotalsCap: 1.2})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Config{HomePrior: 1.5})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(DefaultConfig())
	assert.NoError(t, err)
}

func TestMatchResult_SumsToOne(t *testing.T) {
	m := Default()
	for _, in := range []Inputs{{}, strong()} {
		h := estimate(t, m, domain.RuleMatchResult, domain.OutcomeHome, 0, in)
		d := estimate(t, m, domain.RuleMatchResult, domain.OutcomeDraw, 0, in)
		a := estimate(t, m, domain.RuleMatchResult, domain.OutcomeAway, 0, in)
		assert.InDelta(t, 1.0, h+d+a, 1e-9)
	}
}

func TestMatchResult_StrengthIsClamped(t *testing.T) {
	m := Default()
	extreme := Inputs{
		Home: domain.TeamSignal{ScoringRate: 10, StrengthRating: 3000},
		Away: domain.TeamSignal{ScoringRate: 0.01, StrengthRating: 500},
	}
	est, _ := m.Estimate(domain.RuleMatchResult, domain.OutcomeHome, 0, extreme)
	assert.InDelta(t, 0.75, est.Inputs["strength"], 1e-9)
}

func TestMatchResult_StrongerHomeFavoured(t *testing.T) {
	m := Default()
	h := estimate(t, m, domain.RuleMatchResult, domain.OutcomeHome, 0, strong())
	a := estimate(t, m, domain.RuleMatchResult, domain.OutcomeAway, 0, strong())
	assert.Greater(t, h, a)
}

func TestTotals_CappedAndComplementary(t *testing.T) {
	m := Default()
	in := Inputs{
		Home: domain.TeamSignal{ScoringRate: 3},
		Away: domain.TeamSignal{ScoringRate: 3},
	}
	over := estimate(t, m, domain.RuleTotals, domain.OutcomeOver, 2.5, in)
	under := estimate(t, m, domain.RuleTotals, domain.OutcomeUnder, 2.5, in)
	assert.InDelta(t, 0.78, over, 1e-9)
	assert.InDelta(t, 1.0, over+under, 1e-9)

	// 1.25 + 1.25 = 2.5 → 2.5 / (3.5 + 0.6)
	over = estimate(t, m, domain.RuleTotals, domain.OutcomeOver, 3.5, Inputs{})
	assert.InDelta(t, 2.5/4.1, over, 1e-9)
}

func TestBTTS_Capped(t *testing.T) {
	m := Default()
	yes := estimate(t, m, domain.RuleBTTS, domain.OutcomeYes, 0, Inputs{
		Home: domain.TeamSignal{ScoringRate: 1.2},
		Away: domain.TeamSignal{ScoringRate: 1.1},
	})
	assert.InDelta(t, 1.2*1.1/2.2, yes, 1e-9)

	yes = estimate(t, m, domain.RuleBTTS, domain.OutcomeYes, 0, strong())
	assert.LessOrEqual(t, yes, 0.75)
}

func TestDoubleChance_DerivedFromResult(t *testing.T) {
	m := Default()
	in := strong()
	h := estimate(t, m, domain.RuleMatchResult, domain.OutcomeHome, 0, in)
	d := estimate(t, m, domain.RuleMatchResult, domain.OutcomeDraw, 0, in)
	oneX := estimate(t, m, domain.RuleDoubleChance, domain.Outcome1X, 0, in)
	assert.InDelta(t, math.Min(h+d, 0.95), oneX, 1e-9)
}

func TestHandicap_LinesOrdered(t *testing.T) {
	m := Default()
	in := strong()
	p05 := estimate(t, m, domain.RuleHandicap, domain.OutcomeHome, -0.5, in)
	p15 := estimate(t, m, domain.RuleHandicap, domain.OutcomeHome, -1.5, in)
	p25 := estimate(t, m, domain.RuleHandicap, domain.OutcomeHome, -2.5, in)
	assert.Greater(t, p05, p15)
	assert.Greater(t, p15, p25)

	win := estimate(t, m, domain.RuleMatchResult, domain.OutcomeHome, 0, in)
	assert.InDelta(t, win, p05, 1e-9)

	plus := estimate(t, m, domain.RuleHandicap, domain.OutcomeAway, 0.5, in)
	away := estimate(t, m, domain.RuleMatchResult, domain.OutcomeAway, 0, in)
	draw := estimate(t, m, domain.RuleMatchResult, domain.OutcomeDraw, 0, in)
	assert.InDelta(t, away+draw, plus, 1e-9)
}

func TestFirstGoal_SumsToOne(t *testing.T) {
	m := Default()
	in := strong()
	h := estimate(t, m, domain.RuleFirstGoal, domain.OutcomeHome, 0, in)
	a := estimate(t, m, domain.RuleFirstGoal, domain.OutcomeAway, 0, in)
	n := estimate(t, m, domain.RuleFirstGoal, domain.OutcomeNone, 0, in)
	assert.InDelta(t, 1.0, h+a+n, 1e-9)
}

func TestProps_WithinBand(t *testing.T) {
	m := Default()
	for _, rule := range []domain.Rule{domain.RuleCorners, domain.RuleCards} {
		for _, line := range []float64{0.5, 4.5, 9.5, 20.5} {
			p := estimate(t, m, rule, domain.OutcomeOver, line, strong())
			assert.GreaterOrEqual(t, p, 0.30)
			assert.LessOrEqual(t, p, 0.70)
		}
	}
}

func TestCleanSheet_Capped(t *testing.T) {
	m := Default()
	p := estimate(t, m, domain.RuleCleanSheet, domain.OutcomeHome, 0, Inputs{
		Home: domain.TeamSignal{ScoringRate: 1.5},
		Away: domain.TeamSignal{ScoringRate: 0.1},
	})
	assert.InDelta(t, 0.60, p, 1e-9)
}

func TestEstimate_UnknownOutcome(t *testing.T) {
	m := Default()
	_, ok := m.Estimate(domain.RuleMatchResult, "banana", 0, Inputs{})
	assert.False(t, ok)
	_, ok = m.Estimate("shots", domain.OutcomeHome, 0, Inputs{})
	assert.False(t, ok)
}

func TestEstimate_EveryCatalogOutcomeIsCovered(t *testing.T) {
	m, err := New(Config{})
	require.NoError(t, err)
	for _, spec := range domain.Catalog {
		for _, o := range spec.Outcomes {
			est, ok := m.Estimate(spec.Rule, o.Key, 2.5, strong())
			require.True(t, ok, "%s/%s", spec.Family, o.Key)
			assert.Greater(t, est.Probability, 0.0)
			assert.Less(t, est.Probability, 1.0)
		}
	}
}
