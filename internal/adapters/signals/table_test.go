package signals

import (
	"context"
	"testing"

	"github.com/alejandrodnm/valuebot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTable_SampleFile(t *testing.T) {
	tbl, err := LoadTable("testdata/signals.yaml")
	require.NoError(t, err)
	assert.Greater(t, tbl.Len(), 10)

	sig, err := tbl.GetSignal(context.Background(), "Arsenal", "Premier League")
	require.NoError(t, err)
	assert.Equal(t, domain.TeamSignal{ScoringRate: 2.05, StrengthRating: 1820}, sig)
}

func TestGetSignal_Lookup(t *testing.T) {
	tbl, err := ParseTable([]byte(`
competitions:
  Premier League:
    Arsenal: { scoring_rate: 2.0, rating: 1800 }
  Champions League:
    Arsenal: { scoring_rate: 1.6, rating: 1810 }
    Real  Madrid: { scoring_rate: 2.2, rating: 1860 }
`))
	require.NoError(t, err)
	ctx := context.Background()

	sig, _ := tbl.GetSignal(ctx, "Arsenal", "Champions League")
	assert.Equal(t, 1.6, sig.ScoringRate, "competition-specific row wins")

	sig, _ = tbl.GetSignal(ctx, "real madrid", "La Liga")
	assert.Equal(t, 2.2, sig.ScoringRate, "falls back to any competition, case-insensitive")

	sig, err = tbl.GetSignal(ctx, "Unknown FC", "Premier League")
	require.NoError(t, err)
	assert.Equal(t, domain.TeamSignal{}, sig)
}

func TestParseTable_Errors(t *testing.T) {
	_, err := ParseTable([]byte("competitions: [broken"))
	assert.Error(t, err)

	_, err = ParseTable([]byte("competitions:\n  X:\n    Y: { scoring_rate: -1, rating: 1500 }\n"))
	assert.Error(t, err)
}
