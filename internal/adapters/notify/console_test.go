package notify_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alejandrodnm/valuebot/internal/adapters/notify"
	"github.com/alejandrodnm/valuebot/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var kickoff = time.Date(2026, 3, 14, 17, 30, 0, 0, time.UTC)

func makeCandidate(home, away string, p, price float64) domain.Candidate {
	ev := domain.Event{
		ID:        strings.ToLower(home + "_" + away),
		League:    domain.League{ID: "soccer_epl", Name: "Premier League"},
		HomeTeam:  home,
		AwayTeam:  away,
		StartTime: kickoff,
	}
	spec, _ := domain.LookupMarket(domain.FamilyMatchResult)
	agg := domain.Aggregation{
		Best: price, BestSource: "pinnacle", Worst: price - 0.10,
		Mean: price - 0.05, Sources: 7, Dispersion: 0.10,
	}
	est := domain.ProbabilityEstimate{Probability: p, Inputs: map[string]float64{"elo_home": 0.6}}
	return domain.NewCandidate(ev, spec, domain.OutcomeHome, 0, false, price, "pinnacle", est, agg, 0.52)
}

func makeRanking(cands ...domain.Candidate) domain.Ranking {
	return domain.Ranking{
		RunID:      "run-1",
		StartedAt:  kickoff.Add(-time.Hour),
		FinishedAt: kickoff.Add(-time.Hour),
		Candidates: cands,
		Diagnostics: domain.Diagnostics{
			Leagues: 1, Events: 2, Evaluated: 20, FilteredEdge: 18,
		},
	}
}

func TestConsole_Notify_Compact(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false, false, 40)

	r := makeRanking(makeCandidate("Arsenal", "Chelsea", 0.65, 1.80), makeCandidate("Liverpool", "Everton", 0.55, 2.00))
	require.NoError(t, n.Notify(context.Background(), r))

	out := buf.String()
	assert.Contains(t, out, "2 bets")
	assert.Contains(t, out, "Arsenal vs Chelsea")
	assert.Contains(t, out, "@1.80")
	assert.Contains(t, out, "+17.0%")
	assert.Equal(t, 1, strings.Count(out, "\n"), "compact mode prints one line")
}

func TestConsole_Notify_Table(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true, false, 40)

	require.NoError(t, n.Notify(context.Background(), makeRanking(makeCandidate("Arsenal", "Chelsea", 0.65, 1.80))))

	out := buf.String()
	assert.Contains(t, out, "1 value bets")
	assert.Contains(t, out, "Arsenal vs Chelsea")
	assert.Contains(t, out, "1.80")
	assert.Contains(t, out, "pinnacle")
	assert.Contains(t, out, "65.0%")
	assert.Contains(t, out, "55.6%")
	assert.NotContains(t, out, "EXPLAIN")
}

func TestConsole_Notify_Explain(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true, true, 40)

	cands := []domain.Candidate{
		makeCandidate("A", "B", 0.65, 1.80),
		makeCandidate("C", "D", 0.60, 1.90),
		makeCandidate("E", "F", 0.55, 2.00),
		makeCandidate("G", "H", 0.52, 2.00),
	}
	require.NoError(t, n.Notify(context.Background(), makeRanking(cands...)))

	out := buf.String()
	assert.Contains(t, out, "EXPLAIN")
	assert.Contains(t, out, "#3: E vs F")
	assert.NotContains(t, out, "#4:")
	assert.Contains(t, out, "elo_home")
	assert.Contains(t, out, "consensus (no margin) = 0.5200")
}

func TestConsole_Notify_Empty(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true, true, 40)

	r := makeRanking()
	r.Diagnostics.Partial = true
	require.NoError(t, n.Notify(context.Background(), r))

	assert.Contains(t, buf.String(), "no value bets found")
	assert.Contains(t, buf.String(), "PARTIAL")
}

func TestConsole_Notify_TruncatesLabel(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true, false, 12)

	require.NoError(t, n.Notify(context.Background(), makeRanking(makeCandidate("Wolverhampton Wanderers", "Brighton", 0.6, 2.0))))
	assert.Contains(t, buf.String(), "Wolverham...")
	assert.NotContains(t, buf.String(), "Wolverhampton Wanderers")
}

func TestConsole_PrintFavorites(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false, false, 40)

	n.PrintFavorites(nil)
	assert.Contains(t, buf.String(), "No favorites saved")

	buf.Reset()
	c := makeCandidate("Arsenal", "Chelsea", 0.65, 1.80)
	n.PrintFavorites([]domain.Favorite{{Key: c.Key().String(), Candidate: c, SavedAt: kickoff}})
	assert.Contains(t, buf.String(), "Arsenal vs Chelsea")
	assert.Contains(t, buf.String(), "+17.0%")
}

func TestConsole_PrintHistory(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false, false, 40)

	n.PrintHistory(nil, kickoff.Add(-time.Hour), kickoff)
	assert.Contains(t, buf.String(), "0 candidates")

	buf.Reset()
	c := makeCandidate("Arsenal", "Chelsea", 0.65, 1.80)
	n.PrintHistory([]domain.Candidate{c}, kickoff.Add(-time.Hour), kickoff)
	assert.Contains(t, buf.String(), "1 candidates")
	assert.Contains(t, buf.String(), "arsenal_chelsea|match_result")
}

// --- Telegram ---

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestTelegram_Notify(t *testing.T) {
	fs := &fakeSender{}
	tg := notify.NewTelegramSender(fs, 42, 10)

	require.NoError(t, tg.Notify(context.Background(), makeRanking(makeCandidate("Arsenal", "Chelsea", 0.65, 1.80))))

	require.Len(t, fs.sent, 1)
	msg := fs.sent[0]
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdown, msg.ParseMode)
	assert.Contains(t, msg.Text, "*Arsenal vs Chelsea*")
	assert.Contains(t, msg.Text, "@1.80 (pinnacle)")
}

func TestTelegram_Notify_EmptySendsNothing(t *testing.T) {
	fs := &fakeSender{}
	tg := notify.NewTelegramSender(fs, 42, 10)

	require.NoError(t, tg.Notify(context.Background(), makeRanking()))
	assert.Empty(t, fs.sent)
}

func TestTelegram_Notify_SendError(t *testing.T) {
	tg := notify.NewTelegramSender(&fakeSender{err: errors.New("boom")}, 42, 10)

	err := tg.Notify(context.Background(), makeRanking(makeCandidate("A", "B", 0.65, 1.80)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestFormatTelegram_EscapesAndLimits(t *testing.T) {
	r := makeRanking(
		makeCandidate("Man_City", "Spurs", 0.65, 1.80),
		makeCandidate("C", "D", 0.60, 1.90),
		makeCandidate("E", "F", 0.55, 2.00),
	)
	r.Diagnostics.Partial = true

	text := notify.FormatTelegram(r, 2)
	assert.Contains(t, text, `Man\_City`)
	assert.Contains(t, text, "and 1 more")
	assert.Contains(t, text, "partial pass")
	assert.NotContains(t, text, "E vs F")
}

// --- Multi ---

type stubNotifier struct {
	calls int
	err   error
}

func (s *stubNotifier) Notify(_ context.Context, _ domain.Ranking) error {
	s.calls++
	return s.err
}

func TestMulti_Notify_AllSinksCalled(t *testing.T) {
	failing := &stubNotifier{err: errors.New("sink down")}
	ok := &stubNotifier{}
	m := notify.NewMulti(failing, nil, ok)

	assert.Equal(t, 2, m.Len())
	err := m.Notify(context.Background(), makeRanking())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink down")
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, ok.calls)
}
