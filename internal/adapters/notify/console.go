package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/alejandrodnm/valuebot/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier.
type Console struct {
	out        io.Writer
	table      bool
	explain    bool
	labelWidth int
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table, explain bool, labelWidth int) *Console {
	return NewConsoleWriter(os.Stdout, table, explain, labelWidth)
}

// NewConsoleWriter crea un notificador sobre cualquier writer (tests).
func NewConsoleWriter(w io.Writer, table, explain bool, labelWidth int) *Console {
	if labelWidth <= 0 {
		labelWidth = 40
	}
	return &Console{out: w, table: table, explain: explain, labelWidth: labelWidth}
}

// Notify imprime el ranking en el modo configurado.
func (c *Console) Notify(_ context.Context, r domain.Ranking) error {
	if len(r.Candidates) == 0 {
		fmt.Fprintf(c.out, "[%s] no value bets found (%s)\n", clock(r), diagLine(r.Diagnostics))
		return nil
	}

	if c.table {
		c.printFull(r)
	} else {
		c.printCompact(r)
	}

	if c.explain {
		c.printExplain(r.Candidates)
	}
	return nil
}

// printCompact imprime lo esencial en una línea más los 4 primeros.
func (c *Console) printCompact(r domain.Ranking) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d bets, best edge %+.1f%%", clock(r), len(r.Candidates), r.BestEdge()*100)

	for i, cand := range r.Candidates {
		if i >= 4 {
			break
		}
		fmt.Fprintf(&sb, " | %s %s @%.2f %+.1f%%",
			compactName(cand.Event.Label(), 25), cand.MarketLabel, cand.ReferencePrice, cand.Edge*100)
	}
	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime la tabla con las métricas de cada candidato.
func (c *Console) printFull(r domain.Ranking) {
	fmt.Fprintf(c.out, "\n[%s] %d value bets (%s)\n", clock(r), len(r.Candidates), diagLine(r.Diagnostics))

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Match", "Kick-off", "Market", "Odds", "Book", "Model", "Implied", "Edge", "Return", "Books", "Spread")

	for i, cand := range r.Candidates {
		table.Append(
			fmt.Sprintf("%d", i+1),
			domain.TruncateLabel(cand.Event.Label(), c.labelWidth),
			cand.Event.StartTime.Format("01-02 15:04"),
			cand.MarketLabel,
			fmt.Sprintf("%.2f", cand.ReferencePrice),
			cand.ReferenceSource,
			fmt.Sprintf("%.1f%%", cand.ModelProbability*100),
			fmt.Sprintf("%.1f%%", cand.ImpliedProbability*100),
			fmt.Sprintf("%+.1f%%", cand.Edge*100),
			fmt.Sprintf("%.1f%%", cand.ReturnPct),
			fmt.Sprintf("%d", cand.Aggregation.Sources),
			fmt.Sprintf("%.2f", cand.Aggregation.Dispersion),
		)
	}
	table.Render()

	fmt.Fprintln(c.out, "  Edge = model × odds − 1 | Return = edge / (odds − 1)")
	fmt.Fprintln(c.out, "  Books = independent sources | Spread = best − worst odds")
}

// printExplain imprime el cálculo paso a paso de los 3 primeros.
func (c *Console) printExplain(cands []domain.Candidate) {
	top := cands
	if len(top) > 3 {
		top = cands[:3]
	}

	fmt.Fprintln(c.out, "=== EXPLAIN: step-by-step ===")
	for i, cand := range top {
		agg := cand.Aggregation
		fmt.Fprintf(c.out, "\n--- #%d: %s  [%s] ---\n", i+1, cand.Event.Label(), cand.MarketLabel)
		fmt.Fprintf(c.out, "  League: %s  Kick-off: %s\n",
			cand.Event.League.Name, cand.Event.StartTime.Format("2006-01-02 15:04 MST"))

		fmt.Fprintf(c.out, "\n  1. MODEL:\n")
		for _, k := range sortedKeys(cand.Estimate.Inputs) {
			fmt.Fprintf(c.out, "     %-12s %.4f\n", k, cand.Estimate.Inputs[k])
		}
		fmt.Fprintf(c.out, "     >>> P(model) = %.4f\n", cand.ModelProbability)

		fmt.Fprintf(c.out, "\n  2. PRICES (%d books):\n", agg.Sources)
		fmt.Fprintf(c.out, "     best=%.2f (%s)  worst=%.2f  mean=%.3f  spread=%.2f\n",
			agg.Best, agg.BestSource, agg.Worst, agg.Mean, agg.Dispersion)
		fmt.Fprintf(c.out, "     consensus (no margin) = %.4f\n", cand.ConsensusProbability)

		fmt.Fprintf(c.out, "\n  3. EDGE:\n")
		fmt.Fprintf(c.out, "     reference = %.2f (%s)  implied = %.4f\n",
			cand.ReferencePrice, cand.ReferenceSource, cand.ImpliedProbability)
		fmt.Fprintf(c.out, "     %.4f × %.2f − 1 = %+.4f\n", cand.ModelProbability, cand.ReferencePrice, cand.Edge)
		fmt.Fprintf(c.out, "     >>> RETURN: %.2f%%\n", cand.ReturnPct)
	}
	fmt.Fprintln(c.out)
}

// PrintFavorites imprime los favoritos guardados.
func (c *Console) PrintFavorites(favs []domain.Favorite) {
	if len(favs) == 0 {
		fmt.Fprintln(c.out, "\n  No favorites saved.")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Saved", "Match", "Kick-off", "Market", "Odds", "Edge", "Return")
	for i, f := range favs {
		cand := f.Candidate
		table.Append(
			fmt.Sprintf("%d", i+1),
			f.SavedAt.Format("01-02 15:04"),
			domain.TruncateLabel(cand.Event.Label(), c.labelWidth),
			cand.Event.StartTime.Format("01-02 15:04"),
			cand.MarketLabel,
			fmt.Sprintf("%.2f", cand.ReferencePrice),
			fmt.Sprintf("%+.1f%%", cand.Edge*100),
			fmt.Sprintf("%.1f%%", cand.ReturnPct),
		)
	}
	table.Render()
}

// PrintHistory imprime los candidatos persistidos en una ventana de tiempo.
func (c *Console) PrintHistory(cands []domain.Candidate, from, to time.Time) {
	fmt.Fprintf(c.out, "\nHistory %s → %s: %d candidates\n",
		from.Local().Format("01-02 15:04"), to.Local().Format("01-02 15:04"), len(cands))
	if len(cands) == 0 {
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Match", "Kick-off", "Market", "Odds", "Book", "Edge", "Return", "Key")
	for i, cand := range cands {
		table.Append(
			fmt.Sprintf("%d", i+1),
			domain.TruncateLabel(cand.Event.Label(), c.labelWidth),
			cand.Event.StartTime.Format("01-02 15:04"),
			cand.MarketLabel,
			fmt.Sprintf("%.2f", cand.ReferencePrice),
			cand.ReferenceSource,
			fmt.Sprintf("%+.1f%%", cand.Edge*100),
			fmt.Sprintf("%.1f%%", cand.ReturnPct),
			cand.Key().String(),
		)
	}
	table.Render()
}

// --- helpers ---

func clock(r domain.Ranking) string {
	t := r.FinishedAt
	if t.IsZero() {
		t = time.Now()
	}
	return t.Local().Format("15:04:05")
}

func diagLine(d domain.Diagnostics) string {
	s := fmt.Sprintf("events:%d skipped:%d/%d/%d filtered:%d/%d/%d dup:%d",
		d.Events, d.LeaguesSkipped, d.EventsSkipped, d.QuotesSkipped,
		d.FilteredPrice, d.FilteredSources, d.FilteredEdge, d.Duplicates)
	if d.Partial {
		s += " PARTIAL"
	}
	return s
}

func compactName(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	cut := string(r[:maxLen])
	if idx := strings.LastIndex(cut, " "); idx > len(cut)/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
